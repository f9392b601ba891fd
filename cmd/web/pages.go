package main

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/villa-azur/web/internal/cms"
	"github.com/villa-azur/web/internal/contact"
	"github.com/villa-azur/web/internal/gallery"
	handlersPkg "github.com/villa-azur/web/internal/handlers"
	mw "github.com/villa-azur/web/internal/middleware"
	"github.com/villa-azur/web/internal/nav"
	"github.com/villa-azur/web/internal/observability"
	"github.com/villa-azur/web/internal/seo"
)

const defaultOGImage = "/static/img/home/hero.jpg"

func (s *server) lang(r *http.Request) string {
	if lang, ok := mw.Locale(r.Context()); ok {
		return lang
	}
	return mw.PreferredLocale(s.bundle, r)
}

// page assembles the view model every layout render needs. title and description are
// already translated.
func (s *server) page(r *http.Request, title, description, image string) handlersPkg.PageData {
	lang := s.lang(r)
	rel := s.bundle.StripLocale(r.URL.Path)
	full := r.URL.Path
	if r.URL.RawQuery != "" {
		full += "?" + r.URL.RawQuery
	}
	brand := s.bundle.T(lang, "brand.name")
	if title == "" {
		title = brand
	} else if title != brand {
		title = title + " | " + brand
	}
	if image == "" {
		image = defaultOGImage
	}

	meta := seo.Page(s.cfg.Site.BaseURL, s.bundle, lang, s.bundle.SwitchPath(r.URL.Path, lang), title, description, image)
	crumbs := nav.Breadcrumbs(lang, rel)
	if len(crumbs) > 1 {
		items := make([]seo.BreadcrumbItem, 0, len(crumbs))
		for _, c := range crumbs {
			name := c.Label
			if c.LabelKey != "" {
				name = s.bundle.T(lang, c.LabelKey)
			}
			items = append(items, seo.BreadcrumbItem{Name: name, Item: seo.Absolute(s.cfg.Site.BaseURL, c.Href)})
		}
		meta.AddJSONLD(seo.BreadcrumbList(items))
	}

	return handlersPkg.PageData{
		Title:       title,
		Lang:        lang,
		SEO:         meta,
		Analytics:   s.analytics,
		Path:        rel,
		Nav:         nav.Build(lang, rel),
		Breadcrumbs: crumbs,
		Languages:   nav.Languages(s.bundle, lang, full),
		CSRFToken:   mw.CSRFToken(r),
		Layout:      mw.LayoutFrom(r.Context()),
		Contact:     handlersPkg.Details(),
	}
}

func (s *server) business(lang string) seo.Business {
	b := handlersPkg.Villa
	b.Description = s.bundle.T(lang, "villa.description")
	b.URL = seo.Absolute(s.cfg.Site.BaseURL, "/"+lang+"/villa")
	b.Image = seo.Absolute(s.cfg.Site.BaseURL, defaultOGImage)
	data := handlersPkg.BuildVillaData(lang, gallery.NewState(s.villa[lang], villaLayout), nil)
	for _, key := range data.Amenities {
		b.Amenities = append(b.Amenities, s.bundle.T(lang, key))
	}
	return b
}

func (s *server) home(w http.ResponseWriter, r *http.Request) {
	lang := s.lang(r)
	data := s.page(r, s.bundle.T(lang, "home.title"), s.bundle.T(lang, "home.description"), "")
	data.SEO.AddJSONLD(seo.WebSite(s.bundle.T(lang, "brand.name"), seo.Absolute(s.cfg.Site.BaseURL, "/"+lang), lang))
	data.SEO.AddJSONLD(seo.LodgingBusiness(s.business(lang)))
	home := handlersPkg.BuildHomeData(lang)
	data.Home = &home
	s.renderPage(w, r, http.StatusOK, "home", data)
}

func (s *server) villaState(r *http.Request) gallery.State {
	q := r.URL.Query()
	state := gallery.Restore(s.villa[s.lang(r)], villaLayout, q)
	state.Apply(q)
	return state
}

func (s *server) villaPage(w http.ResponseWriter, r *http.Request) {
	lang := s.lang(r)
	data := s.page(r, s.bundle.T(lang, "villa.title"), s.bundle.T(lang, "villa.description"), "")
	data.SEO.AddJSONLD(seo.LodgingBusiness(s.business(lang)))
	form := handlersPkg.NewContactForm(lang, contact.SourceVillaPage, data.CSRFToken)
	villa := handlersPkg.BuildVillaData(lang, s.villaState(r), form)
	data.Villa = &villa
	data.Form = form
	s.renderPage(w, r, http.StatusOK, "villa", data)
}

func (s *server) villaCarousel(w http.ResponseWriter, r *http.Request) {
	lang := s.lang(r)
	state := s.villaState(r)
	if !mw.IsHTMX(r.Context()) {
		http.Redirect(w, r, handlersPkg.Href("/"+lang+"/villa", state.Query().Encode()), http.StatusSeeOther)
		return
	}
	villa := handlersPkg.BuildVillaData(lang, state, nil)
	s.renderTemplate(w, r, http.StatusOK, "frag_villa_carousel", handlersPkg.PageData{Lang: lang, Villa: &villa})
}

func (s *server) discover(w http.ResponseWriter, r *http.Request) {
	lang := s.lang(r)
	pages, err := s.content.Destinations(lang)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	data := s.page(r, s.bundle.T(lang, "discover.title"), s.bundle.T(lang, "discover.description"), "")
	data.Destinations = pages
	s.renderPage(w, r, http.StatusOK, "discover", data)
}

func (s *server) destination(w http.ResponseWriter, r *http.Request) {
	lang := s.lang(r)
	page, err := s.content.Destination(chi.URLParam(r, "slug"), lang)
	if err != nil {
		s.contentError(w, r, err)
		return
	}
	data := s.page(r, seoTitle(page), seoDescription(page), seoImage(page))
	data.SEO.AddJSONLD(seo.TouristAttraction(page.Title, page.Summary, data.SEO.Canonical, data.SEO.OG.Image))
	data.Content = &page
	s.renderPage(w, r, http.StatusOK, "destination", data)
}

func (s *server) legal(slug string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := s.content.Legal(slug, s.lang(r))
		if err != nil {
			s.contentError(w, r, err)
			return
		}
		data := s.page(r, seoTitle(page), seoDescription(page), seoImage(page))
		data.Content = &page
		s.renderPage(w, r, http.StatusOK, "legal", data)
	}
}

func seoTitle(p cms.Page) string {
	if p.SEO.Title != "" {
		return p.SEO.Title
	}
	return p.Title
}

func seoDescription(p cms.Page) string {
	if p.SEO.Description != "" {
		return p.SEO.Description
	}
	return p.Summary
}

func seoImage(p cms.Page) string {
	if p.SEO.OGImage != "" {
		return p.SEO.OGImage
	}
	return p.Image
}

// switchLang moves to the same page in another locale and remembers the choice. Only
// same-site paths are accepted as the return target.
func (s *server) switchLang(w http.ResponseWriter, r *http.Request) {
	target := strings.ToLower(chi.URLParam(r, "target"))
	if !s.bundle.Has(target) {
		s.notFound(w, r)
		return
	}
	dest := "/" + target
	if raw := r.URL.Query().Get("path"); raw != "" {
		u, err := url.Parse(raw)
		if err == nil && !u.IsAbs() && u.Host == "" && strings.HasPrefix(u.Path, "/") && !strings.HasPrefix(u.Path, "//") {
			dest = s.bundle.SwitchPath(u.Path, target)
			if u.RawQuery != "" {
				dest += "?" + u.RawQuery
			}
		}
	}
	mw.RememberLocale(w, r, target, s.sessions.Secure())
	http.Redirect(w, r, dest, http.StatusSeeOther)
}

func (s *server) status(w http.ResponseWriter, r *http.Request, code int, key string) {
	lang := s.lang(r)
	data := s.page(r, s.bundle.T(lang, "status."+key+".title"), "", "")
	data.SEO.Robots = "noindex"
	data.SEO.JSONLD = nil
	data.Breadcrumbs = nil
	data.Status = &handlersPkg.StatusData{Code: code, TitleKey: "status." + key + ".title", MessageKey: "status." + key + ".message"}
	s.renderPage(w, r, code, "status", data)
}

func (s *server) notFound(w http.ResponseWriter, r *http.Request) {
	s.status(w, r, http.StatusNotFound, "notfound")
}

func (s *server) renderPanic(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") || r.Header.Get("HX-Request") == "true" {
		writeAPIError(w, r, "internal", "internal error", http.StatusInternalServerError, nil)
		return
	}
	s.status(w, r, http.StatusInternalServerError, "error")
}

func (s *server) serverError(w http.ResponseWriter, r *http.Request, err error) {
	observability.FromContextOr(r.Context(), s.logger).Error("request failed", zap.Error(err))
	s.status(w, r, http.StatusInternalServerError, "error")
}

func (s *server) contentError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, cms.ErrNotFound) {
		s.notFound(w, r)
		return
	}
	s.serverError(w, r, err)
}

func (s *server) tooManyRequests(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		writeAPIError(w, r, "rate_limited", "too many requests", http.StatusTooManyRequests, nil)
		return
	}
	s.status(w, r, http.StatusTooManyRequests, "ratelimited")
}
