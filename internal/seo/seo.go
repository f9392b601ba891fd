package seo

import (
	"html/template"
	"strings"

	"golang.org/x/text/language"

	"github.com/villa-azur/web/internal/i18n"
)

type OpenGraph struct {
	Title       string
	Description string
	Image       string
	Type        string
	URL         string
	SiteName    string
	Locale      string
	AltLocales  []string
}

type Twitter struct {
	Card  string
	Site  string
	Image string
}

// Alternate is one hreflang link.
type Alternate struct {
	Href     string
	Hreflang string
}

// Meta is everything the base layout puts in <head>.
type Meta struct {
	Title       string
	Description string
	Canonical   string
	Robots      string
	OG          OpenGraph
	Twitter     Twitter
	Alternates  []Alternate
	JSONLD      []template.JS
}

// Absolute joins the site base URL and a path.
func Absolute(baseURL, path string) string {
	base := strings.TrimRight(baseURL, "/")
	if path == "" || path == "/" {
		return base + "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}

// Alternates lists the page in every served locale plus x-default, which points at the
// fallback locale.
func Alternates(baseURL string, b *i18n.Bundle, path string) []Alternate {
	out := make([]Alternate, 0, len(b.Locales())+1)
	for _, l := range b.Locales() {
		out = append(out, Alternate{Href: Absolute(baseURL, b.SwitchPath(path, l)), Hreflang: l})
	}
	out = append(out, Alternate{Href: Absolute(baseURL, b.SwitchPath(path, b.Fallback())), Hreflang: "x-default"})
	return out
}

// OGLocale maps a locale to the Open Graph form ("fr_FR").
func OGLocale(lang string) string {
	tag := language.Make(lang)
	base, _ := tag.Base()
	region, _ := tag.Region()
	return base.String() + "_" + region.String()
}

// Page fills a Meta for a localized page.
func Page(baseURL string, b *i18n.Bundle, lang, path, title, description, image string) Meta {
	canonical := Absolute(baseURL, path)
	m := Meta{
		Title:       title,
		Description: description,
		Canonical:   canonical,
		Robots:      "index,follow",
		Alternates:  Alternates(baseURL, b, path),
		OG: OpenGraph{
			Title:       title,
			Description: description,
			Type:        "website",
			URL:         canonical,
			SiteName:    b.T(lang, "brand.name"),
			Locale:      OGLocale(lang),
		},
		Twitter: Twitter{Card: "summary_large_image"},
	}
	if image != "" {
		m.OG.Image = Absolute(baseURL, image)
		m.Twitter.Image = m.OG.Image
	}
	for _, l := range b.Locales() {
		if l != lang {
			m.OG.AltLocales = append(m.OG.AltLocales, OGLocale(l))
		}
	}
	return m
}

// AddJSONLD appends a structured data block.
func (m *Meta) AddJSONLD(v any) {
	if s := JSON(v); s != "" {
		m.JSONLD = append(m.JSONLD, template.JS(s))
	}
}
