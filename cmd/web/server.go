package main

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/villa-azur/web/internal/cms"
	"github.com/villa-azur/web/internal/config"
	"github.com/villa-azur/web/internal/contact"
	"github.com/villa-azur/web/internal/gallery"
	handlersPkg "github.com/villa-azur/web/internal/handlers"
	"github.com/villa-azur/web/internal/httpx"
	"github.com/villa-azur/web/internal/i18n"
	mw "github.com/villa-azur/web/internal/middleware"
	"github.com/villa-azur/web/internal/observability"
)

// server carries everything the handlers need. It is built once at startup.
type server struct {
	cfg       config.Config
	logger    *zap.Logger
	bundle    *i18n.Bundle
	catalogs  map[string]*gallery.Catalog
	villa     map[string]*gallery.Catalog
	content   *cms.Store
	contact   *contact.Service
	sessions  *mw.Sessions
	limiter   *mw.RateLimiter
	render    *renderer
	analytics handlersPkg.Analytics
	startedAt time.Time
	streams   chan struct{}
	closeOnce sync.Once

	relay        contact.Relay
	publisher    contact.Publisher
	clock        func() time.Time
	autoplayOpts []gallery.AutoplayOption
}

type serverOption func(*server)

func withRelay(r contact.Relay) serverOption {
	return func(s *server) { s.relay = r }
}

func withPublisher(p contact.Publisher) serverOption {
	return func(s *server) { s.publisher = p }
}

func withClock(clock func() time.Time) serverOption {
	return func(s *server) { s.clock = clock }
}

func withAutoplayOptions(opts ...gallery.AutoplayOption) serverOption {
	return func(s *server) { s.autoplayOpts = append(s.autoplayOpts, opts...) }
}

// villaLayout drives the villa page carousel: one column, never autoplays.
var villaLayout = gallery.Layout{Name: "villa", Columns: 1}

func newServer(cfg config.Config, logger *zap.Logger, opts ...serverOption) (*server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &server{
		cfg:       cfg,
		logger:    logger,
		clock:     time.Now,
		startedAt: time.Now(),
		streams:   make(chan struct{}),
		analytics: handlersPkg.AnalyticsFromConfig(cfg),
	}
	for _, opt := range opts {
		opt(s)
	}

	bundle, err := i18n.Load(cfg.Paths.Locales, cfg.Site.DefaultLocale, cfg.Site.Locales)
	if err != nil {
		return nil, fmt.Errorf("load locales: %w", err)
	}
	s.bundle = bundle

	catalog, err := gallery.LoadCatalog(filepath.Join(cfg.Paths.Content, "gallery.yaml"))
	if err != nil {
		return nil, fmt.Errorf("load gallery: %w", err)
	}
	villa, err := gallery.LoadCatalog(filepath.Join(cfg.Paths.Content, "villa.yaml"))
	if err != nil {
		return nil, fmt.Errorf("load villa images: %w", err)
	}
	s.catalogs = map[string]*gallery.Catalog{}
	s.villa = map[string]*gallery.Catalog{}
	for _, lang := range bundle.Locales() {
		s.catalogs[lang] = catalog.Localized(lang)
		s.villa[lang] = villa.Localized(lang)
	}

	var storeOpts []cms.StoreOption
	if cfg.Site.Dev {
		storeOpts = append(storeOpts, cms.WithCacheTTL(0))
	}
	s.content = cms.NewStore(cfg.Paths.Content, bundle.Fallback(), storeOpts...)

	s.render, err = newRenderer(cfg.Paths.Templates, cfg.Site.Dev, bundle)
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	if s.relay == nil {
		client := contact.NewClient(cfg.Relay, logger)
		if client.Fake() {
			logger.Warn("email relay not configured; contact messages are only logged")
		}
		s.relay = client
	}
	serviceOpts := []contact.ServiceOption{contact.WithLogger(logger), contact.WithClock(s.clock)}
	if s.publisher != nil {
		serviceOpts = append(serviceOpts, contact.WithPublisher(s.publisher))
	}
	s.contact = contact.NewService(s.relay, serviceOpts...)

	s.sessions = mw.NewSessions(cfg.Session.Secret, cfg.Session.Secure)
	s.limiter = mw.NewRateLimiter(cfg.RateLimits.ContactPerMinute, time.Minute, s.clock)
	return s, nil
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	// RealIP trusts X-Forwarded-For; only the load balancer may set it.
	r.Use(chimw.RealIP)
	r.Use(observability.TraceMiddleware(s.cfg.Log.TraceProjectID))
	r.Use(observability.InjectLogger(s.logger))
	r.Use(observability.RequestLogger())
	r.Use(observability.Recovery(s.logger, s.renderPanic))
	r.Use(chimw.Compress(5))
	r.Use(mw.HTMX)
	r.Use(chimw.RequestSize(maxContactBody))
	r.Use(s.sessions.Middleware)
	r.Use(mw.CSRF(s.sessions.Secure()))
	r.Use(mw.Layout)

	r.NotFound(s.notFound)
	r.MethodNotAllowed(s.notFound)

	limit := s.limiter.Limit(http.HandlerFunc(s.tooManyRequests))
	timeout := chimw.Timeout(30 * time.Second)

	r.Get("/healthz", s.healthz)
	r.Handle("/static/*", mw.AssetsWithCache(filepath.Join(s.cfg.Paths.Public, "static"), "/static"))
	r.With(timeout, limit).Post("/api/contact", s.contactAPI)
	r.Get("/", mw.RedirectToLocale(s.bundle).ServeHTTP)

	r.Route("/{locale}", func(r chi.Router) {
		r.Use(mw.LocalePrefix(s.bundle, http.HandlerFunc(s.unprefixed)))
		r.NotFound(s.notFound)

		// Streams outlive the request timeout.
		r.Get("/galerie/autoplay", s.galleryAutoplay)

		r.Group(func(r chi.Router) {
			r.Use(timeout)
			r.Get("/", s.home)
			r.Get("/villa", s.villaPage)
			r.Get("/villa/carousel", s.villaCarousel)
			r.Get("/galerie", s.galleryPage)
			r.Get("/galerie/view", s.galleryView)
			r.Get("/decouvrir", s.discover)
			r.Get("/decouvrir/{slug}", s.destination)
			r.Get("/contact", s.contactPage)
			r.With(limit).Post("/contact", s.contactSubmit)
			r.Get("/terms", s.legal("terms"))
			r.Get("/sales-terms", s.legal("sales-terms"))
			r.Get("/lang/{target}", s.switchLang)
		})
	})
	return r
}

// unprefixed handles a first path segment that is not a served locale. Anything shaped
// like a locale is a 404; other paths are redirected under the preferred locale.
func (s *server) unprefixed(w http.ResponseWriter, r *http.Request) {
	seg := strings.ToLower(chi.URLParam(r, "locale"))
	if len(seg) == 2 || containsString(s.cfg.Site.Locales, seg) {
		s.notFound(w, r)
		return
	}
	mw.RedirectToLocale(s.bundle).ServeHTTP(w, r)
}

func containsString(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func (s *server) healthz(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.startedAt).Round(time.Second).String(),
	})
}

// closeStreams ends every open autoplay stream.
func (s *server) closeStreams() {
	s.closeOnce.Do(func() { close(s.streams) })
}
