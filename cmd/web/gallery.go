package main

import (
	"bufio"
	"bytes"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/villa-azur/web/internal/gallery"
	handlersPkg "github.com/villa-azur/web/internal/handlers"
	mw "github.com/villa-azur/web/internal/middleware"
	"github.com/villa-azur/web/internal/observability"
)

const streamEvent = "slide"

func (s *server) interval() time.Duration {
	if s.cfg.Gallery.AutoplayInterval > 0 {
		return s.cfg.Gallery.AutoplayInterval
	}
	return gallery.DefaultInterval
}

// galleryState restores the view encoded in the query and replays any key press or
// click it carries.
func (s *server) galleryState(r *http.Request) gallery.State {
	q := r.URL.Query()
	state := gallery.Restore(s.catalogs[s.lang(r)], mw.LayoutFrom(r.Context()), q)
	state.Apply(q)
	return state
}

func (s *server) galleryPage(w http.ResponseWriter, r *http.Request) {
	lang := s.lang(r)
	state := s.galleryState(r)
	data := s.page(r, s.bundle.T(lang, "gallery.title"), s.bundle.T(lang, "gallery.description"), "")
	if state.Category() != gallery.All || state.Index() > 0 || state.LightboxOpen() {
		data.SEO.Robots = "noindex,follow"
	}
	g := handlersPkg.BuildGalleryData(lang, state, s.interval())
	data.Gallery = &g
	s.renderPage(w, r, http.StatusOK, "gallery", data)
}

// galleryView answers gallery actions with the updated fragment. Without htmx the
// browser is sent to the full page for the resulting state.
func (s *server) galleryView(w http.ResponseWriter, r *http.Request) {
	lang := s.lang(r)
	state := s.galleryState(r)
	g := handlersPkg.BuildGalleryData(lang, state, s.interval())
	pageURL := handlersPkg.Href(g.PageURL, g.Snapshot.Query)
	if !mw.IsHTMX(r.Context()) {
		http.Redirect(w, r, pageURL, http.StatusSeeOther)
		return
	}
	w.Header().Set("HX-Push-Url", pageURL)
	s.renderTemplate(w, r, http.StatusOK, "frag_gallery", handlersPkg.PageData{Lang: lang, Layout: state.Layout(), Gallery: &g})
}

// galleryAutoplay streams the gallery stage as server-sent events while autoplay runs.
// The viewer is unmounted when the client goes away.
func (s *server) galleryAutoplay(w http.ResponseWriter, r *http.Request) {
	lang := s.lang(r)
	layout := mw.LayoutFrom(r.Context())
	if !layout.Autoplay {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	logger := observability.FromContextOr(r.Context(), s.logger)

	state := gallery.Restore(s.catalogs[lang], layout, r.URL.Query())
	updates := make(chan gallery.Snapshot, 1)
	viewer := gallery.Mount(r.Context(), state, s.interval(), func(snap gallery.Snapshot) {
		// Keep only the latest snapshot when the client reads slowly.
		select {
		case <-updates:
		default:
		}
		select {
		case updates <- snap:
		default:
		}
	}, s.autoplayOpts...)
	defer viewer.Unmount()

	if snap := viewer.Do(func(st *gallery.State) { st.StartAutoplay() }); !snap.Autoplaying {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		logger.Debug("gallery stream: write deadline not supported", zap.Error(err))
	}
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		logger.Warn("gallery stream: flush unsupported", zap.Error(err))
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-s.streams:
			return
		case snap := <-updates:
			g := handlersPkg.NewGalleryData(lang, snap, s.interval())
			body, err := s.render.fragment("gallery_stage", handlersPkg.PageData{Lang: lang, Layout: layout, Gallery: &g})
			if err != nil {
				logger.Error("gallery stream: render", zap.Error(err))
				return
			}
			if err := writeEvent(w, streamEvent, body); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}

// writeEvent frames data as one server-sent event, one data line per input line.
func writeEvent(w http.ResponseWriter, event string, data []byte) error {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "event: %s\n", event)
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), len(data)+1)
	for sc.Scan() {
		buf.WriteString("data: ")
		buf.Write(sc.Bytes())
		buf.WriteByte('\n')
	}
	buf.WriteByte('\n')
	_, err := w.Write(buf.Bytes())
	return err
}
