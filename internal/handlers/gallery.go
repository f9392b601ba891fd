package handlers

import (
	"time"

	"github.com/villa-azur/web/internal/gallery"
)

// GalleryData is the view model for the gallery page and its fragments.
type GalleryData struct {
	Lang       string
	Snapshot   gallery.Snapshot
	PageURL    string
	ViewURL    string
	StreamURL  string
	IntervalMS int64
}

// BuildGalleryData wraps a gallery state for rendering.
func BuildGalleryData(lang string, state gallery.State, interval time.Duration) GalleryData {
	return NewGalleryData(lang, state.Snapshot(), interval)
}

// NewGalleryData wraps an already captured snapshot, as pushed by the autoplay stream.
func NewGalleryData(lang string, snap gallery.Snapshot, interval time.Duration) GalleryData {
	return GalleryData{
		Lang:       lang,
		Snapshot:   snap,
		PageURL:    "/" + lang + "/galerie",
		ViewURL:    "/" + lang + "/galerie/view",
		StreamURL:  "/" + lang + "/galerie/autoplay",
		IntervalMS: interval.Milliseconds(),
	}
}

// Href joins a fragment URL and an encoded state.
func Href(base, query string) string {
	if query == "" {
		return base
	}
	return base + "?" + query
}
