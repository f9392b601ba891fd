package handlers

import (
	"github.com/villa-azur/web/internal/cms"
	"github.com/villa-azur/web/internal/gallery"
	"github.com/villa-azur/web/internal/nav"
	"github.com/villa-azur/web/internal/seo"
)

// PageData is the view model for every page rendered through the shared layout.
type PageData struct {
	Title     string
	Lang      string
	SEO       seo.Meta
	Analytics Analytics

	Path        string
	Nav         []nav.RenderedItem
	Breadcrumbs []nav.Crumb
	Languages   []nav.Language
	CSRFToken   string
	Layout      gallery.Layout
	Contact     ContactDetails

	// Optional per-page view model payloads
	Home         *HomeData
	Villa        *VillaData
	Gallery      *GalleryData
	Destinations []cms.Page
	Content      *cms.Page
	Form         *ContactForm
	Status       *StatusData
}

// StatusData backs the error pages.
type StatusData struct {
	Code       int
	TitleKey   string
	MessageKey string
}

// ContactDetails is shown in the footer and on the contact page.
type ContactDetails struct {
	Email     string
	Phone     string
	Address   string
	Latitude  float64
	Longitude float64
}
