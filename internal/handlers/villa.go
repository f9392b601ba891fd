package handlers

import "github.com/villa-azur/web/internal/gallery"

// Fact is a headline figure on the villa page.
type Fact struct {
	Value    string
	LabelKey string
}

// VillaData is the view model for the villa page.
type VillaData struct {
	Facts       []Fact
	Amenities   []string
	Carousel    gallery.Snapshot
	PageURL     string
	CarouselURL string
	Form        *ContactForm
}

var villaFacts = []Fact{
	{Value: "5", LabelKey: "villa.fact.bedrooms"},
	{Value: "5", LabelKey: "villa.fact.bathrooms"},
	{Value: "10", LabelKey: "villa.fact.guests"},
	{Value: "450 m²", LabelKey: "villa.fact.surface"},
}

var villaAmenities = []string{
	"villa.amenity.pool",
	"villa.amenity.seaview",
	"villa.amenity.garden",
	"villa.amenity.aircon",
	"villa.amenity.wifi",
	"villa.amenity.parking",
	"villa.amenity.kitchen",
	"villa.amenity.gym",
}

// BuildVillaData assembles the villa page around a carousel state.
func BuildVillaData(lang string, carousel gallery.State, form *ContactForm) VillaData {
	return VillaData{
		Facts:       villaFacts,
		Amenities:   villaAmenities,
		Carousel:    carousel.Snapshot(),
		PageURL:     "/" + lang + "/villa",
		CarouselURL: "/" + lang + "/villa/carousel",
		Form:        form,
	}
}
