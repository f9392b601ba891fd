package handlers

import "github.com/villa-azur/web/internal/seo"

// Villa facts shared by pages and structured data.
var Villa = seo.Business{
	Name:       "Villa Azur",
	Email:      "contact@villa-azur.com",
	Telephone:  "+33 4 93 35 00 00",
	PriceRange: "€€€€",
	Address: seo.Address{
		Street:     "Avenue Winston Churchill",
		Locality:   "Roquebrune-Cap-Martin",
		PostalCode: "06190",
		Region:     "Provence-Alpes-Côte d'Azur",
		Country:    "FR",
	},
	Latitude:  43.756,
	Longitude: 7.452,
}

// Details returns the contact block for templates.
func Details() ContactDetails {
	return ContactDetails{
		Email:     Villa.Email,
		Phone:     Villa.Telephone,
		Address:   Villa.Address.Locality + ", France",
		Latitude:  Villa.Latitude,
		Longitude: Villa.Longitude,
	}
}
