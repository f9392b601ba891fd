package seo

import (
	"encoding/json"
)

// JSON marshals v to a compact JSON string. It returns an empty string on error.
func JSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// Address is a postal address.
type Address struct {
	Street     string
	Locality   string
	PostalCode string
	Region     string
	Country    string
}

// Business describes the rental for LodgingBusiness markup.
type Business struct {
	Name        string
	Description string
	URL         string
	Image       string
	Email       string
	Telephone   string
	PriceRange  string
	Address     Address
	Latitude    float64
	Longitude   float64
	Amenities   []string
}

// LodgingBusiness returns a schema.org LodgingBusiness payload.
func LodgingBusiness(b Business) map[string]any {
	m := map[string]any{
		"@context": "https://schema.org",
		"@type":    "LodgingBusiness",
		"name":     b.Name,
		"address": map[string]any{
			"@type":           "PostalAddress",
			"streetAddress":   b.Address.Street,
			"addressLocality": b.Address.Locality,
			"postalCode":      b.Address.PostalCode,
			"addressRegion":   b.Address.Region,
			"addressCountry":  b.Address.Country,
		},
		"geo": map[string]any{
			"@type":     "GeoCoordinates",
			"latitude":  b.Latitude,
			"longitude": b.Longitude,
		},
	}
	if b.Description != "" {
		m["description"] = b.Description
	}
	if b.URL != "" {
		m["url"] = b.URL
	}
	if b.Image != "" {
		m["image"] = b.Image
	}
	if b.Email != "" {
		m["email"] = b.Email
	}
	if b.Telephone != "" {
		m["telephone"] = b.Telephone
	}
	if b.PriceRange != "" {
		m["priceRange"] = b.PriceRange
	}
	if len(b.Amenities) > 0 {
		features := make([]map[string]any, 0, len(b.Amenities))
		for _, a := range b.Amenities {
			features = append(features, map[string]any{"@type": "LocationFeatureSpecification", "name": a, "value": true})
		}
		m["amenityFeature"] = features
	}
	return m
}

// WebSite returns a minimal WebSite schema.
func WebSite(name, url, inLanguage string) map[string]any {
	m := map[string]any{
		"@context": "https://schema.org",
		"@type":    "WebSite",
		"name":     name,
	}
	if url != "" {
		m["url"] = url
	}
	if inLanguage != "" {
		m["inLanguage"] = inLanguage
	}
	return m
}

// BreadcrumbItem maps name and absolute item URL.
type BreadcrumbItem struct {
	Name string
	Item string
}

// BreadcrumbList builds schema.org BreadcrumbList.
func BreadcrumbList(items []BreadcrumbItem) map[string]any {
	el := make([]map[string]any, 0, len(items))
	for i, it := range items {
		el = append(el, map[string]any{
			"@type":    "ListItem",
			"position": i + 1,
			"name":     it.Name,
			"item":     it.Item,
		})
	}
	return map[string]any{
		"@context":        "https://schema.org",
		"@type":           "BreadcrumbList",
		"itemListElement": el,
	}
}

// TouristAttraction describes a nearby destination.
func TouristAttraction(name, description, url, imageURL string) map[string]any {
	m := map[string]any{
		"@context":    "https://schema.org",
		"@type":       "TouristAttraction",
		"name":        name,
		"description": description,
	}
	if url != "" {
		m["url"] = url
	}
	if imageURL != "" {
		m["image"] = imageURL
	}
	return m
}
