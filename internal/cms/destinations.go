package cms

import (
	"errors"
	"io/fs"
	"sort"
)

// Destinations lists the discover pages for lang in display order. Destinations without
// a translation are served in the fallback locale.
func (s *Store) Destinations(lang string) ([]Page, error) {
	slugs, err := s.slugs(KindDiscover, s.fallback)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []Page{}, nil
		}
		return nil, err
	}
	out := make([]Page, 0, len(slugs))
	for _, slug := range slugs {
		page, err := s.Page(KindDiscover, slug, lang)
		if err != nil {
			return nil, err
		}
		out = append(out, page)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].Slug < out[j].Slug
	})
	return out, nil
}

// Destination returns one discover page.
func (s *Store) Destination(slug, lang string) (Page, error) {
	return s.Page(KindDiscover, slug, lang)
}

// Legal returns a legal page (terms, sales-terms).
func (s *Store) Legal(slug, lang string) (Page, error) {
	return s.Page(KindLegal, slug, lang)
}
