package gallery

import (
	"errors"
	"fmt"
	"os"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

// Category labels a group of media items.
type Category string

// All selects the whole catalog.
const All Category = "all"

// Aspect hints at the layout box of an item. It never changes behaviour.
type Aspect string

const (
	AspectLandscape Aspect = "landscape"
	AspectPortrait  Aspect = "portrait"
	AspectPanoramic Aspect = "panoramic"
)

// MediaItem is a single photo shown by the gallery.
type MediaItem struct {
	Source   string
	AltText  string
	Category Category
	Aspect   Aspect
}

// Catalog is the ordered, immutable list of media and the closed set of categories
// the filter recognises.
type Catalog struct {
	categories []Category
	items      []MediaItem
	alts       []map[string]string
	fallback   string
}

// ErrEmptyCatalog is returned when a catalog file declares no items.
var ErrEmptyCatalog = errors.New("gallery: catalog has no items")

type catalogFile struct {
	DefaultLocale string        `yaml:"default_locale"`
	Categories    []string      `yaml:"categories"`
	Items         []catalogItem `yaml:"items"`
}

type catalogItem struct {
	Source   string            `yaml:"src"`
	Category string            `yaml:"category"`
	Aspect   string            `yaml:"aspect"`
	Alt      map[string]string `yaml:"alt"`
}

// NewCatalog builds a catalog from already localised items.
func NewCatalog(categories []Category, items []MediaItem) *Catalog {
	c := &Catalog{
		categories: append([]Category(nil), categories...),
		items:      append([]MediaItem(nil), items...),
	}
	return c
}

// LoadCatalog reads a YAML catalog from disk.
func LoadCatalog(file string) (*Catalog, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("gallery: read catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes the YAML catalog format.
func ParseCatalog(data []byte) (*Catalog, error) {
	var raw catalogFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("gallery: decode catalog: %w", err)
	}
	if len(raw.Items) == 0 {
		return nil, ErrEmptyCatalog
	}
	c := &Catalog{fallback: strings.TrimSpace(raw.DefaultLocale)}
	seen := map[Category]bool{}
	for _, name := range raw.Categories {
		cat := Category(strings.ToLower(strings.TrimSpace(name)))
		if cat == "" || cat == All || seen[cat] {
			continue
		}
		seen[cat] = true
		c.categories = append(c.categories, cat)
	}
	for i, it := range raw.Items {
		src := strings.TrimSpace(it.Source)
		if src == "" {
			return nil, fmt.Errorf("gallery: item %d has no src", i)
		}
		c.items = append(c.items, MediaItem{
			Source:   src,
			Category: Category(strings.ToLower(strings.TrimSpace(it.Category))),
			Aspect:   parseAspect(it.Aspect),
		})
		c.alts = append(c.alts, it.Alt)
	}
	return c, nil
}

func parseAspect(v string) Aspect {
	switch Aspect(strings.ToLower(strings.TrimSpace(v))) {
	case AspectPortrait:
		return AspectPortrait
	case AspectPanoramic:
		return AspectPanoramic
	default:
		return AspectLandscape
	}
}

// Categories returns the recognised categories in display order.
func (c *Catalog) Categories() []Category {
	if c == nil {
		return nil
	}
	return append([]Category(nil), c.categories...)
}

// HasCategory reports whether cat is part of the closed category set.
func (c *Catalog) HasCategory(cat Category) bool {
	if c == nil {
		return false
	}
	for _, known := range c.categories {
		if known == cat {
			return true
		}
	}
	return false
}

// Items returns a copy of every item in catalog order.
func (c *Catalog) Items() []MediaItem {
	if c == nil {
		return nil
	}
	return append([]MediaItem(nil), c.items...)
}

// Len is the size of the full catalog.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.items)
}

// Localized returns a catalog whose alt text is resolved for lang, falling back to the
// catalog default locale and then to a name derived from the file.
func (c *Catalog) Localized(lang string) *Catalog {
	if c == nil {
		return nil
	}
	out := &Catalog{
		categories: c.categories,
		items:      make([]MediaItem, len(c.items)),
		fallback:   c.fallback,
	}
	for i, item := range c.items {
		if i < len(c.alts) {
			item.AltText = firstNonEmpty(c.alts[i][lang], c.alts[i][c.fallback], item.AltText)
		}
		if item.AltText == "" {
			item.AltText = altFromSource(item.Source)
		}
		out.items[i] = item
	}
	return out
}

// MissingAlt lists the sources that have no alt text for lang.
func (c *Catalog) MissingAlt(lang string) []string {
	if c == nil {
		return nil
	}
	var missing []string
	for i, item := range c.items {
		if i >= len(c.alts) || strings.TrimSpace(c.alts[i][lang]) == "" {
			missing = append(missing, item.Source)
		}
	}
	return missing
}

func altFromSource(src string) string {
	base := path.Base(src)
	base = strings.TrimSuffix(base, path.Ext(base))
	return strings.ReplaceAll(base, "-", " ")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
