package cms

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned when a page exists in neither the requested nor the fallback locale.
var ErrNotFound = errors.New("cms: not found")

// Page kinds, one directory each under the content root.
const (
	KindLegal    = "legal"
	KindDiscover = "discover"
)

// Page is a localized markdown page rendered to sanitized HTML.
type Page struct {
	Kind          string
	Slug          string
	Lang          string
	Title         string
	Summary       string
	Body          template.HTML
	Image         string
	Order         int
	DistanceKM    float64
	DriveMinutes  int
	EffectiveDate time.Time
	UpdatedAt     time.Time
	SEO           PageSEO
	// Fallback is set when the page was served from the fallback locale.
	Fallback bool
}

// PageSEO holds optional metadata overrides.
type PageSEO struct {
	Title       string
	Description string
	OGImage     string
}

type frontMatter struct {
	Title         string  `yaml:"title"`
	Summary       string  `yaml:"summary"`
	Image         string  `yaml:"image"`
	Order         int     `yaml:"order"`
	DistanceKM    float64 `yaml:"distance_km"`
	DriveMinutes  int     `yaml:"drive_minutes"`
	EffectiveDate string  `yaml:"effective_date"`
	UpdatedAt     string  `yaml:"updated_at"`
	SEO           struct {
		Title       string `yaml:"title"`
		Description string `yaml:"description"`
		OGImage     string `yaml:"og_image"`
	} `yaml:"seo"`
}

const defaultCacheTTL = 5 * time.Minute

// Store reads pages from <dir>/<kind>/<lang>/<slug>.md and caches rendered results.
type Store struct {
	dir      string
	fallback string
	ttl      time.Duration
	md       goldmark.Markdown
	policy   *bluemonday.Policy

	mu    sync.RWMutex
	cache map[string]cacheEntry
}

type cacheEntry struct {
	page    Page
	expires time.Time
}

// StoreOption customises a Store.
type StoreOption func(*Store)

// WithCacheTTL sets how long rendered pages are kept. Zero disables caching.
func WithCacheTTL(d time.Duration) StoreOption {
	return func(s *Store) { s.ttl = d }
}

// NewStore serves content from dir, falling back to the fallback locale per page.
func NewStore(dir, fallback string, opts ...StoreOption) *Store {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		dir = "content"
	}
	s := &Store{
		dir:      dir,
		fallback: fallback,
		ttl:      defaultCacheTTL,
		md:       goldmark.New(goldmark.WithExtensions(extension.Table, extension.Typographer)),
		policy:   newPagePolicy(),
		cache:    map[string]cacheEntry{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func newPagePolicy() *bluemonday.Policy {
	policy := bluemonday.UGCPolicy()
	policy.AllowElements("figure", "figcaption")
	policy.AllowAttrs("class").OnElements("figure", "figcaption", "p", "span", "table")
	policy.AllowAttrs("loading").OnElements("img")
	policy.RequireNoFollowOnLinks(true)
	return policy
}

// Page returns kind/slug in lang, or in the fallback locale when lang has no copy.
func (s *Store) Page(kind, slug, lang string) (Page, error) {
	slug = sanitizeSlug(slug)
	if slug == "" {
		return Page{}, ErrNotFound
	}
	key := kind + "|" + lang + "|" + slug
	if page, ok := s.cached(key); ok {
		return page, nil
	}

	page, err := s.read(kind, slug, lang)
	if errors.Is(err, ErrNotFound) && lang != s.fallback {
		page, err = s.read(kind, slug, s.fallback)
		page.Fallback = err == nil
	}
	if err != nil {
		return Page{}, err
	}
	s.store(key, page)
	return page, nil
}

// Missing lists slugs of kind present in the fallback locale but absent in lang.
func (s *Store) Missing(kind, lang string) ([]string, error) {
	want, err := s.slugs(kind, s.fallback)
	if err != nil {
		return nil, err
	}
	have, err := s.slugs(kind, lang)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	present := make(map[string]bool, len(have))
	for _, slug := range have {
		present[slug] = true
	}
	var out []string
	for _, slug := range want {
		if !present[slug] {
			out = append(out, slug)
		}
	}
	return out, nil
}

func (s *Store) slugs(kind, lang string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.dir, kind, lang))
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".md" {
			continue
		}
		out = append(out, strings.TrimSuffix(e.Name(), ".md"))
	}
	return out, nil
}

func (s *Store) read(kind, slug, lang string) (Page, error) {
	file := filepath.Join(s.dir, kind, lang, slug+".md")
	data, err := os.ReadFile(file)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Page{}, ErrNotFound
		}
		return Page{}, err
	}
	fm, body := splitFrontMatter(string(data))
	front := frontMatter{}
	if strings.TrimSpace(fm) != "" {
		if err := yaml.Unmarshal([]byte(fm), &front); err != nil {
			return Page{}, fmt.Errorf("cms: parse front matter %s: %w", file, err)
		}
	}
	rendered, err := s.render(body)
	if err != nil {
		return Page{}, fmt.Errorf("cms: render %s: %w", file, err)
	}
	page := Page{
		Kind:          kind,
		Slug:          slug,
		Lang:          lang,
		Title:         strings.TrimSpace(front.Title),
		Summary:       strings.TrimSpace(front.Summary),
		Body:          rendered,
		Image:         strings.TrimSpace(front.Image),
		Order:         front.Order,
		DistanceKM:    front.DistanceKM,
		DriveMinutes:  front.DriveMinutes,
		EffectiveDate: parseContentDate(front.EffectiveDate),
		UpdatedAt:     parseContentDate(front.UpdatedAt),
		SEO: PageSEO{
			Title:       strings.TrimSpace(front.SEO.Title),
			Description: strings.TrimSpace(front.SEO.Description),
			OGImage:     strings.TrimSpace(front.SEO.OGImage),
		},
	}
	if page.UpdatedAt.IsZero() {
		if info, err := os.Stat(file); err == nil {
			page.UpdatedAt = info.ModTime()
		}
	}
	if page.Title == "" {
		page.Title = prettifySlug(slug)
	}
	return page, nil
}

func (s *Store) render(markdown string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := s.md.Convert([]byte(markdown), &buf); err != nil {
		return "", err
	}
	// Sanitized output is safe to embed.
	return template.HTML(s.policy.SanitizeBytes(buf.Bytes())), nil
}

func (s *Store) cached(key string) (Page, bool) {
	if s.ttl <= 0 {
		return Page{}, false
	}
	s.mu.RLock()
	entry, ok := s.cache[key]
	s.mu.RUnlock()
	if !ok || time.Now().After(entry.expires) {
		return Page{}, false
	}
	return entry.page, true
}

func (s *Store) store(key string, page Page) {
	if s.ttl <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache[key] = cacheEntry{page: page, expires: time.Now().Add(s.ttl)}
}

func splitFrontMatter(input string) (string, string) {
	input = strings.TrimLeft(input, "\ufeff")
	lines := strings.Split(input, "\n")
	if strings.TrimSpace(lines[0]) != "---" {
		return "", input
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			fm := strings.Join(lines[1:i], "\n")
			body := strings.Join(lines[i+1:], "\n")
			return fm, strings.TrimLeft(body, "\n\r")
		}
	}
	return "", input
}

func parseContentDate(v string) time.Time {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02", "2006/01/02"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t
		}
	}
	return time.Time{}
}

func prettifySlug(slug string) string {
	parts := strings.Split(slug, "-")
	for i, part := range parts {
		if part == "" {
			continue
		}
		runes := []rune(part)
		runes[0] = asciiUpper(runes[0])
		parts[i] = string(runes)
	}
	return strings.Join(parts, " ")
}

func sanitizeSlug(slug string) string {
	slug = strings.Trim(strings.TrimSpace(strings.ToLower(slug)), "/")
	if slug == "" || strings.Contains(slug, "..") || strings.ContainsAny(slug, `/\`) {
		return ""
	}
	return slug
}

func asciiUpper(r rune) rune {
	if r >= 'a' && r <= 'z' {
		return r - ('a' - 'A')
	}
	return r
}
