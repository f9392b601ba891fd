package nav

import (
	"net/url"
	"path"
	"strings"

	"github.com/villa-azur/web/internal/i18n"
)

// Item represents a top-level navigation item. Path is locale-relative.
type Item struct {
	Path     string // e.g. "/galerie"
	LabelKey string // i18n key, e.g. "nav.gallery"
}

// RenderedItem is a view model for templates.
type RenderedItem struct {
	Href     string
	LabelKey string
	Active   bool
}

// Crumb represents a breadcrumb entry. If LabelKey is empty, use Label.
type Crumb struct {
	Href     string
	LabelKey string
	Label    string
	Active   bool
}

// Language is one entry of the language switcher.
type Language struct {
	Code   string
	Name   string
	Href   string
	Active bool
}

// Main is the primary navigation definition.
var Main = []Item{
	{Path: "/", LabelKey: "nav.home"},
	{Path: "/villa", LabelKey: "nav.villa"},
	{Path: "/galerie", LabelKey: "nav.gallery"},
	{Path: "/decouvrir", LabelKey: "nav.discover"},
	{Path: "/contact", LabelKey: "nav.contact"},
}

// Href prefixes a locale-relative path with lang.
func Href(lang, p string) string {
	if p == "" || p == "/" {
		return "/" + lang
	}
	return "/" + lang + p
}

// Build renders navigation items for lang with active state given the locale-relative
// current path.
func Build(lang, currentPath string) []RenderedItem {
	if currentPath == "" {
		currentPath = "/"
	}
	items := make([]RenderedItem, 0, len(Main))
	for _, it := range Main {
		items = append(items, RenderedItem{
			Href:     Href(lang, it.Path),
			LabelKey: it.LabelKey,
			Active:   isActive(it.Path, currentPath),
		})
	}
	return items
}

func isActive(itemPath, currentPath string) bool {
	if itemPath == "/" {
		return currentPath == "/"
	}
	return currentPath == itemPath || strings.HasPrefix(currentPath, itemPath+"/")
}

// Breadcrumbs builds breadcrumb entries from the locale-relative current path:
// home first, known sections by label key, deeper segments prettified.
func Breadcrumbs(lang, currentPath string) []Crumb {
	if currentPath == "" {
		currentPath = "/"
	}
	crumbs := []Crumb{{Href: Href(lang, "/"), LabelKey: "nav.home", Active: currentPath == "/"}}
	if currentPath == "/" {
		return crumbs
	}

	clean := path.Clean(currentPath)
	parts := strings.Split(strings.TrimPrefix(clean, "/"), "/")
	href := ""
	for i, part := range parts {
		if part == "" {
			continue
		}
		href += "/" + part
		c := Crumb{Href: Href(lang, href), Label: titleFromSegment(part), Active: i == len(parts)-1}
		if i == 0 {
			for _, it := range Main {
				if it.Path == href {
					c.LabelKey = it.LabelKey
					break
				}
			}
		}
		crumbs = append(crumbs, c)
	}
	return crumbs
}

// Languages lists every served locale with a link that switches to it while keeping
// the rest of fullPath.
func Languages(b *i18n.Bundle, lang, fullPath string) []Language {
	out := make([]Language, 0, len(b.Locales()))
	for _, code := range b.Locales() {
		out = append(out, Language{
			Code:   code,
			Name:   b.Name(code),
			Href:   "/" + lang + "/lang/" + code + "?path=" + url.QueryEscape(fullPath),
			Active: code == lang,
		})
	}
	return out
}

func titleFromSegment(seg string) string {
	if seg == "" {
		return seg
	}
	s := strings.ReplaceAll(seg, "-", " ")
	s = strings.ReplaceAll(s, "_", " ")
	r := []rune(s)
	r[0] = toUpper(r[0])
	return string(r)
}

// ASCII only is sufficient for slugs.
func toUpper(r rune) rune {
	if r >= 'a' && r <= 'z' {
		return r - ('a' - 'A')
	}
	return r
}
