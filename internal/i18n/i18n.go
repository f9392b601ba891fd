package i18n

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Bundle holds flat key/value message maps per locale.
type Bundle struct {
	dict     map[string]map[string]string
	fallback string
	locales  []string
	tags     []language.Tag
	matcher  language.Matcher
}

// Load reads <dir>/<locale>.json for every supported locale. Only the fallback bundle is
// mandatory; a locale whose file is missing is not served.
func Load(dir string, fallback string, supported []string) (*Bundle, error) {
	if len(supported) == 0 {
		supported = []string{fallback}
	}
	b := &Bundle{dict: map[string]map[string]string{}, fallback: fallback}
	for _, l := range supported {
		raw, err := os.ReadFile(filepath.Join(dir, l+".json"))
		if err != nil {
			if l == fallback {
				return nil, fmt.Errorf("load locale %s: %w", l, err)
			}
			continue
		}
		var m map[string]string
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", l, err)
		}
		b.dict[l] = m
		b.locales = append(b.locales, l)
	}
	if _, ok := b.dict[fallback]; !ok {
		return nil, fmt.Errorf("fallback locale %s not loaded", fallback)
	}

	// The matcher prefers its first tag on ties, so the fallback goes first.
	ordered := append([]string{fallback}, without(b.locales, fallback)...)
	for _, l := range ordered {
		b.tags = append(b.tags, language.Make(l))
	}
	b.matcher = language.NewMatcher(b.tags)
	return b, nil
}

// Locales lists the served locales in configured order.
func (b *Bundle) Locales() []string {
	return append([]string(nil), b.locales...)
}

// Fallback returns the default locale.
func (b *Bundle) Fallback() string { return b.fallback }

// Has reports whether lang has a loaded bundle.
func (b *Bundle) Has(lang string) bool {
	_, ok := b.dict[lang]
	return ok
}

// T returns the message for key in lang, then in the fallback locale, then key itself.
func (b *Bundle) T(lang, key string) string {
	if m, ok := b.dict[lang]; ok {
		if v, ok := m[key]; ok {
			return v
		}
	}
	if v, ok := b.dict[b.fallback][key]; ok {
		return v
	}
	return key
}

// Tf is T followed by fmt.Sprintf.
func (b *Bundle) Tf(lang, key string, args ...any) string {
	return fmt.Sprintf(b.T(lang, key), args...)
}

// Resolve picks the best served locale for an Accept-Language header.
func (b *Bundle) Resolve(acceptLang string) string {
	prefs, _, err := language.ParseAcceptLanguage(acceptLang)
	if err != nil || len(prefs) == 0 {
		return b.fallback
	}
	_, idx, conf := b.matcher.Match(prefs...)
	if conf == language.No {
		return b.fallback
	}
	base, _ := b.tags[idx].Base()
	lang := base.String()
	if !b.Has(lang) {
		return b.fallback
	}
	return lang
}

// Name is the locale's name written in that locale, capitalised ("Français", "Ελληνικά").
func (b *Bundle) Name(lang string) string {
	tag := language.Make(lang)
	name := display.Self.Name(tag)
	if name == "" {
		return strings.ToUpper(lang)
	}
	return cases.Title(tag).String(name)
}

// Missing lists keys present in the fallback bundle but absent from lang.
func (b *Bundle) Missing(lang string) []string {
	m := b.dict[lang]
	var out []string
	for key := range b.dict[b.fallback] {
		if _, ok := m[key]; !ok {
			out = append(out, key)
		}
	}
	sort.Strings(out)
	return out
}

// SwitchPath replaces the leading locale segment of path with target and keeps the
// rest. A path without a locale segment gets target prepended.
func (b *Bundle) SwitchPath(path, target string) string {
	rest := strings.TrimPrefix(path, "/")
	if rest == "" {
		return "/" + target
	}
	first, remainder, hasRest := strings.Cut(rest, "/")
	if b.Has(first) {
		if !hasRest || remainder == "" {
			return "/" + target
		}
		return "/" + target + "/" + remainder
	}
	return "/" + target + "/" + rest
}

// StripLocale removes the leading locale segment, returning "/" for a locale root.
func (b *Bundle) StripLocale(path string) string {
	rest := strings.TrimPrefix(path, "/")
	first, remainder, _ := strings.Cut(rest, "/")
	if !b.Has(first) {
		return path
	}
	return "/" + remainder
}

func without(list []string, drop string) []string {
	out := make([]string, 0, len(list))
	for _, v := range list {
		if v != drop {
			out = append(out, v)
		}
	}
	return out
}
