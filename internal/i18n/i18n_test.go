package i18n

import (
	"os"
	"path/filepath"
	"testing"
)

func writeBundles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name+".json"), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestResolveHonorsQValues(t *testing.T) {
	dir := writeBundles(t, map[string]string{
		"fr": `{"nav.gallery":"Galerie"}`,
		"en": `{"nav.gallery":"Gallery"}`,
		"ru": `{}`,
	})
	b, err := Load(dir, "fr", []string{"fr", "en", "ru", "it"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	tests := map[string]string{
		"fr;q=0.8, en;q=0.9":  "en",
		"en-GB,en;q=0.9":      "en",
		"ru-RU":               "ru",
		"de-DE,de;q=0.9":      "fr",
		"it":                  "fr",
		"":                    "fr",
		"not a language;;q=x": "fr",
	}
	for header, want := range tests {
		if got := b.Resolve(header); got != want {
			t.Errorf("Resolve(%q) = %s, want %s", header, got, want)
		}
	}
}

func TestMissingBundleIsNotServed(t *testing.T) {
	dir := writeBundles(t, map[string]string{"fr": `{"a":"A","b":"B"}`, "en": `{"a":"A"}`})
	b, err := Load(dir, "fr", []string{"fr", "en", "el"})
	if err != nil {
		t.Fatal(err)
	}
	if b.Has("el") {
		t.Fatal("el has no bundle and must not be served")
	}
	if got := b.Locales(); len(got) != 2 || got[0] != "fr" || got[1] != "en" {
		t.Fatalf("Locales() = %v", got)
	}
	if got := b.Missing("en"); len(got) != 1 || got[0] != "b" {
		t.Fatalf("Missing(en) = %v", got)
	}
	if got := b.T("en", "b"); got != "B" {
		t.Fatalf("fallback translation = %q", got)
	}
	if got := b.T("en", "zzz"); got != "zzz" {
		t.Fatalf("unknown key = %q", got)
	}

	if _, err := Load(dir, "it", []string{"it", "fr"}); err == nil {
		t.Fatal("missing fallback bundle must fail")
	}
}

func TestSwitchPathPreservesRemainder(t *testing.T) {
	dir := writeBundles(t, map[string]string{"fr": `{}`, "en": `{}`, "el": `{}`})
	b, err := Load(dir, "fr", []string{"fr", "en", "el"})
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct{ path, target, want string }{
		{"/fr/galerie", "en", "/en/galerie"},
		{"/fr/decouvrir/monaco", "el", "/el/decouvrir/monaco"},
		{"/en", "fr", "/fr"},
		{"/en/", "fr", "/fr"},
		{"/", "el", "/el"},
		{"/contact", "en", "/en/contact"},
		{"/french-riviera/guide", "en", "/en/french-riviera/guide"},
	}
	for _, tt := range tests {
		if got := b.SwitchPath(tt.path, tt.target); got != tt.want {
			t.Errorf("SwitchPath(%q, %q) = %q, want %q", tt.path, tt.target, got, tt.want)
		}
	}
	if got := b.StripLocale("/en/villa"); got != "/villa" {
		t.Errorf("StripLocale = %q", got)
	}
	if got := b.StripLocale("/en"); got != "/" {
		t.Errorf("StripLocale root = %q", got)
	}
}

func TestNameIsSelfDescribing(t *testing.T) {
	dir := writeBundles(t, map[string]string{"fr": `{}`})
	b, err := Load(dir, "fr", nil)
	if err != nil {
		t.Fatal(err)
	}
	for lang, want := range map[string]string{"fr": "Français", "el": "Ελληνικά", "it": "Italiano"} {
		if got := b.Name(lang); got != want {
			t.Errorf("Name(%s) = %q, want %q", lang, got, want)
		}
	}
}

func TestShippedBundlesAreComplete(t *testing.T) {
	b, err := Load("../../locales", "fr", []string{"fr", "en", "el", "ru", "it"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	for _, l := range []string{"en", "el", "ru", "it"} {
		if !b.Has(l) {
			t.Errorf("bundle %s missing", l)
			continue
		}
		if missing := b.Missing(l); len(missing) > 0 {
			t.Errorf("%s lacks keys %v", l, missing)
		}
	}
}
