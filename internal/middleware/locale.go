package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/villa-azur/web/internal/i18n"
)

// LocaleCookie remembers the last explicitly chosen locale.
const LocaleCookie = "hl"

// LocalePrefix validates the {locale} route segment once per request and stores it on
// the context. A locale without a loaded bundle is answered by notFound.
func LocalePrefix(bundle *i18n.Bundle, notFound http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lang := strings.ToLower(chi.URLParam(r, "locale"))
			if !bundle.Has(lang) {
				notFound.ServeHTTP(w, r)
				return
			}
			if s := GetSession(r); s.Locale != lang {
				s.Locale = lang
				s.MarkDirty()
			}
			w.Header().Set("Content-Language", lang)
			next.ServeHTTP(w, r.WithContext(WithLocale(r.Context(), lang)))
		})
	}
}

// PreferredLocale picks a locale for a request that has none in its path: the hl
// cookie, then the session, then Accept-Language, then the fallback.
func PreferredLocale(bundle *i18n.Bundle, r *http.Request) string {
	if c, err := r.Cookie(LocaleCookie); err == nil && bundle.Has(strings.ToLower(c.Value)) {
		return strings.ToLower(c.Value)
	}
	if s := GetSession(r); bundle.Has(s.Locale) {
		return s.Locale
	}
	return bundle.Resolve(r.Header.Get("Accept-Language"))
}

// RedirectToLocale sends unprefixed paths to their locale-prefixed equivalent.
func RedirectToLocale(bundle *i18n.Bundle) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		target := bundle.SwitchPath(r.URL.Path, PreferredLocale(bundle, r))
		if r.URL.RawQuery != "" {
			target += "?" + r.URL.RawQuery
		}
		w.Header().Add("Vary", "Accept-Language")
		w.Header().Add("Vary", "Cookie")
		http.Redirect(w, r, target, http.StatusTemporaryRedirect)
	})
}

// RememberLocale stores an explicit locale choice.
func RememberLocale(w http.ResponseWriter, r *http.Request, lang string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     LocaleCookie,
		Value:    lang,
		Path:     "/",
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(365 * 24 * time.Hour),
	})
	if s := GetSession(r); s.Locale != lang {
		s.Locale = lang
		s.MarkDirty()
	}
}

// Lang returns the request locale, or fallback outside a locale route.
func Lang(r *http.Request, fallback string) string {
	if lang, ok := Locale(r.Context()); ok {
		return lang
	}
	return fallback
}
