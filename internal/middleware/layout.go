package middleware

import (
	"net/http"

	"github.com/villa-azur/web/internal/gallery"
)

const layoutCookie = "view"

// Layout detects the viewport layout once per request. ?view=mobile|desktop overrides
// detection and is remembered in a cookie.
func Layout(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Accept-CH", "Sec-CH-UA-Mobile")
		w.Header().Add("Vary", "Sec-CH-UA-Mobile")

		override := r.URL.Query().Get("view")
		if l, ok := gallery.ParseLayout(override); ok {
			http.SetCookie(w, &http.Cookie{Name: layoutCookie, Value: l.Name, Path: "/", SameSite: http.SameSiteLaxMode})
		} else if c, err := r.Cookie(layoutCookie); err == nil {
			override = c.Value
		}
		l := gallery.DetectLayout(override, r.Header.Get("Sec-CH-UA-Mobile"), r.UserAgent())
		next.ServeHTTP(w, r.WithContext(WithLayout(r.Context(), l)))
	})
}
