package middleware

import (
	"context"

	"github.com/villa-azur/web/internal/gallery"
)

type ctxKey string

const (
	ctxKeyIsHTMX  ctxKey = "is_htmx"
	ctxKeySession ctxKey = "session"
	ctxKeyLocale  ctxKey = "locale"
	ctxKeyLayout  ctxKey = "layout"
)

// WithHTMX marks the request as coming from htmx.
func WithHTMX(ctx context.Context, is bool) context.Context {
	return context.WithValue(ctx, ctxKeyIsHTMX, is)
}

// IsHTMX returns whether this is an htmx request.
func IsHTMX(ctx context.Context) bool {
	v, _ := ctx.Value(ctxKeyIsHTMX).(bool)
	return v
}

// WithLocale stores the locale resolved for this request.
func WithLocale(ctx context.Context, lang string) context.Context {
	return context.WithValue(ctx, ctxKeyLocale, lang)
}

// Locale returns the request locale and whether one was resolved.
func Locale(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ctxKeyLocale).(string)
	return v, ok && v != ""
}

// WithLayout stores the viewport layout.
func WithLayout(ctx context.Context, l gallery.Layout) context.Context {
	return context.WithValue(ctx, ctxKeyLayout, l)
}

// LayoutFrom returns the request layout, desktop when undetected.
func LayoutFrom(ctx context.Context) gallery.Layout {
	if l, ok := ctx.Value(ctxKeyLayout).(gallery.Layout); ok {
		return l
	}
	return gallery.Desktop
}
