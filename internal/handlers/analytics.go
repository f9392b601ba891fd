package handlers

import "github.com/villa-azur/web/internal/config"

// Analytics holds client instrumentation configuration surfaced to templates.
type Analytics struct {
	GA4MeasurementID string // e.g. G-XXXXXXXXXX
	Debug            bool
}

// AnalyticsFromConfig builds Analytics from loaded configuration. Dev servers run the
// tag in debug mode.
func AnalyticsFromConfig(cfg config.Config) Analytics {
	return Analytics{
		GA4MeasurementID: cfg.Analytics.GA4ID,
		Debug:            cfg.Site.Dev,
	}
}
