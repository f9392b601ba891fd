package gallery

import "strings"

// Layout describes what a viewport can do with the gallery. The same state machine
// drives every layout; only the capabilities differ.
type Layout struct {
	Name         string
	Autoplay     bool
	CategoryMenu bool
	Thumbnails   bool
	Columns      int
}

var (
	Desktop = Layout{Name: "desktop", Autoplay: true, Thumbnails: true, Columns: 3}
	Mobile  = Layout{Name: "mobile", CategoryMenu: true, Columns: 1}
)

// ParseLayout maps a layout name back to its capabilities.
func ParseLayout(name string) (Layout, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case Desktop.Name:
		return Desktop, true
	case Mobile.Name:
		return Mobile, true
	}
	return Layout{}, false
}

// DetectLayout picks a layout from an explicit override, the Sec-CH-UA-Mobile client
// hint, or the user agent, in that order.
func DetectLayout(override, mobileHint, userAgent string) Layout {
	if l, ok := ParseLayout(override); ok {
		return l
	}
	switch strings.TrimSpace(mobileHint) {
	case "?1":
		return Mobile
	case "?0":
		return Desktop
	}
	ua := strings.ToLower(userAgent)
	for _, marker := range []string{"mobi", "iphone", "android", "ipod"} {
		if strings.Contains(ua, marker) {
			return Mobile
		}
	}
	return Desktop
}
