package gallery

import (
	"net/url"
	"strconv"
	"strings"
)

// Query parameters carrying gallery state between fragment requests.
const (
	ParamCategory = "cat"
	ParamIndex    = "i"
	ParamLightbox = "lb"
	ParamAutoplay = "play"
	ParamMenu     = "menu"
	ParamKey      = "key"
	ParamClick    = "click"
)

// Query encodes the state so the next request can restore it.
func (s *State) Query() url.Values {
	q := url.Values{}
	if s.category != All && s.category != "" {
		q.Set(ParamCategory, string(s.category))
	}
	if s.index > 0 {
		q.Set(ParamIndex, strconv.Itoa(s.index))
	}
	if s.lightbox == LightboxOpen {
		q.Set(ParamLightbox, "1")
	}
	if s.autoplay {
		q.Set(ParamAutoplay, "1")
	}
	if s.menuOpen {
		q.Set(ParamMenu, "1")
	}
	return q
}

// Restore rebuilds a state from encoded query values by replaying the operations, so
// every invariant holds for hand-edited or stale URLs too.
func Restore(c *Catalog, layout Layout, q url.Values) State {
	s := NewState(c, layout)
	if cat := strings.ToLower(strings.TrimSpace(q.Get(ParamCategory))); cat != "" {
		s.SelectCategory(Category(cat))
	}
	index := 0
	if raw := q.Get(ParamIndex); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			index = n
		}
	}
	s.JumpTo(index)
	if flag(q.Get(ParamLightbox)) {
		s.Open(s.index)
	}
	if flag(q.Get(ParamAutoplay)) {
		s.StartAutoplay()
	}
	if flag(q.Get(ParamMenu)) {
		s.ToggleMenu()
	}
	return s
}

// Apply replays a key press or click carried by the request.
func (s *State) Apply(q url.Values) {
	if k := q.Get(ParamKey); k != "" {
		s.HandleKey(Key(k))
	}
	if t := q.Get(ParamClick); t != "" {
		s.HandlePointer(Target(t))
	}
}

// after returns the encoded state that results from fn, leaving s untouched.
func (s State) after(fn func(*State)) string {
	fn(&s)
	return s.Query().Encode()
}

func flag(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}
