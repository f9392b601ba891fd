package gallery

import (
	"fmt"
	"time"
)

// Transition is a declarative description of how an element moves between two states.
// Templates turn it into inline CSS; nothing steps styles by hand.
type Transition struct {
	Property string
	From     string
	To       string
	Duration time.Duration
	Easing   string
}

// Style renders the transition and its target value as inline CSS.
func (t Transition) Style() string {
	if t.Property == "" {
		return ""
	}
	easing := t.Easing
	if easing == "" {
		easing = "ease"
	}
	return fmt.Sprintf("%s: %s; transition: %s %dms %s;", t.Property, t.To, t.Property, t.Duration.Milliseconds(), easing)
}

// CategoryTab is one entry of the category selector.
type CategoryTab struct {
	Category Category
	Active   bool
	Count    int
	Query    string
}

// Slide is one visible item with the encoded states for acting on it.
type Slide struct {
	Index     int
	Item      MediaItem
	Active    bool
	OpenQuery string
	JumpQuery string
}

// Snapshot is a read-only rendering of the state with every follow-up action
// pre-encoded.
type Snapshot struct {
	Layout       Layout
	Category     Category
	Tabs         []CategoryTab
	Slides       []Slide
	Index        int
	Current      MediaItem
	HasCurrent   bool
	Counter      string
	Progress     float64
	Lightbox     LightboxState
	Autoplaying  bool
	MenuOpen     bool
	ScrollLocked bool
	Query        string

	NextQuery     string
	PrevQuery     string
	CloseQuery    string
	AutoplayQuery string
	MenuQuery     string
	KeyLeftQuery  string
	KeyRightQuery string
	EscapeQuery   string
	BackdropQuery string

	Track   Transition
	Overlay Transition
	Meter   Transition
}

const (
	slideDuration   = 600 * time.Millisecond
	overlayDuration = 300 * time.Millisecond
)

// Snapshot captures the current state for rendering.
func (s *State) Snapshot() Snapshot {
	visible := s.Visible()
	current, ok := s.Current()
	snap := Snapshot{
		Layout:       s.layout,
		Category:     s.category,
		Index:        s.index,
		Current:      current,
		HasCurrent:   ok,
		Counter:      s.Counter(),
		Progress:     s.Progress(),
		Lightbox:     s.lightbox,
		Autoplaying:  s.autoplay,
		MenuOpen:     s.menuOpen,
		ScrollLocked: s.ScrollLocked(),
		Query:        s.Query().Encode(),

		NextQuery:     s.after(func(st *State) { st.Next() }),
		PrevQuery:     s.after(func(st *State) { st.Previous() }),
		CloseQuery:    s.after(func(st *State) { st.Close() }),
		AutoplayQuery: s.after(func(st *State) { st.ToggleAutoplay() }),
		MenuQuery:     s.after(func(st *State) { st.ToggleMenu() }),
		KeyLeftQuery:  s.after(func(st *State) { st.HandleKey(KeyArrowLeft) }),
		KeyRightQuery: s.after(func(st *State) { st.HandleKey(KeyArrowRight) }),
		EscapeQuery:   s.after(func(st *State) { st.HandleKey(KeyEscape) }),
		BackdropQuery: s.after(func(st *State) { st.HandlePointer(TargetBackdrop) }),
	}

	tabs := append([]Category{All}, s.catalog.Categories()...)
	for _, cat := range tabs {
		cat := cat
		snap.Tabs = append(snap.Tabs, CategoryTab{
			Category: cat,
			Active:   cat == s.category,
			Count:    Count(s.catalog, cat),
			Query:    s.after(func(st *State) { st.SelectCategory(cat) }),
		})
	}

	for i, item := range visible {
		i := i
		snap.Slides = append(snap.Slides, Slide{
			Index:     i,
			Item:      item,
			Active:    i == s.index,
			OpenQuery: s.after(func(st *State) { st.Open(i) }),
			JumpQuery: s.after(func(st *State) { st.JumpTo(i) }),
		})
	}

	snap.Track = Transition{
		Property: "transform",
		From:     "translateX(0)",
		To:       fmt.Sprintf("translateX(-%d%%)", s.index*100),
		Duration: slideDuration,
		Easing:   "cubic-bezier(0.22, 1, 0.36, 1)",
	}
	overlay := Transition{Property: "opacity", From: "1", To: "0", Duration: overlayDuration, Easing: "ease-out"}
	if s.lightbox == LightboxOpen {
		overlay.From, overlay.To = "0", "1"
	}
	snap.Overlay = overlay
	snap.Meter = Transition{
		Property: "width",
		From:     "0%",
		To:       fmt.Sprintf("%.2f%%", snap.Progress),
		Duration: slideDuration,
		Easing:   "linear",
	}
	return snap
}
