package gallery

import "fmt"

// LightboxState is the overlay state machine: Closed is initial, Open is re-enterable.
type LightboxState int

const (
	LightboxClosed LightboxState = iota
	LightboxOpen
)

func (s LightboxState) String() string {
	if s == LightboxOpen {
		return "open"
	}
	return "closed"
}

// Key is a keyboard input the lightbox listens for.
type Key string

const (
	KeyArrowLeft  Key = "ArrowLeft"
	KeyArrowRight Key = "ArrowRight"
	KeyEscape     Key = "Escape"
)

// Target is what a pointer click landed on while the lightbox is open.
type Target string

const (
	TargetBackdrop Target = "backdrop"
	TargetMedia    Target = "media"
)

// State is the per-view gallery state. The visible subset is always derived from the
// catalog and the active category; it is never stored.
type State struct {
	catalog  *Catalog
	layout   Layout
	category Category
	index    int
	lightbox LightboxState
	autoplay bool
	menuOpen bool
}

// NewState seeds a view: category All, index 0, lightbox closed, autoplay off.
func NewState(c *Catalog, layout Layout) State {
	return State{catalog: c, layout: layout, category: All}
}

func (s *State) Layout() Layout     { return s.layout }
func (s *State) Category() Category { return s.category }
func (s *State) Index() int         { return s.index }

// Visible recomputes the filtered subset.
func (s *State) Visible() []MediaItem {
	return Select(s.catalog, s.category)
}

// Len is the size of the visible subset.
func (s *State) Len() int {
	return Count(s.catalog, s.category)
}

// Current is the focused item; ok is false when the visible subset is empty.
func (s *State) Current() (MediaItem, bool) {
	visible := s.Visible()
	if len(visible) == 0 || s.index < 0 || s.index >= len(visible) {
		return MediaItem{}, false
	}
	return visible[s.index], true
}

// SelectCategory switches the filter. The index always goes back to 0 and autoplay
// stops, so a shorter subset can never be left with a stale index.
func (s *State) SelectCategory(cat Category) {
	if cat == "" {
		cat = All
	}
	s.category = cat
	s.index = 0
	s.autoplay = false
	s.menuOpen = false
}

// Next moves forward, wrapping from the last item to the first.
func (s *State) Next() {
	n := s.Len()
	if n == 0 {
		return
	}
	s.index = (s.index + 1) % n
}

// Previous moves backward, wrapping from the first item to the last.
func (s *State) Previous() {
	n := s.Len()
	if n == 0 {
		return
	}
	s.index = (s.index - 1 + n) % n
}

// JumpTo focuses item i. Out-of-range indexes are ignored.
func (s *State) JumpTo(i int) bool {
	if i < 0 || i >= s.Len() {
		return false
	}
	s.index = i
	return true
}

// Open shows item i in the lightbox and stops autoplay. Opening while already open
// retargets the focused item.
func (s *State) Open(i int) bool {
	if !s.JumpTo(i) {
		return false
	}
	s.lightbox = LightboxOpen
	s.autoplay = false
	return true
}

// Close returns the lightbox to Closed whatever happened inside it.
func (s *State) Close() {
	s.lightbox = LightboxClosed
}

func (s *State) Lightbox() LightboxState { return s.lightbox }

func (s *State) LightboxOpen() bool { return s.lightbox == LightboxOpen }

// ScrollLocked reports whether background scrolling is suspended.
func (s *State) ScrollLocked() bool { return s.lightbox == LightboxOpen }

// HandleKey applies a key press. Keys are only honoured while the lightbox is open.
func (s *State) HandleKey(k Key) bool {
	if s.lightbox != LightboxOpen {
		return false
	}
	switch k {
	case KeyArrowLeft:
		s.Previous()
	case KeyArrowRight:
		s.Next()
	case KeyEscape:
		s.Close()
	default:
		return false
	}
	return true
}

// HandlePointer applies a click. Clicks on the media itself are contained and never
// reach the backdrop.
func (s *State) HandlePointer(t Target) bool {
	if s.lightbox != LightboxOpen || t != TargetBackdrop {
		return false
	}
	s.Close()
	return true
}

// StartAutoplay turns autoplay on when the layout supports it and the lightbox is closed.
func (s *State) StartAutoplay() bool {
	if !s.layout.Autoplay || s.lightbox == LightboxOpen || s.Len() == 0 {
		return false
	}
	s.autoplay = true
	return true
}

func (s *State) StopAutoplay() { s.autoplay = false }

func (s *State) ToggleAutoplay() {
	if s.autoplay {
		s.StopAutoplay()
		return
	}
	s.StartAutoplay()
}

func (s *State) Autoplaying() bool { return s.autoplay }

// ToggleMenu opens or closes the category menu on layouts that have one.
func (s *State) ToggleMenu() {
	if !s.layout.CategoryMenu {
		return
	}
	s.menuOpen = !s.menuOpen
}

func (s *State) MenuOpen() bool { return s.menuOpen }

// Counter formats the position as "03 / 12".
func (s *State) Counter() string {
	n := s.Len()
	if n == 0 {
		return "00 / 00"
	}
	return fmt.Sprintf("%02d / %02d", s.index+1, n)
}

// Progress is the position as a percentage of the visible subset.
func (s *State) Progress() float64 {
	n := s.Len()
	if n == 0 {
		return 0
	}
	return float64(s.index+1) / float64(n) * 100
}
