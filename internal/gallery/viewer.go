package gallery

import (
	"context"
	"sync"
	"time"
)

// Viewer owns one mounted gallery: its state and its autoplay timer. Every mutation
// goes through the viewer so the timer always matches the state's autoplay flag.
type Viewer struct {
	mu       sync.Mutex
	state    State
	autoplay *Autoplay
	onChange func(Snapshot)
	mounted  bool
}

// NewViewer mounts state. onChange receives a snapshot after every autoplay advance.
func NewViewer(state State, interval time.Duration, onChange func(Snapshot), opts ...AutoplayOption) *Viewer {
	v := &Viewer{state: state, onChange: onChange, mounted: true}
	v.autoplay = NewAutoplay(interval, v.advance, opts...)
	v.sync()
	return v
}

// Mount is NewViewer bound to ctx: the viewer unmounts when ctx is done.
func Mount(ctx context.Context, state State, interval time.Duration, onChange func(Snapshot), opts ...AutoplayOption) *Viewer {
	v := NewViewer(state, interval, onChange, opts...)
	go func() {
		<-ctx.Done()
		v.Unmount()
	}()
	return v
}

// Do applies fn to the state and returns the resulting snapshot.
func (v *Viewer) Do(fn func(*State)) Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.mounted && fn != nil {
		fn(&v.state)
		v.sync()
	}
	return v.state.Snapshot()
}

// Snapshot returns the current rendering without changing anything.
func (v *Viewer) Snapshot() Snapshot {
	return v.Do(nil)
}

// Running reports whether the autoplay timer is armed.
func (v *Viewer) Running() bool {
	return v.autoplay.Running()
}

// Unmount stops autoplay and detaches the listener. Later calls are no-ops.
func (v *Viewer) Unmount() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.mounted {
		return
	}
	v.mounted = false
	v.state.StopAutoplay()
	v.autoplay.Stop()
	v.onChange = nil
}

// Mounted reports whether Unmount has not been called yet.
func (v *Viewer) Mounted() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.mounted
}

func (v *Viewer) sync() {
	if v.state.Autoplaying() {
		v.autoplay.Start()
		return
	}
	v.autoplay.Stop()
}

func (v *Viewer) advance() {
	v.mu.Lock()
	if !v.mounted || !v.state.Autoplaying() {
		v.mu.Unlock()
		return
	}
	v.state.Next()
	snap := v.state.Snapshot()
	notify := v.onChange
	v.mu.Unlock()

	if notify != nil {
		notify(snap)
	}
}
