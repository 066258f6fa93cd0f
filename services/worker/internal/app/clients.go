package app

import (
	"fmt"
	"strings"
	"sync"

	"biblepace/internal/util"
	"biblepace/pkg/domain"
)

// ClientRegistry tracks the page windows the worker can focus.
type ClientRegistry struct {
	mu      sync.Mutex
	windows []domain.ClientWindow
	claimed bool
}

func NewClientRegistry() *ClientRegistry {
	return &ClientRegistry{}
}

// Register adds a window or replaces the one with the same ID. A focused
// window takes focus from every other.
func (r *ClientRegistry) Register(w domain.ClientWindow) domain.ClientWindow {
	w.ID = strings.TrimSpace(w.ID)
	if w.ID == "" {
		w.ID = util.NewID()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if w.Focused {
		r.blurLocked()
	}
	for i := range r.windows {
		if r.windows[i].ID == w.ID {
			r.windows[i] = w
			return w
		}
	}
	r.windows = append(r.windows, w)
	return w
}

func (r *ClientRegistry) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.windows {
		if r.windows[i].ID == id {
			r.windows = append(r.windows[:i], r.windows[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("client %s: %w", id, ErrNotFound)
}

func (r *ClientRegistry) List() []domain.ClientWindow {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.ClientWindow, len(r.windows))
	copy(out, r.windows)
	return out
}

// Claim marks every registered and future window as controlled.
func (r *ClientRegistry) Claim() {
	r.mu.Lock()
	r.claimed = true
	r.mu.Unlock()
}

func (r *ClientRegistry) Claimed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.claimed
}

// focusTarget picks the window to bring forward: the focused one when there
// is one, else the first registered. The chosen window becomes focused.
func (r *ClientRegistry) focusTarget() (domain.ClientWindow, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.windows) == 0 {
		return domain.ClientWindow{}, false
	}
	idx := 0
	for i, w := range r.windows {
		if w.Focused {
			idx = i
		}
	}
	r.blurLocked()
	r.windows[idx].Focused = true
	return r.windows[idx], true
}

func (r *ClientRegistry) blurLocked() {
	for i := range r.windows {
		r.windows[i].Focused = false
	}
}
