package widgets

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"finboard/internal/storage"
)

const storageKey = "finboard-dashboard"

// ExportVersion tags dashboard export envelopes.
const ExportVersion = "1.0"

// ErrNotFound is returned when no widget exists for an id.
var ErrNotFound = errors.New("widgets: not found")

// Envelope is the dashboard export format, independent of any storage
// backend so dashboards move between machines as plain JSON files.
type Envelope struct {
	Version    string    `json:"version"`
	ExportedAt time.Time `json:"exportedAt"`
	Widgets    []Widget  `json:"widgets"`
}

type persisted struct {
	Widgets []Widget `json:"widgets"`
}

// Registry is the ordered widget collection. Every mutation persists the
// full collection under the "finboard-dashboard" key before returning.
type Registry struct {
	store  *storage.Store
	logger zerolog.Logger

	mu       sync.RWMutex
	widgets  []Widget
	notifyCh chan []Widget
}

// NewRegistry builds an empty registry. Call Load before first use.
func NewRegistry(store *storage.Store, logger zerolog.Logger) *Registry {
	return &Registry{
		store:  store,
		logger: logger.With().Str("component", "widgets").Logger(),
	}
}

// SetOnChange installs a callback invoked with a snapshot of the collection
// after every successful mutation. The refresh engine uses it to reconcile
// its timers. Snapshots are queued under the registry lock and delivered by
// a single goroutine, so the callback always sees mutations in the order
// they were applied.
func (r *Registry) SetOnChange(fn func([]Widget)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.notifyCh != nil {
		close(r.notifyCh)
	}
	if fn == nil {
		r.notifyCh = nil
		return
	}
	ch := make(chan []Widget, 64)
	r.notifyCh = ch
	go func() {
		for snapshot := range ch {
			fn(snapshot)
		}
	}()
}

// Load rehydrates the persisted collection. Malformed stored data is logged
// and ignored; the registry stays empty rather than failing startup.
func (r *Registry) Load() {
	var doc persisted
	if err := r.store.Get(storageKey, &doc); err != nil {
		if !errors.Is(err, storage.ErrNoValue) {
			r.logger.Warn().Err(err).Msg("stored dashboard unreadable; starting empty")
		}
		return
	}
	r.mu.Lock()
	r.widgets = doc.Widgets
	r.mu.Unlock()
}

// Add validates the definition, assigns a fresh id, appends it, and
// persists. The stored widget is returned.
func (r *Registry) Add(w Widget) (Widget, error) {
	w.ID = newID()
	if err := w.Validate(); err != nil {
		return Widget{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.widgets = append(r.widgets, w)
	if err := r.persistLocked(); err != nil {
		r.widgets = r.widgets[:len(r.widgets)-1]
		return Widget{}, err
	}
	r.notifyLocked()
	return w, nil
}

// Remove deletes the widget with id if present and persists. Removing an
// unknown id is not an error.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, w := range r.widgets {
		if w.ID == id {
			r.widgets = append(r.widgets[:i], r.widgets[i+1:]...)
			if err := r.persistLocked(); err != nil {
				return err
			}
			r.notifyLocked()
			return nil
		}
	}
	return nil
}

// Patch carries the optional fields Update merges into a widget.
type Patch struct {
	Title    *string   `json:"title,omitempty"`
	Position *Position `json:"position,omitempty"`
	Size     *Size     `json:"size,omitempty"`
	Config   *Config   `json:"config,omitempty"`
}

// Update shallow-merges the patch into the widget with id and persists.
// The merged definition is re-validated; an invalid result rejects the
// update without mutating the registry.
func (r *Registry) Update(id string, patch Patch) (Widget, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, err := r.indexLocked(id)
	if err != nil {
		return Widget{}, err
	}

	merged := r.widgets[i]
	if patch.Title != nil {
		merged.Title = *patch.Title
	}
	if patch.Position != nil {
		merged.Position = *patch.Position
	}
	if patch.Size != nil {
		merged.Size = *patch.Size
	}
	if patch.Config != nil {
		merged.Config = *patch.Config
	}
	if err := merged.Validate(); err != nil {
		return Widget{}, err
	}

	return r.replaceLocked(i, merged)
}

// UpdateData sets the last-fetched snapshot and refreshes the last-updated
// timestamp, then persists.
func (r *Registry) UpdateData(id string, snapshot json.RawMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, err := r.indexLocked(id)
	if err != nil {
		return err
	}

	merged := r.widgets[i]
	merged.Data = snapshot
	now := time.Now()
	merged.LastUpdated = &now

	_, err = r.replaceLocked(i, merged)
	return err
}

// UpdatePosition moves the widget with id and persists.
func (r *Registry) UpdatePosition(id string, pos Position) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, err := r.indexLocked(id)
	if err != nil {
		return err
	}
	merged := r.widgets[i]
	merged.Position = pos
	_, err = r.replaceLocked(i, merged)
	return err
}

// UpdateSize resizes the widget with id and persists.
func (r *Registry) UpdateSize(id string, size Size) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, err := r.indexLocked(id)
	if err != nil {
		return err
	}
	merged := r.widgets[i]
	merged.Size = size
	_, err = r.replaceLocked(i, merged)
	return err
}

// Get returns the widget with id, or ErrNotFound.
func (r *Registry) Get(id string) (Widget, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, w := range r.widgets {
		if w.ID == id {
			return w, nil
		}
	}
	return Widget{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// List returns a copy of the collection in display order.
func (r *Registry) List() []Widget {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Widget, len(r.widgets))
	copy(out, r.widgets)
	return out
}

// Export wraps the current collection in a versioned envelope.
func (r *Registry) Export() Envelope {
	return Envelope{
		Version:    ExportVersion,
		ExportedAt: time.Now().UTC(),
		Widgets:    r.List(),
	}
}

// Import wholesale-replaces the collection with the envelope's widgets.
// Envelopes without a widget collection, or containing invalid widgets,
// are rejected without mutating existing state.
func (r *Registry) Import(env Envelope) error {
	if env.Widgets == nil {
		return errors.New("import: envelope carries no widget collection")
	}
	seen := make(map[string]struct{}, len(env.Widgets))
	for _, w := range env.Widgets {
		if w.ID == "" {
			return errors.New("import: widget without id")
		}
		if _, dup := seen[w.ID]; dup {
			return fmt.Errorf("import: duplicate widget id %s", w.ID)
		}
		seen[w.ID] = struct{}{}
		if err := w.Validate(); err != nil {
			return fmt.Errorf("import: widget %s: %w", w.ID, err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	previous := r.widgets
	r.widgets = env.Widgets
	if err := r.persistLocked(); err != nil {
		r.widgets = previous
		return err
	}
	r.notifyLocked()
	return nil
}

// Clear empties the collection and persists.
func (r *Registry) Clear() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	previous := r.widgets
	r.widgets = nil
	if err := r.persistLocked(); err != nil {
		r.widgets = previous
		return err
	}
	r.notifyLocked()
	return nil
}

func (r *Registry) indexLocked(id string) (int, error) {
	for i, w := range r.widgets {
		if w.ID == id {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrNotFound, id)
}

func (r *Registry) replaceLocked(i int, merged Widget) (Widget, error) {
	previous := r.widgets[i]
	r.widgets[i] = merged
	if err := r.persistLocked(); err != nil {
		r.widgets[i] = previous
		return Widget{}, err
	}
	r.notifyLocked()
	return merged, nil
}

func (r *Registry) persistLocked() error {
	if err := r.store.Set(storageKey, persisted{Widgets: r.widgets}); err != nil {
		return fmt.Errorf("persist dashboard: %w", err)
	}
	return nil
}

// notifyLocked queues a snapshot while still holding the registry lock, so
// the queue order matches mutation order. The consumer never takes the
// registry lock, so the send cannot deadlock.
func (r *Registry) notifyLocked() {
	if r.notifyCh == nil {
		return
	}
	snapshot := make([]Widget, len(r.widgets))
	copy(snapshot, r.widgets)
	r.notifyCh <- snapshot
}
