package app

import (
	"context"
	"fmt"
	"sync"

	"middag/internal/share"
	"middag/internal/storage"
)

// Sessions persists shared plans. Creation is written at once; later changes
// go through the autosaver.
type Sessions struct {
	store    storage.BlobStore
	autosave *share.Autosaver
	newID    func() string

	// mu serializes read-modify-write cycles.
	mu sync.Mutex
}

// NewSessions creates a new Sessions.
func NewSessions(store storage.BlobStore, autosave *share.Autosaver) *Sessions {
	return &Sessions{store: store, autosave: autosave, newID: storage.NewID}
}

// Create stores s under a new id.
func (ss *Sessions) Create(ctx context.Context, s share.State) (string, error) {
	data, err := share.Encode(s)
	if err != nil {
		return "", err
	}
	id := ss.newID()
	if err := ss.store.Create(ctx, id, data); err != nil {
		return "", fmt.Errorf("failed to create shared plan: %w", err)
	}
	return id, nil
}

// Get loads a shared plan, preferring changes that are not yet written.
// A failed background write for id is returned once as an error.
func (ss *Sessions) Get(ctx context.Context, id string) (share.State, error) {
	data, err := ss.Load(ctx, id)
	if err != nil {
		return share.State{}, err
	}
	return share.Decode(data)
}

// Load returns the raw document stored under id, preferring changes that are
// not yet written.
func (ss *Sessions) Load(ctx context.Context, id string) ([]byte, error) {
	if err := ss.autosave.TakeFailure(id); err != nil {
		return nil, fmt.Errorf("failed to save shared plan: %w", err)
	}
	if data, ok := ss.autosave.Pending(id); ok {
		return data, nil
	}
	return ss.store.Get(ctx, id)
}

// Store writes a raw document under an existing id right away, replacing
// any write that is still scheduled.
func (ss *Sessions) Store(ctx context.Context, id string, data []byte) error {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return ss.autosave.Save(ctx, id, data)
}

// Update applies fn to the stored plan and schedules the result for writing.
func (ss *Sessions) Update(ctx context.Context, id string, fn func(share.State) (share.State, error)) (share.State, error) {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	current, err := ss.Get(ctx, id)
	if err != nil {
		return share.State{}, err
	}
	next, err := fn(current)
	if err != nil {
		return share.State{}, err
	}
	data, err := share.Encode(next)
	if err != nil {
		return share.State{}, err
	}
	ss.autosave.Schedule(id, data)
	return next.Normalize(), nil
}

// Replace overwrites a shared plan right away. Unknown ids are not created.
func (ss *Sessions) Replace(ctx context.Context, id string, s share.State) (share.State, error) {
	if err := s.Validate(); err != nil {
		return share.State{}, err
	}
	data, err := share.Encode(s)
	if err != nil {
		return share.State{}, err
	}

	ss.mu.Lock()
	defer ss.mu.Unlock()
	if err := ss.autosave.Save(ctx, id, data); err != nil {
		return share.State{}, err
	}
	return s.Normalize(), nil
}
