package share

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"middag/internal/storage"
)

// DefaultAutosaveDelay is the quiet period before a change is written.
const DefaultAutosaveDelay = time.Second

const writeTimeout = 10 * time.Second

type pendingWrite struct {
	data   []byte
	timer  *time.Timer
	// direct writes bypass the pending map.
	direct bool
}

type failedWrite struct {
	data []byte
	err  error
}

// Autosaver coalesces rapid changes to the same id into one write after a
// quiet period. Failed writes are not retried: the data stays visible through
// Pending and the error is handed out once by TakeFailure.
type Autosaver struct {
	store  storage.BlobStore
	delay  time.Duration
	logger *slog.Logger

	mu      sync.Mutex
	pending map[string]*pendingWrite
	failed  map[string]*failedWrite
	closed  bool

	// writeMu keeps writes in schedule order.
	writeMu sync.Mutex
}

// AutosaveOption configures an Autosaver.
type AutosaveOption func(*Autosaver)

// WithAutosaveLogger sets the logger for write failures.
func WithAutosaveLogger(l *slog.Logger) AutosaveOption {
	return func(a *Autosaver) { a.logger = l }
}

// NewAutosaver creates an Autosaver. A non-positive delay uses DefaultAutosaveDelay.
func NewAutosaver(store storage.BlobStore, delay time.Duration, opts ...AutosaveOption) *Autosaver {
	if delay <= 0 {
		delay = DefaultAutosaveDelay
	}
	a := &Autosaver{
		store:   store,
		delay:   delay,
		logger:  slog.Default(),
		pending: make(map[string]*pendingWrite),
		failed:  make(map[string]*failedWrite),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Schedule queues data for id, replacing any write that has not fired yet.
// After Close the write happens immediately.
func (a *Autosaver) Schedule(id string, data []byte) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		a.write(id, &pendingWrite{data: data, direct: true})
		return
	}
	if prev, ok := a.pending[id]; ok {
		prev.timer.Stop()
	}
	delete(a.failed, id)
	pw := &pendingWrite{data: data}
	pw.timer = time.AfterFunc(a.delay, func() { a.write(id, pw) })
	a.pending[id] = pw
	a.mu.Unlock()
}

// Pending returns data for id that the store does not have yet, either
// scheduled or left over from a failed write.
func (a *Autosaver) Pending(id string) ([]byte, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if pw, ok := a.pending[id]; ok {
		return pw.data, true
	}
	if fw, ok := a.failed[id]; ok {
		return fw.data, true
	}
	return nil, false
}

// TakeFailure returns the error of the last failed write for id and clears
// it. The unwritten data stays available through Pending.
func (a *Autosaver) TakeFailure(id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	fw, ok := a.failed[id]
	if !ok || fw.err == nil {
		return nil
	}
	err := fw.err
	fw.err = nil
	return err
}

// Save drops any scheduled write for id and writes data now.
func (a *Autosaver) Save(ctx context.Context, id string, data []byte) error {
	a.mu.Lock()
	if prev, ok := a.pending[id]; ok {
		prev.timer.Stop()
		delete(a.pending, id)
	}
	delete(a.failed, id)
	a.mu.Unlock()

	a.writeMu.Lock()
	defer a.writeMu.Unlock()
	return a.store.Put(ctx, id, data)
}

// Flush writes everything pending now.
func (a *Autosaver) Flush() {
	a.mu.Lock()
	batch := make(map[string]*pendingWrite, len(a.pending))
	for id, pw := range a.pending {
		pw.timer.Stop()
		batch[id] = pw
	}
	a.mu.Unlock()

	for id, pw := range batch {
		a.write(id, pw)
	}
}

// Close flushes pending writes. Later schedules are written synchronously.
func (a *Autosaver) Close() {
	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()
	a.Flush()
}

func (a *Autosaver) write(id string, pw *pendingWrite) {
	a.writeMu.Lock()
	if !pw.direct && !a.isCurrent(id, pw) {
		// superseded by a newer schedule or an explicit Save
		a.writeMu.Unlock()
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	err := a.store.Put(ctx, id, pw.data)
	cancel()
	a.writeMu.Unlock()

	// Keep the entry visible to Pending until the store has it.
	a.mu.Lock()
	current := pw.direct || a.pending[id] == pw
	if a.pending[id] == pw {
		delete(a.pending, id)
	}
	if current {
		if err != nil {
			a.failed[id] = &failedWrite{data: pw.data, err: fmt.Errorf("autosave %s: %w", id, err)}
		} else {
			delete(a.failed, id)
		}
	}
	a.mu.Unlock()

	if err != nil {
		a.logger.Error("autosave failed", "id", id, "error", err)
	}
}

func (a *Autosaver) isCurrent(id string, pw *pendingWrite) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pending[id] == pw
}
