package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"middag/internal/config"
	"middag/internal/menu"
	"middag/internal/metrics"
	"middag/internal/planner"
	"middag/internal/share"
	"middag/internal/storage"
)

type staticMenu struct {
	m   menu.Menu
	err error
}

func (s staticMenu) Load(context.Context) (menu.Menu, error) {
	return s.m, s.err
}

var testMenu = menu.Menu{
	Categories: []string{"Fisk", "Kjøtt", "Vegetar"},
	Dishes: map[string][]string{
		"Fisk":    {"Laks", "Torsk", "Sei", "Fiskekaker"},
		"Kjøtt":   {"Taco", "Lasagne", "Pølser", "Kjøttkaker"},
		"Vegetar": {"Linsesuppe", "Grønnsakswok"},
	},
}

type memRecorder struct {
	mu      sync.Mutex
	metrics []metrics.GenerationMetric
}

func (r *memRecorder) Record(_ context.Context, m metrics.GenerationMetric) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics = append(r.metrics, m)
	return nil
}

func newTestPlanner(t *testing.T, rec metrics.Recorder) *Planner {
	t.Helper()
	n := 0
	gen := planner.NewGenerator(
		planner.WithRand(rand.New(rand.NewPCG(1, 2))),
		planner.WithIDFunc(func() string {
			n++
			return fmt.Sprintf("slot-%d", n)
		}),
	)
	opts := []PlannerOption{WithDefaults("en", "weighted")}
	if rec != nil {
		opts = append(opts, WithRecorder(rec))
	}
	return NewPlanner(staticMenu{m: testMenu}, gen, opts...)
}

func TestPlanner_NewState(t *testing.T) {
	rec := &memRecorder{}
	p := newTestPlanner(t, rec)

	s, err := p.NewState(context.Background(), NewStateRequest{})
	require.NoError(t, err)
	require.Len(t, s.Plan, planner.DaysInPlan)
	assert.Equal(t, "en", s.Language)
	assert.Equal(t, planner.PolicyWeighted, s.SelectionPolicy)
	assert.Equal(t, testMenu.Categories, s.SelectedCategories)
	assert.Equal(t, "Monday", s.Plan[0].Day)
	assert.Empty(t, s.LockedIDs)

	require.Len(t, rec.metrics, 1)
	assert.Equal(t, "weighted", rec.metrics[0].Policy)
	assert.Equal(t, "en", rec.metrics[0].Language)
}

func TestPlanner_NewStateWithOptions(t *testing.T) {
	p := newTestPlanner(t, nil)

	s, err := p.NewState(context.Background(), NewStateRequest{
		Language:   "es",
		Policy:     "random",
		Categories: []string{"Fisk", "Unknown"},
	})
	require.NoError(t, err)
	assert.Equal(t, "es", s.Language)
	assert.Equal(t, planner.PolicyUniform, s.SelectionPolicy)
	assert.Equal(t, []string{"Fisk"}, s.SelectedCategories)
	assert.Equal(t, "Lunes", s.Plan[0].Day)
	for _, slot := range s.Plan {
		assert.Equal(t, "Fisk", slot.Category)
	}
}

func TestPlanner_MenuErrors(t *testing.T) {
	gen := planner.NewGenerator()

	_, err := NewPlanner(staticMenu{err: errors.New("offline")}, gen).NewState(context.Background(), NewStateRequest{})
	assert.Error(t, err)

	assert.ErrorIs(t, err, ErrMenuUnavailable)

	_, err = NewPlanner(staticMenu{m: menu.Menu{}}, gen).NewState(context.Background(), NewStateRequest{})
	assert.ErrorIs(t, err, menu.ErrEmptyMenu)
	assert.ErrorIs(t, err, ErrMenuUnavailable)
}

func TestPlanner_LockAndRegenerate(t *testing.T) {
	p := newTestPlanner(t, nil)
	ctx := context.Background()

	s, err := p.NewState(ctx, NewStateRequest{})
	require.NoError(t, err)
	wednesday := s.Plan[2]

	s, err = p.ToggleLock(s, wednesday.ID)
	require.NoError(t, err)
	assert.True(t, s.LockedIDs.Has(wednesday.ID))

	next, err := p.Regenerate(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, wednesday, next.Plan[2])
	assert.True(t, next.LockedIDs.Has(wednesday.ID))
	for i, slot := range next.Plan {
		if i != 2 {
			assert.NotEqual(t, s.Plan[i].ID, slot.ID)
		}
	}

	_, err = p.ToggleLock(s, "missing")
	assert.ErrorIs(t, err, planner.ErrSlotNotFound)
}

func TestPlanner_SetLanguageRegenerates(t *testing.T) {
	p := newTestPlanner(t, nil)
	ctx := context.Background()

	s, err := p.NewState(ctx, NewStateRequest{})
	require.NoError(t, err)
	locked := s.Plan[0]
	s, err = p.ToggleLock(s, locked.ID)
	require.NoError(t, err)

	no, err := p.SetLanguage(ctx, s, "no")
	require.NoError(t, err)
	assert.Equal(t, "no", no.Language)
	assert.Equal(t, "Mandag", no.Plan[0].Day)
	assert.Equal(t, locked.Dish, no.Plan[0].Dish)
	assert.Equal(t, locked.ID, no.Plan[0].ID)
	assert.NotEqual(t, s.Plan[1].ID, no.Plan[1].ID)

	es, err := p.SetLanguage(ctx, s, " ES ")
	require.NoError(t, err)
	assert.Equal(t, "es", es.Language)
	assert.Equal(t, "Lunes", es.Plan[0].Day)

	_, err = p.SetLanguage(ctx, s, "de")
	assert.True(t, IsBadInput(err))
}

func TestPlanner_EditReorderAndText(t *testing.T) {
	p := newTestPlanner(t, nil)
	s, err := p.NewState(context.Background(), NewStateRequest{})
	require.NoError(t, err)

	edited, err := p.EditDish(s, s.Plan[1].ID, "Pannekaker")
	require.NoError(t, err)
	assert.Equal(t, "Pannekaker", edited.Plan[1].Dish)
	assert.Equal(t, planner.CategoryManual, edited.Plan[1].Category)

	_, err = p.EditDish(s, s.Plan[1].ID, "  ")
	assert.True(t, IsBadInput(err))

	moved, err := p.Move(edited, edited.Plan[0].ID, edited.Plan[6].ID)
	require.NoError(t, err)
	assert.Equal(t, edited.Plan[0].ID, moved.Plan[6].ID)
	assert.Equal(t, "Sunday", moved.Plan[6].Day)

	_, err = p.Move(edited, "x", edited.Plan[6].ID)
	assert.ErrorIs(t, err, planner.ErrSlotNotFound)

	ids := moved.Plan.IDs()
	reversed := make([]string, len(ids))
	for i, id := range ids {
		reversed[len(ids)-1-i] = id
	}
	back, err := p.Reorder(moved, reversed)
	require.NoError(t, err)
	assert.Equal(t, reversed, back.Plan.IDs())

	_, err = p.Reorder(moved, ids[:3])
	assert.True(t, IsBadInput(err))

	text := p.CopyText(back)
	assert.Contains(t, text, "Monday: ")
	assert.Contains(t, text, "Pannekaker")
}

func TestPlanner_CategoriesAndPolicy(t *testing.T) {
	p := newTestPlanner(t, nil)
	ctx := context.Background()
	s, err := p.NewState(ctx, NewStateRequest{})
	require.NoError(t, err)

	s = p.ToggleCategory(s, "Kjøtt")
	assert.Equal(t, []string{"Fisk", "Vegetar"}, s.SelectedCategories)
	s = p.ToggleCategory(s, "Kjøtt")
	assert.Equal(t, []string{"Fisk", "Vegetar", "Kjøtt"}, s.SelectedCategories)

	s, err = p.SetCategories(ctx, s, []string{"Vegetar", "Nope"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Vegetar"}, s.SelectedCategories)

	s = p.SetPolicy(s, "random")
	assert.Equal(t, planner.PolicyUniform, s.SelectionPolicy)
}

func newTestSessions(t *testing.T, delay time.Duration) (*Sessions, storage.BlobStore, *share.Autosaver) {
	t.Helper()
	store, err := storage.NewFileStore(filepath.Join(t.TempDir(), "shared"))
	require.NoError(t, err)
	autosave := share.NewAutosaver(store, delay)
	t.Cleanup(autosave.Close)
	return NewSessions(store, autosave), store, autosave
}

func TestSessions_CreateGetUpdate(t *testing.T) {
	p := newTestPlanner(t, nil)
	ss, store, autosave := newTestSessions(t, time.Hour)
	ctx := context.Background()

	s, err := p.NewState(ctx, NewStateRequest{})
	require.NoError(t, err)

	id, err := ss.Create(ctx, s)
	require.NoError(t, err)

	got, err := ss.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, s.Plan, got.Plan)

	updated, err := ss.Update(ctx, id, func(cur share.State) (share.State, error) {
		return p.ToggleLock(cur, cur.Plan[3].ID)
	})
	require.NoError(t, err)
	assert.True(t, updated.LockedIDs.Has(s.Plan[3].ID))

	// read-your-writes before the autosave fires
	got, err = ss.Get(ctx, id)
	require.NoError(t, err)
	assert.True(t, got.LockedIDs.Has(s.Plan[3].ID))

	raw, err := store.Get(ctx, id)
	require.NoError(t, err)
	stored, err := share.Decode(raw)
	require.NoError(t, err)
	assert.False(t, stored.LockedIDs.Has(s.Plan[3].ID), "not written until the autosave fires")

	autosave.Flush()
	raw, err = store.Get(ctx, id)
	require.NoError(t, err)
	stored, err = share.Decode(raw)
	require.NoError(t, err)
	assert.True(t, stored.LockedIDs.Has(s.Plan[3].ID))
}

func TestSessions_UpdateErrors(t *testing.T) {
	ss, _, _ := newTestSessions(t, time.Hour)
	ctx := context.Background()

	_, err := ss.Update(ctx, storage.NewID(), func(s share.State) (share.State, error) { return s, nil })
	assert.ErrorIs(t, err, storage.ErrNotFound)

	id, err := ss.Create(ctx, share.State{})
	require.NoError(t, err)
	_, err = ss.Update(ctx, id, func(s share.State) (share.State, error) {
		return s, planner.ErrBlankDish
	})
	assert.ErrorIs(t, err, planner.ErrBlankDish)
}

func TestSessions_Replace(t *testing.T) {
	p := newTestPlanner(t, nil)
	ss, _, _ := newTestSessions(t, time.Hour)
	ctx := context.Background()

	s, err := p.NewState(ctx, NewStateRequest{})
	require.NoError(t, err)
	id, err := ss.Create(ctx, s)
	require.NoError(t, err)

	_, err = ss.Update(ctx, id, func(cur share.State) (share.State, error) {
		return p.SetPolicy(cur, "random"), nil
	})
	require.NoError(t, err)

	replacement := p.SetPolicy(s, "weighted")
	replacement.Language = "es"
	_, err = ss.Replace(ctx, id, replacement)
	require.NoError(t, err)

	got, err := ss.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "es", got.Language)
	assert.Equal(t, planner.PolicyWeighted, got.SelectionPolicy, "replace wins over the pending autosave")

	_, err = ss.Replace(ctx, storage.NewID(), s)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	bad := s.Clone()
	bad.Plan = bad.Plan[:2]
	_, err = ss.Replace(ctx, id, bad)
	assert.True(t, IsBadInput(err))
}

func TestOpenBackend(t *testing.T) {
	for _, backend := range []string{config.BackendSQLite, config.BackendFile} {
		t.Run(backend, func(t *testing.T) {
			dir := t.TempDir()
			cfg := &config.Config{
				DatabasePath: filepath.Join(dir, "middag.db"),
				StoreBackend: backend,
				ShareDir:     filepath.Join(dir, "shared"),
			}
			b, err := OpenBackend(cfg)
			require.NoError(t, err)
			defer b.Close()

			switch backend {
			case config.BackendFile:
				assert.IsType(t, &storage.FileStore{}, b.Store)
			default:
				assert.IsType(t, &storage.SQLiteStore{}, b.Store)
			}

			ctx := context.Background()
			id := storage.NewID()
			require.NoError(t, b.Store.Create(ctx, id, []byte(`{"plan":[]}`)))
			got, err := b.Store.Get(ctx, id)
			require.NoError(t, err)
			assert.JSONEq(t, `{"plan":[]}`, string(got))

			require.NoError(t, b.Metrics.Record(ctx, metrics.GenerationMetric{Policy: "weighted"}))
		})
	}
}
