package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"middag/internal/i18n"
	"middag/internal/menu"
	"middag/internal/metrics"
	"middag/internal/planner"
	"middag/internal/share"
)

// Planner applies user actions to a plan state. It loads the menu for every
// generation so a refreshed spreadsheet is picked up.
type Planner struct {
	menu     menu.Loader
	gen      *planner.Generator
	tr       *i18n.Translator
	recorder metrics.Recorder
	logger   *slog.Logger

	defaultLanguage string
	defaultPolicy   planner.SelectionPolicy
}

// PlannerOption configures a Planner.
type PlannerOption func(*Planner)

// WithRecorder records a metric per generation.
func WithRecorder(r metrics.Recorder) PlannerOption {
	return func(p *Planner) { p.recorder = r }
}

// WithDefaults sets the language and policy of new plans.
func WithDefaults(language, policy string) PlannerOption {
	return func(p *Planner) {
		p.defaultLanguage = i18n.Normalize(language)
		p.defaultPolicy = planner.ParsePolicy(policy)
	}
}

// WithPlannerLogger sets the logger.
func WithPlannerLogger(l *slog.Logger) PlannerOption {
	return func(p *Planner) { p.logger = l }
}

// NewPlanner creates a new Planner.
func NewPlanner(loader menu.Loader, gen *planner.Generator, opts ...PlannerOption) *Planner {
	p := &Planner{
		menu:            loader,
		gen:             gen,
		tr:              i18n.Default(),
		logger:          slog.Default(),
		defaultLanguage: i18n.DefaultLanguage,
		defaultPolicy:   planner.PolicyWeighted,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Menu returns the current menu.
func (p *Planner) Menu(ctx context.Context) (menu.Menu, error) {
	m, err := p.menu.Load(ctx)
	if err != nil {
		return menu.Menu{}, fmt.Errorf("%w: %w", ErrMenuUnavailable, err)
	}
	if m.Empty() {
		return menu.Menu{}, fmt.Errorf("%w: %w", ErrMenuUnavailable, menu.ErrEmptyMenu)
	}
	return m, nil
}

// NewStateRequest holds the optional settings of a new plan.
type NewStateRequest struct {
	Language   string
	Policy     string
	Categories []string
}

// NewState creates a freshly generated plan. Without categories every
// category of the menu is selected.
func (p *Planner) NewState(ctx context.Context, req NewStateRequest) (share.State, error) {
	m, err := p.Menu(ctx)
	if err != nil {
		return share.State{}, err
	}

	s := share.State{
		Language:        p.defaultLanguage,
		SelectionPolicy: p.defaultPolicy,
		LockedIDs:       planner.LockSet{},
	}
	if req.Language != "" {
		s.Language = i18n.Normalize(req.Language)
	}
	if req.Policy != "" {
		s.SelectionPolicy = planner.ParsePolicy(req.Policy)
	}
	s.SelectedCategories = slices.Clone(m.Categories)
	if req.Categories != nil {
		s.SelectedCategories = m.Filter(req.Categories)
	}

	return p.generate(ctx, m, s), nil
}

// Regenerate draws every unlocked slot again.
func (p *Planner) Regenerate(ctx context.Context, s share.State) (share.State, error) {
	m, err := p.Menu(ctx)
	if err != nil {
		return share.State{}, err
	}
	return p.generate(ctx, m, s.Normalize()), nil
}

func (p *Planner) generate(ctx context.Context, m menu.Menu, s share.State) share.State {
	start := time.Now()
	msgs := p.tr.Messages(s.Language)

	out := s.Clone()
	out.Plan = p.gen.Generate(planner.Request{
		Previous:   s.Plan,
		Locked:     s.LockedIDs,
		Categories: s.SelectedCategories,
		Dishes:     m.Dishes,
		Policy:     s.SelectionPolicy,
		Labels:     p.tr.DayLabels(s.Language),
		Messages:   msgs,
		Ignore:     p.tr.AllSentinels(),
	})
	out.LockedIDs = out.LockedIDs.Prune(out.Plan)

	p.record(ctx, out, msgs, time.Since(start))
	return out
}

func (p *Planner) record(ctx context.Context, s share.State, msgs planner.Messages, latency time.Duration) {
	if p.recorder == nil {
		return
	}
	sentinels := 0
	for _, slot := range s.Plan {
		if msgs.IsSentinel(slot.Dish) {
			sentinels++
		}
	}
	err := p.recorder.Record(ctx, metrics.GenerationMetric{
		Policy:    string(s.SelectionPolicy),
		Language:  s.Language,
		Locked:    len(s.LockedIDs),
		Sentinels: sentinels,
		Latency:   latency,
		Timestamp: time.Now(),
	})
	if err != nil {
		p.logger.Warn("failed to record generation metric", "error", err)
	}
}

// ToggleLock locks or unlocks a slot.
func (p *Planner) ToggleLock(s share.State, slotID string) (share.State, error) {
	if s.Plan.Index(slotID) < 0 {
		return s, planner.ErrSlotNotFound
	}
	out := s.Clone()
	out.LockedIDs = planner.ToggleLock(s.LockedIDs, slotID)
	return out, nil
}

// ToggleCategory selects or deselects a category. The plan is not regenerated.
func (p *Planner) ToggleCategory(s share.State, category string) share.State {
	out := s.Clone()
	if i := slices.Index(out.SelectedCategories, category); i >= 0 {
		out.SelectedCategories = slices.Delete(out.SelectedCategories, i, i+1)
	} else {
		out.SelectedCategories = append(out.SelectedCategories, category)
	}
	return out
}

// SetCategories replaces the selection with the known categories among names.
func (p *Planner) SetCategories(ctx context.Context, s share.State, names []string) (share.State, error) {
	m, err := p.Menu(ctx)
	if err != nil {
		return share.State{}, err
	}
	out := s.Clone()
	out.SelectedCategories = m.Filter(names)
	return out, nil
}

// EditDish sets the dish of an unlocked slot by hand.
func (p *Planner) EditDish(s share.State, slotID, text string) (share.State, error) {
	plan, err := planner.EditDish(s.Plan, s.LockedIDs, slotID, text)
	if err != nil {
		return s, err
	}
	out := s.Clone()
	out.Plan = plan
	return out, nil
}

// Reorder lays the slots out in the given id order.
func (p *Planner) Reorder(s share.State, ids []string) (share.State, error) {
	plan, err := planner.Reorder(s.Plan, ids, p.tr.DayLabels(s.Language))
	if err != nil {
		return s, err
	}
	out := s.Clone()
	out.Plan = plan
	return out, nil
}

// Move drops one slot at the position of another.
func (p *Planner) Move(s share.State, activeID, overID string) (share.State, error) {
	if s.Plan.Index(activeID) < 0 || s.Plan.Index(overID) < 0 {
		return s, planner.ErrSlotNotFound
	}
	out := s.Clone()
	out.Plan = planner.Move(s.Plan, activeID, overID, p.tr.DayLabels(s.Language))
	return out, nil
}

// SetLanguage switches the language and regenerates the unlocked slots so
// labels and placeholders follow the new language.
func (p *Planner) SetLanguage(ctx context.Context, s share.State, lang string) (share.State, error) {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if !i18n.Supported(lang) {
		return s, fmt.Errorf("%w: unsupported language %q", ErrBadInput, lang)
	}
	out := s.Clone()
	out.Language = lang
	return p.Regenerate(ctx, out)
}

// SetPolicy changes the selection policy for later generations.
func (p *Planner) SetPolicy(s share.State, policy string) share.State {
	out := s.Clone()
	out.SelectionPolicy = planner.ParsePolicy(policy)
	return out
}

// CopyText renders the plan as copy-friendly text.
func (p *Planner) CopyText(s share.State) string {
	return planner.CopyText(s.Plan)
}

var (
	// ErrBadInput marks errors caused by the request rather than the system.
	ErrBadInput = errors.New("bad input")
	// ErrMenuUnavailable wraps every failure to load the menu.
	ErrMenuUnavailable = errors.New("menu unavailable")
)

// IsBadInput reports whether err should be answered as a client error.
func IsBadInput(err error) bool {
	return errors.Is(err, ErrBadInput) ||
		errors.Is(err, planner.ErrBlankDish) ||
		errors.Is(err, planner.ErrSlotLocked) ||
		errors.Is(err, planner.ErrInvalidOrder) ||
		errors.Is(err, share.ErrInvalidState)
}
