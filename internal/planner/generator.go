package planner

import (
	"log/slog"

	"github.com/google/uuid"
)

// Request is the input of one generation pass.
type Request struct {
	Previous   Plan
	Locked     LockSet
	Categories []string
	Dishes     map[string][]string
	Policy     SelectionPolicy
	Labels     DayLabels
	Messages   Messages

	// Ignore lists extra strings that never block a dish, such as the
	// placeholder texts of other languages.
	Ignore DishSet
}

// Generator builds weekly plans.
type Generator struct {
	rng    Rand
	newID  func() string
	logger *slog.Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithRand sets the random source.
func WithRand(rng Rand) Option {
	return func(g *Generator) { g.rng = rng }
}

// WithIDFunc sets the slot id generator.
func WithIDFunc(fn func() string) Option {
	return func(g *Generator) { g.newID = fn }
}

// WithLogger sets the logger used for lock desync warnings.
func WithLogger(l *slog.Logger) Option {
	return func(g *Generator) { g.logger = l }
}

// NewGenerator creates a Generator with uuid slot ids and the shared random source.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		rng:    DefaultRand,
		newID:  uuid.NewString,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Select draws a dish with the generator's random source.
func (g *Generator) Select(candidates []string, used DishSet, policy SelectionPolicy) (string, bool) {
	return Select(g.rng, candidates, used, policy)
}

// Generate produces a new seven day plan. Locked slots of the previous plan
// keep their id, dish and category; every other slot is drawn again.
// Missing data yields placeholder dishes, never an error.
func (g *Generator) Generate(req Request) Plan {
	available := availableCategories(req.Categories, req.Dishes)

	lockedByID := make(map[string]Slot)
	for _, s := range req.Previous {
		if req.Locked.Has(s.ID) {
			lockedByID[s.ID] = s
		}
	}

	used := make(DishSet)
	for _, s := range lockedByID {
		if s.Dish == "" || req.Messages.IsSentinel(s.Dish) || req.Ignore.has(s.Dish) {
			continue
		}
		used[s.Dish] = struct{}{}
	}

	g.rng.Shuffle(len(available), func(i, j int) {
		available[i], available[j] = available[j], available[i]
	})
	next := 0

	plan := make(Plan, 0, DaysInPlan)
	for i, key := range Week {
		day := req.Labels.label(key)

		if i < len(req.Previous) && req.Locked.Has(req.Previous[i].ID) {
			existing := req.Previous[i]
			kept, ok := lockedByID[existing.ID]
			if !ok {
				g.logger.Warn("locked slot missing from previous plan", "slot", existing.ID, "day", key)
				plan = append(plan, Slot{
					ID:       existing.ID,
					DayKey:   key,
					Day:      day,
					Dish:     req.Messages.ErrorKeptLocked,
					Category: CategoryNone,
				})
				continue
			}
			kept.DayKey = key
			kept.Day = day
			plan = append(plan, kept)
			continue
		}

		slot := Slot{ID: g.newID(), DayKey: key, Day: day, Category: CategoryNone}
		if len(available) == 0 {
			slot.Dish = req.Messages.NoDishesAvailable
			plan = append(plan, slot)
			continue
		}

		category := available[next%len(available)]
		next++
		slot.Category = category
		if dish, ok := g.Select(req.Dishes[category], used, req.Policy); ok {
			slot.Dish = dish
			used[dish] = struct{}{}
		} else {
			slot.Dish = req.Messages.NoDishFound
		}
		plan = append(plan, slot)
	}
	return plan
}

func availableCategories(selected []string, dishes map[string][]string) []string {
	seen := make(map[string]struct{}, len(selected))
	out := make([]string, 0, len(selected))
	for _, c := range selected {
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		if len(dishes[c]) > 0 {
			out = append(out, c)
		}
	}
	return out
}
