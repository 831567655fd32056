package planner

import (
	"encoding/json"
	"slices"
	"strings"
)

// DayKey identifies a weekday independent of the display language.
type DayKey string

const (
	Monday    DayKey = "monday"
	Tuesday   DayKey = "tuesday"
	Wednesday DayKey = "wednesday"
	Thursday  DayKey = "thursday"
	Friday    DayKey = "friday"
	Saturday  DayKey = "saturday"
	Sunday    DayKey = "sunday"
)

// Week lists the weekday keys in plan order.
var Week = [7]DayKey{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// DaysInPlan is the number of slots in every plan.
const DaysInPlan = len(Week)

const (
	// CategoryNone marks a slot that has no source category.
	CategoryNone = "-"
	// CategoryManual marks a slot whose dish was typed in by the user.
	CategoryManual = "Manual"
)

// SelectionPolicy decides how a dish is drawn from a category.
type SelectionPolicy string

const (
	PolicyUniform  SelectionPolicy = "random"
	PolicyWeighted SelectionPolicy = "weighted"
)

// ParsePolicy maps a wire value to a policy. Anything unknown is weighted.
func ParsePolicy(s string) SelectionPolicy {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "random", "uniform":
		return PolicyUniform
	default:
		return PolicyWeighted
	}
}

// Slot is one weekday entry of a plan.
type Slot struct {
	ID       string `json:"id"`
	DayKey   DayKey `json:"dayKey"`
	Day      string `json:"day"`
	Dish     string `json:"dish"`
	Category string `json:"category"`
}

// Plan is the ordered week. Position defines the weekday.
type Plan []Slot

// Index returns the position of the slot with the given id, or -1.
func (p Plan) Index(id string) int {
	for i, s := range p {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// IDs returns the slot ids in plan order.
func (p Plan) IDs() []string {
	ids := make([]string, len(p))
	for i, s := range p {
		ids[i] = s.ID
	}
	return ids
}

// Clone returns a copy that can be mutated independently.
func (p Plan) Clone() Plan {
	return slices.Clone(p)
}

// DayLabels renders the display label for a weekday key.
type DayLabels func(DayKey) string

func (l DayLabels) label(k DayKey) string {
	if l == nil {
		return string(k)
	}
	return l(k)
}

// LockSet holds the ids of locked slots.
type LockSet map[string]struct{}

// NewLockSet builds a lock set from ids.
func NewLockSet(ids ...string) LockSet {
	ls := make(LockSet, len(ids))
	for _, id := range ids {
		ls[id] = struct{}{}
	}
	return ls
}

// Has reports whether id is locked.
func (ls LockSet) Has(id string) bool {
	_, ok := ls[id]
	return ok
}

// Sorted returns the locked ids in a stable order.
func (ls LockSet) Sorted() []string {
	ids := make([]string, 0, len(ls))
	for id := range ls {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Clone copies the set.
func (ls LockSet) Clone() LockSet {
	out := make(LockSet, len(ls))
	for id := range ls {
		out[id] = struct{}{}
	}
	return out
}

// Prune drops ids that no longer belong to any slot of the plan.
func (ls LockSet) Prune(p Plan) LockSet {
	out := make(LockSet, len(ls))
	for _, s := range p {
		if ls.Has(s.ID) {
			out[s.ID] = struct{}{}
		}
	}
	return out
}

func (ls LockSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(ls.Sorted())
}

func (ls *LockSet) UnmarshalJSON(data []byte) error {
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*ls = NewLockSet(ids...)
	return nil
}

// DishSet is a set of dish names.
type DishSet map[string]struct{}

func (d DishSet) has(dish string) bool {
	_, ok := d[dish]
	return ok
}

// Messages holds the localized placeholder texts used when no dish can be placed.
type Messages struct {
	NoDishesAvailable string
	NoDishFound       string
	ErrorKeptLocked   string
}

// IsSentinel reports whether s is one of the placeholder texts.
func (m Messages) IsSentinel(s string) bool {
	return s == m.NoDishesAvailable || s == m.NoDishFound || s == m.ErrorKeptLocked
}
