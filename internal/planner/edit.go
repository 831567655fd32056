package planner

import (
	"errors"
	"strings"
)

var (
	ErrBlankDish    = errors.New("dish must not be blank")
	ErrSlotLocked   = errors.New("slot is locked")
	ErrSlotNotFound = errors.New("slot not found")
	ErrInvalidOrder = errors.New("order must list every slot exactly once")
)

// ToggleLock flips the lock state of id and returns the new set.
func ToggleLock(locks LockSet, id string) LockSet {
	out := locks.Clone()
	if out.Has(id) {
		delete(out, id)
	} else {
		out[id] = struct{}{}
	}
	return out
}

// EditDish replaces the dish of a slot with user input and tags it as manual.
// Blank input leaves the plan untouched.
func EditDish(p Plan, locks LockSet, id, text string) (Plan, error) {
	i := p.Index(id)
	if i < 0 {
		return p, ErrSlotNotFound
	}
	if locks.Has(id) {
		return p, ErrSlotLocked
	}
	dish := strings.TrimSpace(text)
	if dish == "" {
		return p, ErrBlankDish
	}
	if dish == p[i].Dish {
		return p, nil
	}

	out := p.Clone()
	out[i].Dish = dish
	out[i].Category = CategoryManual
	return out, nil
}

// Relabel assigns weekday keys and labels by position.
func Relabel(p Plan, labels DayLabels) Plan {
	out := p.Clone()
	for i := range out {
		if i >= DaysInPlan {
			break
		}
		out[i].DayKey = Week[i]
		out[i].Day = labels.label(Week[i])
	}
	return out
}

// Reorder lays the slots out in the order of ids, which must be a
// permutation of the plan's ids, and relabels them by their new position.
func Reorder(p Plan, ids []string, labels DayLabels) (Plan, error) {
	if len(ids) != len(p) {
		return p, ErrInvalidOrder
	}
	out := make(Plan, 0, len(p))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return p, ErrInvalidOrder
		}
		seen[id] = struct{}{}
		i := p.Index(id)
		if i < 0 {
			return p, ErrInvalidOrder
		}
		out = append(out, p[i])
	}
	return Relabel(out, labels), nil
}

// Move drops the slot activeID at the position of overID, shifting the slots
// in between, and relabels the week. Unknown or equal ids leave p unchanged.
func Move(p Plan, activeID, overID string, labels DayLabels) Plan {
	from, to := p.Index(activeID), p.Index(overID)
	if from < 0 || to < 0 || from == to {
		return p
	}

	out := p.Clone()
	moved := out[from]
	out = append(out[:from], out[from+1:]...)
	out = append(out[:to], append(Plan{moved}, out[to:]...)...)
	return Relabel(out, labels)
}

// CopyText renders the plan as "day: dish" lines.
func CopyText(p Plan) string {
	lines := make([]string, len(p))
	for i, s := range p {
		lines[i] = s.Day + ": " + s.Dish
	}
	return strings.Join(lines, "\n")
}
