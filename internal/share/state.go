// Package share defines the persisted form of a shared plan and its debounced writer.
package share

import (
	"encoding/json"
	"errors"
	"fmt"

	"middag/internal/i18n"
	"middag/internal/planner"
)

// ErrInvalidState is returned for documents that cannot be a shared plan.
var ErrInvalidState = errors.New("invalid shared plan")

// State is everything needed to restore a planner session.
type State struct {
	Plan               planner.Plan            `json:"plan"`
	LockedIDs          planner.LockSet         `json:"lockedIds"`
	SelectedCategories []string                `json:"selectedCategories"`
	Language           string                  `json:"language"`
	SelectionPolicy    planner.SelectionPolicy `json:"selectionPolicy"`
}

// Normalize fills defaults and drops locks that point at no slot.
func (s State) Normalize() State {
	s.Language = i18n.Normalize(s.Language)
	s.SelectionPolicy = planner.ParsePolicy(string(s.SelectionPolicy))
	if s.Plan == nil {
		s.Plan = planner.Plan{}
	}
	s.LockedIDs = s.LockedIDs.Prune(s.Plan)
	if s.SelectedCategories == nil {
		s.SelectedCategories = []string{}
	}
	return s
}

// Validate rejects plans that are neither empty nor a full week.
func (s State) Validate() error {
	if n := len(s.Plan); n != 0 && n != planner.DaysInPlan {
		return fmt.Errorf("%w: plan has %d slots", ErrInvalidState, n)
	}
	seen := make(map[string]struct{}, len(s.Plan))
	for _, slot := range s.Plan {
		if slot.ID == "" {
			return fmt.Errorf("%w: slot without id", ErrInvalidState)
		}
		if _, dup := seen[slot.ID]; dup {
			return fmt.Errorf("%w: duplicate slot id %q", ErrInvalidState, slot.ID)
		}
		seen[slot.ID] = struct{}{}
	}
	return nil
}

// Clone returns a deep copy.
func (s State) Clone() State {
	out := s
	out.Plan = s.Plan.Clone()
	out.LockedIDs = s.LockedIDs.Clone()
	out.SelectedCategories = append([]string(nil), s.SelectedCategories...)
	return out
}

// Encode serializes the state.
func Encode(s State) ([]byte, error) {
	data, err := json.Marshal(s.Normalize())
	if err != nil {
		return nil, fmt.Errorf("failed to encode shared plan: %w", err)
	}
	return data, nil
}

// Decode parses and normalizes a stored state.
func Decode(data []byte) (State, error) {
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return State{}, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	if err := s.Validate(); err != nil {
		return State{}, err
	}
	return s.Normalize(), nil
}
