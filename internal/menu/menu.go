// Package menu loads the dinner spreadsheet: category names in the first row,
// candidate dishes below them.
package menu

import (
	"errors"
	"slices"
	"strings"
)

// ErrEmptyMenu is returned when a source yields no categories.
var ErrEmptyMenu = errors.New("could not load dinner data")

// Menu maps categories to their dishes. Categories keeps the column order and
// each dish list keeps the row order, which is the basis for weighted selection.
type Menu struct {
	Categories []string            `json:"categories"`
	Dishes     map[string][]string `json:"dishes"`
}

// Empty reports whether the menu has no categories.
func (m Menu) Empty() bool {
	return len(m.Categories) == 0
}

// HasCategory reports whether name is a column of the menu.
func (m Menu) HasCategory(name string) bool {
	return slices.Contains(m.Categories, name)
}

// Filter keeps the names that are categories of the menu, in the given order.
func (m Menu) Filter(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if m.HasCategory(n) && !slices.Contains(out, n) {
			out = append(out, n)
		}
	}
	return out
}

// Parse builds a menu from spreadsheet rows. Columns with an empty header are
// skipped; a repeated header merges into the first column of that name.
// Repeated dishes are kept, so a dish listed twice ranks with more weight.
func Parse(rows [][]string) Menu {
	m := Menu{Dishes: map[string][]string{}}
	if len(rows) < 2 {
		return m
	}

	columns := make([]string, len(rows[0]))
	for j, cell := range rows[0] {
		name := strings.TrimSpace(cell)
		columns[j] = name
		if name == "" {
			continue
		}
		if _, ok := m.Dishes[name]; !ok {
			m.Categories = append(m.Categories, name)
			m.Dishes[name] = []string{}
		}
	}

	for _, row := range rows[1:] {
		for j, cell := range row {
			if j >= len(columns) || columns[j] == "" {
				continue
			}
			dish := strings.TrimSpace(cell)
			if dish == "" {
				continue
			}
			m.Dishes[columns[j]] = append(m.Dishes[columns[j]], dish)
		}
	}
	return m
}
