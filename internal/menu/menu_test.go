package menu

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		rows [][]string
		want Menu
	}{
		{
			name: "header only",
			rows: [][]string{{"Fisk", "Kjøtt"}},
			want: Menu{Dishes: map[string][]string{}},
		},
		{
			name: "columns keep row order",
			rows: [][]string{
				{"Fisk", "Kjøtt"},
				{"Laks", "Taco"},
				{"Torsk", ""},
				{" Sei ", "Pølser"},
			},
			want: Menu{
				Categories: []string{"Fisk", "Kjøtt"},
				Dishes: map[string][]string{
					"Fisk":  {"Laks", "Torsk", "Sei"},
					"Kjøtt": {"Taco", "Pølser"},
				},
			},
		},
		{
			name: "empty header column is skipped without shifting",
			rows: [][]string{
				{"Fisk", "", "Kjøtt"},
				{"Laks", "orphan", "Taco"},
			},
			want: Menu{
				Categories: []string{"Fisk", "Kjøtt"},
				Dishes: map[string][]string{
					"Fisk":  {"Laks"},
					"Kjøtt": {"Taco"},
				},
			},
		},
		{
			name: "repeated header merges and duplicate dishes are kept",
			rows: [][]string{
				{"Fisk", "Fisk", "Suppe"},
				{"Laks", "Torsk", ""},
				{"Laks", "Sei", ""},
			},
			want: Menu{
				Categories: []string{"Fisk", "Suppe"},
				Dishes: map[string][]string{
					"Fisk":  {"Laks", "Torsk", "Laks", "Sei"},
					"Suppe": {},
				},
			},
		},
		{
			name: "cells beyond the header are ignored",
			rows: [][]string{
				{"Fisk"},
				{"Laks", "Taco"},
			},
			want: Menu{
				Categories: []string{"Fisk"},
				Dishes:     map[string][]string{"Fisk": {"Laks"}},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.rows))
		})
	}
}

func TestMenu_Filter(t *testing.T) {
	m := Menu{Categories: []string{"Fisk", "Kjøtt", "Suppe"}}
	assert.Equal(t, []string{"Suppe", "Fisk"}, m.Filter([]string{"Suppe", "Pasta", "Fisk", "Suppe"}))
	assert.Empty(t, m.Filter(nil))
}

func workbook(t *testing.T, rows [][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestParseXLSX(t *testing.T) {
	data := workbook(t, [][]any{
		{"Fisk", "Kjøtt"},
		{"Laks", "Taco"},
		{"Torsk", ""},
	})

	m, err := ParseXLSX(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, []string{"Fisk", "Kjøtt"}, m.Categories)
	assert.Equal(t, []string{"Laks", "Torsk"}, m.Dishes["Fisk"])
	assert.Equal(t, []string{"Taco"}, m.Dishes["Kjøtt"])
}

func TestParseXLSX_NotAWorkbook(t *testing.T) {
	_, err := ParseXLSX(strings.NewReader("not a zip"))
	assert.Error(t, err)
}

const sheetHTML = `<html><body>
<table>
  <tr><th>Fisk</th><th>Kjøtt</th></tr>
  <tr><td>Laks</td><td>Taco</td></tr>
  <tr><td>Torsk</td><td></td></tr>
</table>
<table><tr><td>ignored</td></tr></table>
</body></html>`

func TestParseHTML(t *testing.T) {
	m, err := ParseHTML(strings.NewReader(sheetHTML))
	require.NoError(t, err)
	assert.Equal(t, []string{"Fisk", "Kjøtt"}, m.Categories)
	assert.Equal(t, []string{"Laks", "Torsk"}, m.Dishes["Fisk"])
}

func TestParseHTML_NoTable(t *testing.T) {
	_, err := ParseHTML(strings.NewReader("<p>nothing</p>"))
	assert.ErrorIs(t, err, ErrEmptyMenu)
}

func TestDetectFormat(t *testing.T) {
	xlsx := workbook(t, [][]any{{"A"}, {"b"}})
	assert.Equal(t, FormatXLSX, DetectFormat(xlsx, "text/plain"))
	assert.Equal(t, FormatHTML, DetectFormat([]byte(sheetHTML), "text/html; charset=utf-8"))
	assert.Equal(t, FormatHTML, DetectFormat([]byte(sheetHTML), ""))
	assert.Equal(t, FormatXLSX, DetectFormat([]byte("x"), "menu.xlsx"))
	assert.Equal(t, FormatUnknown, DetectFormat([]byte("plain"), "menu.txt"))
}

func TestClient_LoadURL(t *testing.T) {
	data := workbook(t, [][]any{{"Fisk"}, {"Laks"}})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "no-store", r.Header.Get("Cache-Control"))
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Write(data)
	}))
	defer srv.Close()

	m, err := NewClient(srv.URL+"/middag.xlsx", "").Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Laks"}, m.Dishes["Fisk"])
}

func TestClient_LoadURLErrors(t *testing.T) {
	t.Run("bad status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		_, err := NewClient(srv.URL, "").Load(context.Background())
		assert.ErrorContains(t, err, "status 500")
	})

	t.Run("empty sheet", func(t *testing.T) {
		data := workbook(t, [][]any{{"Fisk"}})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write(data)
		}))
		defer srv.Close()

		_, err := NewClient(srv.URL, "").Load(context.Background())
		assert.ErrorIs(t, err, ErrEmptyMenu)
	})
}

func TestClient_LoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "middag.html")
	require.NoError(t, os.WriteFile(path, []byte(sheetHTML), 0o644))

	c := NewClient("", path)
	assert.Equal(t, path, c.Source())
	m, err := c.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Fisk", "Kjøtt"}, m.Categories)
}

func TestClient_NoSource(t *testing.T) {
	_, err := NewClient("", "").Load(context.Background())
	assert.Error(t, err)
}

type stubLoader struct {
	calls int
	menus []Menu
	errs  []error
}

func (s *stubLoader) Load(context.Context) (Menu, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return Menu{}, s.errs[i]
	}
	return s.menus[min(i, len(s.menus)-1)], nil
}

func TestCache(t *testing.T) {
	first := Menu{Categories: []string{"Fisk"}}
	second := Menu{Categories: []string{"Kjøtt"}}
	loader := &stubLoader{menus: []Menu{first, second, second}, errs: []error{nil, nil, errors.New("offline")}}

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewCache(loader, time.Minute, nil)
	c.now = func() time.Time { return now }

	m, err := c.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, m)

	now = now.Add(30 * time.Second)
	m, _ = c.Load(context.Background())
	assert.Equal(t, first, m)
	assert.Equal(t, 1, loader.calls, "fresh menu is served from memory")

	now = now.Add(time.Minute)
	m, _ = c.Load(context.Background())
	assert.Equal(t, second, m)
	assert.Equal(t, 2, loader.calls)

	now = now.Add(time.Hour)
	m, err = c.Load(context.Background())
	require.NoError(t, err, "failed refresh falls back to the cached menu")
	assert.Equal(t, second, m)
	assert.Equal(t, 3, loader.calls)
}

func TestCache_ErrorWithoutCachedMenu(t *testing.T) {
	loader := &stubLoader{errs: []error{ErrEmptyMenu}}
	_, err := NewCache(loader, 0, nil).Load(context.Background())
	assert.ErrorIs(t, err, ErrEmptyMenu)
}
