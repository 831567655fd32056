package menu

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Loader returns the current menu.
type Loader interface {
	Load(ctx context.Context) (Menu, error)
}

// Format is the encoding of a menu source.
type Format int

const (
	FormatUnknown Format = iota
	FormatXLSX
	FormatHTML
)

var zipMagic = []byte("PK\x03\x04")

// DetectFormat picks the parser for data. The hint is a file name or a
// content type; the zip signature of a workbook wins over both.
func DetectFormat(data []byte, hint string) Format {
	if bytes.HasPrefix(data, zipMagic) {
		return FormatXLSX
	}
	hint = strings.ToLower(hint)
	switch {
	case strings.Contains(hint, "spreadsheetml"), strings.Contains(hint, "ms-excel"),
		strings.HasSuffix(hint, ".xlsx"), strings.HasSuffix(hint, ".xlsm"):
		return FormatXLSX
	case strings.Contains(hint, "html"), strings.HasSuffix(hint, ".htm"):
		return FormatHTML
	}
	head := bytes.ToLower(data[:min(len(data), 512)])
	if bytes.Contains(head, []byte("<table")) || bytes.Contains(head, []byte("<html")) {
		return FormatHTML
	}
	return FormatUnknown
}

// Decode parses data in the given format and rejects empty menus.
func Decode(data []byte, format Format) (Menu, error) {
	var (
		m   Menu
		err error
	)
	switch format {
	case FormatXLSX:
		m, err = ParseXLSX(bytes.NewReader(data))
	case FormatHTML:
		m, err = ParseHTML(bytes.NewReader(data))
	default:
		return Menu{}, fmt.Errorf("unrecognized menu format")
	}
	if err != nil {
		return Menu{}, err
	}
	if m.Empty() {
		return Menu{}, ErrEmptyMenu
	}
	return m, nil
}

// Client reads the menu from a URL or a local file. The URL wins when both are set.
type Client struct {
	httpClient *http.Client
	url        string
	file       string
}

// NewClient creates a new menu client.
func NewClient(url, file string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		url:        url,
		file:       file,
	}
}

// Source describes where the menu is read from.
func (c *Client) Source() string {
	if c.url != "" {
		return c.url
	}
	return c.file
}

// Load fetches and parses the menu.
func (c *Client) Load(ctx context.Context) (Menu, error) {
	switch {
	case c.url != "":
		return c.fetch(ctx)
	case c.file != "":
		data, err := os.ReadFile(c.file)
		if err != nil {
			return Menu{}, fmt.Errorf("failed to read menu file: %w", err)
		}
		return Decode(data, DetectFormat(data, filepath.Base(c.file)))
	default:
		return Menu{}, fmt.Errorf("no menu source configured")
	}
}

func (c *Client) fetch(ctx context.Context) (Menu, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return Menu{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Cache-Control", "no-store")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Menu{}, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Menu{}, fmt.Errorf("menu source error: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Menu{}, fmt.Errorf("failed to read response: %w", err)
	}

	hint := resp.Header.Get("Content-Type")
	if DetectFormat(data, hint) == FormatUnknown {
		hint = req.URL.Path
	}
	return Decode(data, DetectFormat(data, hint))
}
