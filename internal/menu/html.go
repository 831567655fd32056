package menu

import (
	"fmt"
	"io"

	"github.com/PuerkitoBio/goquery"
)

// ParseHTML reads the first table of an HTML document, such as a published
// spreadsheet. Header and data cells are treated alike.
func ParseHTML(r io.Reader) (Menu, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return Menu{}, fmt.Errorf("failed to parse html: %w", err)
	}

	table := doc.Find("table").First()
	if table.Length() == 0 {
		return Menu{}, ErrEmptyMenu
	}

	var rows [][]string
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		var row []string
		tr.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
			row = append(row, cell.Text())
		})
		rows = append(rows, row)
	})
	return Parse(rows), nil
}
