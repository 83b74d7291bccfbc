// Package agmarknet scrapes the daily mandi price table.
package agmarknet

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/02loveslollipop/crop-advisor/services/watcher/internal/models"
	"github.com/02loveslollipop/crop-advisor/services/watcher/internal/utils"
)

// FetchPriceTable retrieves the price page and parses its table.
func FetchPriceTable(ctx context.Context, client *http.Client, url string) ([]models.PriceRow, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request price page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}

	return ParsePriceTable(resp.Body)
}

type columns struct {
	state, district, market, commodity, variety int
	min, max, modal, date                       int
}

// ParsePriceTable finds the first table whose header has both a commodity and
// a modal price column and returns its rows. Columns are matched by header
// text, so their order does not matter.
func ParsePriceTable(r io.Reader) ([]models.PriceRow, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var (
		rows  []models.PriceRow
		found bool
	)
	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		cols, ok := headerColumns(table)
		if !ok {
			return true
		}
		found = true
		rows = make([]models.PriceRow, 0)
		table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
			cells := tr.Find("td")
			if cells.Length() == 0 {
				return
			}
			text := make([]string, cells.Length())
			cells.Each(func(i int, td *goquery.Selection) {
				text[i] = strings.TrimSpace(td.Text())
			})
			row := models.PriceRow{
				State:      cell(text, cols.state),
				District:   cell(text, cols.district),
				Market:     cell(text, cols.market),
				Commodity:  cell(text, cols.commodity),
				Variety:    cell(text, cols.variety),
				MinPrice:   utils.NormalizePrice(cell(text, cols.min)),
				MaxPrice:   utils.NormalizePrice(cell(text, cols.max)),
				ModalPrice: utils.NormalizePrice(cell(text, cols.modal)),
				PriceDate:  cell(text, cols.date),
			}
			if row.Commodity == "" {
				return
			}
			rows = append(rows, row)
		})
		return false
	})

	if !found {
		return nil, fmt.Errorf("no price table found")
	}
	return rows, nil
}

func headerColumns(table *goquery.Selection) (columns, bool) {
	cols := columns{-1, -1, -1, -1, -1, -1, -1, -1, -1}
	table.Find("th").Each(func(i int, th *goquery.Selection) {
		h := strings.ToLower(strings.TrimSpace(th.Text()))
		switch {
		case strings.Contains(h, "state"):
			cols.state = i
		case strings.Contains(h, "district"):
			cols.district = i
		case strings.Contains(h, "market"):
			cols.market = i
		case strings.Contains(h, "commodity"):
			cols.commodity = i
		case strings.Contains(h, "variety"):
			cols.variety = i
		case strings.Contains(h, "modal"):
			cols.modal = i
		case strings.Contains(h, "min"):
			cols.min = i
		case strings.Contains(h, "max"):
			cols.max = i
		case strings.Contains(h, "date"):
			cols.date = i
		}
	})
	return cols, cols.commodity >= 0 && cols.modal >= 0
}

func cell(text []string, i int) string {
	if i < 0 || i >= len(text) {
		return ""
	}
	return text[i]
}
