package scraper

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/TroyBWP/Scrape-Outstanding-Followups/internal/domain"
)

// Header matching is text-driven because the dashboard reorders columns
// between deployments. Only the final cell lookup is positional, relative
// to the indexes resolved here.
var (
	reLocation    = regexp.MustCompile(`(?i)location`)
	reFollowUps   = regexp.MustCompile(`(?i)follow[- ]?ups?`)
	reUnprocessed = regexp.MustCompile(`(?i)unprocessed|calls`)
	reNonDigit    = regexp.MustCompile(`[^0-9]`)
	reHidden      = regexp.MustCompile(`display\s*:\s*none|visibility\s*:\s*hidden`)
)

// Columns maps semantic fields to zero-based column indexes, resolved once
// per run from the matched table's header row.
type Columns struct {
	Location    int
	FollowUps   int
	Unprocessed int // -1 when the table has no unprocessed/calls column
}

// Table is a located candidate table with its resolved columns.
type Table struct {
	sel  *goquery.Selection
	Cols Columns
}

// ParseStats counts what row extraction dropped or repaired.
type ParseStats struct {
	SkippedRows   int // hidden rows and rows with an empty location cell
	ParseWarnings int // numeric cells that fell back to 0
}

// Locate scans frame documents in order and returns the first table whose
// header cells match both the location and follow-ups patterns. The
// unprocessed/calls column is resolved when present but is not required.
func Locate(docs []string) (*Table, error) {
	for _, html := range docs {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
		if err != nil {
			return nil, fmt.Errorf("parse frame document: %w", err)
		}

		var found *Table
		doc.Find("table").EachWithBreak(func(_ int, t *goquery.Selection) bool {
			cols, ok := resolveColumns(t)
			if !ok {
				return true
			}
			found = &Table{sel: t, Cols: cols}
			return false
		})
		if found != nil {
			return found, nil
		}
	}
	return nil, fmt.Errorf("%w: no table matched location and follow-ups headers", domain.ErrTableNotFound)
}

func resolveColumns(t *goquery.Selection) (Columns, bool) {
	cols := Columns{Location: -1, FollowUps: -1, Unprocessed: -1}
	t.Find("th").Each(func(i int, th *goquery.Selection) {
		text := headerText(th)
		switch {
		case cols.Location < 0 && reLocation.MatchString(text):
			cols.Location = i
		case cols.FollowUps < 0 && reFollowUps.MatchString(text):
			cols.FollowUps = i
		case cols.Unprocessed < 0 && reUnprocessed.MatchString(text):
			cols.Unprocessed = i
		}
	})
	return cols, cols.Location >= 0 && cols.FollowUps >= 0
}

func headerText(th *goquery.Selection) string {
	return strings.TrimSpace(strings.ReplaceAll(th.Text(), "\n", " "))
}

// Rows extracts the table's data rows in document order. Rows marked hidden
// by the UI and rows with an empty location cell are skipped; numeric cells
// are digit-stripped and fall back to 0 when nothing parsable remains.
// Duplicate location names are preserved as separate records.
func (t *Table) Rows() ([]domain.FollowUpRecord, ParseStats) {
	var records []domain.FollowUpRecord
	var stats ParseStats

	need := t.Cols.Location
	if t.Cols.FollowUps > need {
		need = t.Cols.FollowUps
	}
	if t.Cols.Unprocessed > need {
		need = t.Cols.Unprocessed
	}

	t.sel.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() == 0 {
			return // header row
		}
		if hiddenRow(row) {
			stats.SkippedRows++
			return
		}
		if cells.Length() <= need {
			stats.SkippedRows++
			return
		}

		location := locationText(cells.Eq(t.Cols.Location))
		if location == "" {
			stats.SkippedRows++
			return
		}

		followUps, ok := parseCount(cells.Eq(t.Cols.FollowUps).Text())
		if !ok {
			stats.ParseWarnings++
		}
		calls := 0
		if t.Cols.Unprocessed >= 0 {
			calls, ok = parseCount(cells.Eq(t.Cols.Unprocessed).Text())
			if !ok {
				stats.ParseWarnings++
			}
		}

		records = append(records, domain.FollowUpRecord{
			LocationName:         location,
			UnprocessedFollowUps: followUps,
			UnprocessedCalls:     calls,
		})
	})

	return records, stats
}

// The dashboard renders the location name inside a p.location-name element
// alongside decoration; prefer it over the raw cell text when present.
func locationText(cell *goquery.Selection) string {
	if p := cell.Find("p.location-name"); p.Length() > 0 {
		return strings.TrimSpace(p.First().Text())
	}
	return strings.TrimSpace(cell.Text())
}

// Collapsed group rows stay in the DOM; the rendering layer marks them with
// a hidden attribute, aria-hidden, an inline display/visibility style, or a
// group-header class. Anything so marked is not a data row.
func hiddenRow(row *goquery.Selection) bool {
	if _, ok := row.Attr("hidden"); ok {
		return true
	}
	if v, _ := row.Attr("aria-hidden"); v == "true" {
		return true
	}
	if style, ok := row.Attr("style"); ok && reHidden.MatchString(strings.ToLower(style)) {
		return true
	}
	if class, ok := row.Attr("class"); ok && strings.Contains(class, "group-header") {
		return true
	}
	return false
}

// parseCount strips everything that is not a digit before converting, so
// "1,234" reads as 1234. It reports false when it had to substitute 0 for a
// cell that held no digits at all, e.g. "N/A".
func parseCount(raw string) (int, bool) {
	cleaned := reNonDigit.ReplaceAllString(raw, "")
	if cleaned == "" {
		return 0, strings.TrimSpace(raw) == ""
	}
	n, err := strconv.Atoi(cleaned)
	if err != nil {
		return 0, false
	}
	return n, true
}

// HasRealData reports whether the parsed rows look like rendered data
// rather than the zero-filled skeleton the dashboard shows while loading.
// The threshold scales with table size but never drops below 10 non-zero
// values, mirroring how sparse a legitimately quiet day can be.
func HasRealData(records []domain.FollowUpRecord) bool {
	nonZero := 0
	for _, r := range records {
		if r.UnprocessedFollowUps > 0 {
			nonZero++
		}
		if r.UnprocessedCalls > 0 {
			nonZero++
		}
	}
	threshold := len(records) / 20
	if threshold < 10 {
		threshold = 10
	}
	return nonZero >= threshold
}
