package scraper

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/TroyBWP/Scrape-Outstanding-Followups/internal/domain"
)

func page(tables ...string) string {
	body := ""
	for _, t := range tables {
		body += t
	}
	return "<html><body>" + body + "</body></html>"
}

const followUpsTable = `
<table>
  <thead>
    <tr><th>Location</th><th>Follow-Ups</th><th>Unprocessed Calls</th></tr>
  </thead>
  <tbody>
    <tr><td>Main St</td><td>12</td><td>3</td></tr>
    <tr><td>Oak Ave</td><td>0</td><td>0</td></tr>
  </tbody>
</table>`

const decoyTable = `
<table>
  <thead><tr><th>Metric</th><th>Value</th></tr></thead>
  <tbody><tr><td>Occupancy</td><td>91%</td></tr></tbody>
</table>`

func TestLocateSkipsNonMatchingTables(t *testing.T) {
	table, err := Locate([]string{page(decoyTable, followUpsTable)})
	require.NoError(t, err)
	require.Equal(t, 0, table.Cols.Location)
	require.Equal(t, 1, table.Cols.FollowUps)
	require.Equal(t, 2, table.Cols.Unprocessed)

	records, stats := table.Rows()
	require.Equal(t, []domain.FollowUpRecord{
		{LocationName: "Main St", UnprocessedFollowUps: 12, UnprocessedCalls: 3},
		{LocationName: "Oak Ave", UnprocessedFollowUps: 0, UnprocessedCalls: 0},
	}, records)
	require.Zero(t, stats.SkippedRows)
	require.Zero(t, stats.ParseWarnings)
}

func TestLocateNoMatch(t *testing.T) {
	_, err := Locate([]string{page(decoyTable)})
	require.Error(t, err)
	require.True(t, errors.Is(err, domain.ErrTableNotFound))
}

func TestLocateSearchesFramesInOrder(t *testing.T) {
	docs := []string{page(decoyTable), page(followUpsTable)}
	table, err := Locate(docs)
	require.NoError(t, err)

	records, _ := table.Rows()
	require.Len(t, records, 2)
	require.Equal(t, "Main St", records[0].LocationName)
}

// Selection is header-text-driven, so permuting the columns must yield the
// same records.
func TestColumnOrderIndependence(t *testing.T) {
	permutations := []struct {
		headers string
		row     string
	}{
		{
			headers: "<th>Location</th><th>Follow-Ups</th><th>Unprocessed Calls</th>",
			row:     "<td>Main St</td><td>12</td><td>3</td>",
		},
		{
			headers: "<th>Unprocessed Calls</th><th>Location</th><th>Follow-Ups</th>",
			row:     "<td>3</td><td>Main St</td><td>12</td>",
		},
		{
			headers: "<th>Follow-Ups</th><th>Unprocessed Calls</th><th>Location</th>",
			row:     "<td>12</td><td>3</td><td>Main St</td>",
		},
	}
	want := domain.FollowUpRecord{LocationName: "Main St", UnprocessedFollowUps: 12, UnprocessedCalls: 3}

	for i, p := range permutations {
		html := page(fmt.Sprintf(
			"<table><thead><tr>%s</tr></thead><tbody><tr>%s</tr></tbody></table>",
			p.headers, p.row))
		table, err := Locate([]string{html})
		require.NoError(t, err, "permutation %d", i)
		records, _ := table.Rows()
		require.Equal(t, []domain.FollowUpRecord{want}, records, "permutation %d", i)
	}
}

func TestDigitStripping(t *testing.T) {
	html := page(`
<table>
  <thead><tr><th>Location</th><th>Follow-Ups</th><th>Unprocessed</th></tr></thead>
  <tbody>
    <tr><td>Main St</td><td>1,234</td><td>N/A</td></tr>
  </tbody>
</table>`)
	table, err := Locate([]string{html})
	require.NoError(t, err)

	records, stats := table.Rows()
	require.Len(t, records, 1)
	require.Equal(t, 1234, records[0].UnprocessedFollowUps) // commas stripped, not rejected
	require.Equal(t, 0, records[0].UnprocessedCalls)        // no digits at all falls back to 0
	require.Equal(t, 1, stats.ParseWarnings)                // only the N/A cell warns
}

func TestEmptyLocationSkipsRow(t *testing.T) {
	html := page(`
<table>
  <thead><tr><th>Location</th><th>Follow-Ups</th></tr></thead>
  <tbody>
    <tr><td>Main St</td><td>5</td></tr>
    <tr><td>   </td><td>7</td></tr>
    <tr><td>Oak Ave</td><td>2</td></tr>
  </tbody>
</table>`)
	table, err := Locate([]string{html})
	require.NoError(t, err)

	records, stats := table.Rows()
	require.Len(t, records, 2)
	require.Equal(t, "Main St", records[0].LocationName)
	require.Equal(t, "Oak Ave", records[1].LocationName)
	require.Equal(t, 1, stats.SkippedRows)
}

func TestHiddenRowsSkipped(t *testing.T) {
	html := page(`
<table>
  <thead><tr><th>Location</th><th>Follow-Ups</th></tr></thead>
  <tbody>
    <tr hidden><td>Hidden Attr</td><td>1</td></tr>
    <tr aria-hidden="true"><td>Aria Hidden</td><td>2</td></tr>
    <tr style="display: none"><td>Display None</td><td>3</td></tr>
    <tr class="row group-header"><td>Region North</td><td>4</td></tr>
    <tr><td>Main St</td><td>5</td></tr>
  </tbody>
</table>`)
	table, err := Locate([]string{html})
	require.NoError(t, err)

	records, stats := table.Rows()
	require.Len(t, records, 1)
	require.Equal(t, "Main St", records[0].LocationName)
	require.Equal(t, 4, stats.SkippedRows)
}

func TestDuplicateLocationsPreserved(t *testing.T) {
	html := page(`
<table>
  <thead><tr><th>Location</th><th>Follow-Ups</th></tr></thead>
  <tbody>
    <tr><td>Main St</td><td>5</td></tr>
    <tr><td>Main St</td><td>7</td></tr>
  </tbody>
</table>`)
	table, err := Locate([]string{html})
	require.NoError(t, err)

	records, _ := table.Rows()
	require.Len(t, records, 2)
	require.Equal(t, 5, records[0].UnprocessedFollowUps)
	require.Equal(t, 7, records[1].UnprocessedFollowUps)
}

func TestLocationNameElementPreferred(t *testing.T) {
	html := page(`
<table>
  <thead><tr><th>Location</th><th>Follow-Ups</th></tr></thead>
  <tbody>
    <tr><td><span class="icon">pin</span><p class="location-name"> Main St </p></td><td>5</td></tr>
  </tbody>
</table>`)
	table, err := Locate([]string{html})
	require.NoError(t, err)

	records, _ := table.Rows()
	require.Len(t, records, 1)
	require.Equal(t, "Main St", records[0].LocationName)
}

func TestMissingUnprocessedColumnDefaultsToZero(t *testing.T) {
	html := page(`
<table>
  <thead><tr><th>Location</th><th>Follow-Ups</th></tr></thead>
  <tbody><tr><td>Main St</td><td>5</td></tr></tbody>
</table>`)
	table, err := Locate([]string{html})
	require.NoError(t, err)
	require.Equal(t, -1, table.Cols.Unprocessed)

	records, _ := table.Rows()
	require.Equal(t, 0, records[0].UnprocessedCalls)
}

func TestHasRealData(t *testing.T) {
	zeroed := make([]domain.FollowUpRecord, 40)
	require.False(t, HasRealData(zeroed))

	populated := make([]domain.FollowUpRecord, 40)
	for i := 0; i < 12; i++ {
		populated[i].UnprocessedFollowUps = i + 1
	}
	require.True(t, HasRealData(populated))

	// Below the floor of 10 non-zero values the table still reads as a
	// loading skeleton.
	sparse := make([]domain.FollowUpRecord, 40)
	for i := 0; i < 5; i++ {
		sparse[i].UnprocessedFollowUps = 1
	}
	require.False(t, HasRealData(sparse))
}
