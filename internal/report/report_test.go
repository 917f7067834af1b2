package report

import (
	"strings"
	"testing"
	"time"

	"github.com/Harvey-AU/salesforce-account-updater/internal/cube"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrid(t *testing.T) {
	got := Grid(
		[]Column{{Header: "Name"}, {Header: "N", Align: AlignRight}},
		[][]string{{"Acme", "7"}, {"Globex Corp", "123"}},
	)

	want := strings.Join([]string{
		"+-------------+-----+",
		"| Name        | N   |",
		"+=============+=====+",
		"| Acme        |   7 |",
		"+-------------+-----+",
		"| Globex Corp | 123 |",
		"+-------------+-----+",
		"",
	}, "\n")
	assert.Equal(t, want, got)
}

func TestGrid_NoRows(t *testing.T) {
	got := Grid([]Column{{Header: "A"}}, nil)
	assert.Equal(t, "+---+\n| A |\n+===+\n+---+\n", got)
}

func TestGrid_WideCharacters(t *testing.T) {
	got := Grid([]Column{{Header: "Company"}, {Header: "N", Align: AlignRight}},
		[][]string{{"Zürich AG", "1"}, {"東京株式会社", "22"}})
	lines := strings.Split(strings.TrimSuffix(got, "\n"), "\n")
	require.Len(t, lines, 7)
	// Every line occupies the same number of terminal cells
	for _, l := range lines {
		assert.Equal(t, text.StringWidth(lines[0]), text.StringWidth(l), l)
	}
	assert.Equal(t, "| 東京株式会社 | 22 |", lines[5])
}

func TestCompanyTable(t *testing.T) {
	companies := []cube.Company{
		{
			Name:          "Acme",
			Sessions:      42,
			Visitors:      7,
			FirstTourDate: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC),
			LastTourDate:  time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC),
			TotalMinutes:  93.25,
		},
	}

	got := CompanyTable(companies)
	assert.Contains(t, got, "| Company | Sessions | Visitors | First Tour | Last Tour  | Total Minutes |")
	assert.Contains(t, got, "| Acme    |       42 |        7 | 2025-01-02 | 2025-03-09 |          93.2 |")
}

func TestCompanyReport_Empty(t *testing.T) {
	got := CompanyReport("2025-03-09", nil)
	assert.Contains(t, got, "Querying top companies for date: 2025-03-09")
	assert.Contains(t, got, "No companies found for yesterday")
	assert.NotContains(t, got, "Company Activity Report")
}

func TestCompanyReport_WithRows(t *testing.T) {
	got := CompanyReport("2025-03-09", []cube.Company{{Name: "Acme"}, {Name: "Globex"}})
	assert.Contains(t, got, "Company Activity Report:")
	assert.Contains(t, got, "Total companies found: 2")
}

func TestSourceData(t *testing.T) {
	got := SourceData(cube.Company{Name: "Acme", Sessions: 42, Visitors: 7, TotalMinutes: 1.25})
	assert.Contains(t, got, "Company:              Acme")
	assert.Contains(t, got, "Total Sessions:       42")
	assert.Contains(t, got, "Total Minutes Spent:  1.2")
}

func TestUpdateDetails(t *testing.T) {
	got := UpdateDetails("Test", 10, 42)
	assert.Contains(t, got, "Target Account:     Test")
	assert.Contains(t, got, "Current Employees:  10")
	assert.Contains(t, got, "New Employees:      42")
	assert.Contains(t, got, "Change:             +32")
}

func TestDelta(t *testing.T) {
	tests := []struct {
		name          string
		current, next int
		want          string
	}{
		{"increase", 0, 42, "+42"},
		{"decrease", 50, 8, "-42"},
		{"unchanged", 5, 5, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Delta(tt.current, tt.next))
		})
	}
}
