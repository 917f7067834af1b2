// Package report renders the human-readable console output of a sync run.
package report

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Harvey-AU/salesforce-account-updater/internal/cube"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

const (
	dateLayout = "2006-01-02"

	// Rule is the heavy separator printed between report sections.
	Rule = "=================================================="
	// SubRule separates blocks within a section.
	SubRule = "------------------------------------------------------------"
)

// Align controls how a column is padded.
type Align int

const (
	AlignLeft Align = iota
	AlignRight
)

// Column describes one table column.
type Column struct {
	Header string
	Align  Align
}

// gridStyle is a bordered grid with a double rule under the header.
func gridStyle() table.Style {
	style := table.StyleDefault
	style.Format.Header = text.FormatDefault
	style.Options.SeparateRows = true
	style.Box.Horizontal = &table.BoxStyleHorizontal{
		TitleTop:     "-",
		TitleBottom:  "-",
		HeaderTop:    "-",
		HeaderMiddle: "-",
		HeaderBottom: "=",
		RowTop:       "-",
		RowMiddle:    "-",
		RowBottom:    "-",
		FooterTop:    "-",
		FooterMiddle: "-",
		FooterBottom: "-",
	}
	return style
}

// Grid renders rows as a bordered grid table. Headers are always left aligned.
func Grid(columns []Column, rows [][]string) string {
	tw := table.NewWriter()
	tw.SetStyle(gridStyle())

	header := make(table.Row, len(columns))
	configs := make([]table.ColumnConfig, len(columns))
	for i, c := range columns {
		header[i] = c.Header
		configs[i] = table.ColumnConfig{
			Number:      i + 1,
			Align:       text.AlignLeft,
			AlignHeader: text.AlignLeft,
		}
		if c.Align == AlignRight {
			configs[i].Align = text.AlignRight
		}
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)

	for _, r := range rows {
		row := make(table.Row, len(columns))
		for i := range columns {
			if i < len(r) {
				row[i] = r[i]
			} else {
				row[i] = ""
			}
		}
		tw.AppendRow(row)
	}

	return tw.Render() + "\n"
}

// CompanyTable renders the fetched ranking as the company activity report.
func CompanyTable(companies []cube.Company) string {
	columns := []Column{
		{Header: "Company"},
		{Header: "Sessions", Align: AlignRight},
		{Header: "Visitors", Align: AlignRight},
		{Header: "First Tour"},
		{Header: "Last Tour"},
		{Header: "Total Minutes", Align: AlignRight},
	}

	rows := make([][]string, 0, len(companies))
	for _, c := range companies {
		rows = append(rows, []string{
			c.Name,
			strconv.Itoa(c.Sessions),
			strconv.Itoa(c.Visitors),
			formatDate(c.FirstTourDate),
			formatDate(c.LastTourDate),
			fmt.Sprintf("%.1f", c.TotalMinutes),
		})
	}
	return Grid(columns, rows)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

// CompanyReport is the full block logged after a successful fetch.
func CompanyReport(asOf string, companies []cube.Company) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Querying top companies for date: %s\n%s\n", asOf, Rule)
	if len(companies) == 0 {
		fmt.Fprintf(&b, "No companies found for yesterday\n%s\n", Rule)
		return b.String()
	}
	b.WriteString("Company Activity Report:\n")
	b.WriteString(CompanyTable(companies))
	fmt.Fprintf(&b, "\nTotal companies found: %d\n%s\n", len(companies), Rule)
	return b.String()
}

// SourceData describes the company picked for this run.
func SourceData(c cube.Company) string {
	var b strings.Builder
	b.WriteString("Source Data:\n")
	b.WriteString(SubRule + "\n")
	fmt.Fprintf(&b, "Company:              %s\n", c.Name)
	fmt.Fprintf(&b, "Total Sessions:       %d\n", c.Sessions)
	fmt.Fprintf(&b, "Total Visitors:       %d\n", c.Visitors)
	fmt.Fprintf(&b, "First Product Tour:   %s\n", formatDate(c.FirstTourDate))
	fmt.Fprintf(&b, "Last Product Tour:    %s\n", formatDate(c.LastTourDate))
	fmt.Fprintf(&b, "Total Minutes Spent:  %.1f\n", c.TotalMinutes)
	b.WriteString(SubRule + "\n")
	return b.String()
}

// UpdateDetails is the before/after block for the target account.
func UpdateDetails(account string, current, next int) string {
	var b strings.Builder
	b.WriteString("Update Details:\n")
	b.WriteString(SubRule + "\n")
	fmt.Fprintf(&b, "Target Account:     %s\n", account)
	fmt.Fprintf(&b, "Current Employees:  %d\n", current)
	fmt.Fprintf(&b, "New Employees:      %d\n", next)
	fmt.Fprintf(&b, "Change:             %s\n", Delta(current, next))
	b.WriteString(SubRule + "\n")
	return b.String()
}

// Delta formats next-current with an explicit sign; no change renders as "0".
func Delta(current, next int) string {
	d := next - current
	switch {
	case d > 0:
		return "+" + strconv.Itoa(d)
	case d < 0:
		return strconv.Itoa(d)
	default:
		return "0"
	}
}
