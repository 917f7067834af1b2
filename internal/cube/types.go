package cube

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Cube member names for the product tour company metrics view.
const (
	dataset = "product_tour_company_metrics"

	MemberCompanyName     = dataset + ".company_name"
	MemberTotalSessions   = dataset + ".total_sessions"
	MemberTotalVisitors   = dataset + ".total_visitors"
	MemberFirstTourDate   = dataset + ".first_product_tour_date"
	MemberLastTourDate    = dataset + ".last_product_tour_date"
	MemberSessionMinutes  = dataset + ".total_session_time_minutes"
	MemberHasEngagedUsers = dataset + ".has_engaged_users"
)

const dateLayout = "2006-01-02"

// Company is one ranked row of the product tour activity report.
type Company struct {
	Name          string    `json:"name"`
	Sessions      int       `json:"sessions"`
	Visitors      int       `json:"visitors"`
	FirstTourDate time.Time `json:"first_tour_date"`
	LastTourDate  time.Time `json:"last_tour_date"`
	TotalMinutes  float64   `json:"total_minutes"`
}

// Filter is a single Cube query filter.
type Filter struct {
	Member   string `json:"member"`
	Operator string `json:"operator"`
	Values   []any  `json:"values"`
}

// Query is the body of a Cube /load request.
type Query struct {
	Dimensions []string          `json:"dimensions"`
	Filters    []Filter          `json:"filters,omitempty"`
	Order      map[string]string `json:"order,omitempty"`
}

type loadRequest struct {
	Query Query `json:"query"`
}

type loadResponse struct {
	Data  []map[string]any `json:"data"`
	Error string           `json:"error,omitempty"`
}

// TopCompaniesQuery builds the ranking query for companies active on or after asOf.
func TopCompaniesQuery(asOf time.Time) Query {
	return Query{
		Dimensions: []string{
			MemberCompanyName,
			MemberTotalSessions,
			MemberTotalVisitors,
			MemberFirstTourDate,
			MemberLastTourDate,
			MemberSessionMinutes,
		},
		Filters: []Filter{
			{
				Member:   MemberLastTourDate,
				Operator: "afterOrOnDate",
				Values:   []any{asOf.Format(dateLayout)},
			},
			{
				Member:   MemberHasEngagedUsers,
				Operator: "equals",
				Values:   []any{true},
			},
		},
		Order: map[string]string{
			MemberTotalSessions: "desc",
		},
	}
}

// Yesterday returns the UTC calendar date one day before now, at midnight.
func Yesterday(now time.Time) time.Time {
	y, m, d := now.UTC().AddDate(0, 0, -1).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// parseCompanies converts response rows, skipping rows without a company name.
func parseCompanies(rows []map[string]any) ([]Company, error) {
	companies := make([]Company, 0, len(rows))
	for i, row := range rows {
		// Names are kept verbatim; only a missing or empty name drops the row
		name := asString(row[MemberCompanyName])
		if name == "" {
			continue
		}

		c := Company{Name: name}
		var err error
		if c.Sessions, err = asInt(row[MemberTotalSessions]); err != nil {
			return nil, fmt.Errorf("row %d sessions: %w", i, err)
		}
		if c.Visitors, err = asInt(row[MemberTotalVisitors]); err != nil {
			return nil, fmt.Errorf("row %d visitors: %w", i, err)
		}
		if c.TotalMinutes, err = asFloat(row[MemberSessionMinutes]); err != nil {
			return nil, fmt.Errorf("row %d total minutes: %w", i, err)
		}
		if c.FirstTourDate, err = asDate(row[MemberFirstTourDate]); err != nil {
			return nil, fmt.Errorf("row %d first tour date: %w", i, err)
		}
		if c.LastTourDate, err = asDate(row[MemberLastTourDate]); err != nil {
			return nil, fmt.Errorf("row %d last tour date: %w", i, err)
		}
		companies = append(companies, c)
	}
	return companies, nil
}

func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

// Cube serialises dimension values as strings, measures as numbers. Accept both.
func asFloat(v any) (float64, error) {
	switch t := v.(type) {
	case nil:
		return 0, nil
	case float64:
		return t, nil
	case json.Number:
		return t.Float64()
	case string:
		if strings.TrimSpace(t) == "" {
			return 0, nil
		}
		return strconv.ParseFloat(strings.TrimSpace(t), 64)
	default:
		return 0, fmt.Errorf("unexpected type %T", v)
	}
}

func asInt(v any) (int, error) {
	f, err := asFloat(v)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

func asDate(v any) (time.Time, error) {
	s := strings.TrimSpace(asString(v))
	if s == "" {
		return time.Time{}, nil
	}
	// Time dimensions come back as 2024-05-01T00:00:00.000
	if len(s) > len(dateLayout) {
		s = s[:len(dateLayout)]
	}
	return time.Parse(dateLayout, s)
}
