package events

import (
	"math"
	"strconv"
	"strings"
)

// PageSize is the number of events per dashboard page.
const PageSize = 10

// View modes of the dashboard.
const (
	ViewCard  = "card"
	ViewTable = "table"
)

// Page is one slice of a listing.
type Page struct {
	Items      []Event `json:"items"`
	Page       int     `json:"page"`
	TotalPages int     `json:"totalPages"`
	Total      int     `json:"total"`
	PageSize   int     `json:"pageSize"`
}

// ParsePage reads a requested page number. Empty, non-numeric, and
// non-finite values yield 1; fractions are floored. The result may still be
// out of range and is clamped by Paginate.
func ParsePage(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 1
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 1
	}
	f = math.Floor(f)
	if f > math.MaxInt32 {
		return math.MaxInt32
	}
	if f < math.MinInt32 {
		return math.MinInt32
	}
	return int(f)
}

// ParseView returns ViewTable for "table" and ViewCard otherwise.
func ParseView(raw string) string {
	if strings.TrimSpace(raw) == ViewTable {
		return ViewTable
	}
	return ViewCard
}

// Paginate returns page of items with the page clamped into
// [1, max(1, ceil(len(items)/PageSize))].
func Paginate(items []Event, page int) Page {
	total := len(items)
	totalPages := (total + PageSize - 1) / PageSize
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	start := (page - 1) * PageSize
	end := start + PageSize
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}
	return Page{
		Items:      append([]Event{}, items[start:end]...),
		Page:       page,
		TotalPages: totalPages,
		Total:      total,
		PageSize:   PageSize,
	}
}
