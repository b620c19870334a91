package audit

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"recyclectl/internal/model"
)

// Query filters for the report surface.
type Query struct {
	Action  string
	Status  string
	BatchID string
	Path    string
	From    string
	To      string
	Page    int
	Limit   int
}

// Meta describes one page of query results.
type Meta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// RunQuery scans the whole log and returns matching records newest-first.
func (l *Log) RunQuery(query Query) ([]model.AuditRecord, Meta, error) {
	if query.Page < 1 {
		query.Page = 1
	}
	if query.Limit <= 0 {
		query.Limit = 50
	}
	if query.Limit > 200 {
		query.Limit = 200
	}

	from, err := parseOptionalTime(query.From)
	if err != nil {
		return nil, Meta{}, fmt.Errorf("%w: invalid 'from' datetime %q", model.ErrInvalidInput, query.From)
	}

	to, err := parseOptionalTime(query.To)
	if err != nil {
		return nil, Meta{}, fmt.Errorf("%w: invalid 'to' datetime %q", model.ErrInvalidInput, query.To)
	}

	action := strings.ToLower(strings.TrimSpace(query.Action))
	status := strings.ToLower(strings.TrimSpace(query.Status))
	batchID := strings.TrimSpace(query.BatchID)
	pathFilter := strings.ToLower(strings.TrimSpace(query.Path))

	records, err := l.ReadAll()
	if err != nil {
		return nil, Meta{}, err
	}

	items := make([]model.AuditRecord, 0, len(records))
	for _, record := range records {
		if action != "" && strings.ToLower(record.Action) != action {
			continue
		}
		if status != "" && strings.ToLower(record.Status) != status {
			continue
		}
		if batchID != "" && record.BatchID != batchID {
			continue
		}
		if pathFilter != "" && !strings.Contains(strings.ToLower(record.SourcePath), pathFilter) {
			continue
		}

		at := record.Time()
		if !from.IsZero() && at.Before(from) {
			continue
		}
		if !to.IsZero() && at.After(to) {
			continue
		}

		items = append(items, record)
	}

	sort.SliceStable(items, func(i int, j int) bool {
		return items[i].Time().After(items[j].Time())
	})

	total := len(items)
	start := (query.Page - 1) * query.Limit
	if start > total {
		start = total
	}
	end := start + query.Limit
	if end > total {
		end = total
	}

	totalPages := 0
	if total > 0 {
		totalPages = (total + query.Limit - 1) / query.Limit
	}

	meta := Meta{Page: query.Page, Limit: query.Limit, Total: total, TotalPages: totalPages}
	return items[start:end], meta, nil
}

func parseOptionalTime(raw string) (time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return time.Time{}, nil
	}

	if value, err := time.Parse(time.RFC3339Nano, trimmed); err == nil {
		return value.UTC(), nil
	}

	value, err := time.Parse(time.RFC3339, trimmed)
	if err != nil {
		return time.Time{}, err
	}

	return value.UTC(), nil
}
