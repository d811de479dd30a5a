package handlers

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	errFromInvalid  = "invalid 'from' time; use RFC3339 or YYYY-MM-DD"
	errToInvalid    = "invalid 'to' time; use RFC3339 or YYYY-MM-DD"
	errLimitInvalid = "invalid 'limit'; use a positive integer"
	errRangeInvalid = "'from' must be <= 'to'"

	layoutDateTime = "2006-01-02 15:04:05"
	layoutDate     = "2006-01-02"
)

// timeRange is the parsed from/to/limit triple shared by history listings.
type timeRange struct {
	From  time.Time
	To    time.Time
	Limit int
}

// isDateOnly reports whether the query string represents a date without time component.
func isDateOnly(s string) bool {
	return !strings.ContainsAny(s, "T ")
}

func parseQueryTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, layoutDateTime, layoutDate} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf(
		"invalid time format %q, expected one of: "+
			"RFC3339 (e.g. 2025-08-27T15:04:05Z), "+
			"'YYYY-MM-DD HH:MM:SS', "+
			"'YYYY-MM-DD'",
		s,
	)
}

// parseTimeRange reads ?from, ?to and ?limit. A date-only 'to' covers the
// whole day. The returned string is a client-facing error message.
func parseTimeRange(from, to, limit string) (timeRange, string) {
	var (
		r   timeRange
		err error
	)
	if from != "" {
		if r.From, err = parseQueryTime(from); err != nil {
			return timeRange{}, errFromInvalid
		}
	}
	if to != "" {
		if r.To, err = parseQueryTime(to); err != nil {
			return timeRange{}, errToInvalid
		}
		if isDateOnly(to) {
			r.To = r.To.Add(24*time.Hour - time.Nanosecond).UTC()
		}
	}
	if !r.From.IsZero() && !r.To.IsZero() && r.From.After(r.To) {
		return timeRange{}, errRangeInvalid
	}
	if limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n <= 0 {
			return timeRange{}, errLimitInvalid
		}
		r.Limit = n
	}
	return r, ""
}
