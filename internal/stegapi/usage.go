package stegapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Usage date layouts accepted by the /usage endpoint.
const (
	LayoutDay   = "2006-01-02"
	LayoutMonth = "2006-01"
	LayoutYear  = "2006"
)

// UsageDate is a validated usage filter. Raw keeps the caller's text so the
// service sees the same granularity the user asked for.
type UsageDate struct {
	Raw    string
	Layout string
	Time   time.Time
}

// ParseUsageDate validates s as YYYY-MM-DD, YYYY-MM or YYYY.
func ParseUsageDate(s string) (UsageDate, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{LayoutDay, LayoutMonth, LayoutYear} {
		if len(s) != len(layout) {
			continue
		}
		t, err := time.Parse(layout, s)
		if err == nil {
			return UsageDate{Raw: s, Layout: layout, Time: t}, nil
		}
	}
	return UsageDate{}, &ValidationError{
		Op:     "usage",
		Field:  "date",
		Reason: fmt.Sprintf("%q is not in YYYY-MM-DD, YYYY-MM or YYYY format", s),
	}
}

// End returns the first instant after the period the date denotes.
func (d UsageDate) End() time.Time {
	switch d.Layout {
	case LayoutYear:
		return d.Time.AddDate(1, 0, 0)
	case LayoutMonth:
		return d.Time.AddDate(0, 1, 0)
	default:
		return d.Time.AddDate(0, 0, 1)
	}
}

// UsageQuery filters the usage report. Empty fields are omitted.
type UsageQuery struct {
	Start string
	End   string
}

// Validate checks the date formats and that the range is not inverted or
// starting in the future.
func (q UsageQuery) Validate(now time.Time) error {
	var start, end UsageDate
	var err error
	if q.Start != "" {
		if start, err = ParseUsageDate(q.Start); err != nil {
			return err
		}
		if start.Time.After(now) {
			return &ValidationError{Op: "usage", Field: "start", Reason: fmt.Sprintf("%s is in the future", q.Start)}
		}
	}
	if q.End != "" {
		if end, err = ParseUsageDate(q.End); err != nil {
			return err
		}
	}
	if q.Start != "" && q.End != "" && !end.End().After(start.Time) {
		return &ValidationError{Op: "usage", Field: "end", Reason: fmt.Sprintf("%s is before start %s", q.End, q.Start)}
	}
	return nil
}

// Usage fetches the usage report for the account behind the API key.
func (c *Client) Usage(ctx context.Context, q UsageQuery) (*UsageReport, error) {
	const op = "usage"

	if err := q.Validate(time.Now()); err != nil {
		return nil, err
	}

	params := url.Values{}
	if q.Start != "" {
		params.Set("start", strings.TrimSpace(q.Start))
	}
	if q.End != "" {
		params.Set("end", strings.TrimSpace(q.End))
	}

	env, err := c.doJSON(ctx, op, http.MethodGet, "/usage", params, nil)
	if err != nil {
		return nil, err
	}

	var data struct {
		Items []json.RawMessage `json:"items"`
	}
	if err := decodeData(op, env, &data); err != nil {
		return nil, err
	}
	if data.Items == nil {
		data.Items = []json.RawMessage{}
	}

	total, err := parseTotal(env.Message)
	if err != nil {
		// Older responses carry a human-readable message; fall back to
		// the number of items returned.
		c.debug("usage: message %s is not a count, using item count", string(env.Message))
		total = len(data.Items)
	}

	return &UsageReport{Total: total, Items: data.Items}, nil
}

// parseTotal reads the envelope message as a count, accepting both JSON
// numbers and numeric strings.
func parseTotal(raw json.RawMessage) (int, error) {
	if len(raw) == 0 {
		return 0, fmt.Errorf("message missing")
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(s))
}
