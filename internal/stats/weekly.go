package stats

import (
	"encoding/json"
	"sort"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// DayCount is one calendar-day message bucket.
type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// ParseWeekly decodes stored buckets. Malformed text and entries without a
// date (the legacy day-of-week shape) are dropped.
func ParseWeekly(raw string) []DayCount {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var entries []DayCount
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil
	}
	out := entries[:0]
	for _, e := range entries {
		if e.Date != "" {
			out = append(out, e)
		}
	}
	return out
}

// DateKey returns the UTC calendar date of t.
func DateKey(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

// AddMessage increments the bucket for date, creating it when missing.
func AddMessage(entries []DayCount, date string) []DayCount {
	for i := range entries {
		if entries[i].Date == date {
			entries[i].Count++
			return entries
		}
	}
	return append(entries, DayCount{Date: date, Count: 1})
}

// Prune sorts buckets newest first and keeps at most keep of them.
func Prune(entries []DayCount, keep int) []DayCount {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Date > entries[j].Date
	})
	if keep >= 0 && len(entries) > keep {
		entries = entries[:keep]
	}
	return entries
}

func EncodeWeekly(entries []DayCount) string {
	if len(entries) == 0 {
		return "[]"
	}
	b, err := json.Marshal(entries)
	if err != nil {
		return "[]"
	}
	return string(b)
}
