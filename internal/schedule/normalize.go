// Package schedule holds the pure transforms between backend records and
// calendar events: timestamp normalization, record mapping and merging.
package schedule

import "strings"

const (
	dateLen = len("2006-01-02")
	timeLen = len("15:04")
)

// Combine joins a calendar date and a time of day into the canonical
// timestamp "<yyyy-mm-dd>T<HH:mm>:00.000+00:00".
//
// Only the first 10 bytes of date are used, so full timestamps are accepted.
// timeOfDay is left-padded with zeros to 5 bytes. Nothing is validated:
// malformed input yields malformed output, never an error.
func Combine(date, timeOfDay string) string {
	if len(date) > dateLen {
		date = date[:dateLen]
	}
	if n := timeLen - len(timeOfDay); n > 0 {
		timeOfDay = strings.Repeat("0", n) + timeOfDay
	}
	return date + "T" + timeOfDay + ":00.000+00:00"
}
