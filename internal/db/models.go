// Package db provides access to the dictation history database shared with
// the dictation pipeline.
package db

import "time"

// Recording is one dictation attempt written by the pipeline. Optional text
// columns read as "" when NULL; durations read as 0 when unknown.
type Recording struct {
	ID                int64
	Timestamp         string
	WhisperOutput     string
	LLMOutput         string
	UserCorrection    string
	AudioDurationMs   int64
	WhisperDurationMs int64
	LLMDurationMs     int64
	TotalDurationMs   int64
	Success           bool
	ErrorMessage      string
}

// Time parses the stored timestamp. Timestamps without an offset are
// interpreted in local time.
func (r Recording) Time() (time.Time, bool) {
	return ParseTimestamp(r.Timestamp)
}

// Correction is an append-only record of what the user meant when the
// pipeline heard WhisperPattern.
type Correction struct {
	ID             int64
	WhisperPattern string
	IntendedText   string
	CreatedAt      string
}

// Time parses CreatedAt.
func (c Correction) Time() (time.Time, bool) {
	return ParseTimestamp(c.CreatedAt)
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// ParseTimestamp accepts RFC 3339 and the offset-less ISO-8601 forms older
// producers wrote.
func ParseTimestamp(s string) (time.Time, bool) {
	for i, layout := range timestampLayouts {
		var (
			t   time.Time
			err error
		)
		if i == 0 {
			t, err = time.Parse(layout, s)
		} else {
			t, err = time.ParseInLocation(layout, s, time.Local)
		}
		if err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
