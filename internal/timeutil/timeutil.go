// Package timeutil provides time formatting utilities for FFmpeg commands.
package timeutil

import (
	"fmt"

	"compositor/mediatime"
)

// FormatTimestamp converts an exact media time to HH:MM:SS.ffffff for FFmpeg.
//
// FFmpeg keeps timestamps in microseconds internally, so the value is
// rounded to the nearest microsecond with integer arithmetic only. Negative
// times are clamped to zero.
//
// Example:
//
//	FormatTimestamp(mediatime.New(0, 30))    // "00:00:00.000000"
//	FormatTimestamp(mediatime.New(6, 30))    // "00:00:00.200000"
//	FormatTimestamp(mediatime.New(5, 30))    // "00:00:00.166667"
//	FormatTimestamp(mediatime.New(3661, 1))  // "01:01:01.000000"
func FormatTimestamp(t mediatime.Time) string {
	us := t.Microseconds()
	if us < 0 {
		us = 0
	}
	secs := us / 1_000_000
	frac := us % 1_000_000
	return fmt.Sprintf("%02d:%02d:%02d.%06d", secs/3600, (secs%3600)/60, secs%60, frac)
}

// FormatSeconds renders an exact media time as decimal seconds with
// microsecond precision, e.g. "0.166667". Used for filter options.
func FormatSeconds(t mediatime.Time) string {
	us := t.Microseconds()
	sign := ""
	if us < 0 {
		sign = "-"
		us = -us
	}
	return fmt.Sprintf("%s%d.%06d", sign, us/1_000_000, us%1_000_000)
}
