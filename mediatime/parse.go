package mediatime

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Parse reads a time in one of the forms "5/30", "5/30s", "2", "2s" or
// "0.5" (decimal seconds, converted exactly to a power-of-ten timescale).
func Parse(s string) (Time, error) {
	str := strings.TrimSpace(s)
	str = strings.TrimSuffix(str, "s")
	if str == "" {
		return Time{}, fmt.Errorf("empty time value")
	}

	if num, den, ok := strings.Cut(str, "/"); ok {
		value, err := strconv.ParseInt(strings.TrimSpace(num), 10, 64)
		if err != nil {
			return Time{}, fmt.Errorf("invalid time value %q: %w", s, err)
		}
		timescale, err := strconv.ParseInt(strings.TrimSpace(den), 10, 32)
		if err != nil {
			return Time{}, fmt.Errorf("invalid timescale in %q: %w", s, err)
		}
		if timescale <= 0 {
			return Time{}, fmt.Errorf("timescale must be positive in %q", s)
		}
		return New(value, int32(timescale)), nil
	}

	if whole, frac, ok := strings.Cut(str, "."); ok {
		if len(frac) == 0 || len(frac) > 9 {
			return Time{}, fmt.Errorf("invalid decimal time %q", s)
		}
		digits := whole + frac
		value, err := strconv.ParseInt(digits, 10, 64)
		if err != nil {
			return Time{}, fmt.Errorf("invalid decimal time %q: %w", s, err)
		}
		timescale := int32(math.Pow10(len(frac)))
		return New(value, timescale).Reduce(), nil
	}

	value, err := strconv.ParseInt(str, 10, 64)
	if err != nil {
		return Time{}, fmt.Errorf("invalid time value %q: %w", s, err)
	}
	return New(value, 1), nil
}

// MustParse is Parse for constants; it panics on error.
func MustParse(s string) Time {
	t, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return t
}

// ParseFFprobe reads ffprobe's "duration_ts" and "time_base" pair, e.g.
// ("1800", "1/600"), into an exact Time.
func ParseFFprobe(durationTS, timeBase string) (Time, error) {
	value, err := strconv.ParseInt(strings.TrimSpace(durationTS), 10, 64)
	if err != nil {
		return Time{}, fmt.Errorf("invalid duration_ts %q: %w", durationTS, err)
	}
	num, den, ok := strings.Cut(timeBase, "/")
	if !ok {
		return Time{}, fmt.Errorf("invalid time_base %q", timeBase)
	}
	n, err := strconv.ParseInt(num, 10, 64)
	if err != nil || n <= 0 {
		return Time{}, fmt.Errorf("invalid time_base numerator %q", timeBase)
	}
	d, err := strconv.ParseInt(den, 10, 32)
	if err != nil || d <= 0 {
		return Time{}, fmt.Errorf("invalid time_base denominator %q", timeBase)
	}
	return New(value*n, int32(d)), nil
}
