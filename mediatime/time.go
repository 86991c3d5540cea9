// Package mediatime provides exact rational time values and ranges for
// media timelines.
//
// A Time is value/timescale seconds. Arithmetic never goes through floating
// point: operands with different timescales are rescaled to the least common
// multiple of the two timescales first.
package mediatime

import (
	"errors"
	"fmt"
	"math"
	"math/big"
)

var (
	// ErrOverflow is returned when an exact result does not fit in an int64
	// value over an int32 timescale.
	ErrOverflow = errors.New("mediatime: result does not fit value/timescale")

	// ErrInvalid is returned when an operand has a non-positive timescale.
	ErrInvalid = errors.New("mediatime: invalid timescale")
)

// Time is a point or duration on a media timeline, value/timescale seconds.
type Time struct {
	Value     int64 `json:"value" yaml:"value"`
	Timescale int32 `json:"timescale" yaml:"timescale"`
}

// Zero is the zero time with timescale 1.
var Zero = Time{Value: 0, Timescale: 1}

// Invalid is the result of arithmetic that cannot be represented exactly.
var Invalid = Time{}

// New returns value/timescale.
func New(value int64, timescale int32) Time {
	return Time{Value: value, Timescale: timescale}
}

// IsValid reports whether the timescale is positive.
func (t Time) IsValid() bool {
	return t.Timescale > 0
}

// IsZero reports whether t is zero seconds.
func (t Time) IsZero() bool {
	return t.Value == 0
}

// Sign returns -1, 0 or +1.
func (t Time) Sign() int {
	switch {
	case t.Value < 0:
		return -1
	case t.Value > 0:
		return 1
	}
	return 0
}

// ConvertScale returns t expressed with the given timescale.
// The second return value is false when the conversion is not exact or does
// not fit.
func (t Time) ConvertScale(timescale int32) (Time, bool) {
	if timescale == t.Timescale {
		return t, true
	}
	if !t.IsValid() || timescale <= 0 {
		return Invalid, false
	}
	num, ok := mulInt64(t.Value, int64(timescale))
	if !ok {
		return Invalid, false
	}
	out := Time{Value: num / int64(t.Timescale), Timescale: timescale}
	return out, num%int64(t.Timescale) == 0
}

// Add returns t + u, or Invalid when the exact sum cannot be represented.
func (t Time) Add(u Time) Time {
	out, _ := t.AddChecked(u)
	return out
}

// AddChecked returns t + u. It returns ErrOverflow when the sum does not fit
// in an int64 value over an int32 timescale, even after reduction.
func (t Time) AddChecked(u Time) (Time, error) {
	if !t.IsValid() || !u.IsValid() {
		return Invalid, ErrInvalid
	}
	if a, b, ts, ok := common(t, u); ok {
		if v, ok := addInt64(a, b); ok {
			return Time{Value: v, Timescale: ts}, nil
		}
	}
	return fromRat(new(big.Rat).Add(t.Rat(), u.Rat()))
}

// Sub returns t - u, or Invalid when the exact difference cannot be
// represented.
func (t Time) Sub(u Time) Time {
	out, _ := t.SubChecked(u)
	return out
}

// SubChecked returns t - u, or ErrOverflow.
func (t Time) SubChecked(u Time) (Time, error) {
	if !t.IsValid() || !u.IsValid() {
		return Invalid, ErrInvalid
	}
	if a, b, ts, ok := common(t, u); ok && b != math.MinInt64 {
		if v, ok := addInt64(a, -b); ok {
			return Time{Value: v, Timescale: ts}, nil
		}
	}
	return fromRat(new(big.Rat).Sub(t.Rat(), u.Rat()))
}

// Mul returns t * n, or Invalid when the product cannot be represented.
func (t Time) Mul(n int64) Time {
	out, _ := t.MulChecked(n)
	return out
}

// MulChecked returns t * n, or ErrOverflow.
func (t Time) MulChecked(n int64) (Time, error) {
	if !t.IsValid() {
		return Invalid, ErrInvalid
	}
	if v, ok := mulInt64(t.Value, n); ok {
		return Time{Value: v, Timescale: t.Timescale}, nil
	}
	return fromRat(new(big.Rat).Mul(t.Rat(), new(big.Rat).SetInt64(n)))
}

// Compare returns -1, 0 or +1 depending on whether t is before, equal to
// or after u. Invalid times compare by value alone.
func (t Time) Compare(u Time) int {
	if !t.IsValid() || !u.IsValid() {
		return cmpInt64(t.Value, u.Value)
	}
	if a, b, _, ok := common(t, u); ok {
		return cmpInt64(a, b)
	}
	return t.Rat().Cmp(u.Rat())
}

// Before reports whether t is before u.
func (t Time) Before(u Time) bool { return t.Compare(u) < 0 }

// After reports whether t is after u.
func (t Time) After(u Time) bool { return t.Compare(u) > 0 }

// Equal reports whether t and u are the same instant.
func (t Time) Equal(u Time) bool { return t.Compare(u) == 0 }

// Reduce returns t with value and timescale divided by their gcd.
func (t Time) Reduce() Time {
	g := gcd(abs(t.Value), int64(t.Timescale))
	if g <= 1 {
		return t
	}
	return Time{Value: t.Value / g, Timescale: int32(int64(t.Timescale) / g)}
}

// Seconds returns an approximate float value, for display only.
func (t Time) Seconds() float64 {
	if !t.IsValid() {
		return 0
	}
	return float64(t.Value) / float64(t.Timescale)
}

// Rat returns t as an exact big.Rat.
func (t Time) Rat() *big.Rat {
	return big.NewRat(t.Value, int64(t.Timescale))
}

// Microseconds returns t rounded half away from zero to whole microseconds,
// the resolution ffmpeg uses for timestamps.
func (t Time) Microseconds() int64 {
	if !t.IsValid() {
		return 0
	}
	num, ok := mulInt64(t.Value, 1_000_000)
	if !ok {
		us := new(big.Rat).Mul(t.Rat(), big.NewRat(1_000_000, 1))
		f, _ := us.Float64()
		return int64(math.Round(f))
	}
	den := int64(t.Timescale)
	q, r := num/den, num%den
	if 2*abs(r) >= den {
		if num < 0 {
			q--
		} else {
			q++
		}
	}
	return q
}

// String returns the zero-padded debug form, e.g. "005/30".
func (t Time) String() string {
	return fmt.Sprintf("%03d/%d", t.Value, t.Timescale)
}

// FCPString returns the FCPXML rational form, e.g. "5/30s" or "0s".
func (t Time) FCPString() string {
	if t.Value == 0 {
		return "0s"
	}
	if t.Timescale == 1 {
		return fmt.Sprintf("%ds", t.Value)
	}
	return fmt.Sprintf("%d/%ds", t.Value, t.Timescale)
}

// Max returns the later of t and u.
func Max(t, u Time) Time {
	if t.Before(u) {
		return u
	}
	return t
}

// common rescales both values to the least common multiple of the two
// timescales. ok is false when the lcm or a rescaled value does not fit.
func common(t, u Time) (a, b int64, ts int32, ok bool) {
	if t.Timescale == u.Timescale {
		return t.Value, u.Value, t.Timescale, true
	}
	l := lcm(int64(t.Timescale), int64(u.Timescale))
	if l > math.MaxInt32 {
		return 0, 0, 0, false
	}
	a, okA := mulInt64(t.Value, l/int64(t.Timescale))
	b, okB := mulInt64(u.Value, l/int64(u.Timescale))
	return a, b, int32(l), okA && okB
}

func fromRat(r *big.Rat) (Time, error) {
	num, den := r.Num(), r.Denom()
	if !num.IsInt64() || !den.IsInt64() || den.Int64() > math.MaxInt32 {
		return Invalid, ErrOverflow
	}
	return Time{Value: num.Int64(), Timescale: int32(den.Int64())}, nil
}

func addInt64(a, b int64) (int64, bool) {
	c := a + b
	if (c > a) != (b > 0) {
		return 0, false
	}
	return c, true
}

func mulInt64(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	c := a * b
	if c/b != a || (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
		return 0, false
	}
	return c, true
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func lcm(a, b int64) int64 {
	return a / gcd(a, b) * b
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
