package ledger

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidDuration is returned when a stored duration cannot be parsed.
var ErrInvalidDuration = errors.New("invalid duration")

const day = 24 * time.Hour

// FormatDuration renders d as [-][d.]hh:mm:ss[.fffffffff].
// The day prefix appears only for 24h or more; the fraction is omitted when
// zero and carries no trailing zeros otherwise.
func FormatDuration(d time.Duration) string {
	var b strings.Builder
	if d < 0 {
		b.WriteByte('-')
		// math.MinInt64 has no positive counterpart; clamp by one nanosecond.
		if d == -d {
			d++
		}
		d = -d
	}

	days := d / day
	d -= days * day
	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute
	d -= minutes * time.Minute
	seconds := d / time.Second
	frac := d - seconds*time.Second

	if days > 0 {
		fmt.Fprintf(&b, "%d.", days)
	}
	fmt.Fprintf(&b, "%02d:%02d:%02d", hours, minutes, seconds)
	if frac > 0 {
		digits := strings.TrimRight(fmt.Sprintf("%09d", int64(frac)), "0")
		b.WriteByte('.')
		b.WriteString(digits)
	}
	return b.String()
}

// ParseDuration is the inverse of FormatDuration. It also accepts values
// with up to nine fractional digits, such as the seven-digit fractions
// written by older ledgers.
func ParseDuration(s string) (time.Duration, error) {
	raw := s
	s = strings.TrimSpace(s)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, raw)
	}

	var days int64
	hourPart := parts[0]
	if i := strings.IndexByte(hourPart, '.'); i >= 0 {
		n, err := parseField(hourPart[:i], -1)
		if err != nil {
			return 0, fmt.Errorf("%w: %q: days: %v", ErrInvalidDuration, raw, err)
		}
		days = n
		hourPart = hourPart[i+1:]
	}

	hourLimit := int64(-1)
	if days > 0 || strings.Contains(parts[0], ".") {
		hourLimit = 23
	}
	hours, err := parseField(hourPart, hourLimit)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: hours: %v", ErrInvalidDuration, raw, err)
	}
	minutes, err := parseField(parts[1], 59)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: minutes: %v", ErrInvalidDuration, raw, err)
	}

	secPart, fracPart, hasFrac := strings.Cut(parts[2], ".")
	seconds, err := parseField(secPart, 59)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: seconds: %v", ErrInvalidDuration, raw, err)
	}

	var nanos int64
	if hasFrac {
		if fracPart == "" || len(fracPart) > 9 {
			return 0, fmt.Errorf("%w: %q: fraction must have 1-9 digits", ErrInvalidDuration, raw)
		}
		n, err := parseField(fracPart+strings.Repeat("0", 9-len(fracPart)), -1)
		if err != nil {
			return 0, fmt.Errorf("%w: %q: fraction: %v", ErrInvalidDuration, raw, err)
		}
		nanos = n
	}

	if days > int64(1<<63-1)/int64(day) || hours > int64(1<<63-1)/int64(time.Hour) {
		return 0, fmt.Errorf("%w: %q: out of range", ErrInvalidDuration, raw)
	}
	total := time.Duration(days) * day
	for _, add := range []time.Duration{
		time.Duration(hours) * time.Hour,
		time.Duration(minutes) * time.Minute,
		time.Duration(seconds) * time.Second,
		time.Duration(nanos),
	} {
		if total > (1<<63-1)-add {
			return 0, fmt.Errorf("%w: %q: out of range", ErrInvalidDuration, raw)
		}
		total += add
	}

	if neg {
		total = -total
	}
	return total, nil
}

// parseField parses a non-negative decimal field; limit < 0 means unbounded.
func parseField(s string, limit int64) (int64, error) {
	if s == "" {
		return 0, errors.New("empty field")
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("unexpected character %q", r)
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	if limit >= 0 && n > limit {
		return 0, fmt.Errorf("%d exceeds %d", n, limit)
	}
	return n, nil
}
