package ledger

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "00:00:00"},
		{time.Second, "00:00:01"},
		{1100 * time.Millisecond, "00:00:01.1"},
		{3300 * time.Millisecond, "00:00:03.3"},
		{time.Nanosecond, "00:00:00.000000001"},
		{90 * time.Minute, "01:30:00"},
		{23*time.Hour + 59*time.Minute + 59*time.Second, "23:59:59"},
		{24 * time.Hour, "1.00:00:00"},
		{26*time.Hour + 3*time.Minute + 4*time.Second + 500*time.Millisecond, "1.02:03:04.5"},
		{-1500 * time.Millisecond, "-00:00:01.5"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDuration(tt.d), "%s", tt.d)
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"00:00:00", 0},
		{"00:00:03.3", 3300 * time.Millisecond},
		{"00:00:03.3000000", 3300 * time.Millisecond},
		{"00:12:34.5678901", 12*time.Minute + 34*time.Second + 567890100*time.Nanosecond},
		{"1.02:03:04", 26*time.Hour + 3*time.Minute + 4*time.Second},
		{"12.00:00:00", 12 * 24 * time.Hour},
		{"30:00:00", 30 * time.Hour},
		{" 00:01:00 ", time.Minute},
		{"-00:00:01.5", -1500 * time.Millisecond},
	}
	for _, tt := range tests {
		got, err := ParseDuration(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestParseDuration_Invalid(t *testing.T) {
	for _, in := range []string{
		"",
		"-",
		"1:2",
		"00:00:00:00",
		"ab:00:00",
		"00:60:00",
		"00:00:60",
		"1.24:00:00",
		"00:00:00.",
		"00:00:00.1234567890",
		"00:00:00.12a",
		"+00:00:01",
		"00:-1:00",
		"106752.00:00:00",
		"2562048:00:00",
	} {
		_, err := ParseDuration(in)
		assert.ErrorIs(t, err, ErrInvalidDuration, "%q", in)
	}
}

func TestDuration_RoundTrip(t *testing.T) {
	values := []time.Duration{
		0,
		time.Nanosecond,
		100 * time.Millisecond,
		999999999,
		59 * time.Second,
		time.Hour - 1,
		24*time.Hour - 1,
		24 * time.Hour,
		400 * 24 * time.Hour,
		math.MaxInt64,
	}
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		values = append(values, time.Duration(r.Int63()))
	}

	for _, d := range values {
		s := FormatDuration(d)
		got, err := ParseDuration(s)
		require.NoError(t, err, s)
		assert.Equal(t, d, got, s)
	}
}
