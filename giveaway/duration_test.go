package giveaway

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDuration(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
	}{
		{"7d", 7 * 24 * time.Hour},
		{"30m", 30 * time.Minute},
		{"1h", time.Hour},
		{"45s", 45 * time.Second},
		{"2w", 14 * 24 * time.Hour},
		{"12H", 12 * time.Hour},
		{" 5m ", 5 * time.Minute},
		{"0s", 0},
		{"53w", 53 * 7 * 24 * time.Hour},
		{"400d", 400 * 24 * time.Hour},
		{"15250w", 15250 * 7 * 24 * time.Hour},
	}

	for _, c := range cases {
		t.Run(c.in, func(t *testing.T) {
			got, err := ParseDuration(c.in)
			require.NoError(t, err)
			assert.Equal(t, c.want, got)
		})
	}
}

func TestParseDurationInvalid(t *testing.T) {
	for _, in := range []string{"", "d", "7", "7x", "abc", "1.5h", "-1h", "+1h", "1 h", "99999999999999999999d", "15260w", "9223372037s"} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseDuration(in)
			require.Error(t, err)
			assert.True(t, IsValidationError(err), "expected a validation error for %q", in)
		})
	}
}
