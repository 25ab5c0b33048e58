package lifespan

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTTL(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want time.Duration
	}{
		{"30s", 30 * time.Second},
		{"15m", 15 * time.Minute},
		{"24h", 24 * time.Hour},
		{"7d", 7 * 24 * time.Hour},
		{"1d", 24 * time.Hour},
		{" 7d ", 7 * 24 * time.Hour},

		// Bare integers read as days.
		{"7", 7 * 24 * time.Hour},
		{"30", 30 * 24 * time.Hour},

		// Unparseable inputs return zero.
		{"", 0},
		{"0", 0},
		{"0d", 0},
		{"-7", 0},
		{"7w", 0},
		{"forever", 0},
		{"7 d", 0},
	}

	for _, tc := range cases {
		require.Equal(t, tc.want, TTL(tc.in), "input %q", tc.in)
	}
}

func TestParseFallsBackToDefault(t *testing.T) {
	t.Parallel()

	require.Equal(t, DefaultLifetime, Parse(""))
	require.Equal(t, DefaultLifetime, Parse("garbage"))
	require.Equal(t, 24*time.Hour, Parse("24h"))
}

func TestDays(t *testing.T) {
	t.Parallel()

	require.Equal(t, 7*24*time.Hour, Days(7))
	require.Equal(t, 24*time.Hour, Days(1))
	require.Equal(t, DefaultLifetime, Days(0))
	require.Equal(t, DefaultLifetime, Days(-3))

	now := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	require.Equal(t, now.Add(5*24*time.Hour), DaysAt(now, 5))
}

func TestParseAt(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.January, 2, 3, 4, 5, 0, time.UTC)
	require.Equal(t, now.Add(7*24*time.Hour), ParseAt(now, "7d"))
	require.Equal(t, now.Add(DefaultLifetime), ParseAt(now, "nonsense"))
}
