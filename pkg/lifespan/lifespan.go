// Package lifespan parses configured token lifetimes. The vocabulary is
// deliberately small: "<n><unit>" with s/m/h/d units, or a bare integer
// meaning days. Operators write "7d" or "7" and mean the same thing.
package lifespan

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DefaultLifetime applies when no lifetime is configured or the configured
// value cannot be parsed.
const DefaultLifetime = 7 * 24 * time.Hour

var pattern = regexp.MustCompile(`^(\d+)([smhd])$`)

// TTL parses value as a lifetime. Returns 0 when value does not parse;
// callers that want a fallback use Parse instead.
func TTL(value string) time.Duration {
	value = strings.TrimSpace(value)

	if m := pattern.FindStringSubmatch(value); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil || n <= 0 {
			return 0
		}
		switch m[2] {
		case "s":
			return time.Duration(n) * time.Second
		case "m":
			return time.Duration(n) * time.Minute
		case "h":
			return time.Duration(n) * time.Hour
		case "d":
			return time.Duration(n) * 24 * time.Hour
		}
	}

	// A bare integer reads as a day count.
	if n, err := strconv.Atoi(value); err == nil && n > 0 {
		return time.Duration(n) * 24 * time.Hour
	}

	return 0
}

// Parse returns the parsed lifetime, falling back to DefaultLifetime for
// empty or unparseable input. It never fails: a misconfigured lifetime
// degrades to the default rather than blocking issuance.
func Parse(value string) time.Duration {
	if d := TTL(value); d > 0 {
		return d
	}
	return DefaultLifetime
}

// ParseAt resolves the configured lifetime into an absolute deadline
// measured from now.
func ParseAt(now time.Time, value string) time.Time {
	return now.Add(Parse(value))
}

// Days interprets a numeric configuration value as a count of whole days.
// Non-positive counts fall back to DefaultLifetime.
func Days(n int) time.Duration {
	if n <= 0 {
		return DefaultLifetime
	}
	return time.Duration(n) * 24 * time.Hour
}

// DaysAt resolves a day count into an absolute deadline measured from now.
func DaysAt(now time.Time, n int) time.Time {
	return now.Add(Days(n))
}
