package token

import (
	"strconv"
	"strings"
	"time"
)

// DefaultLifetime is used when a configured lifetime string cannot be
// interpreted.
const DefaultLifetime = 24 * time.Hour

// ParseLifetime interprets duration strings of the form "<n><unit>" with
// units s, m, h and d, e.g. "900s", "15m", "24h", "7d". Anything else falls
// back to DefaultLifetime.
func ParseLifetime(raw string) time.Duration {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if len(raw) < 2 {
		return DefaultLifetime
	}

	value, err := strconv.Atoi(raw[:len(raw)-1])
	if err != nil || value <= 0 {
		return DefaultLifetime
	}

	switch raw[len(raw)-1] {
	case 's':
		return time.Duration(value) * time.Second
	case 'm':
		return time.Duration(value) * time.Minute
	case 'h':
		return time.Duration(value) * time.Hour
	case 'd':
		return time.Duration(value) * 24 * time.Hour
	default:
		return DefaultLifetime
	}
}
