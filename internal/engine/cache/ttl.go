package cache

import (
	"fmt"
	"strconv"
	"time"
)

// TTL bounds and defaults.
const (
	// DefaultTTL is how long registry responses are reused (1 hour).
	DefaultTTL = time.Hour

	// MaxTTL is the longest accepted TTL (7 days).
	MaxTTL = 7 * 24 * time.Hour

	hoursPerDay    = 24
	minutesPerHour = 60
)

// Environment variables overriding the cache configuration.
const (
	EnvCacheTTL     = "ASSETIMPORT_CACHE_TTL"
	EnvCacheEnabled = "ASSETIMPORT_CACHE_ENABLED"
	EnvCacheDir     = "ASSETIMPORT_CACHE_DIR"
)

// ErrInvalidTTL is returned for TTLs outside [0, MaxTTL].
var ErrInvalidTTL = fmt.Errorf("TTL must be between 0 and %s", FormatDuration(MaxTTL))

// ParseTTL parses a TTL given either as integer seconds ("3600") or as a
// Go duration ("1h30m"). A zero TTL is valid and means entries expire at once.
func ParseTTL(s string) (time.Duration, error) {
	var ttl time.Duration
	if seconds, err := strconv.Atoi(s); err == nil {
		ttl = time.Duration(seconds) * time.Second
	} else {
		d, parseErr := time.ParseDuration(s)
		if parseErr != nil {
			return 0, fmt.Errorf("invalid TTL format %q: %w", s, parseErr)
		}
		ttl = d
	}

	if ttl < 0 || ttl > MaxTTL {
		return 0, fmt.Errorf("%w: got %s", ErrInvalidTTL, ttl)
	}
	return ttl, nil
}

// FormatDuration formats d compactly: "45s", "5m", "2h30m", "3d2h".
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%.0fm", d.Minutes())
	}
	if d < hoursPerDay*time.Hour {
		hours := int(d.Hours())
		minutes := int(d.Minutes()) % minutesPerHour
		if minutes == 0 {
			return fmt.Sprintf("%dh", hours)
		}
		return fmt.Sprintf("%dh%dm", hours, minutes)
	}
	days := int(d.Hours()) / hoursPerDay
	hours := int(d.Hours()) % hoursPerDay
	if hours == 0 {
		return fmt.Sprintf("%dd", days)
	}
	return fmt.Sprintf("%dd%dh", days, hours)
}
