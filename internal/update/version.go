package update

import (
	"fmt"
	"strings"
	"time"
)

// BuildVersion is the build timestamp a nym-node binary reports about itself,
// nominally "2025-01-15T10:30:00Z".
type BuildVersion string

// ParseBuildVersion trims s and rejects empty values.
func ParseBuildVersion(s string) (BuildVersion, error) {
	v := strings.TrimSpace(s)
	if v == "" {
		return "", fmt.Errorf("empty build version")
	}
	return BuildVersion(v), nil
}

// String returns the raw version string.
func (v BuildVersion) String() string {
	return string(v)
}

// Time parses the version as an RFC 3339 timestamp, fractional seconds allowed.
func (v BuildVersion) Time() (time.Time, bool) {
	t, err := time.Parse(time.RFC3339Nano, string(v))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Compare returns -1, 0 or 1. Two well-formed timestamps compare chronologically;
// anything else falls back to byte-wise string comparison.
func (v BuildVersion) Compare(other BuildVersion) int {
	if v == other {
		return 0
	}

	a, okA := v.Time()
	b, okB := other.Time()
	if okA && okB {
		if c := a.Compare(b); c != 0 {
			return c
		}
		// Same instant, different spelling ("Z" vs "+00:00").
		return 0
	}

	return strings.Compare(string(v), string(other))
}

// IsNewerThan returns true if v is strictly newer than other.
func (v BuildVersion) IsNewerThan(other BuildVersion) bool {
	return v.Compare(other) > 0
}

// IsOlderThan returns true if v is strictly older than other.
func (v BuildVersion) IsOlderThan(other BuildVersion) bool {
	return v.Compare(other) < 0
}
