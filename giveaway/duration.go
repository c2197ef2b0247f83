package giveaway

import (
	"math"
	"strconv"
	"strings"
	"time"
)

var durationUnits = map[byte]time.Duration{
	's': time.Second,
	'm': time.Minute,
	'h': time.Hour,
	'd': 24 * time.Hour,
	'w': 7 * 24 * time.Hour,
}

// ParseDuration parses durations in the form <integer><unit>, e.g 30m or 7d
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return 0, newValidationError("Invalid duration format. Example: `7d`, `12h`, `30m`.")
	}

	unitChar := s[len(s)-1]
	if unitChar >= 'A' && unitChar <= 'Z' {
		unitChar += 'a' - 'A'
	}

	unit, ok := durationUnits[unitChar]
	if !ok {
		return 0, newValidationError("Invalid time unit. Use one of `s`, `m`, `h`, `d` or `w`.")
	}

	numStr := s[:len(s)-1]
	for _, r := range numStr {
		if r < '0' || r > '9' {
			return 0, newValidationError("Invalid duration format. Example: `7d`, `12h`, `30m`.")
		}
	}

	value, err := strconv.ParseInt(numStr, 10, 64)
	if err != nil || value > math.MaxInt64/int64(unit) {
		return 0, newValidationError("That duration is too long.")
	}

	return time.Duration(value) * unit, nil
}
