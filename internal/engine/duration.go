package engine

import (
	"strconv"
	"strings"

	"github.com/prepline/testprep-backend/internal/model"
)

// DefaultDurationSeconds is the fallback when a duration text cannot be
// parsed. A wrong default beats blocking the exam start.
const DefaultDurationSeconds = 3 * 60 * 60

// ParseDurationToSeconds converts a human-readable duration string like
// "3 hours", "90 minutes" or "1 hour 30 minutes" into whole seconds.
// Unit matching is a case-insensitive substring check, so "hrs", "Hour"
// and "mins" all work. Garbled or empty input falls back to
// DefaultDurationSeconds.
func ParseDurationToSeconds(text string) int {
	fields := strings.Fields(strings.ToLower(text))
	total := 0

	for i := 0; i < len(fields)-1; i++ {
		n, err := strconv.Atoi(strings.TrimSpace(fields[i]))
		if err != nil || n < 0 {
			continue
		}
		unit := fields[i+1]
		switch {
		case strings.Contains(unit, "hour") || strings.Contains(unit, "hr"):
			total += n * 3600
			i++
		case strings.Contains(unit, "min"):
			total += n * 60
			i++
		case strings.Contains(unit, "sec"):
			total += n
			i++
		}
	}

	if total <= 0 {
		return DefaultDurationSeconds
	}
	return total
}

// SecondsToTimeObject splits a non-negative second count into
// {minutes, seconds}.
func SecondsToTimeObject(s int) model.TimeObject {
	if s < 0 {
		s = 0
	}
	return model.TimeObject{Minutes: s / 60, Seconds: s % 60}
}

// TimeObjectToSeconds is the inverse of SecondsToTimeObject.
// TimeObjectToSeconds(SecondsToTimeObject(s)) == s for all s >= 0.
func TimeObjectToSeconds(t model.TimeObject) int {
	return t.Minutes*60 + t.Seconds
}
