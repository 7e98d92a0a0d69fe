package engine

import (
	"fmt"
	"time"
)

// AvailabilityStatus classifies a test's scheduled window.
type AvailabilityStatus string

const (
	AvailabilityPast    AvailabilityStatus = "PAST"
	AvailabilityFuture  AvailabilityStatus = "FUTURE"
	AvailabilityActive  AvailabilityStatus = "ACTIVE"
	AvailabilityInvalid AvailabilityStatus = "INVALID"
)

// Availability is derived from the current time and a test's schedule;
// it is never stored.
type Availability struct {
	IsAvailable          bool               `json:"is_available"`
	Status               AvailabilityStatus `json:"status"`
	Message              string             `json:"message"`
	TimeRemainingToStart string             `json:"time_remaining_to_start,omitempty"`
}

// CheckAvailability classifies now against [start, end). The start
// boundary is inclusive, the end boundary exclusive. A missing or
// inverted schedule fails OPEN: the test is treated as startable,
// because blocking an exam on bad authoring data is worse than a wrong
// default. Callers log when the fail-open path is taken.
func CheckAvailability(now time.Time, start, end *time.Time) Availability {
	if start == nil || end == nil {
		return Availability{
			IsAvailable: true,
			Status:      AvailabilityActive,
			Message:     "Test is available now",
		}
	}
	if end.Before(*start) {
		return Availability{
			IsAvailable: true,
			Status:      AvailabilityInvalid,
			Message:     "Test schedule is invalid; treating test as available",
		}
	}

	if !now.Before(*end) {
		return Availability{
			IsAvailable: false,
			Status:      AvailabilityPast,
			Message:     "Test window has ended",
		}
	}
	if now.Before(*start) {
		countdown := formatCountdown(start.Sub(now))
		return Availability{
			IsAvailable:          false,
			Status:               AvailabilityFuture,
			Message:              fmt.Sprintf("Test starts in %s", countdown),
			TimeRemainingToStart: countdown,
		}
	}

	return Availability{
		IsAvailable: true,
		Status:      AvailabilityActive,
		Message:     "Test is available now",
	}
}

// formatCountdown renders a duration as days/hours when either is
// non-zero, otherwise minutes.
func formatCountdown(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	default:
		if minutes < 1 {
			minutes = 1
		}
		return fmt.Sprintf("%dm", minutes)
	}
}
