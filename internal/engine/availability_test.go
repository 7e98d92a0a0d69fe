package engine

import (
	"strings"
	"testing"
	"time"
)

func tp(t time.Time) *time.Time { return &t }

func TestCheckAvailabilityWindow(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	start := now.Add(-time.Hour)
	end := now.Add(time.Hour)

	tests := []struct {
		name      string
		now       time.Time
		start     *time.Time
		end       *time.Time
		available bool
		status    AvailabilityStatus
	}{
		{name: "inside window", now: now, start: tp(start), end: tp(end), available: true, status: AvailabilityActive},
		{name: "start boundary is inclusive", now: start, start: tp(start), end: tp(end), available: true, status: AvailabilityActive},
		{name: "end boundary is exclusive", now: end, start: tp(start), end: tp(end), available: false, status: AvailabilityPast},
		{name: "just before end", now: end.Add(-time.Second), start: tp(start), end: tp(end), available: true, status: AvailabilityActive},
		{name: "before window", now: start.Add(-time.Minute), start: tp(start), end: tp(end), available: false, status: AvailabilityFuture},
		{name: "after window", now: end.Add(time.Hour), start: tp(start), end: tp(end), available: false, status: AvailabilityPast},
		{name: "no schedule fails open", now: now, available: true, status: AvailabilityActive},
		{name: "missing end fails open", now: now, start: tp(start), available: true, status: AvailabilityActive},
		{name: "inverted schedule fails open", now: now, start: tp(end), end: tp(start), available: true, status: AvailabilityInvalid},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := CheckAvailability(tc.now, tc.start, tc.end)
			if got.IsAvailable != tc.available {
				t.Fatalf("IsAvailable = %v, want %v (%+v)", got.IsAvailable, tc.available, got)
			}
			if got.Status != tc.status {
				t.Fatalf("Status = %s, want %s", got.Status, tc.status)
			}
		})
	}
}

func TestCheckAvailabilityFutureCountdown(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		until time.Duration
		want  string
	}{
		{name: "days and hours", until: 26 * time.Hour, want: "1d 2h"},
		{name: "hours and minutes", until: 90 * time.Minute, want: "1h 30m"},
		{name: "minutes only", until: 12 * time.Minute, want: "12m"},
		{name: "under a minute rounds up", until: 20 * time.Second, want: "1m"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			start := now.Add(tc.until)
			end := start.Add(3 * time.Hour)
			got := CheckAvailability(now, &start, &end)
			if got.Status != AvailabilityFuture {
				t.Fatalf("Status = %s, want FUTURE", got.Status)
			}
			if got.TimeRemainingToStart != tc.want {
				t.Fatalf("TimeRemainingToStart = %q, want %q", got.TimeRemainingToStart, tc.want)
			}
			if !strings.Contains(got.Message, tc.want) {
				t.Fatalf("message %q does not mention countdown %q", got.Message, tc.want)
			}
		})
	}
}
