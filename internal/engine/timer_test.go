package engine

import (
	"testing"

	"github.com/prepline/testprep-backend/internal/model"
)

func TestCountdownMinuteBorrow(t *testing.T) {
	c := NewCountdown(2*60, nil, nil)

	c.Tick()
	if got := c.Remaining(); got != (model.TimeObject{Minutes: 1, Seconds: 59}) {
		t.Fatalf("after one tick remaining = %+v, want 1:59", got)
	}

	for i := 0; i < 59; i++ {
		c.Tick()
	}
	if got := c.Remaining(); got != (model.TimeObject{Minutes: 1, Seconds: 0}) {
		t.Fatalf("after one minute remaining = %+v, want 1:00", got)
	}
}

func TestCountdownForcedSubmitExactlyOnce(t *testing.T) {
	expires := 0
	c := NewCountdown(1, nil, func() { expires++ })

	if done := c.Tick(); !done {
		t.Fatal("tick from 0:01 to 0:00 should report done")
	}
	if got := c.Remaining(); got != (model.TimeObject{Minutes: 0, Seconds: 0}) {
		t.Fatalf("remaining = %+v, want 0:00", got)
	}
	if !c.Expired() {
		t.Fatal("countdown should be expired")
	}
	if expires != 1 {
		t.Fatalf("onExpire fired %d times, want exactly 1", expires)
	}

	// Further ticks are no-ops and never re-fire.
	for i := 0; i < 5; i++ {
		if done := c.Tick(); !done {
			t.Fatal("tick after expiry should report done")
		}
	}
	if expires != 1 {
		t.Fatalf("onExpire re-fired, count = %d", expires)
	}
	if got := c.Remaining(); got != (model.TimeObject{Minutes: 0, Seconds: 0}) {
		t.Fatalf("remaining went negative: %+v", got)
	}
}

func TestCountdownWarningsFireOnce(t *testing.T) {
	var warnings []int
	c := NewCountdown(5*60+2, func(m int) { warnings = append(warnings, m) }, nil)

	// Cross the 5:00 mark and keep ticking down to 0:59.
	for i := 0; i < 4*60+3; i++ {
		c.Tick()
	}

	if len(warnings) != 2 || warnings[0] != 5 || warnings[1] != 1 {
		t.Fatalf("warnings = %v, want [5 1]", warnings)
	}
}

func TestCountdownNoWarningWhenStartingBelowMark(t *testing.T) {
	// A 3-minute test never crosses 5:00, so only the 1-minute warning fires.
	var warnings []int
	c := NewCountdown(3*60, func(m int) { warnings = append(warnings, m) }, nil)

	for i := 0; i < 2*60+1; i++ {
		c.Tick()
	}

	if len(warnings) != 1 || warnings[0] != 1 {
		t.Fatalf("warnings = %v, want [1]", warnings)
	}
}

func TestCountdownStopIsIdempotent(t *testing.T) {
	c := NewCountdown(60, nil, nil)
	c.Stop()
	c.Stop() // must not panic on the closed channel

	if done := c.Tick(); !done {
		t.Fatal("tick after stop should report done")
	}
	if got := c.RemainingSeconds(); got != 60 {
		t.Fatalf("stopped countdown kept ticking: %d remaining", got)
	}
}
