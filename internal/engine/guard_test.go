package engine

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestGuardDirectives(t *testing.T) {
	tests := []struct {
		event IntegrityEvent
		want  Directive
	}{
		{EventFullscreenExit, DirectiveReenterFullscreen},
		{EventVisibilityHidden, DirectiveReenterFullscreen},
		{EventCopy, DirectiveSuppress},
		{EventCut, DirectiveSuppress},
		{EventPaste, DirectiveSuppress},
		{EventContextMenu, DirectiveSuppress},
		{EventBlockedKey, DirectiveSuppress},
		{EventNavigateAway, DirectiveConfirmLeave},
	}

	g := NewGuard(zerolog.Nop())
	g.Arm()

	for _, tc := range tests {
		t.Run(string(tc.event), func(t *testing.T) {
			if got := g.Handle(tc.event); got != tc.want {
				t.Fatalf("Handle(%s) = %s, want %s", tc.event, got, tc.want)
			}
		})
	}
}

func TestGuardDisarmedIsNoop(t *testing.T) {
	g := NewGuard(zerolog.Nop())

	if got := g.Handle(EventCopy); got != DirectiveNone {
		t.Fatalf("disarmed guard returned %s, want none", got)
	}
	if n := len(g.Violations()); n != 0 {
		t.Fatalf("disarmed guard recorded %d violations", n)
	}

	g.Arm()
	g.Handle(EventCopy)
	g.Disarm()
	g.Handle(EventCopy)

	if got := g.Violations()[EventCopy]; got != 1 {
		t.Fatalf("violations after disarm = %d, want 1", got)
	}
}

func TestGuardCountsViolations(t *testing.T) {
	g := NewGuard(zerolog.Nop())
	g.Arm()

	g.Handle(EventPaste)
	g.Handle(EventPaste)
	g.Handle(EventFullscreenExit)

	v := g.Violations()
	if v[EventPaste] != 2 || v[EventFullscreenExit] != 1 {
		t.Fatalf("violations = %v", v)
	}

	// Returned map is a copy.
	v[EventPaste] = 99
	if g.Violations()[EventPaste] != 2 {
		t.Fatal("Violations leaked internal map")
	}
}
