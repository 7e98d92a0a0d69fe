package engine

import (
	"sync"

	"github.com/rs/zerolog"
)

// IntegrityEvent is a lockdown violation reported by the client during
// a live attempt.
type IntegrityEvent string

const (
	EventFullscreenExit   IntegrityEvent = "fullscreen_exit"
	EventVisibilityHidden IntegrityEvent = "visibility_hidden"
	EventCopy             IntegrityEvent = "copy"
	EventCut              IntegrityEvent = "cut"
	EventPaste            IntegrityEvent = "paste"
	EventContextMenu      IntegrityEvent = "context_menu"
	EventBlockedKey       IntegrityEvent = "blocked_key"
	EventNavigateAway     IntegrityEvent = "navigate_away"
)

// Directive tells the client which deterrent to apply in response.
type Directive string

const (
	DirectiveNone              Directive = "none"
	DirectiveSuppress          Directive = "suppress"
	DirectiveWarn              Directive = "warn"
	DirectiveReenterFullscreen Directive = "reenter_fullscreen"
	DirectiveConfirmLeave      Directive = "confirm_leave"
)

// Guard applies best-effort lockdown measures for the duration of one
// attempt. It is armed at session start and disarmed on teardown; while
// disarmed every event is a no-op.
//
// KNOWN LIMITATION: these are deterrents, not a security boundary. A
// determined user can bypass fullscreen enforcement, clipboard
// suppression and key interception; violations are recorded so staff
// can review them afterwards.
type Guard struct {
	mu         sync.Mutex
	armed      bool
	violations map[IntegrityEvent]int
	log        zerolog.Logger
}

// NewGuard creates a disarmed guard.
func NewGuard(log zerolog.Logger) *Guard {
	return &Guard{
		violations: make(map[IntegrityEvent]int),
		log:        log.With().Str("component", "integrity_guard").Logger(),
	}
}

// Arm activates the guard for the session.
func (g *Guard) Arm() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.armed = true
}

// Disarm deactivates the guard. Called together with timer teardown on
// every session exit path.
func (g *Guard) Disarm() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.armed = false
}

// Armed reports whether the guard is active.
func (g *Guard) Armed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.armed
}

// Handle records a violation and returns the deterrent directive for
// the client. Disarmed guards return DirectiveNone.
func (g *Guard) Handle(evt IntegrityEvent) Directive {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.armed {
		return DirectiveNone
	}

	g.violations[evt]++
	g.log.Debug().Str("event", string(evt)).Int("count", g.violations[evt]).Msg("Integrity event")

	switch evt {
	case EventFullscreenExit:
		return DirectiveReenterFullscreen
	case EventVisibilityHidden:
		// Warn and pull the student back into fullscreen.
		return DirectiveReenterFullscreen
	case EventCopy, EventCut, EventPaste, EventContextMenu, EventBlockedKey:
		return DirectiveSuppress
	case EventNavigateAway:
		return DirectiveConfirmLeave
	}
	return DirectiveWarn
}

// Violations returns a copy of the per-event violation counts.
func (g *Guard) Violations() map[IntegrityEvent]int {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make(map[IntegrityEvent]int, len(g.violations))
	for k, v := range g.violations {
		out[k] = v
	}
	return out
}
