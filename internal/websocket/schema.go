package websocket

import (
	"github.com/prepline/testprep-backend/internal/engine"
	"github.com/prepline/testprep-backend/internal/model"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionNavigate  Action = "navigate"
	ActionSelect    Action = "select"
	ActionClear     Action = "clear"
	ActionReview    Action = "review"
	ActionSubject   Action = "subject"
	ActionIntegrity Action = "integrity"
	ActionSubmit    Action = "submit"
	ActionPing      Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// NavigateRequest moves the current question pointer.
type NavigateRequest struct {
	Action Action `json:"action"`
	Index  int    `json:"index"`
}

// SelectRequest records an option letter for a question.
type SelectRequest struct {
	Action Action `json:"action"`
	Index  int    `json:"index"`
	Option string `json:"option"`
}

// ClearRequest removes the selected option of a question.
type ClearRequest struct {
	Action Action `json:"action"`
	Index  int    `json:"index"`
}

// ReviewRequest flags a question for revisit.
type ReviewRequest struct {
	Action Action `json:"action"`
	Index  int    `json:"index"`
}

// SubjectRequest switches the active subject tab.
type SubjectRequest struct {
	Action  Action `json:"action"`
	Subject string `json:"subject"`
}

// IntegrityRequest reports a lockdown violation observed by the client.
type IntegrityRequest struct {
	Action Action `json:"action"`
	Event  string `json:"event"`
}

// SubmitRequest finishes and grades the attempt.
type SubmitRequest struct {
	Action Action `json:"action"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventState     Event = "state"
	EventWarning   Event = "warning"
	EventGraded    Event = "graded"
	EventDirective Event = "directive"
	EventError     Event = "error"
	EventPong      Event = "pong"
)

// StateResponse pushes the full session snapshot, sent on connect and
// after every mutating action.
type StateResponse struct {
	Event Event               `json:"event"`
	State engine.SessionState `json:"state"`
}

// WarningResponse announces a time warning (5 or 1 minutes left).
type WarningResponse struct {
	Event       Event `json:"event"`
	MinutesLeft int   `json:"minutes_left"`
}

// GradedResponse delivers the final result after submission.
type GradedResponse struct {
	Event      Event                 `json:"event"`
	Forced     bool                  `json:"forced"`
	Result     engine.ScoreResult    `json:"result"`
	Submission *model.TestSubmission `json:"submission"`
}

// DirectiveResponse tells the client which integrity deterrent to apply.
type DirectiveResponse struct {
	Event     Event            `json:"event"`
	Directive engine.Directive `json:"directive"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
