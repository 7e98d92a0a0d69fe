package engine

import (
	"github.com/rs/zerolog"
)

// QuestionStatus is the per-question state in the palette shown to the
// student. Exactly one status is active per question index.
type QuestionStatus string

const (
	StatusNotVisited       QuestionStatus = "NOT_VISITED"
	StatusUnanswered       QuestionStatus = "UNANSWERED"
	StatusAnswered         QuestionStatus = "ANSWERED"
	StatusReview           QuestionStatus = "REVIEW"
	StatusReviewWithAnswer QuestionStatus = "REVIEW_WITH_ANSWER"
)

// Action is a student interaction that drives a status transition.
type Action string

const (
	// ActionVisitAway fires when the student navigates off a question.
	ActionVisitAway Action = "visit_away"
	ActionSelect    Action = "select"
	ActionClear     Action = "clear"
	ActionReview    Action = "review"
)

// NextStatus is the deterministic transition table. hasAnswer reports
// whether the question has a selected option AFTER the action applies.
// No action ever returns a question to NOT_VISITED.
func NextStatus(current QuestionStatus, action Action, hasAnswer bool) QuestionStatus {
	switch action {
	case ActionVisitAway:
		if current == StatusNotVisited {
			return StatusUnanswered
		}
		return current
	case ActionSelect:
		if current == StatusReview || current == StatusReviewWithAnswer {
			return StatusReviewWithAnswer
		}
		return StatusAnswered
	case ActionClear:
		if current == StatusReview || current == StatusReviewWithAnswer {
			return StatusReview
		}
		return StatusUnanswered
	case ActionReview:
		if hasAnswer {
			return StatusReviewWithAnswer
		}
		return StatusReview
	}
	return current
}

// StatusCounts holds the running counter per status.
//
// Answered intentionally double-counts REVIEW_WITH_ANSWER questions:
// the palette's "Answered" badge always showed review-with-answer
// questions as answered too, and results depend on that display. The
// five plain counters still sum to the total question count.
type StatusCounts struct {
	NotVisited       int `json:"not_visited"`
	Unanswered       int `json:"unanswered"`
	Answered         int `json:"answered"`
	Review           int `json:"review"`
	ReviewWithAnswer int `json:"review_with_answer"`
}

// StatusTracker maintains the status and counters for every question
// index of one attempt. Not safe for concurrent use; the owning session
// serializes access.
type StatusTracker struct {
	statuses []QuestionStatus
	counts   StatusCounts
	log      zerolog.Logger
}

// NewStatusTracker creates a tracker with every question NOT_VISITED.
func NewStatusTracker(total int, log zerolog.Logger) *StatusTracker {
	statuses := make([]QuestionStatus, total)
	for i := range statuses {
		statuses[i] = StatusNotVisited
	}
	return &StatusTracker{
		statuses: statuses,
		counts:   StatusCounts{NotVisited: total},
		log:      log.With().Str("component", "status_tracker").Logger(),
	}
}

// Get returns the status at index i, or NOT_VISITED for an invalid index.
func (t *StatusTracker) Get(i int) QuestionStatus {
	if i < 0 || i >= len(t.statuses) {
		return StatusNotVisited
	}
	return t.statuses[i]
}

// Transition moves question i to status next, updating counters.
// A crash mid-exam is the worst failure mode, so an invalid index is
// logged and ignored instead of panicking.
func (t *StatusTracker) Transition(i int, next QuestionStatus) {
	if i < 0 || i >= len(t.statuses) {
		t.log.Warn().Int("index", i).Msg("Transition on invalid question index ignored")
		return
	}

	prev := t.statuses[i]
	if prev == next {
		return
	}

	t.bump(prev, -1)
	t.bump(next, +1)
	t.statuses[i] = next
}

// bump adjusts the counter for status by delta, applying the extra
// Answered adjustment for REVIEW_WITH_ANSWER.
func (t *StatusTracker) bump(status QuestionStatus, delta int) {
	switch status {
	case StatusNotVisited:
		t.counts.NotVisited += delta
	case StatusUnanswered:
		t.counts.Unanswered += delta
	case StatusAnswered:
		t.counts.Answered += delta
	case StatusReview:
		t.counts.Review += delta
	case StatusReviewWithAnswer:
		t.counts.ReviewWithAnswer += delta
		t.counts.Answered += delta
	}
}

// Counts returns a copy of the current counters.
func (t *StatusTracker) Counts() StatusCounts {
	return t.counts
}

// Statuses returns a copy of all per-question statuses.
func (t *StatusTracker) Statuses() []QuestionStatus {
	out := make([]QuestionStatus, len(t.statuses))
	copy(out, t.statuses)
	return out
}

// Total returns the number of tracked questions.
func (t *StatusTracker) Total() int {
	return len(t.statuses)
}
