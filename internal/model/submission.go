package model

import (
	"time"
)

// TimeObject is a minutes/seconds pair. Seconds stays in 0..59.
type TimeObject struct {
	Minutes int `json:"minutes"`
	Seconds int `json:"seconds"`
}

// TestSubmission is the durable record of one completed attempt.
// Created exactly once per attempt (overwriting any prior record for
// the same test), never mutated afterwards.
type TestSubmission struct {
	TestID    string     `json:"test_id"`
	StudentID int        `json:"student_id,omitempty"`
	// Answers holds one slot per question index: nil means unattempted,
	// otherwise the selected option letter.
	Answers          []*string  `json:"answers"`
	TimeTaken        TimeObject `json:"time_taken"`
	TimeTakenSeconds int        `json:"time_taken_seconds"`
	Score            *int       `json:"score,omitempty"` // may be negative
	TotalScore       *int       `json:"total_score,omitempty"`
	SubmittedAt      time.Time  `json:"submitted_at"`
	Forced           bool       `json:"forced,omitempty"`
}
