package model

import (
	"time"

	"github.com/google/uuid"
)

// TestStatus enumerates the possible authoring states of a test.
type TestStatus string

const (
	TestStatusDraft     TestStatus = "DRAFT"
	TestStatusPublished TestStatus = "PUBLISHED"
	TestStatusArchived  TestStatus = "ARCHIVED"
)

// Test represents a mock test entity.
type Test struct {
	ID             uuid.UUID  `json:"id"`
	Title          string     `json:"title"`
	AuthorID       int        `json:"author_id"`
	ScheduledStart *time.Time `json:"scheduled_start,omitempty"`
	ScheduledEnd   *time.Time `json:"scheduled_end,omitempty"`
	// DurationText is the human-readable duration as authored,
	// e.g. "3 hours" or "90 minutes". Parsed at session start.
	DurationText  string     `json:"duration_text"`
	QuestionCount int        `json:"question_count"`
	Status        TestStatus `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// TestPayload is the Redis-cached payload sent to students (no correct answers).
type TestPayload struct {
	TestID          uuid.UUID            `json:"test_id"`
	Title           string               `json:"title"`
	DurationSeconds int                  `json:"duration_seconds"`
	Subjects        []string             `json:"subjects"`
	Questions       []QuestionForStudent `json:"questions"`
}

// CreateTestRequest is the payload for creating a new test.
type CreateTestRequest struct {
	Title          string     `json:"title" binding:"required,min=3,max=255"`
	ScheduledStart *time.Time `json:"scheduled_start" binding:"omitempty"`
	ScheduledEnd   *time.Time `json:"scheduled_end" binding:"omitempty,gtfield=ScheduledStart"`
	DurationText   string     `json:"duration_text" binding:"required,min=1,max=50"`
}

// UpdateTestRequest is the payload for updating an existing test.
type UpdateTestRequest struct {
	Title          string     `json:"title" binding:"omitempty,min=3,max=255"`
	ScheduledStart *time.Time `json:"scheduled_start" binding:"omitempty"`
	ScheduledEnd   *time.Time `json:"scheduled_end" binding:"omitempty,gtfield=ScheduledStart"`
	DurationText   string     `json:"duration_text" binding:"omitempty,min=1,max=50"`
}
