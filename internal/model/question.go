package model

import (
	"github.com/google/uuid"
)

const (
	// DefaultMarks is awarded for a correct attempt when authoring
	// leaves marks unset.
	DefaultMarks = 4
	// DefaultNegativeMarks is deducted for an incorrect attempt when
	// authoring leaves it unset. Unattempted questions never deduct.
	DefaultNegativeMarks = 1
)

// Option is one of the four lettered choices of a question.
type Option struct {
	ID        string `json:"id"` // "A".."D"
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct"`
	ImageURL  string `json:"image_url,omitempty"`
}

// Question represents a single test question. Read-only during
// test-taking; authoring owns its lifecycle.
type Question struct {
	ID            uuid.UUID `json:"id"`
	TestID        uuid.UUID `json:"test_id"`
	Text          string    `json:"text"`
	Subject       string    `json:"subject"`
	Options       []Option  `json:"options"`
	ImageURL      string    `json:"image_url,omitempty"`
	Solution      string    `json:"solution,omitempty"`
	Marks         int       `json:"marks"`
	NegativeMarks int       `json:"negative_marks"`
	OrderNum      int       `json:"order_num"`
}

// CorrectOption returns the letter of the correct option, or "" if the
// question is malformed (authoring is supposed to guarantee exactly one).
func (q *Question) CorrectOption() string {
	for _, o := range q.Options {
		if o.IsCorrect {
			return o.ID
		}
	}
	return ""
}

// QuestionForStudent is a question without correctness flags and
// solutions, sent to students during a live attempt.
type QuestionForStudent struct {
	ID       uuid.UUID       `json:"id"`
	Text     string          `json:"text"`
	Subject  string          `json:"subject"`
	Options  []OptionDisplay `json:"options"`
	ImageURL string          `json:"image_url,omitempty"`
	Marks    int             `json:"marks"`
	Negative int             `json:"negative_marks"`
	OrderNum int             `json:"order_num"`
}

// OptionDisplay is an option stripped of its correctness flag.
type OptionDisplay struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	ImageURL string `json:"image_url,omitempty"`
}

// ForStudent strips grading data from a question.
func (q *Question) ForStudent() QuestionForStudent {
	opts := make([]OptionDisplay, len(q.Options))
	for i, o := range q.Options {
		opts[i] = OptionDisplay{ID: o.ID, Text: o.Text, ImageURL: o.ImageURL}
	}
	return QuestionForStudent{
		ID:       q.ID,
		Text:     q.Text,
		Subject:  q.Subject,
		Options:  opts,
		ImageURL: q.ImageURL,
		Marks:    q.Marks,
		Negative: q.NegativeMarks,
		OrderNum: q.OrderNum,
	}
}

// AddQuestionRequest is the payload for adding a question to a test.
type AddQuestionRequest struct {
	Text          string          `json:"text" binding:"required,min=1,max=2000"`
	Subject       string          `json:"subject" binding:"required,min=1,max=100"`
	Options       []OptionRequest `json:"options" binding:"required,len=4,dive"`
	ImageURL      string          `json:"image_url" binding:"omitempty,max=500"`
	Solution      string          `json:"solution" binding:"omitempty,max=5000"`
	Marks         *int            `json:"marks" binding:"omitempty,min=0"`
	NegativeMarks *int            `json:"negative_marks" binding:"omitempty,min=0"`
	OrderNum      int             `json:"order_num" binding:"min=0"`
}

// OptionRequest is one option in an authoring payload.
type OptionRequest struct {
	ID        string `json:"id" binding:"required,oneof=A B C D"`
	Text      string `json:"text" binding:"required,max=2000"`
	IsCorrect bool   `json:"is_correct"`
	ImageURL  string `json:"image_url" binding:"omitempty,max=500"`
}

// ReplaceQuestionsRequest is the payload for bulk replacing questions.
type ReplaceQuestionsRequest struct {
	Questions []AddQuestionRequest `json:"questions" binding:"dive"`
}
