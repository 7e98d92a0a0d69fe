package engine

import (
	"testing"

	"github.com/google/uuid"
	"github.com/prepline/testprep-backend/internal/model"
)

// question builds a four-option question whose correct letter is given.
func question(subject, correct string) model.Question {
	opts := make([]model.Option, 0, 4)
	for _, id := range []string{"A", "B", "C", "D"} {
		opts = append(opts, model.Option{ID: id, Text: "option " + id, IsCorrect: id == correct})
	}
	return model.Question{
		ID:            uuid.New(),
		Text:          "what is the answer?",
		Subject:       subject,
		Options:       opts,
		Marks:         model.DefaultMarks,
		NegativeMarks: model.DefaultNegativeMarks,
	}
}

func strp(s string) *string { return &s }

func TestScoreMixedAttempt(t *testing.T) {
	questions := []model.Question{
		question("physics", "A"),
		question("physics", "B"),
		question("chemistry", "C"),
	}
	answers := []*string{strp("A"), strp("C"), nil}

	res := Score(questions, answers)

	if res.Correct != 1 || res.Incorrect != 1 || res.Unattempted != 1 {
		t.Fatalf("wrong breakdown: %+v", res)
	}
	if res.Score != 3 {
		t.Fatalf("score = %d, want 3 (+4 correct, -1 incorrect, 0 unattempted)", res.Score)
	}
	if res.TotalScore != 12 {
		t.Fatalf("total = %d, want 12", res.TotalScore)
	}
	if res.Accuracy != 50 {
		t.Fatalf("accuracy = %d, want 50", res.Accuracy)
	}
	if res.Partial != 0 {
		t.Fatalf("partial = %d, want 0", res.Partial)
	}
}

func TestScoreNegativeNotClamped(t *testing.T) {
	questions := []model.Question{
		question("physics", "A"),
		question("physics", "A"),
	}
	answers := []*string{strp("B"), strp("C")}

	res := Score(questions, answers)

	if res.Score != -2 {
		t.Fatalf("score = %d, want -2 (negative totals are kept)", res.Score)
	}
	if res.TotalScore != 8 {
		t.Fatalf("total = %d, want 8", res.TotalScore)
	}
	if res.Accuracy != 0 {
		t.Fatalf("accuracy = %d, want 0", res.Accuracy)
	}
}

func TestScoreNothingAttempted(t *testing.T) {
	questions := []model.Question{question("physics", "A"), question("physics", "B")}
	res := Score(questions, make([]*string, 2))

	if res.Score != 0 || res.Accuracy != 0 {
		t.Fatalf("expected zero score and zero accuracy, got %+v", res)
	}
	if res.Unattempted != 2 {
		t.Fatalf("unattempted = %d, want 2", res.Unattempted)
	}
}

func TestScoreAccuracyRounding(t *testing.T) {
	// 1 correct of 3 attempted: 33.33 -> 33; 2 of 3: 66.67 -> 67.
	questions := []model.Question{
		question("maths", "A"),
		question("maths", "A"),
		question("maths", "A"),
	}

	res := Score(questions, []*string{strp("A"), strp("B"), strp("B")})
	if res.Accuracy != 33 {
		t.Fatalf("accuracy = %d, want 33", res.Accuracy)
	}

	res = Score(questions, []*string{strp("A"), strp("A"), strp("B")})
	if res.Accuracy != 67 {
		t.Fatalf("accuracy = %d, want 67", res.Accuracy)
	}
}

func TestScoreShortAnswerSlice(t *testing.T) {
	questions := []model.Question{
		question("physics", "A"),
		question("physics", "B"),
		question("physics", "C"),
	}
	// Missing trailing slots count as unattempted.
	res := Score(questions, []*string{strp("A")})

	if res.Correct != 1 || res.Unattempted != 2 {
		t.Fatalf("short slice not handled: %+v", res)
	}
}

func TestScorePerQuestionMarks(t *testing.T) {
	q1 := question("physics", "A")
	q1.Marks = 2
	q1.NegativeMarks = 0
	q2 := question("physics", "B")
	q2.Marks = 6
	q2.NegativeMarks = 3

	res := Score([]model.Question{q1, q2}, []*string{strp("A"), strp("A")})

	if res.Score != 2-3 {
		t.Fatalf("score = %d, want -1", res.Score)
	}
	if res.TotalScore != 8 {
		t.Fatalf("total = %d, want 8", res.TotalScore)
	}
}
