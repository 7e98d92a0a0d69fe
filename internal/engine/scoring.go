package engine

import (
	"math"

	"github.com/prepline/testprep-backend/internal/model"
)

// ScoreResult aggregates the grading of one attempt.
type ScoreResult struct {
	Correct     int `json:"correct"`
	Incorrect   int `json:"incorrect"`
	Unattempted int `json:"unattempted"`
	// Partial is reserved for partial-correctness marking. Always 0 in
	// the current single-answer design.
	Partial int `json:"partial"`
	// Score may be negative; it is never clamped.
	Score      int `json:"score"`
	TotalScore int `json:"total_score"`
	// Accuracy is round(100*correct/(correct+incorrect)), 0 when no
	// question was attempted.
	Accuracy int `json:"accuracy"`
}

// Score grades an attempt. answers holds one slot per question index,
// nil meaning unattempted. Extra answer slots beyond the question list
// are ignored; missing slots count as unattempted.
func Score(questions []model.Question, answers []*string) ScoreResult {
	var res ScoreResult

	for i := range questions {
		q := &questions[i]
		res.TotalScore += q.Marks

		var selected *string
		if i < len(answers) {
			selected = answers[i]
		}

		if selected == nil {
			res.Unattempted++
			continue
		}
		if *selected == q.CorrectOption() {
			res.Correct++
			res.Score += q.Marks
		} else {
			res.Incorrect++
			res.Score -= q.NegativeMarks
		}
	}

	if attempted := res.Correct + res.Incorrect; attempted > 0 {
		res.Accuracy = int(math.Round(100 * float64(res.Correct) / float64(attempted)))
	}
	return res
}
