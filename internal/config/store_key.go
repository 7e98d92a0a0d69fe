package config

import "fmt"

// StoreKeyStruct builds durable key-value store keys. The legacy client
// keyed everything as test_<id>_<field>; the convention is kept so a
// results view reading the store stays compatible.
type StoreKeyStruct struct{}

// SubmissionKey returns the composite submission record key for a test.
func (r *StoreKeyStruct) SubmissionKey(testID string) string {
	return fmt.Sprintf("test_%s_submission", testID)
}

// ScoreKey returns the independently-stored score key for a test.
func (r *StoreKeyStruct) ScoreKey(testID string) string {
	return fmt.Sprintf("test_%s_score", testID)
}

// TotalScoreKey returns the independently-stored total score key.
func (r *StoreKeyStruct) TotalScoreKey(testID string) string {
	return fmt.Sprintf("test_%s_totalscore", testID)
}

// TimeTakenKey returns the independently-stored time-taken key.
func (r *StoreKeyStruct) TimeTakenKey(testID string) string {
	return fmt.Sprintf("test_%s_timetaken", testID)
}

// CompletedTestsKey returns the key of the global completed test ids set.
func (r *StoreKeyStruct) CompletedTestsKey() string {
	return "completed_tests"
}

var StoreKey = &StoreKeyStruct{}
