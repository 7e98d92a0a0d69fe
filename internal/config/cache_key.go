package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// StudentLoginKey returns the cache key for a student's login session.
func (r *CacheKeyStruct) StudentLoginKey(studentID int) string {
	return fmt.Sprintf("login:%d", studentID)
}

// TestPayloadKey returns the cache key for a published test's student payload.
func (r *CacheKeyStruct) TestPayloadKey(testID string) string {
	return fmt.Sprintf("test:%s:payload", testID)
}

// TestAnswerKey returns the cache key for a test's answer key hash.
func (r *CacheKeyStruct) TestAnswerKey(testID string) string {
	return fmt.Sprintf("test:%s:key", testID)
}

// TestDurationKey returns the cache key for a test's parsed duration seconds.
func (r *CacheKeyStruct) TestDurationKey(testID string) string {
	return fmt.Sprintf("test:%s:duration", testID)
}

// StudentSessionStartKey returns the cache key for a student's attempt start time.
func (r *CacheKeyStruct) StudentSessionStartKey(testID string, studentID int) string {
	return fmt.Sprintf("student:%d:test:%s:session_start", studentID, testID)
}

var CacheKey = NewCacheKeyStruct()
