package response

// ErrCode is a typed error code for consistent API error identification.
type ErrCode string

const (
	// Authentication
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrSessionActive      ErrCode = "SESSION_ALREADY_ACTIVE"
	ErrSessionInvalidated ErrCode = "SESSION_INVALIDATED"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"
	ErrTokenExpired       ErrCode = "TOKEN_EXPIRED"

	// Authorization
	ErrForbidden         ErrCode = "FORBIDDEN"
	ErrStudentAccessOnly ErrCode = "STUDENT_ACCESS_ONLY"
	ErrAdminAccessOnly   ErrCode = "ADMIN_ACCESS_ONLY"

	// Validation
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// Resources
	ErrNotFound        ErrCode = "NOT_FOUND"
	ErrConflict        ErrCode = "CONFLICT"
	ErrActionForbidden ErrCode = "ACTION_FORBIDDEN"

	// Test-taking
	ErrTestNotAvailable  ErrCode = "TEST_NOT_AVAILABLE"
	ErrTestNotPublished  ErrCode = "TEST_NOT_PUBLISHED"
	ErrTestNotDraft      ErrCode = "TEST_NOT_DRAFT"
	ErrTestCompleted     ErrCode = "TEST_ALREADY_COMPLETED"
	ErrNotTestAuthor     ErrCode = "NOT_TEST_AUTHOR"
	ErrNoQuestions       ErrCode = "NO_QUESTIONS"
	ErrNoCorrectOption   ErrCode = "NO_CORRECT_OPTION"
	ErrSessionNotStarted ErrCode = "SESSION_NOT_STARTED"

	// Rate limiting
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// Server
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns the human-readable message for an error code.
func GetMessage(code ErrCode) string {
	switch code {
	case ErrInvalidCredentials:
		return "Email or password is incorrect."
	case ErrSessionActive:
		return "You are already logged in on another device."
	case ErrSessionInvalidated:
		return "Your session has ended. Please log in again."
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid."
	case ErrTokenExpired:
		return "The authentication token has expired."

	case ErrForbidden:
		return "You do not have permission to access this resource."
	case ErrStudentAccessOnly:
		return "This resource is restricted to students."
	case ErrAdminAccessOnly:
		return "This resource is restricted to administrators."

	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "The ID format is invalid."
	case ErrInvalidPayload:
		return "The request payload is invalid."

	case ErrNotFound:
		return "The resource was not found."
	case ErrConflict:
		return "The resource already exists."
	case ErrActionForbidden:
		return "This action is not allowed."

	case ErrTestNotAvailable:
		return "This test is not available right now."
	case ErrTestNotPublished:
		return "This test has not been published."
	case ErrTestNotDraft:
		return "This test is not in DRAFT status."
	case ErrTestCompleted:
		return "You have already completed this test."
	case ErrNotTestAuthor:
		return "You are not the author of this test."
	case ErrNoQuestions:
		return "This test has no questions."
	case ErrNoCorrectOption:
		return "Every question must have exactly one correct option."
	case ErrSessionNotStarted:
		return "No active test session was found."

	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
