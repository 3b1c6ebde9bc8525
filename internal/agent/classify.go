package agent

import "strings"

// ErrorClass decides the recovery strategy for a failed tool call.
type ErrorClass string

const (
	// ErrorUnrecoverable aborts the run; no recovery spend is justified.
	ErrorUnrecoverable ErrorClass = "unrecoverable"
	// ErrorRateLimit flags throttling; callers may back off, the engine
	// otherwise treats it like a recoverable failure.
	ErrorRateLimit ErrorClass = "rate_limit"
	// ErrorRecoverable is the default: worth a fallback or a replan.
	ErrorRecoverable ErrorClass = "recoverable"
)

// Pattern order matters: unrecoverable conditions win over rate-limit
// signatures that might co-occur in the same message.
var unrecoverablePatterns = []string{
	"invalid cik format",
	"authentication failed",
	"network unreachable",
	"invalid tool",
	"method not found",
}

var rateLimitPatterns = []string{
	"rate limit",
	"429",
	"too many requests",
	"quota exceeded",
}

// ClassifyError categorizes a failure message by case-insensitive
// substring matching.
func ClassifyError(message string) ErrorClass {
	lower := strings.ToLower(message)

	for _, p := range unrecoverablePatterns {
		if strings.Contains(lower, p) {
			return ErrorUnrecoverable
		}
	}
	for _, p := range rateLimitPatterns {
		if strings.Contains(lower, p) {
			return ErrorRateLimit
		}
	}
	return ErrorRecoverable
}
