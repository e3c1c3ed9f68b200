package lead

import (
	"regexp"
	"strings"
)

var emailFormat = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Heuristic rejection patterns for addresses that pass the format check but
// are very unlikely to belong to a real prospect.
var invalidEmailPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^[0-9]+@`),            // numeric-only local part
	regexp.MustCompile(`@.*\d{4}`),            // 4+ digit run in the domain
	regexp.MustCompile(`\.{2}`),               // consecutive dots
	regexp.MustCompile(`[^a-zA-Z]@[^a-zA-Z]`), // non-letters on both sides of @
	regexp.MustCompile(`^test@|@test\.`),      // test addresses
	regexp.MustCompile(`(?i)example|dummy|fake|temporary`),
	regexp.MustCompile(`[0-9]{10}`), // 10+ digit run anywhere
}

// SanitizeEmail normalizes an address for validation and submission.
func SanitizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsValidEmail applies the format check plus the heuristic filters.
func IsValidEmail(email string) bool {
	if !emailFormat.MatchString(email) {
		return false
	}
	for _, pattern := range invalidEmailPatterns {
		if pattern.MatchString(email) {
			return false
		}
	}
	return true
}
