package recurrence

import (
	"fmt"
	"strings"

	"github.com/teambition/rrule-go"
)

// ValidateRule checks ruleText against a strict RFC 5545 parser. It exists
// for diagnostics only: admin workflows use it to flag stored rules that
// drifted from the standard format. Occurrence generation never consults it
// and stays lenient regardless of the result. An empty rule is valid.
func ValidateRule(ruleText string) error {
	text := strings.TrimPrefix(strings.TrimSpace(ruleText), "RRULE:")
	if text == "" {
		return nil
	}

	if _, err := rrule.StrToRRule(text); err != nil {
		return fmt.Errorf("invalid recurrence rule %q: %w", ruleText, err)
	}
	return nil
}
