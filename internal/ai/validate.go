package ai

import (
	"fmt"
	"regexp"

	"github.com/cenktekin/todoist-subtask-generator/pkg/models"
)

// dueDateRe bounds month and day digits so values like 2025-13-40 fail
// the pattern, without attempting calendar validity.
var dueDateRe = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])-(0[1-9]|[12]\d|3[01])$`)

// ValidateResponse checks a parsed generation response before it is
// used. Violations are rejected, not coerced: a bad field fails the
// whole attempt so the caller can regenerate.
func ValidateResponse(resp *models.GenerationResponse) error {
	if len(resp.Subtasks) == 0 {
		return fmt.Errorf("missing or empty subtasks array")
	}
	for i, st := range resp.Subtasks {
		if st.Content == "" {
			return fmt.Errorf("subtask %d: missing content", i)
		}
		if st.Due != "" && !dueDateRe.MatchString(st.Due) {
			return fmt.Errorf("subtask %d: invalid due date format %q", i, st.Due)
		}
		if st.Priority != 0 && (st.Priority < 1 || st.Priority > 4) {
			return fmt.Errorf("subtask %d: invalid priority %d", i, st.Priority)
		}
	}
	return nil
}
