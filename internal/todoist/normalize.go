package todoist

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// wrappedList is the paginated response shape some Todoist endpoints
// return instead of a plain array.
type wrappedList[T any] struct {
	Results    []T    `json:"results"`
	NextCursor string `json:"next_cursor"`
}

// NormalizeList decodes a list endpoint's body, which arrives either as
// a plain JSON array or as an object wrapping a "results" array with an
// opaque pagination cursor. Both shapes collapse to (items, cursor);
// the cursor is empty for the plain-array shape and on the last page.
func NormalizeList[T any](raw []byte) ([]T, string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, "", nil
	}

	switch trimmed[0] {
	case '[':
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, "", fmt.Errorf("todoist: decode list: %w", err)
		}
		return items, "", nil
	case '{':
		var wrapped wrappedList[T]
		if err := json.Unmarshal(trimmed, &wrapped); err != nil {
			return nil, "", fmt.Errorf("todoist: decode paginated list: %w", err)
		}
		return wrapped.Results, wrapped.NextCursor, nil
	default:
		return nil, "", fmt.Errorf("todoist: unexpected list shape starting with %q", trimmed[0])
	}
}
