// Package jsonrepair recovers usable JSON objects from imperfect model
// output: markdown code fences, surrounding commentary, trailing commas,
// and responses truncated mid-structure by a token limit.
//
// Repair is an ordered pipeline of fallback strategies: strip fences,
// extract the balanced root object, strip trailing commas, parse, balance
// unclosed braces/brackets/quotes, then progressively trim the tail. Each
// stage is exported so it can be tested on its own.
package jsonrepair

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

// ErrNoObject is returned when the input contains no '{' at all.
var ErrNoObject = errors.New("no JSON object boundaries found")

var (
	fenceOpenRe     = regexp.MustCompile("(?i)```json\\s*")
	trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)
	danglingOpenRe  = regexp.MustCompile(`[\[{,]$`)
)

// maxTrimAttempts bounds the progressive tail-trimming pass.
const maxTrimAttempts = 150

// minCandidateLen is the shortest candidate the trimming pass will try.
const minCandidateLen = 20

// StripFences removes markdown code-fence markers anywhere in the text.
func StripFences(raw string) string {
	content := fenceOpenRe.ReplaceAllString(raw, "")
	content = strings.ReplaceAll(content, "```", "")
	return strings.TrimSpace(content)
}

// ExtractObject locates the root JSON object in arbitrary text. It strips
// code fences, scans from the first '{' tracking brace depth and quoted
// strings (honoring backslash escapes), and returns the balanced root with
// trailing commentary discarded. If the nesting never returns to zero the
// text is treated as truncated and everything from the first '{' onward is
// kept so that Balance can close it. Trailing commas before '}' or ']' are
// removed in either case.
func ExtractObject(raw string) (string, error) {
	content := StripFences(raw)

	first := strings.IndexByte(content, '{')
	if first == -1 {
		return "", ErrNoObject
	}

	depth := 0
	inString := false
	escape := false
	end := -1
scan:
	for i := first; i < len(content); i++ {
		ch := content[i]
		if inString {
			switch {
			case escape:
				escape = false
			case ch == '\\':
				escape = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				end = i
				break scan
			}
		}
	}

	if end == -1 {
		// Truncated mid-structure; keep the remainder for repair.
		content = content[first:]
	} else {
		content = content[first : end+1]
	}

	return strings.TrimSpace(StripTrailingCommas(content)), nil
}

// StripTrailingCommas removes commas that appear immediately before a
// closing brace or bracket, a common defect in clipped generations.
func StripTrailingCommas(s string) string {
	return trailingCommaRe.ReplaceAllString(s, "$1")
}

// Balance appends the closing braces, brackets, and quote a truncated
// document is missing. Counting is naive (it does not skip string
// contents), which matches what clipped model output needs in practice.
func Balance(s string) string {
	if n := strings.Count(s, "{") - strings.Count(s, "}"); n > 0 {
		s += strings.Repeat("}", n)
	}
	if n := strings.Count(s, "[") - strings.Count(s, "]"); n > 0 {
		s += strings.Repeat("]", n)
	}
	if strings.Count(s, `"`)%2 == 1 {
		s += `"`
	}
	return s
}

// SafeParse extracts and repairs a JSON object from raw text, unmarshaling
// it into v. Strategies are tried in order: direct parse, trailing-comma
// strip plus balancing, then progressive tail trimming with re-balancing
// after each cut. The last parse error is returned if nothing succeeds.
func SafeParse(raw string, v any) error {
	prepared, err := ExtractObject(raw)
	if err != nil {
		return err
	}

	if err = json.Unmarshal([]byte(prepared), v); err == nil {
		return nil
	}

	prepared = Balance(StripTrailingCommas(prepared))
	if err = json.Unmarshal([]byte(prepared), v); err == nil {
		return nil
	}

	// Trim the tail one character at a time; each candidate drops any
	// dangling opener or comma the cut exposed, then re-balances.
	for trim := 1; trim <= maxTrimAttempts && len(prepared)-trim > minCandidateLen; trim++ {
		candidate := strings.TrimSpace(prepared[:len(prepared)-trim])
		candidate = danglingOpenRe.ReplaceAllString(candidate, "")
		candidate = Balance(candidate)
		if err2 := json.Unmarshal([]byte(candidate), v); err2 == nil {
			return nil
		}
	}

	if err2 := json.Unmarshal([]byte(Balance(prepared)), v); err2 != nil {
		return err2
	}
	return nil
}
