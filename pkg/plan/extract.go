package plan

import (
	"encoding/json"
	"fmt"
	"strings"
)

// answerPrefix is the lead-in some models put before the payload.
const answerPrefix = "I have the answer: "

// StripAnswerPrefix removes the conversational lead-in when present.
func StripAnswerPrefix(s string) string {
	return strings.TrimPrefix(s, answerPrefix)
}

// ExtractJSON returns the first complete JSON array or object embedded in
// the text. Models occasionally wrap the payload in prose or markdown
// fences; everything before the first bracket and after the matching close
// is discarded.
func ExtractJSON(text string) ([]byte, error) {
	s := StripAnswerPrefix(strings.TrimSpace(text))

	start := strings.IndexAny(s, "[{")
	if start < 0 {
		return nil, fmt.Errorf("no JSON array or object found")
	}

	dec := json.NewDecoder(strings.NewReader(s[start:]))
	var value json.RawMessage
	if err := dec.Decode(&value); err != nil {
		return nil, fmt.Errorf("embedded JSON is not well formed: %w", err)
	}
	return value, nil
}
