package controller

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/konveyor-ecosystem/migsy/pkg/agent"
)

// ActionKind tags a parsed model directive.
type ActionKind string

const (
	ActionToolCall    ActionKind = "tool_call"
	ActionFinalAnswer ActionKind = "final_answer"
)

// Action is the parsed form of one model response: either a tool call or a
// final answer. Transient, consumed by the loop and never stored.
type Action struct {
	Kind    ActionKind
	Thought string

	// Tool call fields.
	Tool  string
	Input map[string]any

	// Final answer text.
	Answer string
}

// ParseError reports a model response that does not satisfy the output
// contract. Reason is written for the model: it is fed back verbatim inside
// the corrective observation.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string { return e.Reason }

// ParseAction parses a raw model response into a directive. The contract
// asks for a single bare JSON object, but the parser is deliberately
// forgiving: fenced blocks and surrounding prose are tolerated as long as
// one directive object can be recovered. When a response carries both a
// tool call and an answer the tool call wins, because an answer is terminal
// and nothing may follow it.
func ParseAction(text string) (*Action, error) {
	raw, ok := extractObject(text)
	if !ok {
		return nil, &ParseError{Reason: "your last response was not valid JSON; respond only with the specified JSON object"}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, &ParseError{Reason: "your last response was not a JSON object; respond only with the specified JSON object"}
	}

	action := &Action{}
	if rawThought, ok := fields["thought"]; ok {
		// Advisory. A non-string thought is tolerated and dropped.
		_ = json.Unmarshal(rawThought, &action.Thought)
	}

	rawTool, hasTool := fields["action"]
	rawInput, hasInput := fields["action_input"]
	rawAnswer, hasAnswer := fields["answer"]

	if hasTool {
		if err := json.Unmarshal(rawTool, &action.Tool); err != nil {
			return nil, &ParseError{Reason: `"action" must be a string naming a tool`}
		}
		action.Tool = strings.TrimSpace(action.Tool)
		if action.Tool == "" {
			return nil, &ParseError{Reason: `"action" must name a tool; it was empty`}
		}
		if !hasInput {
			return nil, &ParseError{Reason: `the response has "action" but no "action_input"; include "action_input" as a JSON object, {} when the tool takes no parameters`}
		}
		if err := json.Unmarshal(rawInput, &action.Input); err != nil {
			return nil, &ParseError{Reason: `"action_input" must be a JSON object mapping parameter names to values`}
		}
		if action.Input == nil {
			action.Input = map[string]any{}
		}
		action.Kind = ActionToolCall
		return action, nil
	}

	if hasInput {
		return nil, &ParseError{Reason: `the response has "action_input" but no "action"; include "action" naming the tool to call`}
	}

	if hasAnswer {
		if err := json.Unmarshal(rawAnswer, &action.Answer); err != nil {
			return nil, &ParseError{Reason: `"answer" must be a string`}
		}
		if strings.TrimSpace(action.Answer) == "" {
			return nil, &ParseError{Reason: `"answer" was empty; provide the final answer text`}
		}
		action.Kind = ActionFinalAnswer
		return action, nil
	}

	return nil, &ParseError{Reason: fmt.Sprintf(
		`the response object has keys [%s] but neither a tool call ("action" + "action_input") nor a final answer ("answer")`,
		keyList(fields))}
}

// extractObject returns the first JSON object recoverable from text. The
// whole trimmed body is tried first; after that, every '{' position is
// tried as the start of a single decodable value. Fenced code blocks fall
// out of the second pass without special handling.
func extractObject(text string) (json.RawMessage, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, false
	}

	var raw json.RawMessage
	if err := json.Unmarshal([]byte(trimmed), &raw); err == nil && len(raw) > 0 && raw[0] == '{' {
		return raw, true
	}

	for idx := 0; idx < len(trimmed); {
		brace := strings.IndexByte(trimmed[idx:], '{')
		if brace < 0 {
			break
		}
		start := idx + brace
		if raw, ok := decodeObject(trimmed[start:]); ok {
			return raw, true
		}
		idx = start + 1
	}
	return nil, false
}

// decodeObject decodes exactly one JSON object from the front of s,
// ignoring anything after it.
func decodeObject(s string) (json.RawMessage, bool) {
	dec := json.NewDecoder(strings.NewReader(s))
	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return nil, false
	}
	if len(raw) == 0 || raw[0] != '{' {
		return nil, false
	}
	return raw, true
}

func keyList(fields map[string]json.RawMessage) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return strings.Join(keys, ", ")
}

// formatReminder restates the output contract for corrective observations.
const formatReminder = `Respond with exactly one JSON object and nothing else:
- tool call: {"thought": "...", "action": "<tool name>", "action_input": {...}}
- final answer: {"answer": "..."}`

// wrapObservation renders observation content in the wire shape the model
// was promised in the system prompt.
func wrapObservation(content string) string {
	b, err := json.Marshal(map[string]string{"observation": content})
	if err != nil {
		return fmt.Sprintf(`{"observation": %q}`, content)
	}
	return string(b)
}

// renderValue renders a tool result value for the observation turn. Strings
// pass through untouched; everything else is marshaled.
func renderValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return t
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	}
}

// FormatObservation formats a tool result, success or failure, as the next
// observation turn.
func FormatObservation(result *agent.ToolResult) string {
	if result == nil {
		return wrapObservation("Error - no tool result available")
	}
	if result.IsError() {
		return wrapObservation(fmt.Sprintf("Error executing %s: %s", result.Name, result.ErrorMessage))
	}
	return wrapObservation(renderValue(result.Value))
}

// FormatDispatchError formats a registry-level rejection as a corrective
// observation. Unknown names get the full tool listing so the model can
// pick a real one; input violations are already enumerated field by field
// in the error itself.
func FormatDispatchError(err error, tools []agent.ToolDescriptor) string {
	var unknown *agent.UnknownToolError
	if errors.As(err, &unknown) {
		var sb strings.Builder
		fmt.Fprintf(&sb, "Error - unknown tool %q.", unknown.Name)
		if len(tools) == 0 {
			sb.WriteString(" No tools are currently available.")
		} else {
			sb.WriteString(" Available tools:")
			for _, tool := range tools {
				fmt.Fprintf(&sb, "\n  - %s: %s", tool.Name, tool.Description)
			}
		}
		return wrapObservation(sb.String())
	}
	return wrapObservation(fmt.Sprintf("Error - %s. Correct the request and try again.", err))
}

// FormatParseCorrection formats a parse failure as a corrective observation.
func FormatParseCorrection(err *ParseError) string {
	return wrapObservation(fmt.Sprintf("FORMAT ERROR: %s\n%s", err.Reason, formatReminder))
}

// FormatSchemaViolation formats an output-schema failure on a final answer.
func FormatSchemaViolation(err error) string {
	return wrapObservation(fmt.Sprintf(
		"Error - your answer did not validate against the required output schema: %s. Respond again with {\"answer\": \"...\"} whose answer text satisfies the schema.", err))
}
