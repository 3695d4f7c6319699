package prompt

import (
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/konveyor-ecosystem/migsy/pkg/agent"
)

// timestampLayout is the wall-clock format embedded in system prompts.
const timestampLayout = "2006-01-02 15:04:05.000"

// TemplateError reports a prompt that could not be rendered, either because
// a required value was empty or a placeholder had nothing to substitute.
type TemplateError struct {
	Err error
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("prompt template: %v", e.Err)
}

func (e *TemplateError) Unwrap() error { return e.Err }

// Builder renders system and user prompts. The zero value is not usable,
// construct with NewBuilder.
type Builder struct {
	clock  func() time.Time
	system *template.Template
	user   *template.Template
}

// NewBuilder parses the prompt templates. A nil clock defaults to time.Now,
// tests inject a fixed clock to pin the rendered timestamp.
func NewBuilder(clock func() time.Time) (*Builder, error) {
	if clock == nil {
		clock = time.Now
	}
	system, err := template.New("system").Option("missingkey=error").Parse(systemTemplate)
	if err != nil {
		return nil, fmt.Errorf("parsing system template: %w", err)
	}
	user, err := template.New("user").Option("missingkey=error").Parse(userTemplate)
	if err != nil {
		return nil, fmt.Errorf("parsing user template: %w", err)
	}
	return &Builder{clock: clock, system: system, user: user}, nil
}

// BuildSystemPrompt renders the system message for an agent role and its
// tool descriptors. The role text is required.
func (b *Builder) BuildSystemPrompt(role string, tools []agent.ToolDescriptor) (string, error) {
	if strings.TrimSpace(role) == "" {
		return "", &TemplateError{Err: fmt.Errorf("role instructions are empty")}
	}
	data := map[string]string{
		"role":              role,
		"tools_name":        ToolNames(tools),
		"tools_description": FormatToolDescriptions(tools),
		"datetime":          b.clock().UTC().Format(timestampLayout) + " UTC",
	}
	var sb strings.Builder
	if err := b.system.Execute(&sb, data); err != nil {
		return "", &TemplateError{Err: err}
	}
	return sb.String(), nil
}

// BuildUserPrompt renders the user message from the task request and the
// conversation turns that follow it. Assistant directives and observations
// are appended verbatim so the model sees its prior output exactly as it
// produced it.
func (b *Builder) BuildUserPrompt(request string, history []agent.ConversationMessage) (string, error) {
	if strings.TrimSpace(request) == "" {
		return "", &TemplateError{Err: fmt.Errorf("task request is empty")}
	}
	data := map[string]string{
		"user_prompt":      request,
		"agent_scratchpad": formatScratchpad(history),
	}
	var sb strings.Builder
	if err := b.user.Execute(&sb, data); err != nil {
		return "", &TemplateError{Err: err}
	}
	return sb.String(), nil
}

func formatScratchpad(history []agent.ConversationMessage) string {
	if len(history) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, msg := range history {
		sb.WriteString("\n")
		sb.WriteString(msg.Content)
	}
	return sb.String()
}
