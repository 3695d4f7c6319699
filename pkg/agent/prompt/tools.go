package prompt

import (
	"fmt"
	"sort"
	"strings"

	"github.com/konveyor-ecosystem/migsy/pkg/agent"
)

// FormatToolDescriptions renders tool descriptors as a numbered markdown
// list. Parameters are sorted by name so the rendering is stable.
func FormatToolDescriptions(tools []agent.ToolDescriptor) string {
	if len(tools) == 0 {
		return "No tools available."
	}
	var sb strings.Builder
	for i, tool := range tools {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "%d. **%s**: %s", i+1, tool.Name, tool.Description)
		if len(tool.Parameters) == 0 {
			sb.WriteString("\n   **Parameters**: None")
			continue
		}
		sb.WriteString("\n   **Parameters**:")
		names := make([]string, 0, len(tool.Parameters))
		for name := range tool.Parameters {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			p := tool.Parameters[name]
			requirement := "optional"
			if p.Required {
				requirement = "required"
			}
			fmt.Fprintf(&sb, "\n   - %s (%s, %s): %s", name, requirement, p.Type, p.Description)
		}
	}
	return sb.String()
}

// ToolNames joins tool names with commas for the prompt header.
func ToolNames(tools []agent.ToolDescriptor) string {
	if len(tools) == 0 {
		return "none"
	}
	names := make([]string, len(tools))
	for i, tool := range tools {
		names[i] = tool.Name
	}
	return strings.Join(names, ", ")
}
