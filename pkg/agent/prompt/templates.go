// Package prompt builds the system and user messages for agent runs. The
// output is deterministic: two calls with the same role, tool list, and
// clock produce byte-identical prompts.
package prompt

// systemTemplate renders the system message. Placeholders are filled from a
// data map; a missing key fails the render rather than leaving a gap.
const systemTemplate = `Tools: {{.tools_name}}
Current Date: {{.datetime}}

{{.role}}

All outputs must strictly be a single JSON object. Do not emit prose, markdown
fences, or multiple objects in one reply.

## Tools

You have access to the following tools:

{{.tools_description}}

## Output Format

To call a tool, reply with exactly one JSON object:

{"thought": "reasoning about the next step", "action": "tool name", "action_input": {"parameter": "value"}}

The user then replies with the tool result:

{"observation": "tool result"}

Repeat until you can answer the task, then reply with:

{"answer": "I have the answer: the final answer to the task"}

If none of the tools can help with the task, reply with:

{"answer": "Sorry, I cannot answer your query."}

### Remember:

- Once you have enough information to answer, reply with the answer object and no further tool calls.
- "action_input" keys and value types must match the tool's declared parameters exactly.
- Do not add keys beyond "thought", "action", and "action_input" to a tool call.
- Emit exactly one JSON object per reply.`

// userTemplate renders the user message. The scratchpad carries the
// conversation so far, one turn per line, and is empty on the first call.
const userTemplate = `Task: {{.user_prompt}}
{{.agent_scratchpad}}`
