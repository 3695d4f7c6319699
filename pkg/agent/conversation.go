package agent

// Conversation roles. The transcript is an explicit append-only log owned
// by the run, never framework-hidden state, so runs are replayable in tests.
const (
	RoleSystem      = "system"
	RoleUser        = "user"
	RoleAssistant   = "assistant"
	RoleObservation = "observation"
)

// ConversationMessage is one turn of a run's transcript.
type ConversationMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// AgentState is the per-run mutable loop state. Created per run, mutated
// only by the loop controller, discarded at completion. Never shared
// between runs.
type AgentState struct {
	History         []ConversationMessage
	LastObservation string
	IterationCount  int
}

// NewAgentState seeds the state with the user's request as the first turn.
func NewAgentState(request string) *AgentState {
	return &AgentState{
		History: []ConversationMessage{{Role: RoleUser, Content: request}},
	}
}

// Append adds a turn to the history and tracks the last observation.
func (s *AgentState) Append(role, content string) {
	s.History = append(s.History, ConversationMessage{Role: role, Content: content})
	if role == RoleObservation {
		s.LastObservation = content
	}
}

// Snapshot returns a copy of the history safe to hand outside the run.
func (s *AgentState) Snapshot() []ConversationMessage {
	out := make([]ConversationMessage, len(s.History))
	copy(out, s.History)
	return out
}
