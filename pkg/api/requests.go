package api

// maxRequestBytes caps the POST /api/v1/tasks body. Task requests are
// short natural-language briefs; anything larger is rejected with 413.
const maxRequestBytes = 256 << 10

// SubmitTaskRequest is the HTTP request body for POST /api/v1/tasks.
type SubmitTaskRequest struct {
	// Agent names the agent to run. Empty selects the configured default.
	Agent string `json:"agent"`

	// Request is the natural-language task brief. Required.
	Request string `json:"request" binding:"required"`
}
