// Package llm implements the Ollama-style HTTP client used for all model
// calls. The contract is a single POST to /api/generate with stream:false;
// the reply must expose a "response" text field.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/konveyor-ecosystem/migsy/pkg/agent"
	"github.com/konveyor-ecosystem/migsy/pkg/version"
)

const (
	defaultEndpoint = "http://localhost:11434"
	defaultTimeout  = 120 * time.Second

	// bodyExcerptLimit caps error-body excerpts so a misconfigured endpoint
	// returning an HTML page doesn't flood logs and observations.
	bodyExcerptLimit = 512
)

// Config holds the model endpoint settings. Zero values fall back to the
// local Ollama defaults.
type Config struct {
	// Endpoint is the base URL, e.g. "http://localhost:11434".
	Endpoint string
	Model    string

	Temperature       float64
	TopP              float64
	TopK              int
	RepetitionPenalty float64
	Stop              []string

	// Timeout is the per-call deadline applied when the caller's context
	// carries none.
	Timeout time.Duration
}

// Client talks to the model endpoint. It holds no per-call mutable state and
// is safe for concurrent use by independent runs.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a model client. A nil logger disables logging.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultEndpoint
	}
	cfg.Endpoint = strings.TrimRight(cfg.Endpoint, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	// Zero-valued knobs take the neutral settings; zero temperature stays,
	// planning wants greedy decoding.
	if cfg.TopP == 0 {
		cfg.TopP = 1
	}
	if cfg.RepetitionPenalty == 0 {
		cfg.RepetitionPenalty = 1
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		logger: logger.With(slog.String("component", "llm")),
	}
}

// generatePayload is the /api/generate request body. Sampling knobs ride at
// the top level, matching the runtime's generate API.
type generatePayload struct {
	Model             string   `json:"model"`
	Format            string   `json:"format"`
	Prompt            string   `json:"prompt"`
	System            string   `json:"system"`
	Stream            bool     `json:"stream"`
	Temperature       float64  `json:"temperature"`
	TopP              float64  `json:"top_p"`
	TopK              int      `json:"top_k"`
	RepetitionPenalty float64  `json:"repetition_penalty"`
	Stop              []string `json:"stop,omitempty"`
}

// generateResponse is the subset of the /api/generate reply we consume.
type generateResponse struct {
	Model           string  `json:"model"`
	Response        *string `json:"response"`
	Done            bool    `json:"done"`
	PromptEvalCount int     `json:"prompt_eval_count"`
	EvalCount       int     `json:"eval_count"`
}

// Generate implements agent.LLMClient. The model is asked for JSON output
// (format:"json"), which is what the directive contract expects.
func (c *Client) Generate(ctx context.Context, req agent.GenerateRequest) (*agent.Completion, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	payload := generatePayload{
		Model:             c.cfg.Model,
		Format:            "json",
		Prompt:            req.Prompt,
		System:            req.System,
		Stream:            false,
		Temperature:       c.cfg.Temperature,
		TopP:              c.cfg.TopP,
		TopK:              c.cfg.TopK,
		RepetitionPenalty: c.cfg.RepetitionPenalty,
		Stop:              c.cfg.Stop,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal generate payload: %w", err)
	}

	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build generate request: %w", err)
	}
	hreq.Header.Set("Content-Type", "application/json")
	hreq.Header.Set("User-Agent", version.Full())

	start := time.Now()
	resp, err := c.httpClient.Do(hreq)
	if err != nil {
		// Keep context errors matchable through the chain; everything else
		// at this level is a connection problem.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("model call: %w", ctxErr)
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: readExcerpt(resp.Body)}
	}

	var gen generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&gen); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if gen.Response == nil {
		return nil, fmt.Errorf("%w: body has no response field", ErrMalformedResponse)
	}
	if strings.TrimSpace(*gen.Response) == "" {
		return nil, fmt.Errorf("%w: empty response field", ErrMalformedResponse)
	}

	c.logger.Debug("model call completed",
		slog.String("model", c.cfg.Model),
		slog.Duration("duration", time.Since(start)),
		slog.Int("prompt_tokens", gen.PromptEvalCount),
		slog.Int("output_tokens", gen.EvalCount))

	return &agent.Completion{
		Text:         *gen.Response,
		PromptTokens: gen.PromptEvalCount,
		OutputTokens: gen.EvalCount,
	}, nil
}

// Ping checks endpoint reachability via /api/tags. Used by the health
// handler and at startup; never by the loop itself.
func (c *Client) Ping(ctx context.Context) error {
	hreq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.Endpoint+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("build ping request: %w", err)
	}
	hreq.Header.Set("User-Agent", version.Full())

	resp, err := c.httpClient.Do(hreq)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &StatusError{StatusCode: resp.StatusCode, Body: readExcerpt(resp.Body)}
	}
	return nil
}

// Model returns the configured model name (for logs and system info).
func (c *Client) Model() string { return c.cfg.Model }

func readExcerpt(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, bodyExcerptLimit))
	return strings.TrimSpace(string(b))
}
