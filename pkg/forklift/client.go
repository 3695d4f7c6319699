// Package forklift talks to a Migration Toolkit for Virtualization
// deployment: the forklift inventory service for discovery and the cluster
// API server for creating NetworkMap, StorageMap, Plan and Migration
// resources under forklift.konveyor.io/v1beta1.
package forklift

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	defaultNamespace = "openshift-mtv"
	defaultTimeout   = 30 * time.Second

	apiGroupPrefix = "/apis/forklift.konveyor.io/v1beta1"
)

// ErrNotFound marks inventory or plan lookups with no match.
var ErrNotFound = errors.New("not found")

// APIError is a non-2xx response from the cluster or inventory API. The
// body excerpt is kept so the failure is actionable when it surfaces as a
// tool observation.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("API returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("API returned status %d: %s", e.StatusCode, e.Body)
}

// Config carries the cluster connection settings.
type Config struct {
	// APIURL is the cluster API server, e.g. "https://api.cluster:6443".
	APIURL string
	// InventoryURL is the forklift inventory route. A bare hostname is
	// accepted and normalized to https.
	InventoryURL string
	// Token is the bearer token used against both endpoints.
	Token string
	// Namespace hosts the forklift resources. Empty selects
	// "openshift-mtv".
	Namespace string
	// Insecure skips TLS certificate verification.
	Insecure bool
	// Timeout bounds each HTTP call. Zero selects 30s.
	Timeout time.Duration
}

// Client is an authenticated MTV client. It is safe for concurrent use.
type Client struct {
	logger       *slog.Logger
	httpClient   *http.Client
	apiURL       string
	inventoryURL string
	token        string
	namespace    string
}

// NewClient builds a client from the config. No connection is made; call
// Ping to verify reachability.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	namespace := cfg.Namespace
	if namespace == "" {
		namespace = defaultNamespace
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	transport := http.DefaultTransport
	if cfg.Insecure {
		t := http.DefaultTransport.(*http.Transport).Clone()
		t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
		transport = t
	}

	return &Client{
		logger:       logger.With(slog.String("component", "forklift")),
		httpClient:   &http.Client{Timeout: timeout, Transport: transport},
		apiURL:       strings.TrimRight(cfg.APIURL, "/"),
		inventoryURL: normalizeBaseURL(cfg.InventoryURL),
		token:        cfg.Token,
		namespace:    namespace,
	}
}

// Namespace returns the namespace the client creates resources in.
func (c *Client) Namespace() string { return c.namespace }

// Ping checks the cluster API /healthz endpoint.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"/healthz", nil)
	if err != nil {
		return fmt.Errorf("building health request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("cluster API unreachable: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
	if resp.StatusCode != http.StatusOK {
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if got := strings.TrimSpace(string(body)); got != "ok" {
		return fmt.Errorf("unexpected health response %q", got)
	}
	return nil
}

// Namespaces lists the namespaces visible to the token.
func (c *Client) Namespaces(ctx context.Context) ([]string, error) {
	var list struct {
		Items []struct {
			Metadata struct {
				Name string `json:"name"`
			} `json:"metadata"`
		} `json:"items"`
	}
	if err := c.get(ctx, c.apiURL+"/api/v1/namespaces", &list); err != nil {
		return nil, fmt.Errorf("listing namespaces: %w", err)
	}

	names := make([]string, 0, len(list.Items))
	for _, item := range list.Items {
		names = append(names, item.Metadata.Name)
	}
	return names, nil
}

// MissingNamespaces reports which of the required namespaces the token
// cannot see. An empty result means access is confirmed.
func (c *Client) MissingNamespaces(ctx context.Context, required []string) ([]string, error) {
	available, err := c.Namespaces(ctx)
	if err != nil {
		return nil, err
	}

	have := make(map[string]struct{}, len(available))
	for _, name := range available {
		have[name] = struct{}{}
	}

	missing := []string{}
	for _, name := range required {
		if _, ok := have[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing, nil
}

func (c *Client) resourceURL(plural string) string {
	return fmt.Sprintf("%s%s/namespaces/%s/%s", c.apiURL, apiGroupPrefix, c.namespace, plural)
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func (c *Client) get(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response from %s: %w", rawURL, err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, rawURL string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("POST %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response from %s: %w", rawURL, err)
	}
	return nil
}

func statusError(resp *http.Response) error {
	excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &APIError{
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(excerpt)),
	}
}

func normalizeBaseURL(raw string) string {
	raw = strings.TrimRight(raw, "/")
	if raw == "" || strings.Contains(raw, "://") {
		return raw
	}
	return "https://" + raw
}
