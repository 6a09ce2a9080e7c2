package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hangxie/luna-browser/model"
)

// AugurClient is an HTTP client for the Augur API
type AugurClient struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// Option configures an AugurClient
type Option func(*AugurClient)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(a *AugurClient) {
		if c != nil {
			a.client = c
		}
	}
}

// WithTimeout bounds every request; zero means no limit
func WithTimeout(d time.Duration) Option {
	return func(a *AugurClient) {
		a.client.Timeout = d
	}
}

// WithLogger sets the logger used for per-request debug output
func WithLogger(l *slog.Logger) Option {
	return func(a *AugurClient) {
		if l != nil {
			a.logger = l
		}
	}
}

// NewAugurClient creates a client for the Augur instance at baseURL. An empty
// baseURL is allowed; every call then fails with ErrHostNotConfigured.
func NewAugurClient(baseURL string, opts ...Option) *AugurClient {
	c := &AugurClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the Augur host requests are sent to
func (c *AugurClient) BaseURL() string {
	return c.baseURL
}

// Providers lists imagery providers
func (c *AugurClient) Providers(ctx context.Context) (any, error) {
	var out any
	err := c.Get(ctx, "/api/providers/", &out)
	return out, err
}

// ProviderIntegrations lists provider integrations
func (c *AugurClient) ProviderIntegrations(ctx context.Context) (any, error) {
	var out any
	err := c.Get(ctx, "/api/providers/integrations", &out)
	return out, err
}

// Imagery lists stored areas of interest
func (c *AugurClient) Imagery(ctx context.Context) (any, error) {
	var out any
	err := c.Get(ctx, "/api/core/location", &out)
	return out, err
}

// ImageryByID retrieves one area of interest
func (c *AugurClient) ImageryByID(ctx context.Context, id string) (any, error) {
	var out any
	err := c.Get(ctx, "/api/core/location/id/"+url.PathEscape(id), &out)
	return out, err
}

// CreateImagery registers a new area of interest
func (c *AugurClient) CreateImagery(ctx context.Context, req model.CreateImageryRequest) (any, error) {
	var out any
	err := c.Post(ctx, "/api/core/location/create", req, &out)
	return out, err
}

// ArchiveFinders lists archive finders
func (c *AugurClient) ArchiveFinders(ctx context.Context) (any, error) {
	var out any
	err := c.Get(ctx, "/api/archive/finder", &out)
	return out, err
}

// ArchiveFinderByID retrieves one archive finder
func (c *AugurClient) ArchiveFinderByID(ctx context.Context, id string) (any, error) {
	var out any
	err := c.Get(ctx, "/api/imagery/finder/id/"+url.PathEscape(id), &out)
	return out, err
}

// CreateArchiveFinder creates an archive finder
func (c *AugurClient) CreateArchiveFinder(ctx context.Context, req model.CreateFinderRequest) (any, error) {
	var out any
	err := c.Post(ctx, "/api/archive/finder/create", req, &out)
	return out, err
}

// ExecuteStudy runs a study against an archive finder
func (c *AugurClient) ExecuteStudy(ctx context.Context, req model.ExecuteStudyRequest) (any, error) {
	var out any
	err := c.Post(ctx, "/api/imagery/study/execute", req, &out)
	return out, err
}

// StudyResults retrieves the results of a study run
func (c *AugurClient) StudyResults(ctx context.Context, study, id string) (any, error) {
	var out any
	err := c.Get(ctx, fmt.Sprintf("/api/imagery/study/%s/%s/results/", url.PathEscape(study), url.PathEscape(id)), &out)
	return out, err
}

// StudyStatus retrieves the progress of a study run
func (c *AugurClient) StudyStatus(ctx context.Context, study, id string) (any, error) {
	var out any
	err := c.Get(ctx, fmt.Sprintf("/api/archive/study/%s/%s/status", url.PathEscape(study), url.PathEscape(id)), &out)
	return out, err
}

// FeasibilityFinders lists feasibility finders
func (c *AugurClient) FeasibilityFinders(ctx context.Context) (any, error) {
	var out any
	err := c.Get(ctx, "/api/feasibility/finders", &out)
	return out, err
}

// FeasibilityFinderByID retrieves one feasibility finder
func (c *AugurClient) FeasibilityFinderByID(ctx context.Context, id string) (any, error) {
	var out any
	err := c.Get(ctx, "/api/feasibility/finders/id/"+url.PathEscape(id), &out)
	return out, err
}

// CreateFeasibilityFinder creates a feasibility finder
func (c *AugurClient) CreateFeasibilityFinder(ctx context.Context, req model.CreateFinderRequest) (any, error) {
	var out any
	err := c.Post(ctx, "/api/feasibility/finders/create", req, &out)
	return out, err
}

// ExecuteFeasibilityFinder runs a feasibility finder; body is passed through
func (c *AugurClient) ExecuteFeasibilityFinder(ctx context.Context, body any) (any, error) {
	var out any
	err := c.Post(ctx, "/api/feasibility/finders/execute", body, &out)
	return out, err
}

// FeasibilityResults lists all feasibility results
func (c *AugurClient) FeasibilityResults(ctx context.Context) (any, error) {
	var out any
	err := c.Get(ctx, "/api/feasibility/results", &out)
	return out, err
}

// FeasibilityResultsByFinder lists the results of one feasibility finder
func (c *AugurClient) FeasibilityResultsByFinder(ctx context.Context, id string) (any, error) {
	var out any
	err := c.Get(ctx, "/api/feasibility/results/id/finder/"+url.PathEscape(id), &out)
	return out, err
}

// Get sends a GET request and decodes the JSON response into out
func (c *AugurClient) Get(ctx context.Context, endpoint string, out any) error {
	return c.do(ctx, http.MethodGet, endpoint, nil, out)
}

// Post sends body as JSON and decodes the JSON response into out
func (c *AugurClient) Post(ctx context.Context, endpoint string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}
	return c.do(ctx, http.MethodPost, endpoint, payload, out)
}

func (c *AugurClient) do(ctx context.Context, method, endpoint string, payload []byte, out any) error {
	if c.baseURL == "" {
		return ErrHostNotConfigured
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrUnreachable, method, endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.Debug("augur request", "method", method, "endpoint", endpoint, "status", resp.StatusCode, "elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Try to read error message from response
		data, _ := io.ReadAll(resp.Body)
		return &UpstreamError{StatusCode: resp.StatusCode, Body: string(data)}
	}

	if out == nil {
		return nil
	}
	decoder := json.NewDecoder(resp.Body)
	decoder.UseNumber()
	if err := decoder.Decode(out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", endpoint, err)
	}
	return nil
}
