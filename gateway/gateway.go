// Package gateway implements the single HTTP path to the marketplace
// backend. Every service client goes through Client.Do, which owns query
// serialization, bearer auth, the anonymous-GET response cache, the
// structured APIError contract, and the centralized retry policy.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/greencart/storefront/core"
	"github.com/greencart/storefront/resilience"
)

// Request describes one backend call. Params with empty values are
// omitted from the query string, matching the backend's expectation
// that absent and empty filters mean the same thing.
type Request struct {
	Method    string // defaults to GET
	Path      string // joined onto the configured API prefix, e.g. "/products"
	Params    map[string]string
	Body      interface{} // JSON-encoded when non-nil
	AuthToken string      // attached as a bearer header when non-empty
	Header    http.Header // extra headers (e.g. Idempotency-Key)
	NoCache   bool        // opt out of the anonymous-GET cache
}

// Client is the remote API gateway.
type Client struct {
	baseURL    string
	prefix     string
	httpClient *http.Client
	cache      core.Memory
	revalidate time.Duration
	retry      *resilience.RetryConfig
	breaker    *resilience.CircuitBreaker
	logger     core.Logger
	telemetry  core.Telemetry
}

// ClientOptions configures the gateway client.
type ClientOptions struct {
	Config     *core.Config
	HTTPClient *http.Client // optional; telemetry wiring passes a traced client here
	Cache      core.Memory  // optional; enables the anonymous-GET cache
	Breaker    *resilience.CircuitBreaker
	Logger     core.Logger
	Telemetry  core.Telemetry
}

// NewClient creates a gateway client from the SDK configuration.
func NewClient(opts ClientOptions) (*Client, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("gateway config: %w", core.ErrMissingConfiguration)
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Config.HTTPTimeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	telemetry := opts.Telemetry
	if telemetry == nil {
		telemetry = &core.NoOpTelemetry{}
	}

	return &Client{
		baseURL:    strings.TrimRight(opts.Config.APIBaseURL, "/"),
		prefix:     opts.Config.APIPrefix,
		httpClient: httpClient,
		cache:      opts.Cache,
		revalidate: opts.Config.RevalidateWindow,
		retry: &resilience.RetryConfig{
			MaxAttempts:   opts.Config.RetryMaxAttempts,
			InitialDelay:  opts.Config.RetryInitialDelay,
			MaxDelay:      5 * time.Second,
			BackoffFactor: 2.0,
			JitterEnabled: true,
		},
		breaker:   opts.Breaker,
		logger:    logger,
		telemetry: telemetry,
	}, nil
}

// BaseURL returns the configured backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// buildURL joins base, prefix, path and the non-empty params.
func (c *Client) buildURL(path string, params map[string]string) string {
	u := c.baseURL + c.prefix + path
	if len(params) == 0 {
		return u
	}
	values := url.Values{}
	for key, value := range params {
		if value == "" {
			continue
		}
		values.Set(key, value)
	}
	if encoded := values.Encode(); encoded != "" {
		u += "?" + encoded
	}
	return u
}

// cacheKey derives a stable cache key from method, URL and params.
func cacheKey(requestURL string) string {
	return "http:" + requestURL
}

// Do executes a request and decodes the JSON response into out (which
// may be nil for calls whose body is irrelevant). Non-2xx responses
// return an *APIError; transport failures wrap core.ErrConnectionFailed.
//
// Caching: anonymous GETs are served from the response cache within the
// revalidation window. Authenticated or non-GET requests never touch it.
// Retry: only GETs are retried, and only on transport or 5xx failures;
// writes are never retried automatically (retry is the user's decision).
func (c *Client) Do(ctx context.Context, req Request, out interface{}) error {
	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}
	requestURL := c.buildURL(req.Path, req.Params)

	ctx, span := c.telemetry.StartSpan(ctx, "gateway.request")
	defer span.End()
	span.SetAttribute("http.method", method)
	span.SetAttribute("http.url", requestURL)

	isGet := method == http.MethodGet
	cacheable := isGet && req.AuthToken == "" && !req.NoCache && c.cache != nil && c.revalidate > 0

	if cacheable {
		if cached, err := c.cache.Get(ctx, cacheKey(requestURL)); err == nil && cached != "" {
			span.SetAttribute("cache.hit", true)
			return decodeBody([]byte(cached), out)
		}
	}

	var bodyBytes []byte
	if req.Body != nil {
		encoded, err := json.Marshal(req.Body)
		if err != nil {
			return core.NewStoreError("gateway.Do", "gateway", fmt.Errorf("encode request body: %w", err))
		}
		bodyBytes = encoded
	}

	var responseBody []byte
	attempt := func() error {
		data, err := c.roundTrip(ctx, method, requestURL, bodyBytes, req)
		if err != nil {
			return err
		}
		responseBody = data
		return nil
	}

	var err error
	if isGet {
		// Capture non-retryable failures so a 404 is not hammered
		// three times on its way out.
		var terminal error
		err = c.execute(ctx, func() error {
			aerr := attempt()
			if aerr != nil && !core.IsRetryable(aerr) {
				terminal = aerr
				return nil
			}
			return aerr
		})
		if err == nil && terminal != nil {
			err = terminal
		}
	} else {
		if c.breaker != nil && !c.breaker.CanExecute() {
			err = core.ErrCircuitBreakerOpen
		} else {
			err = attempt()
			if c.breaker != nil {
				if err != nil {
					c.breaker.RecordFailure(err)
				} else {
					c.breaker.RecordSuccess()
				}
			}
		}
	}
	if err != nil {
		span.RecordError(err)
		c.logger.Warn("API request failed", map[string]interface{}{
			"operation": "gateway_request",
			"method":    method,
			"url":       requestURL,
			"error":     err,
		})
		return err
	}

	if cacheable {
		if cacheErr := c.cache.Set(ctx, cacheKey(requestURL), string(responseBody), c.revalidate); cacheErr != nil {
			c.logger.Debug("Response cache write failed", map[string]interface{}{
				"operation": "gateway_cache_set",
				"url":       requestURL,
				"error":     cacheErr,
			})
		}
	}

	return decodeBody(responseBody, out)
}

// execute runs fn under the retry policy and, when configured, the
// circuit breaker.
func (c *Client) execute(ctx context.Context, fn func() error) error {
	if c.breaker != nil {
		return resilience.RetryWithCircuitBreaker(ctx, c.retry, c.breaker, fn)
	}
	return resilience.Retry(ctx, c.retry, fn)
}

// roundTrip performs a single HTTP exchange and enforces the error
// contract: non-2xx becomes *APIError with a parsed-if-possible payload.
func (c *Client) roundTrip(ctx context.Context, method, requestURL string, body []byte, req Request) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, requestURL, reader)
	if err != nil {
		return nil, core.NewStoreError("gateway.roundTrip", "gateway", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if req.AuthToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.AuthToken)
	}
	for key, values := range req.Header {
		for _, value := range values {
			httpReq.Header.Add(key, value)
		}
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("request canceled: %w", core.ErrContextCanceled)
		}
		return nil, fmt.Errorf("%s %s: %v: %w", method, requestURL, err, core.ErrConnectionFailed)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %v: %w", err, core.ErrConnectionFailed)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{
			Status:  resp.StatusCode,
			Payload: parsePayload(data),
		}
	}

	return data, nil
}

// parsePayload attempts to parse a JSON error body; if parsing fails it
// falls back to the raw text so callers never lose the response.
func parsePayload(data []byte) interface{} {
	if len(data) == 0 {
		return nil
	}
	var parsed interface{}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return string(data)
	}
	return parsed
}

// decodeBody unmarshals a successful response into out.
func decodeBody(data []byte, out interface{}) error {
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return core.NewStoreError("gateway.decode", "gateway", fmt.Errorf("decode response: %w", err))
	}
	return nil
}
