package apiclient

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

	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/retry"
	"github.com/google/uuid"
)

const (
	defaultTimeout  = 30 * time.Second
	maxErrorBody    = 64 << 10
	requestIDHeader = "X-Request-ID"
)

// Options configures a Client.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Retry      retry.Policy
	Logger     *logger.Logger
}

// Client issues requests against the storefront backend. It holds no session
// state; callers pass tokens explicitly.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	retry   retry.Policy
	logg    *logger.Logger
}

// New builds a client for the configured base URL.
func New(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimSpace(opts.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("parsing api base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("api base url %q must be absolute", opts.BaseURL)
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	policy := opts.Retry
	if policy.MaxAttempts == 0 && policy.BaseDelay == 0 {
		policy = retry.DefaultPolicy()
	}
	logg := opts.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Client{
		baseURL: base,
		http:    httpClient,
		retry:   policy,
		logg:    logg,
	}, nil
}

type request struct {
	method   string
	path     string
	token    string
	body     any
	out      any
	fallback string
}

func (c *Client) do(ctx context.Context, r request) error {
	var payload io.Reader
	if r.body != nil {
		raw, err := json.Marshal(r.body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding request body")
		}
		payload = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.endpoint(r.path), payload)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building request")
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDHeader, requestID)
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	ctx = c.logg.WithFields(c.logg.WithRequestID(ctx, requestID), map[string]any{
		"method": r.method,
		"path":   r.path,
	})

	resp, err := c.http.Do(req)
	if err != nil {
		c.logg.Warn(c.logg.WithError(ctx, err), "api request failed")
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "network request failed")
	}
	defer resp.Body.Close()

	c.logg.Debug(c.logg.WithField(ctx, "status", resp.StatusCode), "api response")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp, r.fallback)
	}
	if r.out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(r.out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding response")
	}
	return nil
}

func (c *Client) endpoint(path string) string {
	return c.baseURL.JoinPath(path).String()
}

type errorBody struct {
	Message json.RawMessage `json:"message"`
}

// decodeError turns a non-2xx response into a typed error carrying the
// server's message, or fallback when the body has none.
func decodeError(resp *http.Response, fallback string) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	message := fallback
	var body errorBody
	if err := json.Unmarshal(raw, &body); err == nil {
		if msg := parseMessage(body.Message); msg != "" {
			message = msg
		}
	}
	return pkgerrors.FromStatus(resp.StatusCode, message)
}

// parseMessage accepts either a string or a list of strings.
func parseMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return strings.TrimSpace(single)
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err == nil {
		return strings.TrimSpace(strings.Join(many, "; "))
	}
	return ""
}
