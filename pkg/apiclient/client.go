package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "GuardianAngel/pkg/errors"
	"GuardianAngel/pkg/metrics"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	DefaultTimeout  = 30 * time.Second
	HeaderRequestID = "X-Request-ID"
)

// TokenSource yields the bearer token of the acting identity, "" when logged out.
type TokenSource interface {
	AuthToken() string
}

// Doer executes backend requests. *Client is the production implementation.
type Doer interface {
	Do(ctx context.Context, req *Request, out interface{}) (*Envelope, error)
}

// Request describes a single backend call.
type Request struct {
	Route  string // metrics/log label, e.g. "alert.panic"
	Method string
	Path   string // relative to the base URL, e.g. "/alert/panic"
	Query  url.Values
	Body   interface{}
	Token  string
}

// Envelope is the common response wrapper of every backend endpoint.
type Envelope struct {
	Success   *bool           `json:"success,omitempty"`
	Message   string          `json:"message,omitempty"`
	Error     string          `json:"error,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`
}

// OK reports whether the envelope does not carry success=false.
func (e *Envelope) OK() bool {
	return e.Success == nil || *e.Success
}

// Text returns the most specific server message.
func (e *Envelope) Text() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Error
}

type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithMetrics records request counts and latencies.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithUnauthorizedHandler is invoked with the rejected token when a request that carried one gets a 401.
func WithUnauthorizedHandler(fn func(token string)) Option {
	return func(c *Client) { c.onUnauthorized = fn }
}

// Client is the single request executor shared by every domain client.
type Client struct {
	baseURL        string
	timeout        time.Duration
	http           *http.Client
	logger         *logrus.Logger
	metrics        *metrics.Metrics
	onUnauthorized func(token string)
}

// New creates an executor for baseURL. A zero timeout means DefaultTimeout.
func New(baseURL string, timeout time.Duration, logger *logrus.Logger, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		http:    &http.Client{},
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.metrics == nil && metrics.IsEnabled() {
		c.metrics = metrics.Global()
	}
	return c
}

// SetUnauthorizedHandler wires the 401 hook after construction.
func (c *Client) SetUnauthorizedHandler(fn func(token string)) {
	c.onUnauthorized = fn
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// Do executes req and, on success, decodes the envelope's data into out (if non-nil).
// Every failure is an *errors.Error classified by Kind.
func (c *Client) Do(ctx context.Context, req *Request, out interface{}) (*Envelope, error) {
	requestID := uuid.NewString()
	log := c.logger.WithFields(logrus.Fields{
		"request_id": requestID,
		"route":      req.Route,
		"method":     req.Method,
	})

	httpReq, err := c.newHTTPRequest(ctx, req, requestID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.http.Do(httpReq.WithContext(ctx))
	elapsed := time.Since(start)
	if err != nil {
		c.metrics.RecordRequest(req.Method, req.Route, 0, elapsed)
		log.WithError(err).Debug("request failed")
		if stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, apperrors.Timeout(err).WithContext("route", req.Route)
		}
		return nil, apperrors.Transport(err).WithContext("route", req.Route)
	}
	defer resp.Body.Close()
	c.metrics.RecordRequest(req.Method, req.Route, resp.StatusCode, elapsed)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.Transport(err).WithContext("route", req.Route)
	}

	log = log.WithFields(logrus.Fields{"status": resp.StatusCode, "duration": elapsed})

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var env Envelope
		_ = json.Unmarshal(body, &env)
		log.WithField("message", env.Text()).Debug("request rejected")

		if resp.StatusCode == http.StatusUnauthorized && req.Token != "" {
			if c.onUnauthorized != nil {
				c.onUnauthorized(req.Token)
			}
			return nil, apperrors.SessionExpired(env.Text()).WithContext("route", req.Route)
		}
		return nil, apperrors.HTTPStatus(resp.StatusCode, env.Text()).WithContext("route", req.Route)
	}

	env := &Envelope{}
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, env); err != nil {
			log.WithError(err).Debug("malformed envelope")
			return nil, apperrors.Decode(err).WithContext("route", req.Route)
		}
	}
	if !env.OK() {
		log.WithField("message", env.Text()).Debug("request unsuccessful")
		return env, apperrors.API(env.Text()).WithContext("route", req.Route)
	}

	if out != nil {
		if len(env.Data) == 0 || string(env.Data) == "null" {
			return nil, apperrors.Decode(stderrors.New("response has no data")).WithContext("route", req.Route)
		}
		if err := json.Unmarshal(env.Data, out); err != nil {
			log.WithError(err).Debug("malformed data")
			return nil, apperrors.Decode(err).WithContext("route", req.Route)
		}
	}

	log.Debug("request completed")
	return env, nil
}

func (c *Client) newHTTPRequest(ctx context.Context, req *Request, requestID string) (*http.Request, error) {
	target := c.baseURL + req.Path
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		buf, err := json.Marshal(req.Body)
		if err != nil {
			return nil, apperrors.Validation("request body cannot be encoded: " + err.Error())
		}
		body = bytes.NewReader(buf)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, apperrors.Transport(err).WithContext("route", req.Route)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set(HeaderRequestID, requestID)
	if req.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.Token)
	}
	return httpReq, nil
}

// DecodeData decodes an optional data payload. It reports false when the envelope carries no data.
func DecodeData(env *Envelope, out interface{}) (bool, error) {
	if env == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return false, nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return false, apperrors.Decode(err)
	}
	return true, nil
}
