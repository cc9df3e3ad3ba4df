// Package api is the HTTP adapter to the finance API.
//
// Every response of the API is a JSON envelope: {"data": ...} on success and
// {"error": "..."} with a non-2xx status on failure. Request unwraps it and
// reports failures as one of RequestError, TransportError or DecodeError.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/PaesslerAG/jsonpath"
	"github.com/google/uuid"
)

const (
	// DefaultBaseURL is the local development endpoint.
	DefaultBaseURL = "http://localhost:8080/api"
	// EnvBaseURL names the environment variable overriding DefaultBaseURL.
	EnvBaseURL = "FAMFIN_API_URL"
)

// BaseURLFromEnv returns the base URL configured in the environment, or DefaultBaseURL.
func BaseURLFromEnv() string {
	if u := os.Getenv(EnvBaseURL); u != "" {
		return u
	}
	return DefaultBaseURL
}

// TokenSource provides the bearer token of the current session.
// An empty token means there is no session.
type TokenSource interface {
	Token() string
}

// Client issues requests against the API.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client // nil uses a client with a LoggingTransport
	Tokens     TokenSource  // nil sends anonymous requests
	Logger     *slog.Logger
}

// NewClient returns a Client for baseURL that authenticates with tokens.
func NewClient(baseURL string, tokens TokenSource, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		BaseURL:    baseURL,
		Tokens:     tokens,
		Logger:     logger,
		HTTPClient: &http.Client{Transport: &LoggingTransport{Logger: logger}},
	}
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func (c *Client) url(endpoint string) string {
	return strings.TrimRight(c.BaseURL, "/") + "/" + strings.TrimLeft(endpoint, "/")
}

type request struct {
	method   string
	body     any
	header   http.Header
	selector string
}

// RequestOption customizes a single request.
type RequestOption func(*request)

// Method sets the http method, GET by default.
func Method(m string) RequestOption { return func(r *request) { r.method = m } }

// Body sets the value sent as the JSON request body.
func Body(v any) RequestOption { return func(r *request) { r.body = v } }

// Post is a shortcut for Method(POST) and Body(v).
func Post(v any) RequestOption {
	return func(r *request) {
		r.method = http.MethodPost
		r.body = v
	}
}

// Header adds a request header. Caller headers replace the defaults.
func Header(key, value string) RequestOption {
	return func(r *request) { r.header.Add(key, value) }
}

// Select decodes only the part of the envelope data designated by a JSONPath
// expression (e.g. "$.accounts"). A path that designates nothing decodes as
// the zero value.
func Select(path string) RequestOption { return func(r *request) { r.selector = path } }

// envelope is the wrapper of every API response.
type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error json.RawMessage `json:"error"`
}

// message returns the server error message, if any.
func (e envelope) message() string {
	var msg string
	if err := json.Unmarshal(e.Error, &msg); err != nil {
		return ""
	}
	return msg
}

// Request sends a request to endpoint and decodes the envelope data into T.
//
// The session token is read from c.Tokens on every call. Request never
// modifies the session.
func Request[T any](ctx context.Context, c *Client, endpoint string, opts ...RequestOption) (T, error) {
	var zero T
	r := request{method: http.MethodGet, header: make(http.Header)}
	for _, opt := range opts {
		opt(&r)
	}

	var body io.Reader
	if r.body != nil {
		payload, err := json.Marshal(r.body)
		if err != nil {
			return zero, fmt.Errorf("cannot encode %s %s body: %w", r.method, endpoint, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.url(endpoint), body)
	if err != nil {
		return zero, fmt.Errorf("cannot create http request %q: %w", endpoint, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if c.Tokens != nil {
		if token := c.Tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	for key, values := range r.header {
		req.Header[key] = values
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return zero, &TransportError{Method: r.method, Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return zero, &TransportError{Method: r.method, Endpoint: endpoint, Err: err}
	}

	// the body is parsed before looking at the status, as the error message is in it.
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return zero, &DecodeError{Endpoint: endpoint, Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := env.message()
		if msg == "" {
			msg = GenericMessage
		}
		return zero, &RequestError{Status: resp.StatusCode, Message: msg}
	}

	v, err := decodeData[T](env.Data, r.selector)
	if err != nil {
		c.logger().Debug("cannot decode response", "endpoint", endpoint, "body", string(raw))
		return zero, &DecodeError{Endpoint: endpoint, Status: resp.StatusCode, Err: err}
	}
	return v, nil
}

// decodeData decodes the envelope data, or the part of it designated by selector.
// Absent or null data decodes as the zero value.
func decodeData[T any](data json.RawMessage, selector string) (v T, err error) {
	if len(data) == 0 || string(data) == "null" {
		return v, nil
	}
	if selector == "" {
		err = json.Unmarshal(data, &v)
		return v, err
	}

	// numbers are kept as json.Number so that decimals survive the round trip.
	var doc any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return v, err
	}
	selected, err := jsonpath.Get(selector, doc)
	if err != nil {
		// jsonpath reports a missing key as an error, this is an absent field.
		return v, nil
	}
	if selected == nil {
		return v, nil
	}
	part, err := json.Marshal(selected)
	if err != nil {
		return v, err
	}
	err = json.Unmarshal(part, &v)
	return v, err
}
