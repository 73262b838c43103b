// Copyright (c) 2025 AuraChat Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package gemini

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aurachat/aurachat/internal/ai"
)

const (
	// DefaultBaseURL is the Generative Language API endpoint.
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	// DefaultModel is the model identifier used when the caller leaves it
	// empty.
	DefaultModel = "gemini-1.5-flash"

	// maxResponseSize caps non-streaming response bodies.
	maxResponseSize = 10 * 1024 * 1024
)

// KeyProvider asynchronously resolves the API credential. An empty string
// means no key is configured.
type KeyProvider func(ctx context.Context) (string, error)

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to the Gemini API. It implements ai.Provider.
//
// The zero timeout on the streaming HTTP client is deliberate: request
// lifetime is controlled through the context so a slow stream is not cut off
// mid-generation by a transport-level deadline.
type Client struct {
	baseURL      string
	keyProvider  KeyProvider
	httpClient   *http.Client
	streamClient *http.Client
}

// Config holds construction options for the client.
type Config struct {
	// BaseURL overrides the API endpoint (used by tests).
	BaseURL string
	// KeyProvider resolves the API key per request.
	KeyProvider KeyProvider
}

// NewClient creates a Gemini client.
func NewClient(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	}

	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		keyProvider: cfg.KeyProvider,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   2 * time.Minute,
		},
		streamClient: &http.Client{
			Transport: transport,
		},
	}
}

// apiKey resolves and validates the credential before any network I/O.
func (c *Client) apiKey(ctx context.Context) (string, *ai.Error) {
	if c.keyProvider == nil {
		return "", ai.NewError(ai.KindUnauthorized, "Missing API key. Add it in Settings.")
	}
	key, err := c.keyProvider(ctx)
	if err != nil {
		return "", ai.WrapError(ai.KindUnauthorized, "Unable to read API key.", err)
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return "", ai.NewError(ai.KindUnauthorized, "Missing API key. Add it in Settings.")
	}
	return key, nil
}

// buildBody converts the neutral request into the API shape.
func buildBody(req ai.Request) ([]byte, *ai.Error) {
	body := generateRequest{Contents: make([]content, 0, len(req.Messages))}
	for _, m := range req.Messages {
		body.Contents = append(body.Contents, content{
			Role:  roleString(m.Role),
			Parts: []part{{Text: m.Text}},
		})
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, ai.WrapError(ai.KindUnknown, "Failed to encode request.", err)
	}
	return data, nil
}

// =============================================================================
// NON-STREAMING GENERATION
// =============================================================================

// GenerateReply performs a single blocking generation.
func (c *Client) GenerateReply(ctx context.Context, req ai.Request) (*ai.Reply, error) {
	key, aerr := c.apiKey(ctx)
	if aerr != nil {
		return nil, aerr
	}
	if len(req.Messages) == 0 {
		return nil, ai.NewError(ai.KindEmptyResponse, "No conversation context to send.")
	}

	model := req.Model
	if model == "" {
		model = DefaultModel
	}
	data, aerr := buildBody(req)
	if aerr != nil {
		return nil, aerr
	}

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	url := c.baseURL + "/models/" + model + ":generateContent?key=" + key
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, ai.WrapError(ai.KindUnknown, "Failed to create request.", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Request-ID", uuid.New().String())

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	if aerr := classifyStatus(resp.StatusCode); aerr != nil {
		return nil, aerr
	}

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, classifyTransportError(err)
	}
	if len(bodyBytes) == 0 {
		return nil, ai.NewError(ai.KindEmptyResponse, "AI returned an empty response body.")
	}

	var parsed generateResponse
	if err := json.Unmarshal(bodyBytes, &parsed); err != nil {
		return nil, ai.WrapError(ai.KindMalformedResponse, "Unable to parse AI response.", err)
	}

	text := strings.TrimSpace(parsed.text())
	if text == "" {
		return nil, ai.NewError(ai.KindEmptyResponse, "AI did not return any text content.")
	}

	return &ai.Reply{Text: text}, nil
}

// =============================================================================
// ERROR CLASSIFICATION
// =============================================================================

// classifyStatus maps a non-2xx HTTP status into the taxonomy.
func classifyStatus(code int) *ai.Error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return ai.NewError(ai.KindUnauthorized, "API key is invalid or unauthorized.")
	default:
		return ai.NewError(ai.KindNetwork, "AI request failed with HTTP "+http.StatusText(code)+".")
	}
}

// classifyTransportError maps a transport failure into the taxonomy.
// Context cancellation is passed through untouched so it propagates to the
// caller instead of being reported as a provider failure.
func classifyTransportError(err error) error {
	if errors.Is(err, context.Canceled) {
		return context.Canceled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ai.WrapError(ai.KindTimeout, "", err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ai.WrapError(ai.KindTimeout, "", err)
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return ai.WrapError(ai.KindNetwork, "Unable to reach AI service.", err)
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return ai.WrapError(ai.KindNetwork, "Network request failed.", err)
	}

	return ai.WrapError(ai.KindNetwork, "Network request failed.", err)
}
