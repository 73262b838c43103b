// Copyright (c) 2025 AuraChat Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package gemini

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/aurachat/aurachat/internal/ai"
)

// maxLineSize caps a single SSE line (64KB).
const maxLineSize = 64 * 1024

// StreamReply issues a streaming generation. The returned channel emits text
// chunks in arrival order; a classified error is delivered in-band as a final
// error chunk. The channel is closed at stream termination. The sequence is
// finite and not restartable.
func (c *Client) StreamReply(ctx context.Context, req ai.Request) <-chan ai.Chunk {
	ch := make(chan ai.Chunk)

	// parent is kept separate from the timeout-wrapped context: chunk sends
	// escape on caller cancellation only, so a Timeout error chunk can still
	// reach a consumer that is draining the stream after the deadline fired.
	parent := ctx

	go func() {
		defer close(ch)

		key, aerr := c.apiKey(ctx)
		if aerr != nil {
			emit(parent, ch, ai.Chunk{Err: aerr})
			return
		}
		if len(req.Messages) == 0 {
			emit(parent, ch, ai.Chunk{Err: ai.NewError(ai.KindEmptyResponse, "No conversation context to send.")})
			return
		}

		model := req.Model
		if model == "" {
			model = DefaultModel
		}
		data, aerr := buildBody(req)
		if aerr != nil {
			emit(parent, ch, ai.Chunk{Err: aerr})
			return
		}

		if req.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, req.Timeout)
			defer cancel()
		}

		url := c.baseURL + "/models/" + model + ":streamGenerateContent?alt=sse&key=" + key
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
		if err != nil {
			emit(parent, ch, ai.Chunk{Err: ai.WrapError(ai.KindUnknown, "Failed to create request.", err)})
			return
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Accept", "text/event-stream")
		httpReq.Header.Set("X-Request-ID", uuid.New().String())

		resp, err := c.streamClient.Do(httpReq)
		if err != nil {
			emitTransportError(parent, ch, err)
			return
		}
		defer resp.Body.Close()

		if aerr := classifyStatus(resp.StatusCode); aerr != nil {
			emit(parent, ch, ai.Chunk{Err: aerr})
			return
		}

		c.consumeSSE(parent, resp.Body, ch)
	}()

	return ch
}

// consumeSSE reads "data:" lines until EOF, forwarding each candidate text
// fragment as a chunk.
func (c *Client) consumeSSE(parent context.Context, body io.Reader, ch chan<- ai.Chunk) {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 4096), maxLineSize)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}
		payload, ok := strings.CutPrefix(line, "data:")
		if !ok {
			continue
		}
		payload = strings.TrimSpace(payload)
		if payload == "" || payload == "[DONE]" {
			continue
		}

		var parsed generateResponse
		if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
			emit(parent, ch, ai.Chunk{Err: ai.WrapError(ai.KindMalformedResponse, "Unable to parse AI response.", err)})
			return
		}
		if parsed.Error != nil {
			emit(parent, ch, ai.Chunk{Err: classifyAPIError(parsed.Error)})
			return
		}

		if text := parsed.text(); text != "" {
			if !emit(parent, ch, ai.Chunk{Text: text}) {
				return
			}
		}
	}

	if err := scanner.Err(); err != nil {
		emitTransportError(parent, ch, err)
	}
}

// classifyAPIError maps an in-stream error envelope into the taxonomy.
func classifyAPIError(e *apiError) *ai.Error {
	switch e.Code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ai.NewError(ai.KindUnauthorized, "API key is invalid or unauthorized.")
	default:
		msg := e.Message
		if msg == "" {
			msg = "AI server error."
		}
		return ai.NewError(ai.KindNetwork, msg)
	}
}

// emitTransportError classifies err and sends it in-band. Pure cancellation
// is never surfaced as a chunk: the consumer observes its own context.
func emitTransportError(parent context.Context, ch chan<- ai.Chunk, err error) {
	classified := classifyTransportError(err)
	if errors.Is(classified, context.Canceled) {
		return
	}
	var aerr *ai.Error
	if !errors.As(classified, &aerr) {
		aerr = ai.WrapError(ai.KindUnknown, "", err)
	}
	emit(parent, ch, ai.Chunk{Err: aerr})
}

// emit sends a chunk, giving up only when the caller cancelled. Reports
// whether the send happened.
func emit(parent context.Context, ch chan<- ai.Chunk, chunk ai.Chunk) bool {
	select {
	case ch <- chunk:
		return true
	case <-parent.Done():
		return false
	}
}
