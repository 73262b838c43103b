// Copyright (c) 2025 AuraChat Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package gemini

import "github.com/aurachat/aurachat/internal/ai"

// =============================================================================
// WIRE TYPES
// =============================================================================

// content is one role-tagged turn in the request or response body.
type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

// part carries a fragment of turn text.
type part struct {
	Text string `json:"text"`
}

// generateRequest is the request body for generateContent and
// streamGenerateContent.
type generateRequest struct {
	Contents []content `json:"contents"`
}

// generateResponse is the (streamed or complete) response body.
type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason,omitempty"`
	} `json:"candidates"`
	Error *apiError `json:"error,omitempty"`
}

// apiError is the error envelope the API returns on non-2xx responses.
type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// text joins the parts of the first candidate, which is how the API carries
// incremental chunks during streaming.
func (r *generateResponse) text() string {
	for _, cand := range r.Candidates {
		var out string
		for _, p := range cand.Content.Parts {
			out += p.Text
		}
		if out != "" {
			return out
		}
	}
	return ""
}

// roleString maps the neutral role to the API's naming: the model side is
// called "model", not "assistant".
func roleString(r ai.Role) string {
	if r == ai.RoleUser {
		return "user"
	}
	return "model"
}
