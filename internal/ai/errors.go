// Copyright (c) 2025 AuraChat Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package ai

import "errors"

// =============================================================================
// ERROR TAXONOMY
// =============================================================================

// ErrorKind classifies every failure the pipeline can surface. Provider
// implementations emit the transport-level kinds; KindInvalid and
// KindNothingToRetry are produced only by the delivery orchestrator.
type ErrorKind string

const (
	KindInvalid           ErrorKind = "INVALID"
	KindOffline           ErrorKind = "OFFLINE"
	KindTimeout           ErrorKind = "TIMEOUT"
	KindNetwork           ErrorKind = "NETWORK"
	KindEmptyResponse     ErrorKind = "EMPTY_RESPONSE"
	KindMalformedResponse ErrorKind = "MALFORMED_RESPONSE"
	KindUnauthorized      ErrorKind = "UNAUTHORIZED"
	KindNothingToRetry    ErrorKind = "NOTHING_TO_RETRY"
	KindUnknown           ErrorKind = "UNKNOWN"
)

// ParseErrorKind maps a stored kind string back to an ErrorKind.
// Unrecognized values decode as KindUnknown.
func ParseErrorKind(s string) ErrorKind {
	switch ErrorKind(s) {
	case KindInvalid, KindOffline, KindTimeout, KindNetwork,
		KindEmptyResponse, KindMalformedResponse, KindUnauthorized,
		KindNothingToRetry, KindUnknown:
		return ErrorKind(s)
	default:
		return KindUnknown
	}
}

// FriendlyMessage returns the fixed user-visible text for the kind. This is
// the content persisted into a failed assistant message.
func (k ErrorKind) FriendlyMessage() string {
	switch k {
	case KindInvalid:
		return "Cannot send an empty message."
	case KindOffline:
		return "No internet connection. Connect and retry."
	case KindTimeout:
		return "The request timed out. Retry when ready."
	case KindNetwork:
		return "Network error while contacting AI service."
	case KindEmptyResponse:
		return "AI returned no text. Please retry."
	case KindMalformedResponse:
		return "AI returned an unreadable response."
	case KindUnauthorized:
		return "Invalid or missing API key in Settings."
	case KindNothingToRetry:
		return "No failed response available to retry."
	default:
		return "Unexpected error. Please retry."
	}
}

// =============================================================================
// ERROR TYPE
// =============================================================================

// Error is a classified provider or pipeline failure.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

// NewError builds an Error with the kind's friendly message as fallback text.
func NewError(kind ErrorKind, message string) *Error {
	if message == "" {
		message = kind.FriendlyMessage()
	}
	return &Error{Kind: kind, Message: message}
}

// WrapError classifies an underlying error.
func WrapError(kind ErrorKind, message string, cause error) *Error {
	if message == "" {
		message = kind.FriendlyMessage()
	}
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports kind equality so errors.Is works against sentinel kinds.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// KindOf extracts the ErrorKind from any error, defaulting to KindUnknown
// for errors that did not pass through the taxonomy.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
