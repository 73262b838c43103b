// Copyright (c) 2025 AuraChat Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package gemini implements the reply provider against the Google
// Generative Language REST API.
//
// Both the single-shot generateContent call and the SSE
// streamGenerateContent call are supported. Every failure is classified
// into the ai error taxonomy before it leaves this package; callers never
// see raw transport errors.
package gemini
