// Copyright (c) 2025 AuraChat Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ai defines the provider-neutral types for reply generation:
// request and message shapes, the streaming chunk sequence, and the
// error taxonomy shared by the delivery pipeline and concrete providers.
package ai
