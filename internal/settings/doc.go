// Copyright (c) 2025 AuraChat Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package settings manages the user configuration for aurachat.
//
// Configuration lives in TOML at ~/.aurachat/config.toml. The Gemini API key
// is never stored in the clear: it is AES-256-GCM encrypted under a key
// derived from local key material kept in a 0600 file next to the config.
//
// External edits to the config file are picked up by an fsnotify watcher and
// pushed to observers, so a timeout changed in another terminal applies to
// the next request without a restart.
package settings
