// Copyright (c) 2025 AuraChat Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package settings

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/aurachat/aurachat/internal/delivery"
	"github.com/aurachat/aurachat/internal/gemini"
	"github.com/aurachat/aurachat/internal/util"
)

// =============================================================================
// CONFIG FILE
// =============================================================================

// Config is the on-disk TOML shape of ~/.aurachat/config.toml.
type Config struct {
	// Model is the Gemini model identifier used for every request.
	Model string `toml:"model"`
	// BaseURL overrides the Gemini API endpoint. Empty means the default.
	BaseURL string `toml:"base_url"`
	// RequestTimeoutSecs bounds one generation request. Values outside
	// 5-120 seconds are clamped.
	RequestTimeoutSecs int `toml:"request_timeout_secs"`
	// APIKey holds the Gemini key, encrypted at rest (ENC: prefix).
	APIKey string `toml:"api_key"`
}

// defaultConfig returns the built-in defaults.
func defaultConfig() Config {
	return Config{
		Model:              gemini.DefaultModel,
		RequestTimeoutSecs: int(delivery.DefaultRequestTimeout / time.Second),
	}
}

// DefaultDir returns the aurachat data directory (~/.aurachat).
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".aurachat"), nil
}

// =============================================================================
// SETTINGS
// =============================================================================

// Settings is the live view of the config file. Reads are served from memory;
// writes persist atomically and notify observers, as do external file edits
// picked up by the watcher.
type Settings struct {
	dir  string
	path string
	box  *secretBox

	mu     sync.RWMutex
	cfg    Config
	apiKey string

	obs *observers

	watchOnce sync.Once
	stopWatch func()
}

// Open loads settings from dir, creating the directory, key material, and a
// default config on first run.
func Open(dir string) (*Settings, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("settings: create dir: %w", err)
	}
	box, err := openSecretBox(dir)
	if err != nil {
		return nil, err
	}

	s := &Settings{
		dir:  dir,
		path: filepath.Join(dir, "config.toml"),
		box:  box,
		cfg:  defaultConfig(),
		obs:  newObservers(),
	}

	if err := s.reload(); err != nil {
		return nil, err
	}
	if _, statErr := os.Stat(s.path); os.IsNotExist(statErr) {
		if err := s.persist(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// reload reads the config file into memory, applying defaults for missing
// fields and decrypting the API key. A missing file leaves the defaults.
func (s *Settings) reload() error {
	cfg := defaultConfig()
	data, err := os.ReadFile(s.path)
	switch {
	case os.IsNotExist(err):
		// First run, defaults apply.
	case err != nil:
		return fmt.Errorf("settings: read config: %w", err)
	default:
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return fmt.Errorf("settings: parse config: %w", err)
		}
	}
	if cfg.Model == "" {
		cfg.Model = gemini.DefaultModel
	}

	apiKey, err := s.box.Open(cfg.APIKey)
	if err != nil {
		// Undecryptable key (rotated key material, corrupt value): treat
		// as unset rather than failing startup.
		apiKey = ""
	}

	s.mu.Lock()
	s.cfg = cfg
	s.apiKey = apiKey
	s.mu.Unlock()
	return nil
}

// persist writes the in-memory config atomically with owner-only perms
// (the file carries the encrypted API key).
func (s *Settings) persist() error {
	s.mu.RLock()
	cfg := s.cfg
	s.mu.RUnlock()

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("settings: encode config: %w", err)
	}
	if err := util.AtomicWriteFile(s.path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("settings: write config: %w", err)
	}
	return nil
}

// Close stops the watcher, if running.
func (s *Settings) Close() error {
	if s.stopWatch != nil {
		s.stopWatch()
	}
	return nil
}

// =============================================================================
// READS
// =============================================================================

// RequestTimeout returns the configured per-request timeout, clamped to the
// valid range.
func (s *Settings) RequestTimeout() time.Duration {
	s.mu.RLock()
	secs := s.cfg.RequestTimeoutSecs
	s.mu.RUnlock()

	d := time.Duration(secs) * time.Second
	switch {
	case d <= 0:
		return delivery.DefaultRequestTimeout
	case d < delivery.MinRequestTimeout:
		return delivery.MinRequestTimeout
	case d > delivery.MaxRequestTimeout:
		return delivery.MaxRequestTimeout
	default:
		return d
	}
}

// Model returns the configured model identifier.
func (s *Settings) Model() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Model
}

// BaseURL returns the configured endpoint override, or empty for the default.
func (s *Settings) BaseURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.BaseURL
}

// APIKey returns the decrypted Gemini key, or empty when unset. The context
// parameter keeps the signature compatible with gemini.KeyProvider.
func (s *Settings) APIKey(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.apiKey, nil
}

// HasAPIKey reports whether a key is configured.
func (s *Settings) HasAPIKey() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.apiKey != ""
}

// =============================================================================
// WRITES
// =============================================================================

// SetAPIKey stores the key encrypted and persists the config.
func (s *Settings) SetAPIKey(key string) error {
	sealed, err := s.box.Seal(key)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.cfg.APIKey = sealed
	s.apiKey = key
	s.mu.Unlock()

	if err := s.persist(); err != nil {
		return err
	}
	s.obs.notify()
	return nil
}

// SetRequestTimeout persists a new per-request timeout. The raw value is
// stored; clamping applies on read.
func (s *Settings) SetRequestTimeout(d time.Duration) error {
	s.mu.Lock()
	s.cfg.RequestTimeoutSecs = int(d / time.Second)
	s.mu.Unlock()

	if err := s.persist(); err != nil {
		return err
	}
	s.obs.notify()
	return nil
}

// SetModel persists a new model identifier. Blank input is ignored.
func (s *Settings) SetModel(model string) error {
	if model == "" {
		return nil
	}
	s.mu.Lock()
	s.cfg.Model = model
	s.mu.Unlock()

	if err := s.persist(); err != nil {
		return err
	}
	s.obs.notify()
	return nil
}
