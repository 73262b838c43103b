// Copyright (c) 2025 AuraChat Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package settings

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aurachat/aurachat/internal/delivery"
	"github.com/aurachat/aurachat/internal/gemini"
)

func openTestSettings(t *testing.T) (*Settings, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, dir
}

func TestOpenCreatesDefaults(t *testing.T) {
	s, dir := openTestSettings(t)

	assert.Equal(t, gemini.DefaultModel, s.Model())
	assert.Equal(t, delivery.DefaultRequestTimeout, s.RequestTimeout())
	assert.False(t, s.HasAPIKey())

	_, err := os.Stat(filepath.Join(dir, "config.toml"))
	assert.NoError(t, err)
}

func TestRequestTimeoutClamped(t *testing.T) {
	s, _ := openTestSettings(t)

	require.NoError(t, s.SetRequestTimeout(time.Second))
	assert.Equal(t, delivery.MinRequestTimeout, s.RequestTimeout())

	require.NoError(t, s.SetRequestTimeout(10*time.Minute))
	assert.Equal(t, delivery.MaxRequestTimeout, s.RequestTimeout())

	require.NoError(t, s.SetRequestTimeout(45*time.Second))
	assert.Equal(t, 45*time.Second, s.RequestTimeout())
}

func TestAPIKeyEncryptedAtRest(t *testing.T) {
	s, dir := openTestSettings(t)

	require.NoError(t, s.SetAPIKey("super-secret-key"))

	key, err := s.APIKey(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "super-secret-key", key)

	raw, err := os.ReadFile(filepath.Join(dir, "config.toml"))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "super-secret-key")
	assert.Contains(t, string(raw), encryptedPrefix)
}

func TestAPIKeySurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, s.SetAPIKey("persisted-key"))
	require.NoError(t, s.Close())

	reopened, err := Open(dir)
	require.NoError(t, err)
	defer reopened.Close()

	key, err := reopened.APIKey(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "persisted-key", key)
}

func TestConfigFilePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permissions")
	}
	s, dir := openTestSettings(t)
	require.NoError(t, s.SetAPIKey("k"))

	for _, name := range []string{"config.toml", "master.key", "master.salt"} {
		info, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm(), name)
	}
}

func TestObserveLocalWrites(t *testing.T) {
	s, _ := openTestSettings(t)

	ch, cancel := s.Observe()
	defer cancel()

	require.NoError(t, s.SetRequestTimeout(20*time.Second))
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("no change signal after local write")
	}
}

func TestWatchPicksUpExternalEdit(t *testing.T) {
	s, dir := openTestSettings(t)
	require.NoError(t, s.Watch())

	ch, cancel := s.Observe()
	defer cancel()

	edited := strings.Join([]string{
		`model = "gemini-1.5-pro"`,
		`request_timeout_secs = 60`,
	}, "\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(edited), 0600))

	select {
	case <-ch:
	case <-time.After(3 * time.Second):
		t.Fatal("no change signal after external edit")
	}
	assert.Equal(t, "gemini-1.5-pro", s.Model())
	assert.Equal(t, 60*time.Second, s.RequestTimeout())
}

func TestSecretBoxRoundTrip(t *testing.T) {
	box, err := openSecretBox(t.TempDir())
	require.NoError(t, err)

	sealed, err := box.Seal("hello")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sealed, encryptedPrefix))

	opened, err := box.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "hello", opened)

	// Plain values pass through.
	plain, err := box.Open("not-encrypted")
	require.NoError(t, err)
	assert.Equal(t, "not-encrypted", plain)

	// Empty stays empty.
	sealed, err = box.Seal("")
	require.NoError(t, err)
	assert.Empty(t, sealed)
}

func TestSecretBoxRejectsGarbage(t *testing.T) {
	box, err := openSecretBox(t.TempDir())
	require.NoError(t, err)

	_, err = box.Open(encryptedPrefix + "!!!not-base64!!!")
	assert.ErrorIs(t, err, ErrInvalidCiphertext)

	_, err = box.Open(encryptedPrefix + "AAAA")
	assert.ErrorIs(t, err, ErrInvalidCiphertext)
}
