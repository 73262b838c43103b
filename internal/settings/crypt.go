// Copyright (c) 2025 AuraChat Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package settings

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/pbkdf2"

	"github.com/aurachat/aurachat/internal/util"
)

// encryptedPrefix marks a config value as ciphertext:
// ENC:base64(nonce || ciphertext || tag).
const encryptedPrefix = "ENC:"

const (
	nonceSize = 12
	keySize   = 32
	saltSize  = 32
	// pbkdf2Iterations follows the OWASP recommendation for PBKDF2-SHA-256.
	pbkdf2Iterations = 600_000
)

var (
	ErrInvalidCiphertext = errors.New("settings: invalid ciphertext format")
	ErrDecryptionFailed  = errors.New("settings: decryption failed")
)

// secretBox encrypts and decrypts config values under a key derived from
// random key material stored on disk with owner-only permissions.
type secretBox struct {
	aead cipher.AEAD
}

// openSecretBox loads (or creates) the key material under dir and prepares
// the cipher.
func openSecretBox(dir string) (*secretBox, error) {
	material, err := loadOrCreateSecret(filepath.Join(dir, "master.key"), keySize)
	if err != nil {
		return nil, err
	}
	salt, err := loadOrCreateSecret(filepath.Join(dir, "master.salt"), saltSize)
	if err != nil {
		return nil, err
	}

	key := pbkdf2.Key(material, salt, pbkdf2Iterations, keySize, sha256.New)
	defer zeroBytes(key)
	defer zeroBytes(material)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("settings: init cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("settings: init cipher: %w", err)
	}
	return &secretBox{aead: aead}, nil
}

// Seal encrypts a value into the ENC:-prefixed storage form. Empty input
// stays empty so an unset key round-trips as unset.
func (b *secretBox) Seal(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("settings: generate nonce: %w", err)
	}
	out := b.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return encryptedPrefix + base64.StdEncoding.EncodeToString(out), nil
}

// Open decrypts an ENC:-prefixed value. Plain values pass through unchanged,
// which keeps hand-edited config files working.
func (b *secretBox) Open(stored string) (string, error) {
	if !strings.HasPrefix(stored, encryptedPrefix) {
		return stored, nil
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(stored, encryptedPrefix))
	if err != nil {
		return "", ErrInvalidCiphertext
	}
	if len(data) < nonceSize {
		return "", ErrInvalidCiphertext
	}
	plaintext, err := b.aead.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		return "", ErrDecryptionFailed
	}
	return string(plaintext), nil
}

// loadOrCreateSecret reads the secret file at path, generating it with fresh
// random bytes on first use. The file is written atomically with 0600 perms.
func loadOrCreateSecret(path string, size int) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		if len(data) != size {
			return nil, fmt.Errorf("settings: key material at %s has wrong size", path)
		}
		return data, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("settings: read key material: %w", err)
	}

	data = make([]byte, size)
	if _, err := io.ReadFull(rand.Reader, data); err != nil {
		return nil, fmt.Errorf("settings: generate key material: %w", err)
	}
	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return nil, fmt.Errorf("settings: store key material: %w", err)
	}
	return data, nil
}

// zeroBytes wipes key material once it is no longer needed.
func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
