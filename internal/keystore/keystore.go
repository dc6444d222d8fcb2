// Package keystore stores per-tenant AI provider credentials encrypted at
// rest. Keys are sealed with AES-GCM under a single service key and only
// decrypted in memory for the duration of a generation call.
package keystore

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
)

// ErrKeyNotFound means the tenant has no stored credential for the provider.
var ErrKeyNotFound = errors.New("api key not found")

// Store manages encrypted tenant API keys.
type Store struct {
	db        *sql.DB
	masterKey []byte
}

// NewStore creates a key store. masterKey must be 32 bytes (AES-256).
func NewStore(db *sql.DB, masterKey []byte) (*Store, error) {
	if len(masterKey) != 32 {
		return nil, fmt.Errorf("master key must be 32 bytes, got %d", len(masterKey))
	}
	return &Store{db: db, masterKey: masterKey}, nil
}

// GetKey returns the decrypted API key for (tenant, provider).
func (s *Store) GetKey(ctx context.Context, tenantID uuid.UUID, provider string) (string, error) {
	var encrypted string
	err := s.db.QueryRowContext(ctx, `
		SELECT encrypted_key FROM tenant_api_keys
		WHERE tenant_id = $1 AND provider = $2
	`, tenantID, provider).Scan(&encrypted)
	if err == sql.ErrNoRows {
		return "", ErrKeyNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get api key: %w", err)
	}

	plaintext, err := s.decrypt(encrypted)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt api key: %w", err)
	}
	return plaintext, nil
}

// SetKey encrypts and stores the API key for (tenant, provider),
// replacing any existing credential.
func (s *Store) SetKey(ctx context.Context, tenantID uuid.UUID, provider, apiKey string) error {
	encrypted, err := s.encrypt(apiKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt api key: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO tenant_api_keys (tenant_id, provider, encrypted_key, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (tenant_id, provider)
		DO UPDATE SET encrypted_key = EXCLUDED.encrypted_key, updated_at = NOW()
	`, tenantID, provider, encrypted)
	if err != nil {
		return fmt.Errorf("failed to store api key: %w", err)
	}
	return nil
}

// DeleteKey removes the stored credential for (tenant, provider).
func (s *Store) DeleteKey(ctx context.Context, tenantID uuid.UUID, provider string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM tenant_api_keys WHERE tenant_id = $1 AND provider = $2
	`, tenantID, provider)
	if err != nil {
		return fmt.Errorf("failed to delete api key: %w", err)
	}
	return nil
}

// encrypt seals plaintext with AES-GCM and returns base64(nonce||ciphertext).
func (s *Store) encrypt(plaintext string) (string, error) {
	block, err := aes.NewCipher(s.masterKey)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// decrypt reverses encrypt.
func (s *Store) decrypt(encoded string) (string, error) {
	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(s.masterKey)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	if len(sealed) < gcm.NonceSize() {
		return "", errors.New("ciphertext too short")
	}
	nonce, ciphertext := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}
