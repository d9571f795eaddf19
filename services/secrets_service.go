package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/Nopalinto/discord-profile-card/internal/secrets"
)

// KeyStore is the slice of the store holding encrypted API keys.
type KeyStore interface {
	GetAPIKey(ctx context.Context, userID string) (string, error)
	SetAPIKey(ctx context.Context, userID, encrypted string) error
	DeleteAPIKey(ctx context.Context, userID string) error
}

// SecretsService stores per-user RAWG API keys encrypted at rest. The
// plaintext key is never returned to clients, only a masked form proving
// one is configured.
type SecretsService struct {
	store KeyStore
	box   *secrets.Box
}

func NewSecretsService(store KeyStore, box *secrets.Box) *SecretsService {
	return &SecretsService{store: store, box: box}
}

// GetMaskedKey reports whether a key is configured, returning a masked
// rendering of it. A key that no longer decrypts counts as absent.
func (s *SecretsService) GetMaskedKey(ctx context.Context, userID string) (string, bool, error) {
	sealed, err := s.store.GetAPIKey(ctx, userID)
	if err != nil {
		return "", false, fmt.Errorf("failed to load api key: %w", err)
	}
	if sealed == "" {
		return "", false, nil
	}

	plain, err := s.box.Decrypt(sealed)
	if err != nil {
		if errors.Is(err, secrets.ErrInvalidCiphertext) {
			log.Printf("Stored api key for user %s no longer decrypts", userID)
			return "", false, nil
		}
		return "", false, err
	}
	return maskKey(plain), true, nil
}

// SetKey encrypts and stores the key; an empty key deletes the stored one.
func (s *SecretsService) SetKey(ctx context.Context, userID, apiKey string) error {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return s.store.DeleteAPIKey(ctx, userID)
	}

	sealed, err := s.box.Encrypt(apiKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt api key: %w", err)
	}
	return s.store.SetAPIKey(ctx, userID, sealed)
}

// DecryptedKey returns the plaintext key for server-side game-art lookups.
func (s *SecretsService) DecryptedKey(ctx context.Context, userID string) (string, error) {
	sealed, err := s.store.GetAPIKey(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("failed to load api key: %w", err)
	}
	if sealed == "" {
		return "", nil
	}
	plain, err := s.box.Decrypt(sealed)
	if err != nil {
		return "", err
	}
	return plain, nil
}

func maskKey(key string) string {
	if len(key) > 8 {
		return key[:4] + "..." + key[len(key)-4:]
	}
	return "****"
}
