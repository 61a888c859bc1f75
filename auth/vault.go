/*
Package auth stores per-user Jira credentials encrypted at rest.

PURPOSE:
  Every bot user supplies their own Jira email + API token once; the vault
  encrypts both and keeps only ciphertext in the store. The encryption key
  is derived from the bot secret with PBKDF2-SHA256 (100k iterations), so
  the database alone is not enough to recover tokens.

ENCRYPTION:
  AES-256-GCM with a random nonce per value, encoded as
  base64url(nonce || ciphertext). The KDF salt is fixed: the key must be
  re-derivable across restarts from the secret alone. Rotating BOT_SECRET
  invalidates all stored credentials, which is the intended recovery path
  for a leaked secret.

SEE ALSO:
  - store/sqlite/sqlite.go: ciphertext persistence
  - bot/bot.go: the login conversation that feeds this vault
*/
package auth

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"

	"github.com/relay/timesheet-bot/store/sqlite"
)

const (
	kdfIterations = 100_000
	keyLength     = 32
)

// kdfSalt is deliberately static: the key must be derivable from the
// secret alone on every start.
var kdfSalt = []byte("timesheet-bot-credential-vault")

// ErrNotAuthenticated is returned when a user has no stored credentials.
var ErrNotAuthenticated = errors.New("user is not authenticated")

// Credentials is a decrypted email + API token pair.
type Credentials struct {
	Email    string
	APIToken string
}

// =============================================================================
// VAULT
// =============================================================================

// Vault encrypts credentials with a secret-derived key and persists the
// ciphertext through the store.
type Vault struct {
	store *sqlite.Store
	aead  cipher.AEAD
}

// NewVault derives the encryption key from secret and wraps the store.
func NewVault(store *sqlite.Store, secret string) (*Vault, error) {
	if secret == "" {
		return nil, errors.New("vault secret must not be empty")
	}

	key := pbkdf2.Key([]byte(secret), kdfSalt, kdfIterations, keyLength, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("init gcm: %w", err)
	}
	return &Vault{store: store, aead: aead}, nil
}

// Save encrypts and stores a user's credentials, replacing any previous pair.
func (v *Vault) Save(ctx context.Context, userID string, creds Credentials) error {
	emailCipher, err := v.encrypt(creds.Email)
	if err != nil {
		return err
	}
	tokenCipher, err := v.encrypt(creds.APIToken)
	if err != nil {
		return err
	}
	return v.store.SaveCredentials(ctx, sqlite.CredentialRecord{
		UserID:         userID,
		EmailCipher:    emailCipher,
		APITokenCipher: tokenCipher,
	})
}

// Get returns a user's decrypted credentials, or ErrNotAuthenticated when
// none are stored.
func (v *Vault) Get(ctx context.Context, userID string) (Credentials, error) {
	rec, err := v.store.GetCredentials(ctx, userID)
	if errors.Is(err, sqlite.ErrCredentialsNotFound) {
		return Credentials{}, ErrNotAuthenticated
	}
	if err != nil {
		return Credentials{}, err
	}

	email, err := v.decrypt(rec.EmailCipher)
	if err != nil {
		return Credentials{}, fmt.Errorf("decrypt credentials for %s: %w", userID, err)
	}
	token, err := v.decrypt(rec.APITokenCipher)
	if err != nil {
		return Credentials{}, fmt.Errorf("decrypt credentials for %s: %w", userID, err)
	}
	return Credentials{Email: email, APIToken: token}, nil
}

// Remove deletes a user's stored credentials.
func (v *Vault) Remove(ctx context.Context, userID string) error {
	return v.store.DeleteCredentials(ctx, userID)
}

// IsAuthenticated reports whether a user has stored credentials.
func (v *Vault) IsAuthenticated(ctx context.Context, userID string) bool {
	_, err := v.store.GetCredentials(ctx, userID)
	return err == nil
}

// =============================================================================
// ENCRYPTION PRIMITIVES
// =============================================================================

func (v *Vault) encrypt(plaintext string) (string, error) {
	nonce := make([]byte, v.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	sealed := v.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.URLEncoding.EncodeToString(sealed), nil
}

func (v *Vault) decrypt(encoded string) (string, error) {
	sealed, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("decode ciphertext: %w", err)
	}
	nonceSize := v.aead.NonceSize()
	if len(sealed) < nonceSize {
		return "", errors.New("ciphertext too short")
	}
	plain, err := v.aead.Open(nil, sealed[:nonceSize], sealed[nonceSize:], nil)
	if err != nil {
		return "", fmt.Errorf("decrypt: %w", err)
	}
	return string(plain), nil
}
