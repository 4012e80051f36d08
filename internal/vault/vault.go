// Package vault stores per-source credentials encrypted at rest.
//
// Each field is sealed independently with XChaCha20-Poly1305 under a single
// process-wide key supplied via configuration. Plaintext never reaches the
// database; a vault constructed without a key refuses every operation
// instead of silently passing secrets through.
package vault

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/chacha20poly1305"

	"jobpilot/agent-service/internal/model"
)

var (
	// ErrNoKey is returned by every operation on a vault that was
	// constructed without an encryption key.
	ErrNoKey = errors.New("vault: no encryption key configured")

	// ErrNotFound is returned when no credential exists for a source.
	ErrNotFound = errors.New("vault: credential not found")
)

// Vault encrypts and persists credentials.
type Vault struct {
	pool *pgxpool.Pool
	aead interface {
		Seal(dst, nonce, plaintext, additionalData []byte) []byte
		Open(dst, nonce, ciphertext, additionalData []byte) ([]byte, error)
	}
}

// New constructs a Vault from a base64-encoded 32-byte key. An empty key
// yields a disabled vault whose operations return ErrNoKey.
func New(pool *pgxpool.Pool, encodedKey string) (*Vault, error) {
	v := &Vault{pool: pool}
	if encodedKey == "" {
		return v, nil
	}

	key, err := base64.StdEncoding.DecodeString(encodedKey)
	if err != nil {
		return nil, fmt.Errorf("vault: key is not valid base64: %w", err)
	}
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("vault: key must be %d bytes, got %d", chacha20poly1305.KeySize, len(key))
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("vault: init cipher: %w", err)
	}
	v.aead = aead
	return v, nil
}

// Enabled reports whether the vault holds a key.
func (v *Vault) Enabled() bool { return v.aead != nil }

// Put encrypts and stores a credential for source, replacing any existing
// row for that source.
func (v *Vault) Put(ctx context.Context, cred model.Credential) error {
	if v.aead == nil {
		return ErrNoKey
	}
	if cred.Source == "" {
		return fmt.Errorf("vault: empty source name")
	}

	usernameCT, err := v.seal([]byte(cred.Username))
	if err != nil {
		return err
	}
	passwordCT, err := v.seal([]byte(cred.Password))
	if err != nil {
		return err
	}
	var extraCT []byte
	if cred.Extra != "" {
		extraCT, err = v.seal([]byte(cred.Extra))
		if err != nil {
			return err
		}
	}

	_, err = v.pool.Exec(ctx,
		`INSERT INTO credentials (source, username_ct, password_ct, extra_ct, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, NOW(), NOW())
		 ON CONFLICT (source) DO UPDATE SET
		   username_ct = EXCLUDED.username_ct,
		   password_ct = EXCLUDED.password_ct,
		   extra_ct    = EXCLUDED.extra_ct,
		   updated_at  = NOW()`,
		cred.Source, usernameCT, passwordCT, extraCT,
	)
	if err != nil {
		return fmt.Errorf("vault: store credential for %s: %w", cred.Source, err)
	}
	return nil
}

// Get loads and decrypts the credential for source. A corrupt ciphertext or
// a wrong key fails this call only, not the process.
func (v *Vault) Get(ctx context.Context, source string) (*model.Credential, error) {
	if v.aead == nil {
		return nil, ErrNoKey
	}

	var usernameCT, passwordCT, extraCT []byte
	err := v.pool.QueryRow(ctx,
		`SELECT username_ct, password_ct, extra_ct FROM credentials WHERE source = $1`,
		source,
	).Scan(&usernameCT, &passwordCT, &extraCT)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("vault: load credential for %s: %w", source, err)
	}

	username, err := v.open(usernameCT)
	if err != nil {
		return nil, fmt.Errorf("vault: decrypt username for %s: %w", source, err)
	}
	password, err := v.open(passwordCT)
	if err != nil {
		return nil, fmt.Errorf("vault: decrypt password for %s: %w", source, err)
	}

	cred := &model.Credential{
		Source:   source,
		Username: string(username),
		Password: string(password),
	}
	if len(extraCT) > 0 {
		extra, err := v.open(extraCT)
		if err != nil {
			return nil, fmt.Errorf("vault: decrypt extra for %s: %w", source, err)
		}
		cred.Extra = string(extra)
	}
	return cred, nil
}

// seal encrypts plaintext as nonce ‖ ciphertext with a fresh random nonce.
func (v *Vault) seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("vault: nonce: %w", err)
	}
	return v.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// open reverses seal. Truncated or tampered input fails authentication.
func (v *Vault) open(sealed []byte) ([]byte, error) {
	if len(sealed) < chacha20poly1305.NonceSizeX {
		return nil, errors.New("ciphertext too short")
	}
	nonce, ct := sealed[:chacha20poly1305.NonceSizeX], sealed[chacha20poly1305.NonceSizeX:]
	return v.aead.Open(nil, nonce, ct, nil)
}

// GenerateKey returns a fresh base64-encoded vault key, for operator use.
func GenerateKey() (string, error) {
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := rand.Read(key); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(key), nil
}
