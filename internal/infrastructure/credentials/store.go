// Package credentials resolves opaque credential references into usable
// endpoint credentials. Credentials are stored encrypted; the engine never
// embeds them on the endpoint itself.
package credentials

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"hyperfleet/internal/infrastructure/persistence/models"
	"hyperfleet/internal/shared/logger"
)

var (
	// ErrCredentialNotFound means no credential exists for the reference.
	ErrCredentialNotFound = errors.New("credential not found")
	// ErrDecryptionFailed means the stored credential could not be decrypted.
	ErrDecryptionFailed = errors.New("credential decryption failed")
)

// Credential is a decrypted endpoint credential. TokenID/Secret carry API
// token auth; Username/Password carry basic auth. Either pair may be empty.
type Credential struct {
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	TokenID  string `json:"token_id,omitempty"`
	Secret   string `json:"secret,omitempty"`
}

// Store resolves credential references for probes.
type Store interface {
	Resolve(ctx context.Context, ref string) (*Credential, error)
	Save(ctx context.Context, ref string, cred *Credential) error
}

// GormStore implements Store over the endpoint_credentials table with
// AES-GCM encryption at rest.
type GormStore struct {
	db     *gorm.DB
	aead   cipher.AEAD
	logger logger.Interface
}

// NewGormStore creates a credential store. The key is hex-encoded and must
// decode to 16, 24 or 32 bytes.
func NewGormStore(db *gorm.DB, hexKey string, logger logger.Interface) (*GormStore, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("invalid credential encryption key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("invalid credential encryption key: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize credential cipher: %w", err)
	}

	return &GormStore{
		db:     db,
		aead:   aead,
		logger: logger,
	}, nil
}

// Resolve loads and decrypts the credential for the given reference.
func (s *GormStore) Resolve(ctx context.Context, ref string) (*Credential, error) {
	var model models.EndpointCredentialModel

	if err := s.db.WithContext(ctx).Where("ref = ?", ref).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrCredentialNotFound
		}
		return nil, fmt.Errorf("failed to load credential: %w", err)
	}

	plaintext, err := s.aead.Open(nil, model.Nonce, model.Ciphertext, []byte(ref))
	if err != nil {
		s.logger.Warnw("credential decryption failed", "ref", ref)
		return nil, ErrDecryptionFailed
	}

	var cred Credential
	if err := json.Unmarshal(plaintext, &cred); err != nil {
		return nil, ErrDecryptionFailed
	}

	return &cred, nil
}

// Save encrypts and upserts the credential for the given reference.
func (s *GormStore) Save(ctx context.Context, ref string, cred *Credential) error {
	plaintext, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("failed to marshal credential: %w", err)
	}

	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := s.aead.Seal(nil, nonce, plaintext, []byte(ref))

	model := models.EndpointCredentialModel{
		Ref:        ref,
		Ciphertext: ciphertext,
		Nonce:      nonce,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.EndpointCredentialModel
		result := tx.Where("ref = ?", ref).First(&existing)
		if result.Error == nil {
			return tx.Model(&existing).Updates(map[string]interface{}{
				"ciphertext": ciphertext,
				"nonce":      nonce,
			}).Error
		}
		if result.Error != gorm.ErrRecordNotFound {
			return result.Error
		}
		return tx.Create(&model).Error
	})
	if err != nil {
		return fmt.Errorf("failed to save credential: %w", err)
	}

	return nil
}
