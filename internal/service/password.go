package service

import (
	"errors"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	appErrors "github.com/noah-isme/examprep-api/pkg/errors"
)

// maxPasswordBytes is bcrypt's input ceiling.
const maxPasswordBytes = 72

// CredentialHasher hashes and verifies passwords with bcrypt. Inputs longer than
// 72 bytes are cut at a UTF-8 boundary, identically for hash and verify.
type CredentialHasher struct {
	cost int
}

// NewCredentialHasher builds a hasher. A cost outside bcrypt's range falls back to the default.
func NewCredentialHasher(cost int) *CredentialHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &CredentialHasher{cost: cost}
}

// Hash returns the bcrypt hash of the truncated password.
func (h *CredentialHasher) Hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword(truncatePassword(password), h.cost)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrPasswordProcessing.Code, appErrors.ErrPasswordProcessing.Status, appErrors.ErrPasswordProcessing.Message)
	}
	return string(hashed), nil
}

// Verify reports whether password matches hash. A malformed hash is an error, a mismatch is not.
func (h *CredentialHasher) Verify(password, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), truncatePassword(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, appErrors.Wrap(err, appErrors.ErrPasswordProcessing.Code, appErrors.ErrPasswordProcessing.Status, appErrors.ErrPasswordProcessing.Message)
	}
}

func truncatePassword(password string) []byte {
	raw := []byte(password)
	if len(raw) <= maxPasswordBytes {
		return raw
	}
	cut := maxPasswordBytes
	// back off to the start of the rune that straddles the limit
	for cut > 0 && !utf8.RuneStart(raw[cut]) {
		cut--
	}
	return raw[:cut]
}
