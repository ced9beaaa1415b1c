package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/blogforge/apiserver/internal/store"
	"github.com/blogforge/apiserver/types"
)

// ErrInvalidCredentials is returned both for an unknown identifier and a
// wrong password, so login failures do not reveal which identifiers exist.
var ErrInvalidCredentials = errors.New("invalid credentials")

// dummyDigest is a valid bcrypt digest compared against on the
// unknown-identifier path so both failure paths pay the hash cost.
const dummyDigest = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// CredentialStore is the read-only user lookup the validator depends on.
// It is satisfied by store.UserRepository.
type CredentialStore interface {
	FindByUsername(ctx context.Context, username string) (types.User, error)
	FindByEmail(ctx context.Context, email string) (types.User, error)
}

// CredentialValidator authenticates an identifier/password pair against
// stored credentials.
type CredentialValidator struct {
	store  CredentialStore
	hasher PasswordHasher
}

func NewCredentialValidator(credStore CredentialStore, hasher PasswordHasher) *CredentialValidator {
	return &CredentialValidator{store: credStore, hasher: hasher}
}

// Validate looks up the user behind the identifier and verifies the
// password against the stored digest. The identifier is treated as an
// email when it contains an @, a username otherwise. On success the
// returned principal carries every stored field except the digest.
func (v *CredentialValidator) Validate(ctx context.Context, identifier, password string) (Principal, error) {
	var user types.User
	var err error
	if strings.Contains(identifier, "@") {
		user, err = v.store.FindByEmail(ctx, identifier)
	} else {
		user, err = v.store.FindByUsername(ctx, identifier)
	}
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			v.hasher.Verify(password, dummyDigest)
			return Principal{}, ErrInvalidCredentials
		}
		return Principal{}, fmt.Errorf("credential lookup: %w", err)
	}

	if !v.hasher.Verify(password, user.PasswordHash) {
		return Principal{}, ErrInvalidCredentials
	}

	return Principal{
		Subject:   user.ID,
		Username:  user.Username,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}, nil
}
