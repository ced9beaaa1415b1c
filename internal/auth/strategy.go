package auth

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Strategy is a pluggable authentication mechanism selected per route.
// Implementations return ErrInvalidCredentials or ErrInvalidToken for
// rejections; any other error means a collaborator failed.
type Strategy interface {
	Authenticate(r *http.Request) (Principal, error)
}

// CredentialStrategy authenticates the username/password pair carried in
// the request body. It is used by the login route only.
type CredentialStrategy struct {
	validator *CredentialValidator
}

func NewCredentialStrategy(validator *CredentialValidator) *CredentialStrategy {
	return &CredentialStrategy{validator: validator}
}

type credentialsBody struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *CredentialStrategy) Authenticate(r *http.Request) (Principal, error) {
	var body credentialsBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return Principal{}, fmt.Errorf("%w: malformed body", ErrInvalidCredentials)
	}

	body.Username = strings.TrimSpace(body.Username)
	if body.Username == "" || body.Password == "" {
		return Principal{}, fmt.Errorf("%w: missing credentials", ErrInvalidCredentials)
	}

	return s.validator.Validate(r.Context(), body.Username, body.Password)
}

// TokenStrategy authenticates the bearer token carried in the
// Authorization header. The principal carries only the token's subject.
type TokenStrategy struct {
	tokens *TokenService
}

func NewTokenStrategy(tokens *TokenService) *TokenStrategy {
	return &TokenStrategy{tokens: tokens}
}

func (s *TokenStrategy) Authenticate(r *http.Request) (Principal, error) {
	tokenString, err := bearerToken(r)
	if err != nil {
		return Principal{}, err
	}

	subject, err := s.tokens.Verify(tokenString)
	if err != nil {
		return Principal{}, err
	}
	return Principal{Subject: subject}, nil
}

func bearerToken(r *http.Request) (string, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", fmt.Errorf("%w: missing authorization header", ErrInvalidToken)
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", fmt.Errorf("%w: malformed authorization header", ErrInvalidToken)
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", fmt.Errorf("%w: empty bearer token", ErrInvalidToken)
	}
	return token, nil
}
