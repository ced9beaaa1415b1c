package auth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const defaultTokenTTL = 24 * time.Hour

// ErrInvalidToken is returned for missing, malformed, wrongly signed or
// expired tokens. The client-visible response does not distinguish the
// reason; the wrapped message exists for logging only.
var ErrInvalidToken = errors.New("invalid token")

// TokenConfig carries the process-wide signing secret and token lifetime.
// It is loaded once at startup and passed into NewTokenService explicitly.
type TokenConfig struct {
	Secret string
	TTL    time.Duration
}

// TokenService issues and verifies signed bearer tokens encoding the
// authenticated subject. It holds no mutable state and is safe for
// concurrent use.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService constructs a TokenService. An empty secret is a
// configuration error; the caller must refuse to start.
func NewTokenService(cfg TokenConfig) (*TokenService, error) {
	if strings.TrimSpace(cfg.Secret) == "" {
		return nil, errors.New("token signing secret is required")
	}
	ttl := cfg.TTL
	if ttl == 0 {
		ttl = defaultTokenTTL
	}
	return &TokenService{secret: []byte(cfg.Secret), ttl: ttl}, nil
}

// Issue mints a token whose claims carry only the principal's subject.
func (s *TokenService) Issue(p Principal) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.Itoa(p.Subject),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify checks the token's signature and expiry and returns its subject.
func (s *TokenService) Verify(tokenString string) (int, error) {
	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return s.secret, nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return 0, ErrInvalidToken
	}

	subject, err := strconv.Atoi(strings.TrimSpace(claims.Subject))
	if err != nil || subject < 1 {
		return 0, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	return subject, nil
}
