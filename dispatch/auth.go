package dispatch

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	nanoid "github.com/matoous/go-nanoid/v2"
)

// Authentication errors.
var (
	// ErrInvalidToken indicates the token is malformed or has an
	// invalid signature.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired indicates the token has expired.
	ErrTokenExpired = errors.New("token expired")

	// ErrSecretTooShort indicates the dispatch secret is too short.
	ErrSecretTooShort = errors.New("dispatch secret must be at least 32 bytes")
)

// DefaultTokenTTL is the lifetime of issued dispatch tokens.
const DefaultTokenTTL = 24 * time.Hour

const tokenIssuer = "blogflow"

// AuthConfig holds the credentials the server accepts.
type AuthConfig struct {
	// Secret is the HMAC signing key for JWTs (must be at least 32 bytes).
	Secret []byte

	// APIKeyHash is the SHA-256 hex hash of a static API key. Optional;
	// when set, requests may present the key instead of a JWT.
	APIKeyHash string

	// TokenTTL is the lifetime of tokens issued by GenerateToken.
	// Defaults to DefaultTokenTTL if zero.
	TokenTTL time.Duration
}

func (c AuthConfig) tokenTTL() time.Duration {
	if c.TokenTTL == 0 {
		return DefaultTokenTTL
	}
	return c.TokenTTL
}

// GenerateToken issues a signed JWT naming the caller.
func GenerateToken(cfg AuthConfig, subject string) (string, error) {
	if len(cfg.Secret) < 32 {
		return "", ErrSecretTooShort
	}

	tokenID, err := nanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate token ID: %w", err)
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(cfg.tokenTTL())),
		ID:        tokenID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(cfg.Secret)
}

// ValidateToken parses and validates a JWT, returning the subject.
func ValidateToken(cfg AuthConfig, tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return cfg.Secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", ErrInvalidToken
	}
	if !token.Valid || claims.Issuer != tokenIssuer {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

// HashAPIKey creates a SHA-256 hash of an API key for configuration
// storage. Only the hash lives in config; the key itself stays with
// the caller.
func HashAPIKey(key string) string {
	h := sha256.Sum256([]byte(key))
	return hex.EncodeToString(h[:])
}

// GenerateAPIKey creates a static dispatch API key and its hash.
func GenerateAPIKey() (key, hash string, err error) {
	random, err := nanoid.Generate(
		"0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz",
		32,
	)
	if err != nil {
		return "", "", fmt.Errorf("generate api key: %w", err)
	}
	key = "bfk_" + random
	return key, HashAPIKey(key), nil
}

// authenticate checks a bearer credential against the configured
// JWT secret and API key hash. Returns the caller identity.
func (c AuthConfig) authenticate(credential string) (string, error) {
	if c.APIKeyHash != "" {
		hash := HashAPIKey(credential)
		if subtle.ConstantTimeCompare([]byte(hash), []byte(c.APIKeyHash)) == 1 {
			return "api-key", nil
		}
	}
	if len(c.Secret) >= 32 {
		return ValidateToken(c, credential)
	}
	return "", ErrInvalidToken
}
