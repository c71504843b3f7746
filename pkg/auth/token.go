package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/vendibook/vendibook-backend/pkg/config"
)

// clockSkew tolerates small drift between the issuing host and this one.
const clockSkew = 30 * time.Second

var signingMethod = jwt.SigningMethodHS256

// Signer mints and verifies HS256 access tokens for a single issuer.
type Signer struct {
	key    []byte
	issuer string
	ttl    time.Duration
	parser *jwt.Parser
}

// NewSigner binds a signer to the JWT settings. A zero expiration only
// disables minting; verification still works.
func NewSigner(cfg config.JWTConfig) (*Signer, error) {
	if cfg.Secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	if cfg.Issuer == "" {
		return nil, errors.New("jwt issuer is required")
	}
	return &Signer{
		key:    []byte(cfg.Secret),
		issuer: cfg.Issuer,
		ttl:    time.Duration(cfg.ExpirationMinutes) * time.Minute,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{signingMethod.Alg()}),
			jwt.WithIssuer(cfg.Issuer),
			jwt.WithExpirationRequired(),
			jwt.WithLeeway(clockSkew),
		),
	}, nil
}

// Mint signs claims for payload, valid from now for the configured TTL.
func (s *Signer) Mint(now time.Time, payload AccessTokenPayload) (string, error) {
	if s.ttl <= 0 {
		return "", errors.New("jwt expiration minutes must be positive")
	}
	if payload.UserID == uuid.Nil {
		return "", errors.New("user id is required")
	}
	if !payload.Role.IsValid() {
		return "", fmt.Errorf("invalid role %q", payload.Role)
	}

	claims := AccessTokenClaims{
		UserID: payload.UserID,
		Role:   payload.Role,
		Email:  strings.TrimSpace(payload.Email),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   payload.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("signing jwt: %w", err)
	}
	return signed, nil
}

// Parse verifies signature, issuer, expiry and the claim invariants in
// AccessTokenClaims.Validate.
func (s *Signer) Parse(raw string) (*AccessTokenClaims, error) {
	claims := &AccessTokenClaims{}
	if _, err := s.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return s.key, nil
	}); err != nil {
		return nil, err
	}
	return claims, nil
}

// MintAccessToken is a one-shot Mint for callers without a Signer.
func MintAccessToken(cfg config.JWTConfig, now time.Time, payload AccessTokenPayload) (string, error) {
	signer, err := NewSigner(cfg)
	if err != nil {
		return "", err
	}
	return signer.Mint(now, payload)
}

// ParseAccessToken is a one-shot Parse for callers without a Signer.
func ParseAccessToken(cfg config.JWTConfig, raw string) (*AccessTokenClaims, error) {
	signer, err := NewSigner(cfg)
	if err != nil {
		return nil, err
	}
	return signer.Parse(raw)
}
