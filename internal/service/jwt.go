package service

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/Payphone-Digital/accounts/config"
	"github.com/Payphone-Digital/accounts/internal/constants"
	"github.com/Payphone-Digital/accounts/internal/model"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenKind selects the secret and typ claim a token is minted or checked with.
type TokenKind string

const (
	TokenAccess  TokenKind = constants.TokenTypeAccess
	TokenRefresh TokenKind = constants.TokenTypeRefresh
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// Claims is the payload of both token kinds. Refresh tokens only carry the
// registered claims and typ.
type Claims struct {
	Type     string `json:"typ"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	FullName string `json:"full_name,omitempty"`
	jwt.RegisteredClaims
}

type JWTService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string
	now           func() time.Time
}

func NewJWTService(cfg config.JWTConfig) *JWTService {
	return &JWTService{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessExpiry,
		refreshTTL:    cfg.RefreshExpiry,
		issuer:        cfg.Issuer,
		now:           time.Now,
	}
}

// WithClock replaces the time source used for iat, exp and verification.
func (s *JWTService) WithClock(now func() time.Time) *JWTService {
	s.now = now
	return s
}

// IssueAccessToken mints a short-lived token carrying the user's identity.
func (s *JWTService) IssueAccessToken(user *model.User) (string, time.Time, error) {
	if user == nil || user.ID == "" {
		return "", time.Time{}, errors.New("access token requires a user id")
	}
	claims := s.baseClaims(user.ID, TokenAccess, s.accessTTL)
	claims.Username = user.Username
	claims.Email = user.Email
	claims.FullName = user.FullName
	return s.sign(claims, s.accessSecret)
}

// IssueRefreshToken mints a long-lived token carrying only the user id.
func (s *JWTService) IssueRefreshToken(userID string) (string, time.Time, error) {
	if userID == "" {
		return "", time.Time{}, errors.New("refresh token requires a user id")
	}
	return s.sign(s.baseClaims(userID, TokenRefresh, s.refreshTTL), s.refreshSecret)
}

// Verify checks signature, algorithm, expiry and typ for the given kind.
// It returns ErrExpiredToken or ErrInvalidToken, wrapped with the cause.
func (s *JWTService) Verify(tokenString string, kind TokenKind) (*Claims, error) {
	secret := s.secretFor(kind)
	if secret == nil {
		return nil, fmt.Errorf("%w: unknown token kind %q", ErrInvalidToken, kind)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", ErrExpiredToken, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Type != string(kind) {
		return nil, fmt.Errorf("%w: expected %s token, got %q", ErrInvalidToken, kind, claims.Type)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return claims, nil
}

func (s *JWTService) baseClaims(subject string, kind TokenKind, ttl time.Duration) *Claims {
	now := s.now()
	return &Claims{
		Type: string(kind),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    s.issuer,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
}

func (s *JWTService) sign(claims *Claims, secret []byte) (string, time.Time, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign %s token: %w", claims.Type, err)
	}
	return signed, claims.ExpiresAt.Time, nil
}

func (s *JWTService) secretFor(kind TokenKind) []byte {
	switch kind {
	case TokenAccess:
		return s.accessSecret
	case TokenRefresh:
		return s.refreshSecret
	default:
		return nil
	}
}

// DigestToken is the stored form of a refresh token: hex SHA-256. The raw
// token never reaches the database.
func DigestToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
