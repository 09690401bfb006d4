// Package session holds the caller's authenticated identity: the bearer token
// and the company and professional it acts for.
package session

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"kairon/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

var (
	ErrNoCompany = errors.New("session has no company id")
	ErrNoToken   = errors.New("session has no access token")
)

// Claims are the fields the backend puts into its access tokens.
type Claims struct {
	CompanyID string `json:"companyId"`
	jwt.RegisteredClaims
}

type Session struct {
	Token          string
	CompanyID      string
	ProfessionalID string
	ExpiresAt      time.Time
}

// ParseClaims decodes token claims without verifying the signature.
// Verification is the backend's job; the client only reads its own identity.
func ParseClaims(token string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("parse access token: %w", err)
	}
	return claims, nil
}

// FromConfig builds a session from static configuration. When the token is a JWT,
// missing company and professional ids are filled from its claims.
// An empty token yields an anonymous session usable for public booking only.
func FromConfig(cfg config.SessionConfig) (*Session, error) {
	s := &Session{
		Token:          strings.TrimSpace(cfg.AccessToken),
		CompanyID:      cfg.CompanyID,
		ProfessionalID: cfg.ProfessionalID,
	}
	if s.Token == "" {
		return s, nil
	}

	// Opaque tokens are allowed, in which case the ids must come from config.
	if strings.Count(s.Token, ".") != 2 {
		return s, nil
	}

	claims, err := ParseClaims(s.Token)
	if err != nil {
		return nil, err
	}
	if s.CompanyID == "" {
		s.CompanyID = claims.CompanyID
	}
	if s.ProfessionalID == "" {
		s.ProfessionalID = claims.Subject
	}
	if claims.ExpiresAt != nil {
		s.ExpiresAt = claims.ExpiresAt.Time
	}
	return s, nil
}

func (s *Session) Authenticated() bool {
	return s != nil && s.Token != ""
}

func (s *Session) Expired(now time.Time) bool {
	return s != nil && !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Company returns the company id authenticated operations are scoped to.
func (s *Session) Company() (string, error) {
	if s == nil || s.CompanyID == "" {
		return "", ErrNoCompany
	}
	return s.CompanyID, nil
}

// TokenSource returns nil for anonymous sessions.
func (s *Session) TokenSource() oauth2.TokenSource {
	if !s.Authenticated() {
		return nil
	}
	return oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: s.Token,
		TokenType:   "Bearer",
		Expiry:      s.ExpiresAt,
	})
}

// Issue signs an HS256 access token. The mock backend uses it to hand out demo tokens.
func Issue(secret, companyID, professionalID string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("signing secret is empty")
	}
	now := time.Now()
	claims := Claims{
		CompanyID: companyID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   professionalID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// Verify checks an HS256 token signature and expiry.
func Verify(secret, token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}
