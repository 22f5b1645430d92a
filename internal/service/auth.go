package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/agroisync/backend/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

// AuthService verifies bearer tokens issued by the identity provider.
type AuthService struct {
	jwtSecret  []byte
	issuer     string
	adminEmail string
	now        func() time.Time
}

// NewAuthService creates a new AuthService. An empty issuer disables the
// issuer check.
func NewAuthService(jwtSecret, issuer, adminEmail string) *AuthService {
	return &AuthService{
		jwtSecret:  []byte(jwtSecret),
		issuer:     issuer,
		adminEmail: strings.ToLower(strings.TrimSpace(adminEmail)),
		now:        time.Now,
	}
}

// VerifyToken validates signature, expiry and issuer, then extracts the
// caller's subject and e-mail.
func (s *AuthService) VerifyToken(tokenStr string) (*domain.Identity, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return nil, domain.ErrUnauthorized(domain.CodeInvalidToken, "Token inválido")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, domain.ErrUnauthorized(domain.CodeInvalidToken, "Token inválido")
	}

	sub := getClaimString(claims, "sub")
	email := getClaimString(claims, "email")
	if sub == "" || email == "" {
		return nil, domain.ErrUnauthorized(domain.CodeInvalidTokenData, "Dados do token inválidos")
	}
	return &domain.Identity{Subject: sub, Email: email}, nil
}

func getClaimString(claims jwt.MapClaims, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}

// IssueToken signs a token for subject. Used by tooling and tests; production
// tokens come from the identity provider.
func (s *AuthService) IssueToken(subject, email string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub":   subject,
		"email": email,
		"iat":   now.Unix(),
		"exp":   now.Add(ttl).Unix(),
	}
	if s.issuer != "" {
		claims["iss"] = s.issuer
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// IsAdmin reports whether email belongs to the configured administrator.
func (s *AuthService) IsAdmin(email string) bool {
	return s.adminEmail != "" && strings.EqualFold(strings.TrimSpace(email), s.adminEmail)
}
