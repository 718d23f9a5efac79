package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"choretracker/internal/domain"
)

// DefaultTokenExpiry is the session token lifetime.
const DefaultTokenExpiry = 24 * time.Hour

type jwtClaims struct {
	jwt.RegisteredClaims
	Email      string  `json:"email"`
	FirstName  string  `json:"first_name,omitempty"`
	LastName   string  `json:"last_name,omitempty"`
	Role       string  `json:"role"`
	FamilyID   *string `json:"family_id"`
	FamilyName string  `json:"family_name,omitempty"`
}

// JWTConfig configures signing and verification of session tokens.
type JWTConfig struct {
	Secret   string
	Issuer   string
	Audience string
	Expiry   time.Duration
	// Leeway tolerates small clock skew when checking exp and iat.
	Leeway time.Duration
	// Now is the clock; nil means time.Now.
	Now func() time.Time
}

// JWT issues and verifies HS512-signed session tokens. It is safe for concurrent use.
type JWT struct {
	secret   []byte
	issuer   string
	audience string
	expiry   time.Duration
	parser   *jwt.Parser
	now      func() time.Time
}

// NewJWT returns a token issuer and verifier. Expiry validation is always enabled.
func NewJWT(cfg JWTConfig) (*JWT, error) {
	if cfg.Secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	if cfg.Expiry <= 0 {
		cfg.Expiry = DefaultTokenExpiry
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(cfg.Leeway),
		jwt.WithTimeFunc(now),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	return &JWT{
		secret:   []byte(cfg.Secret),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		expiry:   cfg.Expiry,
		parser:   jwt.NewParser(opts...),
		now:      now,
	}, nil
}

// Issue signs a token for user. familyName is embedded for display only.
func (j *JWT) Issue(user *domain.User, familyName string) (string, error) {
	if user == nil || user.ID == "" {
		return "", errors.New("cannot issue token without a user id")
	}
	now := j.now()
	claims := jwtClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    j.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.expiry)),
		},
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Role:      user.Role,
	}
	if j.audience != "" {
		claims.Audience = jwt.ClaimStrings{j.audience}
	}
	if id, ok := user.Family.FamilyID(); ok {
		claims.FamilyID = &id
		claims.FamilyName = familyName
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	tokenString, err := token.SignedString(j.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// Verify checks signature, algorithm, issuer, audience and expiry. Every failure is
// reported as domain.ErrInvalidToken.
func (j *JWT) Verify(tokenString string) (domain.Claims, error) {
	parsed, err := j.parser.ParseWithClaims(tokenString, &jwtClaims{}, func(*jwt.Token) (any, error) {
		return j.secret, nil
	})
	if err != nil {
		return domain.Claims{}, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}
	c, ok := parsed.Claims.(*jwtClaims)
	if !ok || !parsed.Valid || c.Subject == "" {
		return domain.Claims{}, domain.ErrInvalidToken
	}
	claims := domain.Claims{
		UserID:     c.Subject,
		Email:      c.Email,
		FirstName:  c.FirstName,
		LastName:   c.LastName,
		Role:       c.Role,
		Family:     domain.Unbound(),
		FamilyName: c.FamilyName,
	}
	if c.FamilyID != nil {
		claims.Family = domain.BoundTo(*c.FamilyID)
	}
	if c.ExpiresAt != nil {
		claims.ExpiresAt = c.ExpiresAt.Time
	}
	return claims, nil
}
