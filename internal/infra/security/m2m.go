// File: internal/infra/security/m2m.go
package security

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"kids-content-billing/internal/domain"
)

// M2MTokenService mints and verifies short-lived service-to-service tokens.
// Tokens bind an issuer/audience pair and expire within about a minute, so a
// leaked token is useless shortly after and no revocation list is needed.
type M2MTokenService struct {
	secret []byte
	ttl    time.Duration
}

// M2MClaims is the transient claim set of one outbound call. Never persisted.
type M2MClaims struct {
	jwt.RegisteredClaims
}

func NewM2MTokenService(secret string, ttl time.Duration) (*M2MTokenService, error) {
	if secret == "" {
		return nil, fmt.Errorf("m2m: %w: empty secret", domain.ErrInvalidArgument)
	}
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &M2MTokenService{secret: []byte(secret), ttl: ttl}, nil
}

// Mint produces a signed token proving issuer's identity to audience.
func (s *M2MTokenService) Mint(issuer, audience string) (string, error) {
	if issuer == "" || audience == "" {
		return "", fmt.Errorf("m2m: %w: issuer and audience required", domain.ErrInvalidArgument)
	}
	now := time.Now()
	claims := M2MClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify checks signature, expiry, issuer and audience. It fails closed: a
// token minted for one service pair is never accepted for another, even when
// cryptographically well-formed.
func (s *M2MTokenService) Verify(tokenString, expectedIssuer, expectedAudience string) (*M2MClaims, error) {
	claims := &M2MClaims{}
	tkn, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(expectedIssuer),
		jwt.WithAudience(expectedAudience),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !tkn.Valid {
		return nil, domain.ErrInvalidCredential
	}
	return claims, nil
}
