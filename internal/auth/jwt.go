package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/lalith-99/guardpost/internal/models"
)

const issuer = "guardpost"

// Claims is the payload inside every session token.
//
// Login mints a token with these fields; on every later request the
// middleware reads them back, which is how a handler knows who is
// calling without a users query.
//
// Why carry Role in the token?
//   - Route-level gates (client-only job posting, guard-only applying)
//     run before any service call and need no database read.
//   - The websocket handshake authenticates the same way as REST.
//   - A role change takes effect on the next login, not mid-session.
type Claims struct {
	UserID uuid.UUID   `json:"user_id"`
	Email  string      `json:"email"`
	Role   models.Role `json:"role"`
	jwt.RegisteredClaims
}

// GenerateToken signs an HS256 token for u that expires after ttl.
//
// Why HS256?
//   - One shared secret (JWT_SECRET), no key pair to distribute.
//   - guardpost is a single service that both issues and verifies tokens.
//     If another service ever needs to verify without issuing, RS256
//     with the private key kept here is the switch to make.
func GenerateToken(u *models.User, secret string, ttl time.Duration) (string, error) {
	now := time.Now()

	claims := Claims{
		UserID: u.ID,
		Email:  u.Email,
		Role:   u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			// Subject duplicates UserID in the standard slot so generic
			// JWT tooling shows who the token belongs to.
			Subject:   u.ID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseToken verifies signature, expiry and signing method, then returns
// the claims. Tokens signed with anything but HMAC are rejected before the
// key is handed out, which closes the alg-confusion hole.
func ParseToken(tokenString, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(secret), nil
		},
		jwt.WithIssuer(issuer),
	)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.UserID == uuid.Nil || !claims.Role.Valid() {
		return nil, errors.New("token is missing user or role")
	}
	return claims, nil
}
