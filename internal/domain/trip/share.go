package trip

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Share roles. Possession of a valid token is the whole authorization model:
// whoever holds the link holds the capability.
const (
	RoleViewer = "viewer"
	RoleEditor = "editor"
)

// ErrInvalidShareToken covers expired, malformed and wrongly-signed tokens.
var ErrInvalidShareToken = errors.New("invalid or expired share token")

type shareClaims struct {
	TripID string `json:"trip_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// ShareTokenManager issues and verifies capability tokens for trip links.
type ShareTokenManager struct {
	secret []byte
	ttl    time.Duration
}

func NewShareTokenManager(secret []byte, ttl time.Duration) *ShareTokenManager {
	return &ShareTokenManager{secret: secret, ttl: ttl}
}

// IssueShareToken mints a signed capability token for one trip.
func (m *ShareTokenManager) IssueShareToken(tripID uuid.UUID, role string) (string, error) {
	if role != RoleViewer && role != RoleEditor {
		return "", fmt.Errorf("unknown share role %q", role)
	}

	now := time.Now()
	claims := shareClaims{
		TripID: tripID.String(),
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign share token: %w", err)
	}
	return signed, nil
}

// VerifyShareToken validates a capability token and returns the trip it
// grants access to, with the granted role.
func (m *ShareTokenManager) VerifyShareToken(token string) (uuid.UUID, string, error) {
	var claims shareClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil || !parsed.Valid {
		return uuid.Nil, "", ErrInvalidShareToken
	}

	tripID, err := uuid.Parse(claims.TripID)
	if err != nil {
		return uuid.Nil, "", ErrInvalidShareToken
	}
	return tripID, claims.Role, nil
}
