package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// inviteClaims scope an invite link to a single event.
type inviteClaims struct {
	EventID uint64 `json:"event_id"`
	jwt.RegisteredClaims
}

var ErrInvalidInvite = errors.New("invalid or expired invite token")

// MintInviteToken creates a share-link token an event creator hands out to
// guests. The token authorises joining, not uploading; redeeming it creates
// a guest account with its own session.
func MintInviteToken(eventID uint64, secret string, ttl time.Duration) (string, error) {
	claims := inviteClaims{
		EventID: eventID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseInviteToken validates an invite token and returns the event it grants
// access to.
func ParseInviteToken(tokenString, secret string) (uint64, error) {
	claims := inviteClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidInvite
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid || claims.EventID == 0 {
		return 0, ErrInvalidInvite
	}
	return claims.EventID, nil
}
