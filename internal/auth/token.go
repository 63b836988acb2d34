// ABOUTME: Signs and verifies the context attached to interactive card buttons
// ABOUTME: Uses HS256 JWTs binding a callback to its thread, channel and stage

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token errors
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
	ErrMissingClaim = errors.New("missing required claim")
	ErrMismatch     = errors.New("token does not match callback")
)

// CardClaims identifies the card a callback came from.
type CardClaims struct {
	RootID    string
	ChannelID string
	Stage     string
}

// CardSigner issues and checks card tokens.
type CardSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewCardSigner creates a signer. Tokens expire after ttl.
func NewCardSigner(secret []byte, ttl time.Duration) *CardSigner {
	return &CardSigner{secret: secret, ttl: ttl, now: time.Now}
}

// Sign returns a token for the given card.
func (s *CardSigner) Sign(c CardClaims) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub": c.RootID,
		"chn": c.ChannelID,
		"stg": c.Stage,
		"iat": now.Unix(),
		"exp": now.Add(s.ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify validates tokenString and returns its claims.
func (s *CardSigner) Verify(tokenString string) (CardClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return CardClaims{}, ErrExpiredToken
		}
		return CardClaims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return CardClaims{}, ErrInvalidToken
	}

	var c CardClaims
	for name, dst := range map[string]*string{"sub": &c.RootID, "chn": &c.ChannelID, "stg": &c.Stage} {
		v, ok := claims[name].(string)
		if !ok || v == "" {
			return CardClaims{}, fmt.Errorf("%w: %s", ErrMissingClaim, name)
		}
		*dst = v
	}
	return c, nil
}

// Check verifies tokenString and that it was issued for want.
func (s *CardSigner) Check(tokenString string, want CardClaims) error {
	got, err := s.Verify(tokenString)
	if err != nil {
		return err
	}
	if got != want {
		return ErrMismatch
	}
	return nil
}
