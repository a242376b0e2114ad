// Package token implements the signed, time-bound credential that gates the
// email-verification transition. Tokens are self-contained: nothing is
// persisted at issue time, and verification only needs the server secret.
package token

import (
	stderrors "errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"provider-verify/internal/common/errors"
)

// Claims binds a customer identity to an issue time. The jti claim gives
// each token an identity for single-use consumption without persisting the
// token itself.
type Claims struct {
	jwt.RegisteredClaims
}

// Codec issues and verifies verification tokens. Signing is HMAC-SHA256;
// the library's verify path compares signatures in constant time.
type Codec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// Verified is the result of a successful token verification.
type Verified struct {
	CustomerID string
	TokenID    string
	// ExpiresAt bounds how long a consumption marker for this token needs
	// to be retained.
	ExpiresAt time.Time
}

func NewCodec(secret string, ttl time.Duration) *Codec {
	return &Codec{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue creates a token for the given customer, valid for the codec's TTL.
func (c *Codec) Issue(customerID string) (string, error) {
	now := c.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   customerID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the token's signature and validity window and returns the
// bound customer id. Failures are classified as malformed, bad signature,
// or expired.
func (c *Codec) Verify(tokenString string) (*Verified, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
	)

	var claims Claims
	_, err := parser.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	})
	if err != nil {
		return nil, classify(err)
	}

	if claims.Subject == "" {
		return nil, errors.NewTokenMalformedError("missing subject")
	}

	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	return &Verified{
		CustomerID: claims.Subject,
		TokenID:    claims.ID,
		ExpiresAt:  expiresAt,
	}, nil
}

func classify(err error) error {
	switch {
	case stderrors.Is(err, jwt.ErrTokenExpired):
		return errors.NewTokenExpiredError()
	case stderrors.Is(err, jwt.ErrTokenSignatureInvalid):
		return errors.NewTokenSignatureInvalidError()
	default:
		return errors.NewTokenMalformedError(err.Error())
	}
}
