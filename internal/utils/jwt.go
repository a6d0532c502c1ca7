package utils // package utils issues and verifies session tokens and carries them in cookies

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/iliyamo/ev-asset-platform/internal/model"
)

var (
	// ErrTokenInvalid covers malformed tokens, bad signatures, unexpected
	// algorithms and unusable claims.
	ErrTokenInvalid = errors.New("session token invalid")
	// ErrTokenExpired is returned for a correctly signed token past its expiry.
	ErrTokenExpired = errors.New("session token expired")
)

// Claims is the payload of a session token.  The registered ID (jti) lets
// a single token be revoked before it expires.
type Claims struct {
	jwt.RegisteredClaims
	AccountID string     `json:"account_id"`
	Email     string     `json:"email"`
	Role      model.Role `json:"role"`
}

// Clock returns the current time.  Tests substitute a fixed clock.
type Clock func() time.Time

// SessionToken is a signed token together with its expiry.
type SessionToken struct {
	Token     string
	ID        string
	ExpiresAt time.Time
}

// TokenIssuer mints HS256 session tokens.
type TokenIssuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    Clock
}

// NewTokenIssuer builds an issuer.  A nil clock means time.Now.
func NewTokenIssuer(secret, issuer string, ttl time.Duration, now Clock) *TokenIssuer {
	if now == nil {
		now = time.Now
	}
	return &TokenIssuer{secret: []byte(secret), issuer: issuer, ttl: ttl, now: now}
}

// Issue signs a token asserting (accountID, email, role), valid for the
// configured TTL from now.
func (i *TokenIssuer) Issue(accountID, email string, role model.Role) (SessionToken, error) {
	if len(i.secret) == 0 {
		return SessionToken{}, errors.New("jwt: empty secret")
	}
	now := i.now().UTC()
	exp := now.Add(i.ttl)
	jti := uuid.NewString()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Issuer:    i.issuer,
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		AccountID: accountID,
		Email:     email,
		Role:      role,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return SessionToken{}, fmt.Errorf("sign session token: %w", err)
	}
	return SessionToken{Token: signed, ID: jti, ExpiresAt: exp}, nil
}

// TokenVerifier validates session tokens signed with the same secret.
type TokenVerifier struct {
	secret []byte
	now    Clock
}

// NewTokenVerifier builds a verifier.  A nil clock means time.Now.
func NewTokenVerifier(secret string, now Clock) *TokenVerifier {
	if now == nil {
		now = time.Now
	}
	return &TokenVerifier{secret: []byte(secret), now: now}
}

// Verify checks the signature first and expiry second.  It returns
// ErrTokenExpired for a genuine but stale token and ErrTokenInvalid for
// everything else.
func (v *TokenVerifier) Verify(raw string) (*Claims, error) {
	if raw == "" || len(v.secret) == 0 {
		return nil, ErrTokenInvalid
	}
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(v.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !tok.Valid || claims.AccountID == "" || claims.ID == "" || !claims.Role.Valid() {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
