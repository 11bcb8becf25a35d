package utils // package utils provides helpers for issuing and reading portal access tokens

import (
    "errors"
    "time"

    "github.com/golang-jwt/jwt/v5"
)

// AccessToken represents a signed portal JWT along with its expiry.  It is
// what browsers hold; the upstream bearer token never leaves the server.
type AccessToken struct {
    Token string    // the serialized JWT string
    Exp   time.Time // the UTC expiration time
}

// AccessClaims are the claims the portal puts in its access tokens.
type AccessClaims struct {
    SessionID string `json:"sid"`
    jwt.RegisteredClaims
}

var errUnexpectedMethod = errors.New("unexpected signing method")

// NewAccessToken builds and signs an HS256 JWT whose subject is the upstream
// username and whose `sid` claim points at the stored portal session.
func NewAccessToken(secret, username, sessionID string, ttl time.Duration) (AccessToken, error) {
    now := time.Now().UTC()
    exp := now.Add(ttl)
    claims := AccessClaims{
        SessionID: sessionID,
        RegisteredClaims: jwt.RegisteredClaims{
            Subject:   username,
            IssuedAt:  jwt.NewNumericDate(now),
            ExpiresAt: jwt.NewNumericDate(exp),
        },
    }
    signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
    if err != nil {
        return AccessToken{}, err
    }
    return AccessToken{Token: signed, Exp: exp}, nil
}

// ParseAccessToken verifies raw with secret and returns its claims.  Only
// HMAC-signed tokens are accepted.
func ParseAccessToken(secret, raw string) (*AccessClaims, error) {
    claims := &AccessClaims{}
    tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
        if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
            return nil, errUnexpectedMethod
        }
        return []byte(secret), nil
    }, jwt.WithExpirationRequired())
    if err != nil {
        return nil, err
    }
    if !tok.Valid || claims.SessionID == "" {
        return nil, jwt.ErrTokenInvalidClaims
    }
    return claims, nil
}
