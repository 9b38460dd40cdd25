package utils // package utils provides helper functions for token creation, hashing and encryption

import (
    "crypto/sha256" // SHA‑256 hashing for stored session tokens
    "encoding/hex"  // hex encoding of digests
    "errors"
    "fmt"
    "strconv" // user ids travel as decimal strings in the sub claim
    "time"    // time utilities for generating expirations

    "github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
    "github.com/google/uuid"       // unique jti per token
)

// SessionClaims is the signed payload of a session token.  Subject carries
// the user id; ID (jti) makes every token string unique even when two are
// issued for the same user in the same second.
type SessionClaims struct {
    Role string `json:"role"`
    jwt.RegisteredClaims
}

// SessionToken is a signed JWT together with the values it was built from.
type SessionToken struct {
    Token string    // the serialized JWT string
    Exp   time.Time // the UTC expiration time, truncated to whole seconds
}

// NewSessionToken builds and signs an HS256 JWT for a user.  The expiry is
// truncated to seconds so the persisted record and the exp claim agree
// exactly.
func NewSessionToken(secret string, userID uint64, role string, ttl time.Duration, now time.Time) (SessionToken, error) {
    if secret == "" {
        return SessionToken{}, errors.New("jwt secret is empty")
    }
    iat := now.UTC().Truncate(time.Second)
    exp := iat.Add(ttl)
    claims := SessionClaims{
        Role: role,
        RegisteredClaims: jwt.RegisteredClaims{
            Subject:   strconv.FormatUint(userID, 10),
            ID:        uuid.NewString(),
            IssuedAt:  jwt.NewNumericDate(iat),
            ExpiresAt: jwt.NewNumericDate(exp),
        },
    }
    t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
    signed, err := t.SignedString([]byte(secret))
    if err != nil {
        return SessionToken{}, err
    }
    return SessionToken{Token: signed, Exp: exp}, nil
}

// ParseSessionToken verifies signature and expiry (against now) and returns
// the user id from the sub claim.  Errors wrap the jwt sentinels
// (jwt.ErrTokenMalformed, jwt.ErrTokenExpired, jwt.ErrTokenSignatureInvalid)
// so callers can classify the failure.
func ParseSessionToken(secret, raw string, now time.Time) (uint64, *SessionClaims, error) {
    claims := &SessionClaims{}
    parser := jwt.NewParser(
        jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
        jwt.WithExpirationRequired(),
        jwt.WithTimeFunc(func() time.Time { return now }),
    )
    _, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
        return []byte(secret), nil
    })
    if err != nil {
        return 0, nil, err
    }
    uid, err := strconv.ParseUint(claims.Subject, 10, 64)
    if err != nil || uid == 0 {
        return 0, nil, fmt.Errorf("%w: bad subject %q", jwt.ErrTokenMalformed, claims.Subject)
    }
    return uid, claims, nil
}

// HashToken returns the SHA‑256 hash of a token string as a hex string.
// Only the hash is stored, so a leaked tokens table cannot be replayed.
func HashToken(raw string) string {
    sum := sha256.Sum256([]byte(raw))
    return hex.EncodeToString(sum[:])
}
