// Package utils provides helpers for access tokens and password hashing.
package utils

import (
    "crypto/sha256" // SHA‑256 hashing for stored tokens
    "encoding/hex"  // hex encoding of digests
    "errors"        // sentinel errors
    "strconv"       // subject claim <-> numeric user id
    "time"          // time utilities for generating expirations

    "github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
    "github.com/google/uuid"       // random token identifiers
)

// ErrInvalidToken is returned for any bearer string that does not parse,
// carries the wrong algorithm, has expired, or lacks the expected claims.
var ErrInvalidToken = errors.New("invalid token")

// AccessToken represents a signed personal access token along with its
// expiry. Token is what the client sends as "Authorization: Bearer <token>";
// Hash is the value persisted server side.
type AccessToken struct {
    Token string    // the serialized JWT string
    Hash  string    // SHA‑256 of Token, hex encoded
    Exp   time.Time // the UTC expiration time
}

// Claims are the fields read back from a verified token.
type Claims struct {
    UserID uint64
    Role   string
    ID     string // jti
}

// NewAccessToken builds and signs an HS256 JWT for a user. The jti claim is
// a random UUID so that two tokens issued in the same second still differ.
func NewAccessToken(secret string, userID uint64, role string, ttlMin int) (AccessToken, error) {
    now := time.Now().UTC()
    exp := now.Add(time.Duration(ttlMin) * time.Minute)
    claims := jwt.MapClaims{
        "sub":  strconv.FormatUint(userID, 10),
        "role": role,
        "exp":  exp.Unix(),
        "iat":  now.Unix(),
        "jti":  uuid.NewString(),
    }
    t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
    signed, err := t.SignedString([]byte(secret))
    if err != nil {
        return AccessToken{}, err
    }
    return AccessToken{Token: signed, Hash: HashToken(signed), Exp: exp}, nil
}

// ParseAccessToken verifies the signature and expiry of raw and returns its
// claims. Only HS256 is accepted.
func ParseAccessToken(secret, raw string) (Claims, error) {
    tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
        return []byte(secret), nil
    }, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
    if err != nil || !tok.Valid {
        return Claims{}, ErrInvalidToken
    }
    mc, ok := tok.Claims.(jwt.MapClaims)
    if !ok {
        return Claims{}, ErrInvalidToken
    }
    sub, err := mc.GetSubject()
    if err != nil {
        return Claims{}, ErrInvalidToken
    }
    uid, err := strconv.ParseUint(sub, 10, 64)
    if err != nil || uid == 0 {
        return Claims{}, ErrInvalidToken
    }
    role, _ := mc["role"].(string)
    jti, _ := mc["jti"].(string)
    return Claims{UserID: uid, Role: role, ID: jti}, nil
}

// HashToken returns the SHA‑256 hash of a token as a hex string. Only this
// digest is stored, so a copy of the table cannot be replayed.
func HashToken(raw string) string {
    sum := sha256.Sum256([]byte(raw))
    return hex.EncodeToString(sum[:])
}
