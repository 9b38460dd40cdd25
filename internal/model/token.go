package model

import "time"

// Token models an entry in the `tokens` table.  Each row backs one issued
// session token.  The plain token is not stored; only its SHA‑256 hash.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – owner of the token.
//  TokenHash – SHA‑256 hex digest of the signed token string.
//  IsValid   – cleared when the session is invalidated without deleting it.
//  ExpiresAt – expiration timestamp, equal to the signed exp claim.
//  Agent     – User-Agent of the client that logged in (nullable).
//  CreatedAt – timestamp of creation.
type Token struct {
    ID        uint64    // tokens.id
    UserID    uint64    // tokens.user_id
    TokenHash string    // tokens.token_hash
    IsValid   bool      // tokens.is_valid
    ExpiresAt time.Time // tokens.expires_at
    Agent     *string   // tokens.agent (nullable)
    CreatedAt time.Time // tokens.created_at
}

// Usable reports whether the record still authorises requests at now.
func (t Token) Usable(now time.Time) bool {
    return t.IsValid && now.Before(t.ExpiresAt)
}
