package service

import (
    "context"
    "strings"
    "testing"
    "time"

    "github.com/iliyamo/ecommerce-api/internal/apperr"
    "github.com/iliyamo/ecommerce-api/internal/model"
    "github.com/iliyamo/ecommerce-api/internal/utils"
)

func assertInvalidToken(t *testing.T, err error) {
    t.Helper()
    if !apperr.Is(err, apperr.Unauthenticated) {
        t.Fatalf("expected unauthenticated, got %v", err)
    }
    if apperr.MessageOf(err) != "invalid or expired token" {
        t.Fatalf("rejection reason leaked: %q", apperr.MessageOf(err))
    }
}

func TestTokenIssueAndValidate(t *testing.T) {
    e := newTestEnv(t)
    u, tok := e.register(t, "ann@example.com", "password-1")

    uid, err := e.tokens.Validate(context.Background(), tok)
    if err != nil {
        t.Fatalf("validate: %v", err)
    }
    if uid != u.ID {
        t.Fatalf("got uid %d, want %d", uid, u.ID)
    }
    rec, _ := memTokens{e.db}.GetByHash(context.Background(), utils.HashToken(tok))
    if rec == nil || rec.Agent == nil || *rec.Agent != "go-test" {
        t.Fatalf("record not persisted with agent: %+v", rec)
    }
    if !rec.ExpiresAt.Equal(e.clock.Add(7 * 24 * time.Hour)) {
        t.Fatalf("unexpected expiry %v", rec.ExpiresAt)
    }
}

func TestTokenExpiryIsMonotonic(t *testing.T) {
    e := newTestEnv(t)
    _, tok := e.register(t, "ann@example.com", "password-1")
    ctx := context.Background()

    e.advance(7*24*time.Hour - time.Second)
    if _, err := e.tokens.Validate(ctx, tok); err != nil {
        t.Fatalf("token should still be valid just before expiry: %v", err)
    }
    e.advance(2 * time.Second)
    _, err := e.tokens.Validate(ctx, tok)
    assertInvalidToken(t, err)
    if _, err := (memTokens{e.db}).GetByHash(ctx, utils.HashToken(tok)); err == nil {
        t.Fatalf("stale record should have been deleted")
    }

    // winding the clock back cannot resurrect the deleted record
    e.advance(-48 * time.Hour)
    _, err = e.tokens.Validate(ctx, tok)
    assertInvalidToken(t, err)
}

func TestTokenRevokeIsPermanent(t *testing.T) {
    e := newTestEnv(t)
    _, tok := e.register(t, "ann@example.com", "password-1")
    ctx := context.Background()

    if err := e.tokens.Revoke(ctx, tok); err != nil {
        t.Fatalf("revoke: %v", err)
    }
    for i := 0; i < 3; i++ {
        _, err := e.tokens.Validate(ctx, tok)
        assertInvalidToken(t, err)
        e.advance(time.Hour)
    }
}

func TestTokenRejections(t *testing.T) {
    e := newTestEnv(t)
    ctx := context.Background()
    u, tok := e.register(t, "ann@example.com", "password-1")
    other, _ := e.register(t, "bob@example.com", "password-2")

    forged, _ := utils.NewSessionToken("some-other-secret", u.ID, "user", time.Hour, e.clock)

    // a correctly signed token whose record belongs to someone else
    mismatch, _ := utils.NewSessionToken(testSecret, u.ID, "user", time.Hour, e.clock)
    _ = memTokens{e.db}.Create(ctx, &model.Token{
        UserID: other.ID, TokenHash: utils.HashToken(mismatch.Token), IsValid: true, ExpiresAt: mismatch.Exp,
    })

    // a correctly signed token that was never persisted
    orphan, _ := utils.NewSessionToken(testSecret, u.ID, "user", time.Hour, e.clock)

    tests := map[string]string{
        "empty":     "",
        "garbage":   "definitely-not-a-token",
        "tampered":  tok[:len(tok)-2] + "xx",
        "forged":    forged.Token,
        "mismatch":  mismatch.Token,
        "orphan":    orphan.Token,
        "malformed": "a.b.c",
    }
    for name, raw := range tests {
        t.Run(name, func(t *testing.T) {
            _, err := e.tokens.Validate(ctx, raw)
            assertInvalidToken(t, err)
        })
    }
}

func TestTokenInvalidFlagDeletesRecord(t *testing.T) {
    e := newTestEnv(t)
    _, tok := e.register(t, "ann@example.com", "password-1")
    ctx := context.Background()
    h := utils.HashToken(tok)

    e.db.mu.Lock()
    e.db.tokens[h].IsValid = false
    e.db.mu.Unlock()

    _, err := e.tokens.Validate(ctx, tok)
    assertInvalidToken(t, err)
    if _, err := (memTokens{e.db}).GetByHash(ctx, h); err == nil {
        t.Fatalf("invalidated record should be deleted")
    }
}

func TestAgentIsTruncated(t *testing.T) {
    if got := truncate(strings.Repeat("é", 200), maxAgentLen); len(got) > maxAgentLen || !strings.HasPrefix(got, "é") {
        t.Fatalf("bad truncation: %d bytes", len(got))
    }
    if got := truncate("short", maxAgentLen); got != "short" {
        t.Fatalf("short strings must be kept: %q", got)
    }
}
