package utils

import (
    "errors"
    "strings"
    "testing"
    "time"

    "github.com/golang-jwt/jwt/v5"
    "golang.org/x/crypto/bcrypt"
)

func TestPasswordRoundTrip(t *testing.T) {
    hash, err := HashPassword("s3cret-pass", bcrypt.MinCost)
    if err != nil {
        t.Fatalf("hash: %v", err)
    }
    if hash == "s3cret-pass" {
        t.Fatalf("hash must not equal plaintext")
    }
    if !VerifyPassword(hash, "s3cret-pass") {
        t.Fatalf("expected correct password to verify")
    }
    if VerifyPassword(hash, "wrong-pass") {
        t.Fatalf("expected wrong password to fail")
    }
    if VerifyPassword("not-a-hash", "s3cret-pass") {
        t.Fatalf("garbage hash must fail, not panic")
    }
}

func TestFieldCipherRoundTrip(t *testing.T) {
    c, err := NewFieldCipher("unit-test-key")
    if err != nil {
        t.Fatalf("new cipher: %v", err)
    }
    for _, phone := range []string{"+1 555 0100", "", "۰۹۱۲۳۴۵۶۷۸۹"} {
        enc, err := c.Encrypt(phone)
        if err != nil {
            t.Fatalf("encrypt: %v", err)
        }
        if phone != "" && strings.Contains(enc, phone) {
            t.Fatalf("ciphertext leaks plaintext")
        }
        dec, err := c.Decrypt(enc)
        if err != nil {
            t.Fatalf("decrypt: %v", err)
        }
        if dec != phone {
            t.Fatalf("round trip: got %q want %q", dec, phone)
        }
    }

    a, _ := c.Encrypt("same")
    b, _ := c.Encrypt("same")
    if a == b {
        t.Fatalf("nonce must differ between encryptions")
    }
}

func TestFieldCipherRejectsForeignCiphertext(t *testing.T) {
    c1, _ := NewFieldCipher("key-one")
    c2, _ := NewFieldCipher("key-two")
    enc, _ := c1.Encrypt("+1 555 0100")
    if _, err := c2.Decrypt(enc); !errors.Is(err, ErrBadCiphertext) {
        t.Fatalf("expected ErrBadCiphertext, got %v", err)
    }
    if _, err := c1.Decrypt("%%%"); !errors.Is(err, ErrBadCiphertext) {
        t.Fatalf("expected ErrBadCiphertext for bad base64, got %v", err)
    }
    if _, err := NewFieldCipher(""); !errors.Is(err, ErrEmptyKey) {
        t.Fatalf("expected ErrEmptyKey, got %v", err)
    }
}

func TestSessionTokenLifecycle(t *testing.T) {
    now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
    tok, err := NewSessionToken("secret", 42, "user", time.Hour, now)
    if err != nil {
        t.Fatalf("issue: %v", err)
    }
    if !tok.Exp.Equal(now.Add(time.Hour)) {
        t.Fatalf("unexpected exp %v", tok.Exp)
    }

    uid, claims, err := ParseSessionToken("secret", tok.Token, now.Add(time.Minute))
    if err != nil {
        t.Fatalf("parse: %v", err)
    }
    if uid != 42 || claims.Role != "user" || claims.ID == "" {
        t.Fatalf("unexpected claims uid=%d %+v", uid, claims)
    }

    if _, _, err := ParseSessionToken("secret", tok.Token, now.Add(2*time.Hour)); !errors.Is(err, jwt.ErrTokenExpired) {
        t.Fatalf("expected expired, got %v", err)
    }
    if _, _, err := ParseSessionToken("other", tok.Token, now); !errors.Is(err, jwt.ErrTokenSignatureInvalid) {
        t.Fatalf("expected signature error, got %v", err)
    }
    if _, _, err := ParseSessionToken("secret", "not.a.jwt", now); !errors.Is(err, jwt.ErrTokenMalformed) {
        t.Fatalf("expected malformed, got %v", err)
    }
}

func TestSessionTokensAreUnique(t *testing.T) {
    now := time.Now()
    a, _ := NewSessionToken("secret", 1, "user", time.Hour, now)
    b, _ := NewSessionToken("secret", 1, "user", time.Hour, now)
    if a.Token == b.Token || HashToken(a.Token) == HashToken(b.Token) {
        t.Fatalf("two tokens for the same user and second must differ")
    }
    if len(HashToken(a.Token)) != 64 {
        t.Fatalf("expected hex sha256")
    }
}

func TestRandomHex(t *testing.T) {
    code, err := RandomHex(3)
    if err != nil {
        t.Fatalf("random: %v", err)
    }
    if len(code) != 6 || strings.Trim(code, "0123456789abcdef") != "" {
        t.Fatalf("unexpected code %q", code)
    }
}
