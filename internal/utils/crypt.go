package utils

import (
    "crypto/cipher"
    "crypto/rand"
    "crypto/sha256"
    "encoding/base64"
    "errors"
    "io"

    "golang.org/x/crypto/chacha20poly1305"
    "golang.org/x/crypto/hkdf"
)

const fieldCipherInfo = "ecommerce-api/field-cipher/v1"

var (
    ErrEmptyKey      = errors.New("encryption key is empty")
    ErrBadCiphertext = errors.New("ciphertext is malformed or was not produced with this key")
)

// FieldCipher encrypts individual column values that must be recovered in
// plaintext later, such as phone numbers.  It is unrelated to password
// hashing.  Output is base64url(nonce || XChaCha20-Poly1305 ciphertext).
type FieldCipher struct {
    aead cipher.AEAD
}

// NewFieldCipher derives a 256-bit key from secret with HKDF-SHA256.
func NewFieldCipher(secret string) (*FieldCipher, error) {
    if secret == "" {
        return nil, ErrEmptyKey
    }
    key := make([]byte, chacha20poly1305.KeySize)
    kdf := hkdf.New(sha256.New, []byte(secret), nil, []byte(fieldCipherInfo))
    if _, err := io.ReadFull(kdf, key); err != nil {
        return nil, err
    }
    aead, err := chacha20poly1305.NewX(key)
    if err != nil {
        return nil, err
    }
    return &FieldCipher{aead: aead}, nil
}

// Encrypt seals plain under a fresh random nonce.
func (f *FieldCipher) Encrypt(plain string) (string, error) {
    nonce := make([]byte, f.aead.NonceSize(), f.aead.NonceSize()+len(plain)+f.aead.Overhead())
    if _, err := rand.Read(nonce); err != nil {
        return "", err
    }
    sealed := f.aead.Seal(nonce, nonce, []byte(plain), nil)
    return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt.  Tampered input or a different key yields
// ErrBadCiphertext.
func (f *FieldCipher) Decrypt(encoded string) (string, error) {
    raw, err := base64.RawURLEncoding.DecodeString(encoded)
    if err != nil || len(raw) < f.aead.NonceSize()+f.aead.Overhead() {
        return "", ErrBadCiphertext
    }
    nonce, ct := raw[:f.aead.NonceSize()], raw[f.aead.NonceSize():]
    plain, err := f.aead.Open(nil, nonce, ct, nil)
    if err != nil {
        return "", ErrBadCiphertext
    }
    return string(plain), nil
}
