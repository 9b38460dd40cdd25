package service

import (
    "context"
    "errors"
    "log/slog"
    "strings"
    "time"
    "unicode/utf8"

    "github.com/golang-jwt/jwt/v5"

    "github.com/iliyamo/ecommerce-api/internal/apperr"
    "github.com/iliyamo/ecommerce-api/internal/metrics"
    "github.com/iliyamo/ecommerce-api/internal/model"
    "github.com/iliyamo/ecommerce-api/internal/repository"
    "github.com/iliyamo/ecommerce-api/internal/utils"
)

const maxAgentLen = 255

// errInvalidToken is the only rejection clients ever see.
var errInvalidToken = apperr.E(apperr.Unauthenticated, "invalid or expired token")

// TokenService issues and validates session tokens.  A token is a signed
// JWT backed by a row in the tokens table; both must agree for the token
// to be accepted, which is what makes logout and forced re-login work.
type TokenService struct {
    store  TokenStore
    secret string
    ttl    time.Duration
    now    func() time.Time
    log    *slog.Logger
}

func NewTokenService(store TokenStore, secret string, ttl time.Duration, log *slog.Logger) *TokenService {
    if log == nil {
        log = slog.Default()
    }
    return &TokenService{store: store, secret: secret, ttl: ttl, now: time.Now, log: log}
}

// Issue signs a token for u and persists its record.  agent is the
// client's User-Agent and is stored truncated.
func (s *TokenService) Issue(ctx context.Context, u *model.User, agent string) (utils.SessionToken, error) {
    tok, err := utils.NewSessionToken(s.secret, u.ID, string(u.Role), s.ttl, s.now())
    if err != nil {
        return utils.SessionToken{}, apperr.Internalf(err, "could not issue token")
    }
    rec := &model.Token{
        UserID:    u.ID,
        TokenHash: utils.HashToken(tok.Token),
        IsValid:   true,
        ExpiresAt: tok.Exp,
    }
    if agent = truncate(strings.TrimSpace(agent), maxAgentLen); agent != "" {
        rec.Agent = &agent
    }
    if err := s.store.Create(ctx, rec); err != nil {
        return utils.SessionToken{}, apperr.Internalf(err, "could not issue token")
    }
    return tok, nil
}

// Validate returns the user id a token belongs to.  Checks run in order:
// well-formedness, signature and exp claim, record lookup, record validity
// (a stale record is deleted on the way out), and owner match.
func (s *TokenService) Validate(ctx context.Context, raw string) (uint64, error) {
    uid, _, err := s.verify(ctx, raw)
    if err != nil {
        return 0, err
    }
    return uid, nil
}

// verify is Validate that also reports the user id from a correctly signed,
// unexpired payload when a later check rejects the token.  signed is zero
// when the signature itself could not be trusted.
func (s *TokenService) verify(ctx context.Context, raw string) (uid, signed uint64, err error) {
    raw = strings.TrimSpace(raw)
    if raw == "" || strings.Count(raw, ".") != 2 {
        return 0, 0, s.reject("malformed", 0)
    }
    hash := utils.HashToken(raw)
    now := s.now()

    claimed, _, err := utils.ParseSessionToken(s.secret, raw, now)
    if err != nil {
        switch {
        case errors.Is(err, jwt.ErrTokenExpired):
            s.dropStale(ctx, hash)
            return 0, 0, s.reject("expired", 0)
        case errors.Is(err, jwt.ErrTokenMalformed):
            return 0, 0, s.reject("malformed", 0)
        default:
            return 0, 0, s.reject("signature", 0)
        }
    }

    rec, err := s.store.GetByHash(ctx, hash)
    if errors.Is(err, repository.ErrNotFound) {
        return 0, claimed, s.reject("unknown", claimed)
    }
    if err != nil {
        return 0, 0, apperr.Internalf(err, "could not validate token")
    }
    if !rec.IsValid {
        s.dropStale(ctx, hash)
        return 0, claimed, s.reject("revoked", claimed)
    }
    if !now.Before(rec.ExpiresAt) {
        s.dropStale(ctx, hash)
        return 0, 0, s.reject("expired", claimed)
    }
    if rec.UserID != claimed {
        return 0, 0, s.reject("mismatch", claimed)
    }
    return claimed, claimed, nil
}

// Revoke deletes the record behind raw.  Revoking an unknown token is a
// no-op.
func (s *TokenService) Revoke(ctx context.Context, raw string) error {
    if err := s.store.DeleteByHash(ctx, utils.HashToken(strings.TrimSpace(raw))); err != nil {
        return apperr.Internalf(err, "could not revoke token")
    }
    return nil
}

// RevokeAll deletes every record of a user, ending all of their sessions.
func (s *TokenService) RevokeAll(ctx context.Context, userID uint64) error {
    n, err := s.store.DeleteByUser(ctx, userID)
    if err != nil {
        return apperr.Internalf(err, "could not revoke sessions")
    }
    s.log.Info("sessions revoked", "user_id", userID, "count", n)
    return nil
}

func (s *TokenService) reject(reason string, uid uint64) error {
    metrics.TokenRejectionsTotal.WithLabelValues(reason).Inc()
    if uid != 0 {
        s.log.Info("token rejected", "reason", reason, "claimed_user_id", uid)
    } else {
        s.log.Info("token rejected", "reason", reason)
    }
    return errInvalidToken
}

func (s *TokenService) dropStale(ctx context.Context, hash string) {
    if err := s.store.DeleteByHash(ctx, hash); err != nil {
        s.log.Warn("stale token cleanup failed", "err", err)
    }
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
    if len(s) <= n {
        return s
    }
    s = s[:n]
    for !utf8.ValidString(s) {
        s = s[:len(s)-1]
    }
    return s
}
