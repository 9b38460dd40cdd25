package repository

import (
    "context"
    "database/sql"

    "github.com/iliyamo/ecommerce-api/internal/model"
)

// TokenRepo persists session token records.  Rows are addressed by the
// SHA‑256 hash of the token string; the plain token never reaches the
// database.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// Create inserts a token row and fills in its ID.
func (r *TokenRepo) Create(ctx context.Context, t *model.Token) error {
    res, err := r.DB.ExecContext(ctx,
        "INSERT INTO tokens (user_id, token_hash, is_valid, expires_at, agent) VALUES (?,?,?,?,?)",
        t.UserID, t.TokenHash, t.IsValid, t.ExpiresAt, t.Agent)
    if err != nil {
        return duplicate(err, ErrConflict)
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    t.ID = uint64(id)
    return nil
}

// GetByHash returns the record for a token hash or ErrNotFound.
func (r *TokenRepo) GetByHash(ctx context.Context, tokenHash string) (*model.Token, error) {
    var (
        t     model.Token
        agent sql.NullString
    )
    err := r.DB.QueryRowContext(ctx,
        "SELECT id, user_id, token_hash, is_valid, expires_at, agent, created_at FROM tokens WHERE token_hash=? LIMIT 1",
        tokenHash).Scan(&t.ID, &t.UserID, &t.TokenHash, &t.IsValid, &t.ExpiresAt, &agent, &t.CreatedAt)
    if err != nil {
        return nil, notFound(err)
    }
    t.Agent = nullString(agent)
    return &t, nil
}

// DeleteByHash removes one token record.  Deleting a missing row is not an
// error.
func (r *TokenRepo) DeleteByHash(ctx context.Context, tokenHash string) error {
    _, err := r.DB.ExecContext(ctx, "DELETE FROM tokens WHERE token_hash=?", tokenHash)
    return err
}

// DeleteByUser removes every token record of a user and reports how many
// were removed.
func (r *TokenRepo) DeleteByUser(ctx context.Context, userID uint64) (int64, error) {
    res, err := r.DB.ExecContext(ctx, "DELETE FROM tokens WHERE user_id=?", userID)
    if err != nil {
        return 0, err
    }
    return res.RowsAffected()
}
