package repository

import (
    "context"
    "database/sql"
    "strings"
    "time"

    "github.com/iliyamo/ecommerce-api/internal/model"
)

// UserRepo persists accounts in the 'users' table.  Emails are normalised
// to lower case on every read and write.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = `id, first_name, last_name, email, password_hash, phone_enc, gender, role,
    blocked, blocked_reason, blocked_at, reset_code, reset_code_expires_at,
    ship_address, ship_city, ship_postal_code, created_at, updated_at`

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

// UserUpdate lists the profile columns that may change.  Nil pointers are
// left untouched.  Role and block status are deliberately absent.
type UserUpdate struct {
    FirstName    *string
    LastName     *string
    Email        *string
    PasswordHash *string
    PhoneEnc     *string
    Gender       *string
    Shipping     *model.ShippingAddress
}

func (u UserUpdate) empty() bool {
    return u.FirstName == nil && u.LastName == nil && u.Email == nil && u.PasswordHash == nil &&
        u.PhoneEnc == nil && u.Gender == nil && u.Shipping == nil
}

// Create inserts u and fills in its ID.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
    u.Email = NormalizeEmail(u.Email)
    if u.Role == "" {
        u.Role = model.RoleUser
    }
    res, err := r.DB.ExecContext(ctx,
        `INSERT INTO users (first_name, last_name, email, password_hash, phone_enc, gender, role)
         VALUES (?,?,?,?,?,?,?)`,
        u.FirstName, u.LastName, u.Email, u.PasswordHash, u.PhoneEnc, u.Gender, string(u.Role))
    if err != nil {
        return duplicate(err, ErrEmailExists)
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    u.ID = uint64(id)
    return nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
    row := r.DB.QueryRowContext(ctx,
        "SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", NormalizeEmail(email))
    return scanUser(row)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
    row := r.DB.QueryRowContext(ctx,
        "SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
    return scanUser(row)
}

// Update applies the non-nil fields of upd.
func (r *UserRepo) Update(ctx context.Context, id uint64, upd UserUpdate) error {
    if upd.empty() {
        return nil
    }
    sets := make([]string, 0, 8)
    args := make([]interface{}, 0, 9)
    add := func(col string, v interface{}) {
        sets = append(sets, col+"=?")
        args = append(args, v)
    }
    if upd.FirstName != nil {
        add("first_name", *upd.FirstName)
    }
    if upd.LastName != nil {
        add("last_name", *upd.LastName)
    }
    if upd.Email != nil {
        add("email", NormalizeEmail(*upd.Email))
    }
    if upd.PasswordHash != nil {
        add("password_hash", *upd.PasswordHash)
    }
    if upd.PhoneEnc != nil {
        add("phone_enc", *upd.PhoneEnc)
    }
    if upd.Gender != nil {
        add("gender", *upd.Gender)
    }
    if upd.Shipping != nil {
        add("ship_address", upd.Shipping.Address)
        add("ship_city", upd.Shipping.City)
        add("ship_postal_code", upd.Shipping.PostalCode)
    }
    args = append(args, id)
    res, err := r.DB.ExecContext(ctx,
        "UPDATE users SET "+strings.Join(sets, ", ")+" WHERE id=?", args...)
    if err != nil {
        return duplicate(err, ErrEmailExists)
    }
    return requireRow(ctx, r.DB, res, "SELECT 1 FROM users WHERE id=?", id)
}

// SetResetCode stores code as the single active reset code, replacing any
// previous one.
func (r *UserRepo) SetResetCode(ctx context.Context, id uint64, code string, expiresAt time.Time) error {
    res, err := r.DB.ExecContext(ctx,
        "UPDATE users SET reset_code=?, reset_code_expires_at=? WHERE id=?", code, expiresAt, id)
    if err != nil {
        return err
    }
    return requireRow(ctx, r.DB, res, "SELECT 1 FROM users WHERE id=?", id)
}

// ResetPassword swaps the password hash and clears the reset code in one
// statement, but only while code is still the active one.  A concurrent
// reset that already consumed the code yields ErrConflict.
func (r *UserRepo) ResetPassword(ctx context.Context, id uint64, code, passwordHash string) error {
    res, err := r.DB.ExecContext(ctx,
        `UPDATE users SET password_hash=?, reset_code=NULL, reset_code_expires_at=NULL
         WHERE id=? AND reset_code=?`, passwordHash, id, code)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return ErrConflict
    }
    return nil
}

// SetBlocked updates the block status.  Unblocking clears reason and date.
func (r *UserRepo) SetBlocked(ctx context.Context, id uint64, blocked bool, reason *string, at *time.Time) error {
    if !blocked {
        reason, at = nil, nil
    }
    res, err := r.DB.ExecContext(ctx,
        "UPDATE users SET blocked=?, blocked_reason=?, blocked_at=? WHERE id=?", blocked, reason, at, id)
    if err != nil {
        return err
    }
    return requireRow(ctx, r.DB, res, "SELECT 1 FROM users WHERE id=?", id)
}

// List returns a page of users, newest first, optionally filtered by an
// email substring, together with the total number of matches.
func (r *UserRepo) List(ctx context.Context, search string, p model.Page) ([]model.User, int, error) {
    where, args := "", []interface{}{}
    if s := NormalizeEmail(search); s != "" {
        where = " WHERE email LIKE ?"
        args = append(args, "%"+escapeLike(s)+"%")
    }
    var total int
    if err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM users"+where, args...).Scan(&total); err != nil {
        return nil, 0, err
    }
    rows, err := r.DB.QueryContext(ctx,
        "SELECT "+userColumns+" FROM users"+where+" ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
        append(args, p.Limit, p.Offset())...)
    if err != nil {
        return nil, 0, err
    }
    defer rows.Close()
    out := make([]model.User, 0, p.Limit)
    for rows.Next() {
        u, err := scanUser(rows)
        if err != nil {
            return nil, 0, err
        }
        out = append(out, *u)
    }
    return out, total, rows.Err()
}

type rowScanner interface {
    Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*model.User, error) {
    var (
        u                          model.User
        role                       string
        phone, gender, reason      sql.NullString
        code                       sql.NullString
        blockedAt, codeExp         sql.NullTime
        shipAddr, shipCity, shipPC sql.NullString
    )
    err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.PasswordHash, &phone, &gender, &role,
        &u.Block.Blocked, &reason, &blockedAt, &code, &codeExp,
        &shipAddr, &shipCity, &shipPC, &u.CreatedAt, &u.UpdatedAt)
    if err != nil {
        return nil, notFound(err)
    }
    u.Role = model.Role(role)
    u.PhoneEnc = nullString(phone)
    u.Gender = nullString(gender)
    u.Block.Reason = nullString(reason)
    u.Block.Date = nullTime(blockedAt)
    u.ResetCode = nullString(code)
    u.ResetCodeExpiresAt = nullTime(codeExp)
    if shipAddr.Valid {
        u.Shipping = &model.ShippingAddress{Address: shipAddr.String, City: shipCity.String, PostalCode: shipPC.String}
    }
    return &u, nil
}

func nullString(s sql.NullString) *string {
    if !s.Valid {
        return nil
    }
    v := s.String
    return &v
}

func nullTime(t sql.NullTime) *time.Time {
    if !t.Valid {
        return nil
    }
    v := t.Time
    return &v
}

// requireRow distinguishes "row missing" from "row unchanged" after an
// UPDATE, since MySQL reports 0 affected rows for both by default.
func requireRow(ctx context.Context, db *sql.DB, res sql.Result, probe string, args ...interface{}) error {
    if n, err := res.RowsAffected(); err == nil && n > 0 {
        return nil
    }
    var one int
    return notFound(db.QueryRowContext(ctx, probe, args...).Scan(&one))
}

func escapeLike(s string) string {
    return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
