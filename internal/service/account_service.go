package service

import (
    "context"
    "crypto/subtle"
    "errors"
    "fmt"
    "log/slog"
    "strings"
    "sync"
    "time"

    "github.com/iliyamo/ecommerce-api/internal/apperr"
    "github.com/iliyamo/ecommerce-api/internal/metrics"
    "github.com/iliyamo/ecommerce-api/internal/model"
    "github.com/iliyamo/ecommerce-api/internal/repository"
    "github.com/iliyamo/ecommerce-api/internal/utils"
)

var (
    errBadCredentials = apperr.E(apperr.Unauthenticated, "invalid email or password")
    errBadResetCode   = apperr.E(apperr.InvalidInput, "invalid or expired reset code")
    errUserNotFound   = apperr.E(apperr.NotFound, "user not found")
    errPasswordLength = apperr.E(apperr.InvalidInput, fmt.Sprintf("password must be at most %d bytes", utils.MaxPasswordBytes))
)

// AccountConfig carries the tunables of AccountService.
type AccountConfig struct {
    BcryptCost   int
    ResetCodeTTL time.Duration
}

// AccountService owns registration, login, password reset, profile edits
// and blocking.  Hashing and phone encryption happen here, explicitly,
// before anything reaches the store.
type AccountService struct {
    users  UserStore
    carts  CartStore
    tokens *TokenService
    mailer Mailer
    cipher *utils.FieldCipher
    cfg    AccountConfig
    now    func() time.Time
    log    *slog.Logger

    dummyOnce sync.Once
    dummyHash string
}

func NewAccountService(users UserStore, carts CartStore, tokens *TokenService, mailer Mailer,
    cipher *utils.FieldCipher, cfg AccountConfig, log *slog.Logger) *AccountService {
    if log == nil {
        log = slog.Default()
    }
    if cfg.ResetCodeTTL <= 0 {
        cfg.ResetCodeTTL = 15 * time.Minute
    }
    return &AccountService{users: users, carts: carts, tokens: tokens, mailer: mailer, cipher: cipher,
        cfg: cfg, now: time.Now, log: log}
}

type RegisterInput struct {
    FirstName string
    LastName  string
    Email     string
    Password  string
    Phone     string
    Gender    string
}

// Register creates an account and its empty cart.  It does not log the
// user in; a separate Login call issues the first token.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
    email := repository.NormalizeEmail(in.Email)
    _, err := s.users.GetByEmail(ctx, email)
    switch {
    case err == nil:
        metrics.RegistrationsTotal.WithLabelValues("duplicate").Inc()
        return nil, apperr.E(apperr.Conflict, "email already registered")
    case !errors.Is(err, repository.ErrNotFound):
        metrics.RegistrationsTotal.WithLabelValues("error").Inc()
        return nil, apperr.Internalf(err, "registration failed")
    }

    if len(in.Password) > utils.MaxPasswordBytes {
        metrics.RegistrationsTotal.WithLabelValues("invalid").Inc()
        return nil, errPasswordLength
    }
    hash, err := utils.HashPassword(in.Password, s.cfg.BcryptCost)
    if err != nil {
        metrics.RegistrationsTotal.WithLabelValues("error").Inc()
        return nil, apperr.Internalf(err, "registration failed")
    }
    u := &model.User{
        FirstName:    strings.TrimSpace(in.FirstName),
        LastName:     strings.TrimSpace(in.LastName),
        Email:        email,
        PasswordHash: hash,
        Role:         model.RoleUser,
    }
    if in.Phone != "" {
        enc, err := s.cipher.Encrypt(in.Phone)
        if err != nil {
            metrics.RegistrationsTotal.WithLabelValues("error").Inc()
            return nil, apperr.Internalf(err, "registration failed")
        }
        u.PhoneEnc = &enc
        u.Phone = in.Phone
    }
    if in.Gender != "" {
        g := in.Gender
        u.Gender = &g
    }
    if err := s.users.Create(ctx, u); err != nil {
        if errors.Is(err, repository.ErrEmailExists) {
            metrics.RegistrationsTotal.WithLabelValues("duplicate").Inc()
            return nil, apperr.E(apperr.Conflict, "email already registered")
        }
        metrics.RegistrationsTotal.WithLabelValues("error").Inc()
        return nil, apperr.Internalf(err, "registration failed")
    }
    if err := s.carts.CreateEmpty(ctx, u.ID); err != nil {
        // Cart() recreates it lazily; the account itself is fine.
        s.log.Error("cart creation failed", "user_id", u.ID, "err", err)
    }
    metrics.RegistrationsTotal.WithLabelValues("success").Inc()
    s.log.Info("user registered", "user_id", u.ID)
    return u, nil
}

type LoginInput struct {
    Email    string
    Password string
    Agent    string
}

type LoginResult struct {
    User      *model.User
    Token     string
    ExpiresAt time.Time
}

// Login checks credentials and issues a token.  Unknown email and wrong
// password produce the same error, and a bcrypt comparison runs in both
// cases so timing does not tell them apart either.
func (s *AccountService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
    u, err := s.users.GetByEmail(ctx, in.Email)
    if err != nil && !errors.Is(err, repository.ErrNotFound) {
        metrics.LoginsTotal.WithLabelValues("error").Inc()
        return nil, apperr.Internalf(err, "login failed")
    }
    if u == nil {
        utils.VerifyPassword(s.placeholderHash(), in.Password)
        metrics.LoginsTotal.WithLabelValues("invalid").Inc()
        return nil, errBadCredentials
    }
    if !utils.VerifyPassword(u.PasswordHash, in.Password) {
        metrics.LoginsTotal.WithLabelValues("invalid").Inc()
        return nil, errBadCredentials
    }
    if u.Block.Blocked {
        metrics.LoginsTotal.WithLabelValues("blocked").Inc()
        return nil, errBlocked
    }
    tok, err := s.tokens.Issue(ctx, u, in.Agent)
    if err != nil {
        metrics.LoginsTotal.WithLabelValues("error").Inc()
        return nil, err
    }
    metrics.LoginsTotal.WithLabelValues("success").Inc()
    s.decryptPhone(u)
    return &LoginResult{User: u, Token: tok.Token, ExpiresAt: tok.Exp}, nil
}

// Logout revokes exactly the token used for the current request.
func (s *AccountService) Logout(ctx context.Context, rawToken string) error {
    return s.tokens.Revoke(ctx, rawToken)
}

// RequestPasswordReset stores a fresh 6-character code, replacing any
// earlier one, and mails it.  The result is the same whether or not the
// address belongs to an account.
func (s *AccountService) RequestPasswordReset(ctx context.Context, email string) error {
    u, err := s.users.GetByEmail(ctx, email)
    if errors.Is(err, repository.ErrNotFound) {
        s.log.Info("reset code requested for unknown email")
        return nil
    }
    if err != nil {
        return apperr.Internalf(err, "could not create reset code")
    }
    code, err := utils.RandomHex(3)
    if err != nil {
        return apperr.Internalf(err, "could not create reset code")
    }
    if err := s.users.SetResetCode(ctx, u.ID, code, s.now().UTC().Add(s.cfg.ResetCodeTTL)); err != nil {
        return apperr.Internalf(err, "could not create reset code")
    }
    body := fmt.Sprintf("Your password reset code is %s. It expires in %s.", code, s.cfg.ResetCodeTTL)
    delivered, err := s.mailer.Send(ctx, u.Email, "Password reset code", body)
    if err != nil || !delivered {
        return apperr.Internalf(err, "could not send reset code")
    }
    return nil
}

type ResetPasswordInput struct {
    Email       string
    Code        string
    NewPassword string
}

// ResetPassword sets a new password when code matches the active reset
// code, consumes the code, and ends every session of the user.
func (s *AccountService) ResetPassword(ctx context.Context, in ResetPasswordInput) error {
    u, err := s.users.GetByEmail(ctx, in.Email)
    if errors.Is(err, repository.ErrNotFound) {
        return errBadResetCode
    }
    if err != nil {
        return apperr.Internalf(err, "could not reset password")
    }
    code := strings.ToLower(strings.TrimSpace(in.Code))
    if u.ResetCode == nil || code == "" ||
        subtle.ConstantTimeCompare([]byte(*u.ResetCode), []byte(code)) != 1 {
        return errBadResetCode
    }
    if u.ResetCodeExpiresAt != nil && !s.now().Before(*u.ResetCodeExpiresAt) {
        return errBadResetCode
    }
    if len(in.NewPassword) > utils.MaxPasswordBytes {
        return errPasswordLength
    }
    hash, err := utils.HashPassword(in.NewPassword, s.cfg.BcryptCost)
    if err != nil {
        return apperr.Internalf(err, "could not reset password")
    }
    if err := s.users.ResetPassword(ctx, u.ID, *u.ResetCode, hash); err != nil {
        if errors.Is(err, repository.ErrConflict) {
            return errBadResetCode
        }
        return apperr.Internalf(err, "could not reset password")
    }
    return s.tokens.RevokeAll(ctx, u.ID)
}

// Profile returns a user with the phone number decrypted.
func (s *AccountService) Profile(ctx context.Context, userID uint64) (*model.User, error) {
    u, err := s.users.GetByID(ctx, userID)
    if errors.Is(err, repository.ErrNotFound) {
        return nil, errUserNotFound
    }
    if err != nil {
        return nil, apperr.Internalf(err, "could not load user")
    }
    s.decryptPhone(u)
    return u, nil
}

// UpdateProfileInput holds optional changes; nil means unchanged.  Role and
// block status cannot be changed through this path.
type UpdateProfileInput struct {
    FirstName *string
    LastName  *string
    Email     *string
    Password  *string
    Phone     *string
    Gender    *string
    Shipping  *model.ShippingAddress
}

// UpdateProfile applies a partial update to the caller's own account.
func (s *AccountService) UpdateProfile(ctx context.Context, userID uint64, in UpdateProfileInput) (*model.User, error) {
    cur, err := s.Profile(ctx, userID)
    if err != nil {
        return nil, err
    }
    upd := repository.UserUpdate{
        FirstName: trimmed(in.FirstName),
        LastName:  trimmed(in.LastName),
        Gender:    in.Gender,
        Shipping:  in.Shipping,
    }
    if in.Email != nil {
        email := repository.NormalizeEmail(*in.Email)
        if email != cur.Email {
            other, err := s.users.GetByEmail(ctx, email)
            if err == nil && other.ID != userID {
                return nil, apperr.E(apperr.Conflict, "email already registered")
            }
            if err != nil && !errors.Is(err, repository.ErrNotFound) {
                return nil, apperr.Internalf(err, "could not update profile")
            }
            upd.Email = &email
        }
    }
    if in.Password != nil {
        if len(*in.Password) > utils.MaxPasswordBytes {
            return nil, errPasswordLength
        }
        hash, err := utils.HashPassword(*in.Password, s.cfg.BcryptCost)
        if err != nil {
            return nil, apperr.Internalf(err, "could not update profile")
        }
        upd.PasswordHash = &hash
    }
    if in.Phone != nil && *in.Phone != "" {
        enc, err := s.cipher.Encrypt(*in.Phone)
        if err != nil {
            return nil, apperr.Internalf(err, "could not update profile")
        }
        upd.PhoneEnc = &enc
    }
    if err := s.users.Update(ctx, userID, upd); err != nil {
        switch {
        case errors.Is(err, repository.ErrEmailExists):
            return nil, apperr.E(apperr.Conflict, "email already registered")
        case errors.Is(err, repository.ErrNotFound):
            return nil, errUserNotFound
        }
        return nil, apperr.Internalf(err, "could not update profile")
    }
    return s.Profile(ctx, userID)
}

// BlockUser blocks a regular account and cuts off its live sessions.
// Privileged accounts cannot be blocked.
func (s *AccountService) BlockUser(ctx context.Context, targetID uint64, reason string) (*model.User, error) {
    u, err := s.Profile(ctx, targetID)
    if err != nil {
        return nil, err
    }
    if u.Role.IsPrivileged() {
        return nil, apperr.E(apperr.Conflict, "privileged accounts cannot be blocked")
    }
    now := s.now().UTC()
    reason = strings.TrimSpace(reason)
    var rp *string
    if reason != "" {
        rp = &reason
    }
    if err := s.users.SetBlocked(ctx, targetID, true, rp, &now); err != nil {
        return nil, apperr.Internalf(err, "could not block user")
    }
    if err := s.tokens.RevokeAll(ctx, targetID); err != nil {
        return nil, err
    }
    s.log.Info("user blocked", "user_id", targetID)
    u.Block = model.BlockStatus{Blocked: true, Reason: rp, Date: &now}
    return u, nil
}

// UnblockUser lifts a block and clears its reason and date.
func (s *AccountService) UnblockUser(ctx context.Context, targetID uint64) (*model.User, error) {
    u, err := s.Profile(ctx, targetID)
    if err != nil {
        return nil, err
    }
    if err := s.users.SetBlocked(ctx, targetID, false, nil, nil); err != nil {
        return nil, apperr.Internalf(err, "could not unblock user")
    }
    s.log.Info("user unblocked", "user_id", targetID)
    u.Block = model.BlockStatus{}
    return u, nil
}

// ListUsers pages through accounts for staff, newest first.
func (s *AccountService) ListUsers(ctx context.Context, search string, p model.Page) (model.PageResult[model.User], error) {
    users, total, err := s.users.List(ctx, search, p)
    if err != nil {
        return model.PageResult[model.User]{}, apperr.Internalf(err, "could not list users")
    }
    for i := range users {
        s.decryptPhone(&users[i])
    }
    return model.PageResult[model.User]{Items: users, Total: total, Page: p}, nil
}

// GetUser returns any account by id for staff.
func (s *AccountService) GetUser(ctx context.Context, id uint64) (*model.User, error) {
    return s.Profile(ctx, id)
}

// Cart returns the caller's cart, creating it if registration could not.
func (s *AccountService) Cart(ctx context.Context, userID uint64) (*model.Cart, error) {
    c, err := s.carts.GetByUser(ctx, userID)
    if errors.Is(err, repository.ErrNotFound) {
        if err := s.carts.CreateEmpty(ctx, userID); err != nil {
            return nil, apperr.Internalf(err, "could not load cart")
        }
        c, err = s.carts.GetByUser(ctx, userID)
    }
    if err != nil {
        return nil, apperr.Internalf(err, "could not load cart")
    }
    return c, nil
}

func (s *AccountService) decryptPhone(u *model.User) {
    if u.PhoneEnc == nil || *u.PhoneEnc == "" {
        return
    }
    plain, err := s.cipher.Decrypt(*u.PhoneEnc)
    if err != nil {
        s.log.Warn("phone decrypt failed", "user_id", u.ID, "err", err)
        return
    }
    u.Phone = plain
}

// placeholderHash is compared against when the email is unknown.
func (s *AccountService) placeholderHash() string {
    s.dummyOnce.Do(func() {
        h, err := utils.HashPassword("placeholder-password", s.cfg.BcryptCost)
        if err == nil {
            s.dummyHash = h
        }
    })
    return s.dummyHash
}

func trimmed(p *string) *string {
    if p == nil {
        return nil
    }
    v := strings.TrimSpace(*p)
    return &v
}
