package handler

import (
    "context"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/ecommerce-api/internal/config"
    "github.com/iliyamo/ecommerce-api/internal/model"
    "github.com/iliyamo/ecommerce-api/internal/service"
)

// Accounts is the slice of the account service the auth and user handlers
// need.  *service.AccountService satisfies it.
type Accounts interface {
    Register(ctx context.Context, in service.RegisterInput) (*model.User, error)
    Login(ctx context.Context, in service.LoginInput) (*service.LoginResult, error)
    Logout(ctx context.Context, rawToken string) error
    RequestPasswordReset(ctx context.Context, email string) error
    ResetPassword(ctx context.Context, in service.ResetPasswordInput) error
    Profile(ctx context.Context, userID uint64) (*model.User, error)
    UpdateProfile(ctx context.Context, userID uint64, in service.UpdateProfileInput) (*model.User, error)
    Cart(ctx context.Context, userID uint64) (*model.Cart, error)
    BlockUser(ctx context.Context, targetID uint64, reason string) (*model.User, error)
    UnblockUser(ctx context.Context, targetID uint64) (*model.User, error)
    ListUsers(ctx context.Context, search string, p model.Page) (model.PageResult[model.User], error)
    GetUser(ctx context.Context, id uint64) (*model.User, error)
}

// SessionCookie describes how the token travels when the cookie transport is
// selected.
type SessionCookie struct {
    Transport string // bearer | cookie
    Name      string
    Secure    bool
}

func (s SessionCookie) enabled() bool { return s.Transport == config.TransportCookie }

// AuthHandler serves the unauthenticated credential endpoints.
type AuthHandler struct {
    Accounts Accounts
    Cookie   SessionCookie
}

func NewAuthHandler(a Accounts, cookie SessionCookie) *AuthHandler {
    return &AuthHandler{Accounts: a, Cookie: cookie}
}

type registerReq struct {
    FirstName       string `json:"first_name" validate:"required,min=3,max=30"`
    LastName        string `json:"last_name" validate:"required,min=3,max=30"`
    Email           string `json:"email" validate:"required,email,max=255"`
    Password        string `json:"password" validate:"required,min=6,max=50"`
    ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
    Phone           string `json:"phone" validate:"required,numeric,min=7,max=15"`
    Gender          string `json:"gender" validate:"required,oneof=m f"`
}

type loginReq struct {
    Email    string `json:"email" validate:"required,email"`
    Password string `json:"password" validate:"required,max=72"`
}

type resetCodeReq struct {
    Email string `json:"email" validate:"required,email"`
}

type resetPasswordReq struct {
    Email           string `json:"email" validate:"required,email"`
    Code            string `json:"code" validate:"required,len=6"`
    Password        string `json:"password" validate:"required,min=6,max=50"`
    ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
}

// Register creates the account.  No token is issued; the client logs in
// separately.
func (h *AuthHandler) Register(c echo.Context) error {
    var req registerReq
    if err := bind(c, &req); err != nil {
        return err
    }
    u, err := h.Accounts.Register(c.Request().Context(), service.RegisterInput{
        FirstName: req.FirstName,
        LastName:  req.LastName,
        Email:     req.Email,
        Password:  req.Password,
        Phone:     req.Phone,
        Gender:    req.Gender,
    })
    if err != nil {
        return err
    }
    return success(c, http.StatusCreated, echo.Map{"user": toUser(u)})
}

// Login returns the session token in the body, or in an HttpOnly cookie
// when the cookie transport is configured.
func (h *AuthHandler) Login(c echo.Context) error {
    var req loginReq
    if err := bind(c, &req); err != nil {
        return err
    }
    res, err := h.Accounts.Login(c.Request().Context(), service.LoginInput{
        Email:    req.Email,
        Password: req.Password,
        Agent:    c.Request().UserAgent(),
    })
    if err != nil {
        return err
    }
    body := echo.Map{"user": toUser(res.User), "expires_at": res.ExpiresAt}
    if h.Cookie.enabled() {
        c.SetCookie(h.Cookie.build(res.Token, res.ExpiresAt))
    } else {
        body["token"] = res.Token
    }
    return success(c, http.StatusOK, body)
}

// RequestResetCode always answers the same way so the response does not
// reveal whether the email is registered.
func (h *AuthHandler) RequestResetCode(c echo.Context) error {
    var req resetCodeReq
    if err := bind(c, &req); err != nil {
        return err
    }
    if err := h.Accounts.RequestPasswordReset(c.Request().Context(), req.Email); err != nil {
        return err
    }
    return success(c, http.StatusOK, echo.Map{"message": "if the email is registered, a reset code has been sent"})
}

func (h *AuthHandler) ResetPassword(c echo.Context) error {
    var req resetPasswordReq
    if err := bind(c, &req); err != nil {
        return err
    }
    err := h.Accounts.ResetPassword(c.Request().Context(), service.ResetPasswordInput{
        Email:       req.Email,
        Code:        req.Code,
        NewPassword: req.Password,
    })
    if err != nil {
        return err
    }
    return success(c, http.StatusOK, echo.Map{"message": "password reset"})
}

// build returns the session cookie; an empty value produces a deletion.
func (s SessionCookie) build(value string, exp time.Time) *http.Cookie {
    ck := &http.Cookie{
        Name:     s.Name,
        Value:    value,
        Path:     "/",
        HttpOnly: true,
        Secure:   s.Secure,
        SameSite: http.SameSiteStrictMode,
        Expires:  exp,
    }
    if value == "" {
        ck.MaxAge = -1
        ck.Expires = time.Unix(0, 0)
    }
    return ck
}
