package middleware

import (
    "context"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/ecommerce-api/internal/apperr"
    "github.com/iliyamo/ecommerce-api/internal/config"
    "github.com/iliyamo/ecommerce-api/internal/model"
)

// Context keys for the authenticated caller.
const (
    userKey  = "auth.user"
    tokenKey = "auth.token"
)

// Authorizer resolves a raw session token to a live, unblocked user.
type Authorizer interface {
    Authorize(ctx context.Context, raw string) (*model.User, error)
}

// Authenticate protects a route group.  The token is read from the
// Authorization header or from a cookie depending on transport; failures are
// returned as errors so the shared error handler renders them.
func Authenticate(gate Authorizer, transport, cookieName string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            raw := extractToken(c, transport, cookieName)
            u, err := gate.Authorize(c.Request().Context(), raw)
            if err != nil {
                return err
            }
            c.Set(userKey, u)
            c.Set(tokenKey, raw)
            return next(c)
        }
    }
}

func extractToken(c echo.Context, transport, cookieName string) string {
    if transport == config.TransportCookie {
        ck, err := c.Cookie(cookieName)
        if err != nil {
            return ""
        }
        return strings.TrimSpace(ck.Value)
    }
    h := c.Request().Header.Get(echo.HeaderAuthorization)
    if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
        return ""
    }
    return strings.TrimSpace(h[7:])
}

// CurrentUser returns the user stored by Authenticate, or nil on public routes.
func CurrentUser(c echo.Context) *model.User {
    u, _ := c.Get(userKey).(*model.User)
    return u
}

// CurrentToken returns the raw token the caller authenticated with.
func CurrentToken(c echo.Context) string {
    s, _ := c.Get(tokenKey).(string)
    return s
}

// mustUser is CurrentUser for routes that sit behind Authenticate.
func mustUser(c echo.Context) (*model.User, error) {
    if u := CurrentUser(c); u != nil {
        return u, nil
    }
    return nil, apperr.E(apperr.Unauthenticated, "authentication required")
}
