package middleware

import (
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/ecommerce-api/internal/apperr"
    "github.com/iliyamo/ecommerce-api/internal/model"
)

// RequireRole lets the request through only when the authenticated user holds
// one of roles.  It must run after Authenticate.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
    allowed := make(map[model.Role]bool, len(roles))
    for _, r := range roles {
        allowed[r] = true
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            u, err := mustUser(c)
            if err != nil {
                return err
            }
            if !allowed[u.Role] {
                return apperr.E(apperr.Forbidden, "insufficient permissions")
            }
            return next(c)
        }
    }
}
