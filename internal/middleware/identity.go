package middleware

import (
    "strconv"

    "github.com/labstack/echo/v4"
)

// callerKey identifies the caller for rate limiting: the user id when the
// request is authenticated, "anon" otherwise.
func callerKey(c echo.Context) string {
    if u := CurrentUser(c); u != nil {
        return strconv.FormatUint(u.ID, 10)
    }
    return "anon"
}
