package handler

import (
    "errors"
    "log/slog"
    "net/http"
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/ecommerce-api/internal/apperr"
    "github.com/iliyamo/ecommerce-api/internal/model"
)

// success writes {"success": true, ...fields}.
func success(c echo.Context, status int, fields echo.Map) error {
    body := echo.Map{"success": true}
    for k, v := range fields {
        body[k] = v
    }
    return c.JSON(status, body)
}

// ErrorHandler renders every error as {"success": false, "message": ...}.
// The status comes from the apperr kind; echo's own errors (404 route, 405,
// bad body) keep their code.  Internal causes are logged, and only shown to
// the client in development.
func ErrorHandler(dev bool, log *slog.Logger) echo.HTTPErrorHandler {
    if log == nil {
        log = slog.Default()
    }
    return func(err error, c echo.Context) {
        if c.Response().Committed {
            return
        }
        status, msg := classify(err)
        body := echo.Map{"success": false, "message": msg}
        if status >= http.StatusInternalServerError {
            log.Error("request failed",
                "method", c.Request().Method,
                "path", c.Request().URL.Path,
                "error", err,
            )
            if dev {
                body["detail"] = err.Error()
            }
        }

        var werr error
        if c.Request().Method == http.MethodHead {
            werr = c.NoContent(status)
        } else {
            werr = c.JSON(status, body)
        }
        if werr != nil {
            log.Error("write error response", "error", werr)
        }
    }
}

func classify(err error) (int, string) {
    var ae *apperr.Error
    if errors.As(err, &ae) {
        return ae.Kind.HTTPStatus(), ae.Message
    }
    var he *echo.HTTPError
    if errors.As(err, &he) {
        msg, ok := he.Message.(string)
        if !ok || msg == "" {
            msg = http.StatusText(he.Code)
        }
        return he.Code, msg
    }
    return http.StatusInternalServerError, apperr.MessageOf(err)
}

// bind decodes the body into req and runs struct validation.
func bind(c echo.Context, req any) error {
    if err := c.Bind(req); err != nil {
        return apperr.Wrap(apperr.InvalidInput, "invalid request body", err)
    }
    return c.Validate(req)
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, error) {
    id, err := strconv.ParseUint(c.Param(name), 10, 64)
    if err != nil || id == 0 {
        return 0, apperr.E(apperr.InvalidInput, "invalid "+name)
    }
    return id, nil
}

// pageFrom reads page and limit from the query string.  Missing,
// non-numeric and non-positive values fall back to the defaults.
func pageFrom(c echo.Context) model.Page {
    page, _ := strconv.Atoi(c.QueryParam("page"))
    limit, _ := strconv.Atoi(c.QueryParam("limit"))
    return model.NewPage(page, limit)
}

func pageMeta[T any](r model.PageResult[T]) echo.Map {
    return echo.Map{
        "page":  r.Page.Page,
        "limit": r.Page.Limit,
        "total": r.Total,
        "pages": r.Pages(),
    }
}
