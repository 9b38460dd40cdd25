package router // package router defines how HTTP routes are registered for the API

import (
    "github.com/labstack/echo/v4"
    "github.com/prometheus/client_golang/prometheus/promhttp"

    "github.com/iliyamo/ecommerce-api/internal/handler"
)

// RegisterRoutes registers the operational endpoints: a health check that
// pings the database and the Prometheus scrape endpoint.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
    e.GET("/healthz", handler.Health(db))
    e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterAuth registers the credential endpoints under /v1/auth.  None of
// them needs a session; all of them sit behind the rate limiter since they
// are the brute-force surface.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, limiter echo.MiddlewareFunc) {
    g := e.Group("/v1/auth", limiter)
    g.POST("/register", a.Register)
    g.POST("/login", a.Login)
    // request a reset code by email; the answer never says whether the
    // address exists
    g.PATCH("/reset-password-code", a.RequestResetCode)
    g.PATCH("/reset-password", a.ResetPassword)
}

// RegisterPublic registers the unauthenticated catalog reads.  Product
// responses are served through the response cache; reviews are read live.
func RegisterPublic(e *echo.Echo, p *handler.ProductHandler, cache echo.MiddlewareFunc) {
    e.GET("/v1/products", p.List, cache)
    e.GET("/v1/products/:id", p.Get, cache)
    e.GET("/v1/products/:id/reviews", p.ListReviews)
}

// RegisterReviews registers the authenticated review post.  purge runs after
// a stored review so the product's cached rating is dropped.
func RegisterReviews(e *echo.Echo, p *handler.ProductHandler, authn, purge echo.MiddlewareFunc) {
    e.POST("/v1/products/:id/reviews", p.AddReview, authn, purge)
}

// ReviewedProductPaths names the cached reads a review on :id changes.
func ReviewedProductPaths(c echo.Context) []string {
    return []string{"/v1/products/" + c.Param("id")}
}
