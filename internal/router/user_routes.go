package router

import (
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/ecommerce-api/internal/handler"
    "github.com/iliyamo/ecommerce-api/internal/middleware"
    "github.com/iliyamo/ecommerce-api/internal/model"
)

// RegisterUsers registers account routes.  Every route requires a session;
// listing, viewing and (un)blocking other users additionally requires the
// admin or manager role.
func RegisterUsers(e *echo.Echo, u *handler.UserHandler, a *handler.AdminUserHandler, authn echo.MiddlewareFunc) {
    g := e.Group("/v1/users", authn)
    // static segments first in reading order; echo matches them before :id
    g.GET("/profile", u.Profile)
    g.PATCH("/profile", u.UpdateProfile)
    g.PATCH("/logout", u.Logout)

    staff := middleware.RequireRole(model.RoleAdmin, model.RoleManager)
    g.GET("", a.List, staff)
    g.GET("/:id", a.Get, staff)
    g.PATCH("/:id/block", a.Block, staff)
    g.PATCH("/:id/unblock", a.Unblock, staff)

    e.GET("/v1/cart", u.Cart, authn)
}
