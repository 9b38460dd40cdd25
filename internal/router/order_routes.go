package router

import (
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/ecommerce-api/internal/handler"
    "github.com/iliyamo/ecommerce-api/internal/middleware"
    "github.com/iliyamo/ecommerce-api/internal/model"
)

// RegisterOrders registers the order routes.
// Ownership checks (get, pay, cancel) happen in the service; the role gate
// here only covers the staff-only operations.
func RegisterOrders(e *echo.Echo, o *handler.OrderHandler, authn echo.MiddlewareFunc) {
    g := e.Group("/v1/orders", authn)
    g.POST("", o.Create)
    g.GET("/my-orders", o.Mine)
    g.GET("/:id", o.Get)
    g.PATCH("/:id/pay", o.Pay)
    g.PATCH("/:id/cancel", o.Cancel)

    staff := middleware.RequireRole(model.RoleAdmin, model.RoleManager)
    g.GET("", o.List, staff)
    g.PATCH("/:id/deliver", o.Deliver, staff)
    g.PATCH("/:id/status", o.UpdateStatus, staff)
}
