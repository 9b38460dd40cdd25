package handler

import (
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/ecommerce-api/internal/middleware"
    "github.com/iliyamo/ecommerce-api/internal/model"
    "github.com/iliyamo/ecommerce-api/internal/service"
)

// UserHandler serves the caller's own account.  Every route sits behind
// middleware.Authenticate.
type UserHandler struct {
    Accounts Accounts
    Cookie   SessionCookie
}

func NewUserHandler(a Accounts, cookie SessionCookie) *UserHandler {
    return &UserHandler{Accounts: a, Cookie: cookie}
}

type updateProfileReq struct {
    FirstName *string                `json:"first_name" validate:"omitempty,min=3,max=30"`
    LastName  *string                `json:"last_name" validate:"omitempty,min=3,max=30"`
    Email     *string                `json:"email" validate:"omitempty,email,max=255"`
    Password  *string                `json:"password" validate:"omitempty,min=6,max=50"`
    Phone     *string                `json:"phone" validate:"omitempty,numeric,min=7,max=15"`
    Gender    *string                `json:"gender" validate:"omitempty,oneof=m f"`
    Shipping  *model.ShippingAddress `json:"shipping"`
}

func (h *UserHandler) Profile(c echo.Context) error {
    me := middleware.CurrentUser(c)
    u, err := h.Accounts.Profile(c.Request().Context(), me.ID)
    if err != nil {
        return err
    }
    return success(c, http.StatusOK, echo.Map{"user": toUser(u)})
}

// UpdateProfile applies a partial update.  Absent fields are left alone;
// role and block status are not accepted here.
func (h *UserHandler) UpdateProfile(c echo.Context) error {
    var req updateProfileReq
    if err := bind(c, &req); err != nil {
        return err
    }
    me := middleware.CurrentUser(c)
    u, err := h.Accounts.UpdateProfile(c.Request().Context(), me.ID, service.UpdateProfileInput{
        FirstName: req.FirstName,
        LastName:  req.LastName,
        Email:     req.Email,
        Password:  req.Password,
        Phone:     req.Phone,
        Gender:    req.Gender,
        Shipping:  req.Shipping,
    })
    if err != nil {
        return err
    }
    return success(c, http.StatusOK, echo.Map{"user": toUser(u)})
}

// Logout revokes the token of this request only.  Other sessions stay valid.
func (h *UserHandler) Logout(c echo.Context) error {
    if err := h.Accounts.Logout(c.Request().Context(), middleware.CurrentToken(c)); err != nil {
        return err
    }
    if h.Cookie.enabled() {
        c.SetCookie(h.Cookie.build("", time.Time{}))
    }
    return success(c, http.StatusOK, echo.Map{"message": "logged out"})
}

func (h *UserHandler) Cart(c echo.Context) error {
    me := middleware.CurrentUser(c)
    cart, err := h.Accounts.Cart(c.Request().Context(), me.ID)
    if err != nil {
        return err
    }
    items := make([]cartItemView, len(cart.Items))
    for i, it := range cart.Items {
        items[i] = cartItemView{ProductID: it.ProductID, Quantity: it.Quantity}
    }
    return success(c, http.StatusOK, echo.Map{"cart": echo.Map{"id": cart.ID, "items": items}})
}

// AdminUserHandler serves account administration for admins and managers.
type AdminUserHandler struct {
    Accounts Accounts
}

func NewAdminUserHandler(a Accounts) *AdminUserHandler {
    return &AdminUserHandler{Accounts: a}
}

type blockReq struct {
    Reason string `json:"reason" validate:"required,max=255"`
}

// List pages through users, newest first, optionally filtered by an email
// substring in ?search=.
func (h *AdminUserHandler) List(c echo.Context) error {
    res, err := h.Accounts.ListUsers(c.Request().Context(), c.QueryParam("search"), pageFrom(c))
    if err != nil {
        return err
    }
    return success(c, http.StatusOK, echo.Map{"users": mapAll(res.Items, toUser), "pagination": pageMeta(res)})
}

func (h *AdminUserHandler) Get(c echo.Context) error {
    id, err := pathID(c, "id")
    if err != nil {
        return err
    }
    u, err := h.Accounts.GetUser(c.Request().Context(), id)
    if err != nil {
        return err
    }
    return success(c, http.StatusOK, echo.Map{"user": toUser(u)})
}

// Block marks the user blocked and ends all of their sessions.
func (h *AdminUserHandler) Block(c echo.Context) error {
    id, err := pathID(c, "id")
    if err != nil {
        return err
    }
    var req blockReq
    if err := bind(c, &req); err != nil {
        return err
    }
    u, err := h.Accounts.BlockUser(c.Request().Context(), id, req.Reason)
    if err != nil {
        return err
    }
    return success(c, http.StatusOK, echo.Map{"message": "user blocked", "user": toUser(u)})
}

func (h *AdminUserHandler) Unblock(c echo.Context) error {
    id, err := pathID(c, "id")
    if err != nil {
        return err
    }
    u, err := h.Accounts.UnblockUser(c.Request().Context(), id)
    if err != nil {
        return err
    }
    return success(c, http.StatusOK, echo.Map{"message": "user unblocked", "user": toUser(u)})
}
