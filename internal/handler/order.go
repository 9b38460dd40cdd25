package handler

import (
    "context"
    "net/http"

    "github.com/labstack/echo/v4"
    "github.com/shopspring/decimal"

    "github.com/iliyamo/ecommerce-api/internal/middleware"
    "github.com/iliyamo/ecommerce-api/internal/model"
    "github.com/iliyamo/ecommerce-api/internal/service"
)

// Orders is implemented by *service.OrderService.
type Orders interface {
    Create(ctx context.Context, userID uint64, in service.CreateOrderInput) (*model.Order, error)
    Get(ctx context.Context, viewer *model.User, id uint64) (*model.Order, error)
    MarkPaid(ctx context.Context, viewer *model.User, id uint64) (*model.Order, error)
    MarkDelivered(ctx context.Context, id uint64) (*model.Order, error)
    UpdateStatus(ctx context.Context, id uint64, to model.OrderStatus) (*model.Order, error)
    Cancel(ctx context.Context, viewer *model.User, id uint64) (*model.Order, error)
    ListMine(ctx context.Context, userID uint64, p model.Page) (model.PageResult[model.Order], error)
    ListAll(ctx context.Context, p model.Page) (model.PageResult[model.Order], error)
}

type OrderHandler struct {
    Orders Orders
}

func NewOrderHandler(o Orders) *OrderHandler {
    return &OrderHandler{Orders: o}
}

type orderLineReq struct {
    ProductID uint64 `json:"product_id" validate:"required"`
    Quantity  int    `json:"quantity" validate:"required,min=1,max=10000"`
}

// Prices are never taken from the client except shipping and tax, which
// are optional; product prices are read from the catalog.
type createOrderReq struct {
    Items         []orderLineReq        `json:"items" validate:"required,min=1,dive"`
    Shipping      model.ShippingAddress `json:"shipping"`
    Phone         string                `json:"phone" validate:"required,numeric,min=7,max=15"`
    PaymentMethod string                `json:"payment_method" validate:"omitempty,oneof=cash card"`
    ShippingPrice *decimal.Decimal      `json:"shipping_price"`
    TaxPrice      *decimal.Decimal      `json:"tax_price"`
}

type statusReq struct {
    Status string `json:"status" validate:"required,oneof=pending processing delivering delivered cancelled"`
}

func (h *OrderHandler) Create(c echo.Context) error {
    var req createOrderReq
    if err := bind(c, &req); err != nil {
        return err
    }
    lines := make([]service.OrderLine, len(req.Items))
    for i, it := range req.Items {
        lines[i] = service.OrderLine{ProductID: it.ProductID, Quantity: it.Quantity}
    }
    me := middleware.CurrentUser(c)
    o, err := h.Orders.Create(c.Request().Context(), me.ID, service.CreateOrderInput{
        Items:         lines,
        Shipping:      req.Shipping,
        Phone:         req.Phone,
        PaymentMethod: model.PaymentMethod(req.PaymentMethod),
        ShippingPrice: req.ShippingPrice,
        TaxPrice:      req.TaxPrice,
    })
    if err != nil {
        return err
    }
    return success(c, http.StatusCreated, echo.Map{"order": toOrder(o)})
}

func (h *OrderHandler) Mine(c echo.Context) error {
    me := middleware.CurrentUser(c)
    res, err := h.Orders.ListMine(c.Request().Context(), me.ID, pageFrom(c))
    if err != nil {
        return err
    }
    return success(c, http.StatusOK, echo.Map{"orders": mapAll(res.Items, toOrder), "pagination": pageMeta(res)})
}

func (h *OrderHandler) List(c echo.Context) error {
    res, err := h.Orders.ListAll(c.Request().Context(), pageFrom(c))
    if err != nil {
        return err
    }
    return success(c, http.StatusOK, echo.Map{"orders": mapAll(res.Items, toOrder), "pagination": pageMeta(res)})
}

// Get returns 404 for orders the caller may not see.
func (h *OrderHandler) Get(c echo.Context) error {
    return h.byID(c, func(ctx context.Context, id uint64) (*model.Order, error) {
        return h.Orders.Get(ctx, middleware.CurrentUser(c), id)
    })
}

func (h *OrderHandler) Pay(c echo.Context) error {
    return h.byID(c, func(ctx context.Context, id uint64) (*model.Order, error) {
        return h.Orders.MarkPaid(ctx, middleware.CurrentUser(c), id)
    })
}

func (h *OrderHandler) Cancel(c echo.Context) error {
    return h.byID(c, func(ctx context.Context, id uint64) (*model.Order, error) {
        return h.Orders.Cancel(ctx, middleware.CurrentUser(c), id)
    })
}

func (h *OrderHandler) Deliver(c echo.Context) error {
    return h.byID(c, h.Orders.MarkDelivered)
}

func (h *OrderHandler) UpdateStatus(c echo.Context) error {
    var req statusReq
    if err := bind(c, &req); err != nil {
        return err
    }
    return h.byID(c, func(ctx context.Context, id uint64) (*model.Order, error) {
        return h.Orders.UpdateStatus(ctx, id, model.OrderStatus(req.Status))
    })
}

func (h *OrderHandler) byID(c echo.Context, op func(context.Context, uint64) (*model.Order, error)) error {
    id, err := pathID(c, "id")
    if err != nil {
        return err
    }
    o, err := op(c.Request().Context(), id)
    if err != nil {
        return err
    }
    return success(c, http.StatusOK, echo.Map{"order": toOrder(o)})
}
