package service

import (
    "context"
    "errors"
    "fmt"
    "log/slog"
    "sort"
    "time"

    "github.com/shopspring/decimal"

    "github.com/iliyamo/ecommerce-api/internal/apperr"
    "github.com/iliyamo/ecommerce-api/internal/metrics"
    "github.com/iliyamo/ecommerce-api/internal/model"
    "github.com/iliyamo/ecommerce-api/internal/repository"
)

var (
    errOrderNotFound     = apperr.E(apperr.NotFound, "order not found")
    errInsufficientStock = apperr.E(apperr.Conflict, "insufficient stock")
    hundred              = decimal.NewFromInt(100)
)

// Pricing decides shipping and tax when the caller does not supply them.
type Pricing struct {
    ShippingFlat     decimal.Decimal // charged per order
    FreeShippingOver decimal.Decimal // items total at or above which shipping is free; zero disables
    TaxRate          decimal.Decimal // fraction of the items total, e.g. 0.09
}

func (p Pricing) shipping(items decimal.Decimal) decimal.Decimal {
    if p.FreeShippingOver.IsPositive() && items.GreaterThanOrEqual(p.FreeShippingOver) {
        return decimal.Zero
    }
    return p.ShippingFlat.Round(2)
}

func (p Pricing) tax(items decimal.Decimal) decimal.Decimal {
    return items.Mul(p.TaxRate).Round(2)
}

// OrderService creates orders and drives their status.
type OrderService struct {
    orders  OrderStore
    catalog Catalog
    events  OrderEvents
    pricing Pricing
    now     func() time.Time
    log     *slog.Logger
}

// NewOrderService wires the coordinator.  events may be nil when event
// publishing is disabled.
func NewOrderService(orders OrderStore, catalog Catalog, events OrderEvents, pricing Pricing, log *slog.Logger) *OrderService {
    if log == nil {
        log = slog.Default()
    }
    return &OrderService{orders: orders, catalog: catalog, events: events, pricing: pricing, now: time.Now, log: log}
}

type OrderLine struct {
    ProductID uint64
    Quantity  int
}

type CreateOrderInput struct {
    Items         []OrderLine
    Shipping      model.ShippingAddress
    Phone         string
    PaymentMethod model.PaymentMethod
    ShippingPrice *decimal.Decimal // nil: computed from Pricing
    TaxPrice      *decimal.Decimal // nil: computed from Pricing
}

// Create snapshots every product, computes totals and stores the order.
// The store applies all stock decrements in the same transaction, so an
// order either exists with its stock taken or does not exist at all.
func (s *OrderService) Create(ctx context.Context, userID uint64, in CreateOrderInput) (*model.Order, error) {
    lines, err := mergeLines(in.Items)
    if err != nil {
        metrics.OrdersTotal.WithLabelValues("invalid").Inc()
        return nil, err
    }
    method := in.PaymentMethod
    if method == "" {
        method = model.PaymentCash
    }
    if !method.Valid() {
        metrics.OrdersTotal.WithLabelValues("invalid").Inc()
        return nil, apperr.E(apperr.InvalidInput, "unknown payment method")
    }

    o := &model.Order{
        UserID:        userID,
        Shipping:      in.Shipping,
        ShippingPhone: in.Phone,
        PaymentMethod: method,
        Status:        model.OrderPending,
        Items:         make([]model.OrderItem, 0, len(lines)),
    }
    items := decimal.Zero
    for _, l := range lines {
        p, err := s.catalog.FindByID(ctx, l.ProductID)
        if errors.Is(err, repository.ErrNotFound) {
            metrics.OrdersTotal.WithLabelValues("invalid").Inc()
            return nil, apperr.E(apperr.NotFound, fmt.Sprintf("product %d not found", l.ProductID))
        }
        if err != nil {
            metrics.OrdersTotal.WithLabelValues("error").Inc()
            return nil, apperr.Internalf(err, "could not create order")
        }
        it := model.OrderItem{
            ProductID: p.ID,
            Name:      p.Name,
            ImageURL:  p.ImageURL,
            Price:     unitPrice(p),
            Quantity:  uint32(l.Quantity),
        }
        items = items.Add(it.LineTotal())
        o.Items = append(o.Items, it)
    }

    o.ItemsPrice = items.Round(2)
    o.ShippingPrice, err = pick(in.ShippingPrice, s.pricing.shipping(o.ItemsPrice), "shipping price")
    if err != nil {
        metrics.OrdersTotal.WithLabelValues("invalid").Inc()
        return nil, err
    }
    o.TaxPrice, err = pick(in.TaxPrice, s.pricing.tax(o.ItemsPrice), "tax price")
    if err != nil {
        metrics.OrdersTotal.WithLabelValues("invalid").Inc()
        return nil, err
    }
    o.TotalPrice = o.ItemsPrice.Add(o.ShippingPrice).Add(o.TaxPrice)

    if err := s.orders.Create(ctx, o); err != nil {
        if errors.Is(err, repository.ErrInsufficientStock) {
            metrics.OrdersTotal.WithLabelValues("out_of_stock").Inc()
            return nil, errInsufficientStock
        }
        metrics.OrdersTotal.WithLabelValues("error").Inc()
        return nil, apperr.Internalf(err, "could not create order")
    }
    metrics.OrdersTotal.WithLabelValues("created").Inc()
    s.log.Info("order created", "order_id", o.ID, "user_id", userID, "total", o.TotalPrice.StringFixed(2))

    if s.events != nil {
        // The order is committed; a lost notification must not undo it.
        if err := s.events.OrderCreated(ctx, o); err != nil {
            s.log.Warn("order created event not delivered", "order_id", o.ID, "err", err)
        }
    }
    return o, nil
}

// Get returns an order visible to viewer: its owner or staff.  Other users
// get NotFound so order ids cannot be probed.
func (s *OrderService) Get(ctx context.Context, viewer *model.User, id uint64) (*model.Order, error) {
    o, err := s.load(ctx, id)
    if err != nil {
        return nil, err
    }
    if o.UserID != viewer.ID && !viewer.Role.IsPrivileged() {
        return nil, errOrderNotFound
    }
    return o, nil
}

// MarkPaid records payment.  Paying twice is harmless and keeps the first
// timestamp; paying a cancelled order is a Conflict.
func (s *OrderService) MarkPaid(ctx context.Context, viewer *model.User, id uint64) (*model.Order, error) {
    o, err := s.Get(ctx, viewer, id)
    if err != nil {
        return nil, err
    }
    if o.IsPaid {
        return o, nil
    }
    if o.Status == model.OrderCancelled {
        return nil, apperr.E(apperr.Conflict, "cancelled orders cannot be paid")
    }
    if err := s.orders.MarkPaid(ctx, id, s.now().UTC()); err != nil && !errors.Is(err, repository.ErrConflict) {
        return nil, s.storeErr(err, "could not update order")
    }
    // Re-read: on a lost race the other writer's outcome is the answer.
    o, err = s.load(ctx, id)
    if err != nil {
        return nil, err
    }
    if !o.IsPaid {
        return nil, apperr.E(apperr.Conflict, "cancelled orders cannot be paid")
    }
    return o, nil
}

// MarkDelivered moves a non-terminal order straight to delivered.
func (s *OrderService) MarkDelivered(ctx context.Context, id uint64) (*model.Order, error) {
    return s.transition(ctx, id, model.OrderDelivered)
}

// UpdateStatus moves an order forward, or cancels it, on behalf of staff.
func (s *OrderService) UpdateStatus(ctx context.Context, id uint64, to model.OrderStatus) (*model.Order, error) {
    if !to.Valid() {
        return nil, apperr.E(apperr.InvalidInput, "unknown order status")
    }
    return s.transition(ctx, id, to)
}

// Cancel lets an owner cancel a pending order and staff cancel any order
// that is not yet delivered.  Stock comes back with the cancellation.
func (s *OrderService) Cancel(ctx context.Context, viewer *model.User, id uint64) (*model.Order, error) {
    o, err := s.Get(ctx, viewer, id)
    if err != nil {
        return nil, err
    }
    if !viewer.Role.IsPrivileged() && o.Status != model.OrderPending {
        return nil, apperr.E(apperr.Conflict, "only pending orders can be cancelled")
    }
    return s.transition(ctx, id, model.OrderCancelled)
}

func (s *OrderService) transition(ctx context.Context, id uint64, to model.OrderStatus) (*model.Order, error) {
    o, err := s.load(ctx, id)
    if err != nil {
        return nil, err
    }
    if !o.Status.CanTransition(to) {
        return nil, apperr.E(apperr.Conflict, fmt.Sprintf("cannot move order from %s to %s", o.Status, to))
    }
    if err := s.orders.Transition(ctx, id, o.Status, to, s.now().UTC()); err != nil {
        if errors.Is(err, repository.ErrConflict) {
            return nil, apperr.E(apperr.Conflict, "order was modified concurrently")
        }
        return nil, s.storeErr(err, "could not update order")
    }
    s.log.Info("order status changed", "order_id", id, "from", o.Status, "to", to)
    return s.load(ctx, id)
}

// ListMine pages through the caller's orders, newest first.
func (s *OrderService) ListMine(ctx context.Context, userID uint64, p model.Page) (model.PageResult[model.Order], error) {
    orders, total, err := s.orders.ListByUser(ctx, userID, p)
    if err != nil {
        return model.PageResult[model.Order]{}, apperr.Internalf(err, "could not list orders")
    }
    return model.PageResult[model.Order]{Items: orders, Total: total, Page: p}, nil
}

// ListAll pages through every order, newest first.
func (s *OrderService) ListAll(ctx context.Context, p model.Page) (model.PageResult[model.Order], error) {
    orders, total, err := s.orders.List(ctx, p)
    if err != nil {
        return model.PageResult[model.Order]{}, apperr.Internalf(err, "could not list orders")
    }
    return model.PageResult[model.Order]{Items: orders, Total: total, Page: p}, nil
}

func (s *OrderService) load(ctx context.Context, id uint64) (*model.Order, error) {
    o, err := s.orders.GetByID(ctx, id)
    if err != nil {
        return nil, s.storeErr(err, "could not load order")
    }
    return o, nil
}

func (s *OrderService) storeErr(err error, msg string) error {
    if errors.Is(err, repository.ErrNotFound) {
        return errOrderNotFound
    }
    return apperr.Internalf(err, msg)
}

// MaxLineQuantity caps the units of one product in a single order, after
// repeated lines are merged.
const MaxLineQuantity = 10000

// mergeLines validates lines, folds repeated products into one line and
// sorts by product id so concurrent orders lock rows in the same order.
func mergeLines(in []OrderLine) ([]OrderLine, error) {
    if len(in) == 0 {
        return nil, apperr.E(apperr.InvalidInput, "order has no items")
    }
    qty := make(map[uint64]int, len(in))
    for _, l := range in {
        if l.ProductID == 0 {
            return nil, apperr.E(apperr.InvalidInput, "product id is required")
        }
        if l.Quantity < 1 {
            return nil, apperr.E(apperr.InvalidInput, "quantity must be at least 1")
        }
        if l.Quantity > MaxLineQuantity || qty[l.ProductID]+l.Quantity > MaxLineQuantity {
            return nil, apperr.E(apperr.InvalidInput, fmt.Sprintf("quantity must be at most %d per product", MaxLineQuantity))
        }
        qty[l.ProductID] += l.Quantity
    }
    out := make([]OrderLine, 0, len(qty))
    for id, q := range qty {
        out = append(out, OrderLine{ProductID: id, Quantity: q})
    }
    sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
    return out, nil
}

// unitPrice is the catalog price after the product's percentage discount.
func unitPrice(p *model.Product) decimal.Decimal {
    if p.Discount == 0 {
        return p.Price
    }
    pct := hundred.Sub(decimal.NewFromInt(int64(p.Discount)))
    return p.Price.Mul(pct).Div(hundred).Round(2)
}

func pick(given *decimal.Decimal, computed decimal.Decimal, field string) (decimal.Decimal, error) {
    if given == nil {
        return computed, nil
    }
    if given.IsNegative() {
        return decimal.Zero, apperr.E(apperr.InvalidInput, field+" must not be negative")
    }
    return given.Round(2), nil
}
