package model

import (
    "time"

    "github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
    OrderPending    OrderStatus = "pending"
    OrderProcessing OrderStatus = "processing"
    OrderDelivering OrderStatus = "delivering"
    OrderDelivered  OrderStatus = "delivered"
    OrderCancelled  OrderStatus = "cancelled"
)

// progress orders the forward states; cancelled sits outside the chain.
var progress = map[OrderStatus]int{
    OrderPending:    0,
    OrderProcessing: 1,
    OrderDelivering: 2,
    OrderDelivered:  3,
}

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
    _, ok := progress[s]
    return ok || s == OrderCancelled
}

// Terminal reports whether no further transition is possible.
func (s OrderStatus) Terminal() bool { return s == OrderDelivered || s == OrderCancelled }

// CanTransition reports whether an order in s may move to next.  Moves only
// go forward along pending → processing → delivering → delivered (skipping
// is allowed); cancelled is reachable from every non-terminal state.
func (s OrderStatus) CanTransition(next OrderStatus) bool {
    if s.Terminal() || !next.Valid() {
        return false
    }
    if next == OrderCancelled {
        return true
    }
    return progress[next] > progress[s]
}

// PaymentMethod is opaque pass-through data; no payment is processed.
type PaymentMethod string

const (
    PaymentCash PaymentMethod = "cash"
    PaymentCard PaymentMethod = "card"
)

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool { return m == PaymentCash || m == PaymentCard }

// Order is a checkout record.  Items and totals are fixed at creation.
//
// Fields:
//  Shipping      – address snapshot taken from the request.
//  ItemsPrice    – Σ price × quantity over Items.
//  TotalPrice    – ItemsPrice + ShippingPrice + TaxPrice.
//  PaidAt        – set once, on the first successful pay call.
//  DeliveredAt   – set when the order reaches delivered.
type Order struct {
    ID            uint64          // orders.id
    UserID        uint64          // orders.user_id
    Shipping      ShippingAddress // orders.ship_address, ship_city, ship_postal_code
    ShippingPhone string          // orders.ship_phone
    PaymentMethod PaymentMethod   // orders.payment_method
    ItemsPrice    decimal.Decimal // orders.items_price
    ShippingPrice decimal.Decimal // orders.shipping_price
    TaxPrice      decimal.Decimal // orders.tax_price
    TotalPrice    decimal.Decimal // orders.total_price
    Status        OrderStatus     // orders.status
    IsPaid        bool            // orders.is_paid
    PaidAt        *time.Time      // orders.paid_at (nullable)
    IsDelivered   bool            // orders.is_delivered
    DeliveredAt   *time.Time      // orders.delivered_at (nullable)
    Items         []OrderItem     // order_items rows
    CreatedAt     time.Time       // orders.created_at
    UpdatedAt     time.Time       // orders.updated_at
}

// OrderItem is a snapshot of a product at the time the order was placed.
type OrderItem struct {
    ID        uint64          // order_items.id
    OrderID   uint64          // order_items.order_id
    ProductID uint64          // order_items.product_id
    Name      string          // order_items.name
    ImageURL  string          // order_items.image_url
    Price     decimal.Decimal // order_items.price
    Quantity  uint32          // order_items.quantity
}

// LineTotal returns Price × Quantity.
func (i OrderItem) LineTotal() decimal.Decimal {
    return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
