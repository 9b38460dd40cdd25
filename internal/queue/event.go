// Package queue defines message payloads exchanged over the message broker
// together with the publishers and the consumer that move them.
package queue

import (
    "strconv"
    "time"

    "github.com/iliyamo/ecommerce-api/internal/model"
)

// Queue names.  Both are durable.
const (
    OrderCreatedQueue = "order.created"
    MailOutboundQueue = "mail.outbound"
)

// OrderCreatedEvent is published after an order transaction commits.  It
// carries enough for downstream consumers to log, notify, or trigger
// analytics without querying the primary database.
type OrderCreatedEvent struct {
    OrderID       uint64           `json:"order_id"`
    UserID        uint64           `json:"user_id"`
    Status        string           `json:"status"`
    PaymentMethod string           `json:"payment_method"`
    Items         []OrderEventItem `json:"items"`
    ItemsPrice    string           `json:"items_price"`
    ShippingPrice string           `json:"shipping_price"`
    TaxPrice      string           `json:"tax_price"`
    TotalPrice    string           `json:"total_price"`
    City          string           `json:"city"`
    CreatedAt     string           `json:"created_at"`
}

// OrderEventItem is one line of OrderCreatedEvent.
type OrderEventItem struct {
    ProductID uint64 `json:"product_id"`
    Name      string `json:"name"`
    Quantity  uint32 `json:"quantity"`
    Price     string `json:"price"`
}

// NewOrderCreatedEvent flattens an order into its wire form.  Money is sent
// as fixed two-decimal strings.
func NewOrderCreatedEvent(o *model.Order) OrderCreatedEvent {
    items := make([]OrderEventItem, 0, len(o.Items))
    for _, it := range o.Items {
        items = append(items, OrderEventItem{
            ProductID: it.ProductID,
            Name:      it.Name,
            Quantity:  it.Quantity,
            Price:     it.Price.StringFixed(2),
        })
    }
    return OrderCreatedEvent{
        OrderID:       o.ID,
        UserID:        o.UserID,
        Status:        string(o.Status),
        PaymentMethod: string(o.PaymentMethod),
        Items:         items,
        ItemsPrice:    o.ItemsPrice.StringFixed(2),
        ShippingPrice: o.ShippingPrice.StringFixed(2),
        TaxPrice:      o.TaxPrice.StringFixed(2),
        TotalPrice:    o.TotalPrice.StringFixed(2),
        City:          o.Shipping.City,
        CreatedAt:     o.CreatedAt.UTC().Format(time.RFC3339),
    }
}

// MailMessage is the payload of mail.outbound.  A separate mail worker
// owns SMTP delivery.
type MailMessage struct {
    To      string `json:"to"`
    From    string `json:"from"`
    Subject string `json:"subject"`
    Body    string `json:"body"`
}

// logLine renders an event as one human-friendly line for logs/orders.log.
func (ev OrderCreatedEvent) logLine() string {
    line := "[" + ev.CreatedAt + "] Order created | order_id=" + strconv.FormatUint(ev.OrderID, 10) +
        " | user_id=" + strconv.FormatUint(ev.UserID, 10) +
        " | status=" + ev.Status +
        " | payment=" + ev.PaymentMethod +
        " | total=" + ev.TotalPrice +
        " | items=["
    for i, it := range ev.Items {
        if i > 0 {
            line += ","
        }
        line += strconv.FormatUint(it.ProductID, 10) + "x" + strconv.FormatUint(uint64(it.Quantity), 10)
    }
    return line + "]\n"
}
