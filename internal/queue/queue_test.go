package queue

import (
    "bytes"
    "context"
    "encoding/json"
    "errors"
    "log/slog"
    "os"
    "path/filepath"
    "strings"
    "testing"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "github.com/shopspring/decimal"

    "github.com/iliyamo/ecommerce-api/internal/model"
)

func sampleOrder() *model.Order {
    return &model.Order{
        ID:            12,
        UserID:        3,
        Status:        model.OrderPending,
        PaymentMethod: model.PaymentCard,
        ItemsPrice:    decimal.NewFromInt(35),
        ShippingPrice: decimal.RequireFromString("4.5"),
        TaxPrice:      decimal.Zero,
        TotalPrice:    decimal.RequireFromString("39.5"),
        Shipping:      model.ShippingAddress{City: "Tabriz"},
        Items: []model.OrderItem{
            {ProductID: 1, Name: "Mug", Price: decimal.NewFromInt(10), Quantity: 2},
            {ProductID: 2, Name: "Pen", Price: decimal.NewFromInt(5), Quantity: 3},
        },
        CreatedAt: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
    }
}

func TestOrderCreatedEventShape(t *testing.T) {
    ev := NewOrderCreatedEvent(sampleOrder())
    if ev.TotalPrice != "39.50" || ev.ShippingPrice != "4.50" || ev.Items[1].Price != "5.00" {
        t.Fatalf("money must be fixed to cents: %+v", ev)
    }
    if ev.CreatedAt != "2025-01-02T03:04:05Z" {
        t.Fatalf("unexpected created_at %q", ev.CreatedAt)
    }
}

func TestConsumerAppendsLine(t *testing.T) {
    dir := t.TempDir()
    c := NewOrderLogConsumer("", dir, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))

    body, _ := json.Marshal(NewOrderCreatedEvent(sampleOrder()))
    if err := c.Handle(body); err != nil {
        t.Fatalf("handle: %v", err)
    }
    if err := c.Handle(body); err != nil {
        t.Fatalf("handle: %v", err)
    }
    data, err := os.ReadFile(filepath.Join(dir, "orders.log"))
    if err != nil {
        t.Fatalf("read: %v", err)
    }
    lines := strings.Split(strings.TrimSpace(string(data)), "\n")
    if len(lines) != 2 {
        t.Fatalf("expected 2 lines, got %d", len(lines))
    }
    if !strings.Contains(lines[0], "order_id=12") || !strings.Contains(lines[0], "items=[1x2,2x3]") {
        t.Fatalf("unexpected line %q", lines[0])
    }
}

func TestConsumerRejectsGarbage(t *testing.T) {
    c := NewOrderLogConsumer("", t.TempDir(), nil)
    if err := c.Handle([]byte("{not json")); err == nil {
        t.Fatalf("expected unmarshal error")
    }
    if err := c.Handle([]byte(`{"user_id":1}`)); err == nil {
        t.Fatalf("expected error for missing order id")
    }
}

func TestOrderEventsReportsDialFailure(t *testing.T) {
    var buf bytes.Buffer
    pub := NewPublisher("amqp://unused", slog.New(slog.NewJSONHandler(&buf, nil)))
    pub.dial = func(string) (*amqp.Connection, error) { return nil, errors.New("connection refused") }

    err := NewOrderEvents(pub).OrderCreated(context.Background(), sampleOrder())
    if err == nil {
        t.Fatalf("expected error from failed dial")
    }
    if !strings.Contains(buf.String(), "order event publish failed") {
        t.Fatalf("failure should be logged, got %q", buf.String())
    }

    ok, err := NewMailPublisher(pub, "no-reply@shop.local").Send(context.Background(), "a@b.c", "s", "b")
    if ok || err == nil {
        t.Fatalf("mail must not report delivery when the broker is unreachable")
    }
}

func TestLogMailer(t *testing.T) {
    var buf bytes.Buffer
    m := LogMailer{Log: slog.New(slog.NewJSONHandler(&buf, nil)), From: "no-reply@shop.local"}
    ok, err := m.Send(context.Background(), "a@b.c", "Reset code", "code: abc123")
    if !ok || err != nil {
        t.Fatalf("log mailer must always deliver: ok=%v err=%v", ok, err)
    }
    if !strings.Contains(buf.String(), "abc123") {
        t.Fatalf("body not logged")
    }
}
