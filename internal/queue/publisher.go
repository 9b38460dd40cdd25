package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "log/slog"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"

    "github.com/iliyamo/ecommerce-api/internal/metrics"
    "github.com/iliyamo/ecommerce-api/internal/model"
)

// ErrNotConfirmed is returned when the broker nacks a confirmed publish.
var ErrNotConfirmed = errors.New("rabbitmq: publish not confirmed by broker")

// Publisher sends JSON messages to durable queues on the default exchange.
// Each call dials its own connection; publishes are rare (one per order,
// one per reset email) so there is no pooled connection to keep healthy.
type Publisher struct {
    URL     string
    Timeout time.Duration
    Log     *slog.Logger

    dial func(url string) (*amqp.Connection, error)
}

// NewPublisher returns a Publisher for the broker at url.
func NewPublisher(url string, log *slog.Logger) *Publisher {
    if log == nil {
        log = slog.Default()
    }
    return &Publisher{URL: url, Timeout: 5 * time.Second, Log: log, dial: amqp.Dial}
}

// publish declares queue (idempotent) and sends v as a persistent message.
// When confirm is set the call waits for the broker's ack.
func (p *Publisher) publish(ctx context.Context, queue string, v interface{}, confirm bool) error {
    body, err := json.Marshal(v)
    if err != nil {
        return fmt.Errorf("marshal: %w", err)
    }
    ctx, cancel := context.WithTimeout(ctx, p.Timeout)
    defer cancel()

    conn, err := p.dial(p.URL)
    if err != nil {
        return fmt.Errorf("dial: %w", err)
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if _, err := ch.QueueDeclare(
        queue, // name
        true,  // durable
        false, // autoDelete
        false, // exclusive
        false, // noWait
        nil,   // args
    ); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }

    msg := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent, // store on disk
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }

    if !confirm {
        if err := ch.PublishWithContext(ctx, "", queue, false, false, msg); err != nil {
            return fmt.Errorf("publish: %w", err)
        }
        return nil
    }

    if err := ch.Confirm(false); err != nil {
        return fmt.Errorf("confirm mode: %w", err)
    }
    dc, err := ch.PublishWithDeferredConfirmWithContext(ctx, "", queue, false, false, msg)
    if err != nil {
        return fmt.Errorf("publish: %w", err)
    }
    ok, err := dc.WaitContext(ctx)
    if err != nil {
        return fmt.Errorf("await confirm: %w", err)
    }
    if !ok {
        return ErrNotConfirmed
    }
    return nil
}

// OrderEvents publishes order.created.  Failures are logged and counted
// here and also returned so the caller can decide; the order service
// ignores them because the order is already committed.
type OrderEvents struct {
    pub *Publisher
}

func NewOrderEvents(pub *Publisher) *OrderEvents { return &OrderEvents{pub: pub} }

func (e *OrderEvents) OrderCreated(ctx context.Context, o *model.Order) error {
    err := e.pub.publish(ctx, OrderCreatedQueue, NewOrderCreatedEvent(o), false)
    if err != nil {
        metrics.EventPublishFailuresTotal.WithLabelValues(OrderCreatedQueue).Inc()
        e.pub.Log.Warn("order event publish failed", "order_id", o.ID, "err", err)
    }
    return err
}

// MailPublisher hands outbound mail to the broker.  Send reports delivered
// only after the broker confirmed the message, which is as far as this
// service can observe.
type MailPublisher struct {
    pub  *Publisher
    from string
}

func NewMailPublisher(pub *Publisher, from string) *MailPublisher {
    return &MailPublisher{pub: pub, from: from}
}

func (m *MailPublisher) Send(ctx context.Context, to, subject, body string) (bool, error) {
    err := m.pub.publish(ctx, MailOutboundQueue, MailMessage{To: to, From: m.from, Subject: subject, Body: body}, true)
    if err != nil {
        metrics.EventPublishFailuresTotal.WithLabelValues(MailOutboundQueue).Inc()
        return false, err
    }
    return true, nil
}

// LogMailer writes mail to the structured log instead of sending it.  It
// is the development driver; the body is logged because it carries the
// reset code a developer needs.
type LogMailer struct {
    Log  *slog.Logger
    From string
}

func (l LogMailer) Send(_ context.Context, to, subject, body string) (bool, error) {
    log := l.Log
    if log == nil {
        log = slog.Default()
    }
    log.Info("mail (log driver)", "from", l.From, "to", to, "subject", subject, "body", body)
    return true, nil
}
