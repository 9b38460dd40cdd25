package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
    HTTPRequestsTotal = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Name: "http_requests_total",
            Help: "Total number of HTTP requests.",
        },
        []string{"method", "path", "status"},
    )

    HTTPRequestDurationSeconds = prometheus.NewHistogramVec(
        prometheus.HistogramOpts{
            Name:    "http_request_duration_seconds",
            Help:    "Duration of HTTP requests.",
            Buckets: prometheus.DefBuckets,
        },
        []string{"method", "path"},
    )

    RegistrationsTotal = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Name: "shop_registrations_total",
            Help: "Total number of registration attempts.",
        },
        []string{"result"},
    )

    LoginsTotal = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Name: "shop_logins_total",
            Help: "Total number of login attempts.",
        },
        []string{"result"},
    )

    TokenRejectionsTotal = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Name: "shop_token_rejections_total",
            Help: "Session tokens rejected by the access gate, by reason.",
        },
        []string{"reason"},
    )

    OrdersTotal = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Name: "shop_orders_total",
            Help: "Order creation attempts.",
        },
        []string{"result"},
    )

    EventPublishFailuresTotal = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Name: "shop_event_publish_failures_total",
            Help: "Broker publishes that failed, by queue.",
        },
        []string{"queue"},
    )
)

// MustRegister registers every collector with the default registry, tagging
// all series with the service name. Call once at startup; until then the
// collectors still count, they are just not exported.
func MustRegister(serviceName string) {
    reg := prometheus.WrapRegistererWith(prometheus.Labels{"service": serviceName}, prometheus.DefaultRegisterer)
    reg.MustRegister(
        HTTPRequestsTotal,
        HTTPRequestDurationSeconds,
        RegistrationsTotal,
        LoginsTotal,
        TokenRejectionsTotal,
        OrdersTotal,
        EventPublishFailuresTotal,
    )
}
