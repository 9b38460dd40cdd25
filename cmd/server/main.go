package main // Entry point package

import (
    "context"
    "errors"
    "log/slog"
    "net/http"
    "os"
    "os/signal"
    "sync"
    "syscall"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/ecommerce-api/internal/config"
    "github.com/iliyamo/ecommerce-api/internal/database"
    "github.com/iliyamo/ecommerce-api/internal/handler"
    "github.com/iliyamo/ecommerce-api/internal/logging"
    "github.com/iliyamo/ecommerce-api/internal/metrics"
    "github.com/iliyamo/ecommerce-api/internal/middleware"
    "github.com/iliyamo/ecommerce-api/internal/queue"
    "github.com/iliyamo/ecommerce-api/internal/repository"
    "github.com/iliyamo/ecommerce-api/internal/router"
    "github.com/iliyamo/ecommerce-api/internal/service"
    "github.com/iliyamo/ecommerce-api/internal/utils"
)

const serviceName = "ecommerce-api"

func main() {
    cfg := config.Load()
    logger := logging.New(logging.Config{ServiceName: serviceName, Environment: cfg.Env, Level: cfg.LogLevel})
    slog.SetDefault(logger)
    metrics.MustRegister(serviceName)

    db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
    if err != nil {
        logger.Error("database unavailable", "error", err)
        os.Exit(1)
    }
    defer db.Close()
    if cfg.DBAutoMigrate {
        ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
        err := database.Migrate(ctx, db)
        cancel()
        if err != nil {
            logger.Error("migration failed", "error", err)
            os.Exit(1)
        }
    }

    cipher, err := utils.NewFieldCipher(cfg.EncryptionKey)
    if err != nil {
        logger.Error("field cipher", "error", err)
        os.Exit(1)
    }

    // Redis is optional; a nil client turns the limiter and cache into no-ops.
    rdb := config.NewRedisClient(config.LoadRedisConfig())
    if rdb != nil {
        defer rdb.Close()
    }

    users := repository.NewUserRepo(db)
    tokens := repository.NewTokenRepo(db)
    carts := repository.NewCartRepo(db)
    products := repository.NewProductRepo(db)
    orders := repository.NewOrderRepo(db, products)
    reviews := repository.NewReviewRepo(db, products)

    pub := queue.NewPublisher(cfg.RabbitURL, logger)
    var mailer service.Mailer = queue.LogMailer{Log: logger, From: cfg.MailFrom}
    if cfg.MailDriver == "rabbitmq" {
        mailer = queue.NewMailPublisher(pub, cfg.MailFrom)
    }
    var events service.OrderEvents
    if cfg.EventsEnabled {
        events = queue.NewOrderEvents(pub)
    }

    tokenSvc := service.NewTokenService(tokens, cfg.JWTSecret, cfg.TokenTTL, logger)
    gate := service.NewAccessGate(tokenSvc, users, logger)
    accounts := service.NewAccountService(users, carts, tokenSvc, mailer, cipher,
        service.AccountConfig{BcryptCost: cfg.BcryptCost, ResetCodeTTL: cfg.ResetCodeTTL}, logger)
    orderSvc := service.NewOrderService(orders, products, events, service.Pricing{
        ShippingFlat:     cfg.ShippingFlat,
        FreeShippingOver: cfg.FreeShipOver,
        TaxRate:          cfg.TaxRate,
    }, logger)
    catalog := service.NewCatalogService(products, reviews, logger)

    e := echo.New()
    e.HideBanner = true
    e.Validator = handler.NewValidator()
    e.HTTPErrorHandler = handler.ErrorHandler(cfg.IsDev(), logger)
    e.Use(middleware.RequestID(), middleware.RequestLog(logger), middleware.Metrics())

    cookie := handler.SessionCookie{Transport: cfg.AuthTransport, Name: cfg.CookieName, Secure: !cfg.IsDev()}
    authn := middleware.Authenticate(gate, cfg.AuthTransport, cfg.CookieName)
    productHandler := handler.NewProductHandler(catalog)

    router.RegisterRoutes(e, db)
    router.RegisterAuth(e, handler.NewAuthHandler(accounts, cookie),
        middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, logger))
    cacheCfg := config.LoadCacheConfig()
    router.RegisterPublic(e, productHandler, middleware.NewRedisCache(cacheCfg, rdb, logger))
    router.RegisterUsers(e, handler.NewUserHandler(accounts, cookie), handler.NewAdminUserHandler(accounts), authn)
    router.RegisterOrders(e, handler.NewOrderHandler(orderSvc), authn)
    router.RegisterReviews(e, productHandler, authn,
        middleware.NewCachePurge(cacheCfg, rdb, logger, router.ReviewedProductPaths))

    ctx, cancel := context.WithCancel(context.Background())
    var wg sync.WaitGroup
    if cfg.EventsEnabled {
        consumer := queue.NewOrderLogConsumer(cfg.RabbitURL, "logs", logger)
        wg.Add(1)
        go func() {
            defer wg.Done()
            if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
                logger.Error("order consumer stopped", "error", err)
            }
        }()
    }

    go func() {
        addr := ":" + cfg.Port
        logger.Info("listening", "addr", addr, "transport", cfg.AuthTransport)
        if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
            logger.Error("server failed", "error", err)
            os.Exit(1)
        }
    }()

    stop := make(chan os.Signal, 1)
    signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
    sig := <-stop
    logger.Info("shutting down", "signal", sig.String())

    shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
    defer shutdownCancel()
    if err := e.Shutdown(shutdownCtx); err != nil {
        logger.Error("graceful shutdown failed", "error", err)
    }
    cancel()
    wg.Wait()
}
