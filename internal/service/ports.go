// Package service holds the business rules: session tokens, the access
// gate, account lifecycle, orders and the catalog.  Services depend on the
// small store interfaces below rather than on concrete repositories, and
// report failures as *apperr.Error values.
package service

import (
    "context"
    "time"

    "github.com/iliyamo/ecommerce-api/internal/model"
    "github.com/iliyamo/ecommerce-api/internal/repository"
)

// UserStore is implemented by repository.UserRepo.
type UserStore interface {
    Create(ctx context.Context, u *model.User) error
    GetByID(ctx context.Context, id uint64) (*model.User, error)
    GetByEmail(ctx context.Context, email string) (*model.User, error)
    Update(ctx context.Context, id uint64, upd repository.UserUpdate) error
    SetResetCode(ctx context.Context, id uint64, code string, expiresAt time.Time) error
    ResetPassword(ctx context.Context, id uint64, code, passwordHash string) error
    SetBlocked(ctx context.Context, id uint64, blocked bool, reason *string, at *time.Time) error
    List(ctx context.Context, search string, p model.Page) ([]model.User, int, error)
}

// TokenStore is implemented by repository.TokenRepo.
type TokenStore interface {
    Create(ctx context.Context, t *model.Token) error
    GetByHash(ctx context.Context, tokenHash string) (*model.Token, error)
    DeleteByHash(ctx context.Context, tokenHash string) error
    DeleteByUser(ctx context.Context, userID uint64) (int64, error)
}

// CartStore is implemented by repository.CartRepo.
type CartStore interface {
    CreateEmpty(ctx context.Context, userID uint64) error
    GetByUser(ctx context.Context, userID uint64) (*model.Cart, error)
}

// Catalog is the read side of the product store, implemented by
// repository.ProductRepo.
type Catalog interface {
    FindByID(ctx context.Context, id uint64) (*model.Product, error)
    List(ctx context.Context, search string, p model.Page) ([]model.Product, int, error)
}

// OrderStore is implemented by repository.OrderRepo.  Create must apply
// the per-line stock decrement atomically with the order insert and
// return repository.ErrInsufficientStock without side effects when any
// line cannot be covered.
type OrderStore interface {
    Create(ctx context.Context, o *model.Order) error
    GetByID(ctx context.Context, id uint64) (*model.Order, error)
    ListByUser(ctx context.Context, userID uint64, p model.Page) ([]model.Order, int, error)
    List(ctx context.Context, p model.Page) ([]model.Order, int, error)
    MarkPaid(ctx context.Context, id uint64, at time.Time) error
    Transition(ctx context.Context, id uint64, from, to model.OrderStatus, at time.Time) error
}

// ReviewStore is implemented by repository.ReviewRepo.
type ReviewStore interface {
    Create(ctx context.Context, r *model.Review) error
    ListByProduct(ctx context.Context, productID uint64, p model.Page) ([]model.Review, int, error)
}

// Mailer dispatches a message and reports whether it was handed off.
type Mailer interface {
    Send(ctx context.Context, to, subject, body string) (bool, error)
}

// OrderEvents is notified after an order has been committed.
type OrderEvents interface {
    OrderCreated(ctx context.Context, o *model.Order) error
}
