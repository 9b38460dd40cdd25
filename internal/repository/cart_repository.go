package repository

import (
    "context"
    "database/sql"

    "github.com/iliyamo/ecommerce-api/internal/model"
)

// CartRepo manages the one-cart-per-user tables carts and cart_items.
type CartRepo struct{ DB *sql.DB }

func NewCartRepo(db *sql.DB) *CartRepo { return &CartRepo{DB: db} }

// CreateEmpty makes sure userID has a cart.  Calling it twice is harmless.
func (r *CartRepo) CreateEmpty(ctx context.Context, userID uint64) error {
    _, err := r.DB.ExecContext(ctx, "INSERT IGNORE INTO carts (user_id) VALUES (?)", userID)
    return err
}

// GetByUser loads the cart and its lines.
func (r *CartRepo) GetByUser(ctx context.Context, userID uint64) (*model.Cart, error) {
    var c model.Cart
    err := r.DB.QueryRowContext(ctx,
        "SELECT id, user_id, created_at, updated_at FROM carts WHERE user_id=? LIMIT 1", userID).
        Scan(&c.ID, &c.UserID, &c.CreatedAt, &c.UpdatedAt)
    if err != nil {
        return nil, notFound(err)
    }
    rows, err := r.DB.QueryContext(ctx,
        "SELECT product_id, quantity FROM cart_items WHERE cart_id=? ORDER BY product_id", c.ID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    c.Items = []model.CartItem{}
    for rows.Next() {
        var it model.CartItem
        if err := rows.Scan(&it.ProductID, &it.Quantity); err != nil {
            return nil, err
        }
        c.Items = append(c.Items, it)
    }
    return &c, rows.Err()
}
