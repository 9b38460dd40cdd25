package repository

import (
    "context"
    "database/sql"

    "github.com/iliyamo/ecommerce-api/internal/model"
)

// ProductRepo reads the catalog and applies the stock adjustments that
// belong to order transactions.
type ProductRepo struct{ DB *sql.DB }

func NewProductRepo(db *sql.DB) *ProductRepo { return &ProductRepo{DB: db} }

const productColumns = `id, name, description, image_url, price, discount, quantity, sold, rating, num_reviews, created_at, updated_at`

// FindByID returns a product or ErrNotFound.
func (r *ProductRepo) FindByID(ctx context.Context, id uint64) (*model.Product, error) {
    row := r.DB.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products WHERE id=? LIMIT 1", id)
    return scanProduct(row)
}

// List returns a page of products, newest first, optionally filtered by a
// name substring.
func (r *ProductRepo) List(ctx context.Context, search string, p model.Page) ([]model.Product, int, error) {
    where, args := "", []interface{}{}
    if search != "" {
        where = " WHERE name LIKE ?"
        args = append(args, "%"+escapeLike(search)+"%")
    }
    var total int
    if err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM products"+where, args...).Scan(&total); err != nil {
        return nil, 0, err
    }
    rows, err := r.DB.QueryContext(ctx,
        "SELECT "+productColumns+" FROM products"+where+" ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
        append(args, p.Limit, p.Offset())...)
    if err != nil {
        return nil, 0, err
    }
    defer rows.Close()
    out := make([]model.Product, 0, p.Limit)
    for rows.Next() {
        pr, err := scanProduct(rows)
        if err != nil {
            return nil, 0, err
        }
        out = append(out, *pr)
    }
    return out, total, rows.Err()
}

// DecrementStockTx takes qty units of a product out of stock and adds them
// to its sold counter.  The WHERE clause makes the read-check-write a
// single atomic statement, so two concurrent orders cannot both pass the
// check.  ErrInsufficientStock is returned when no row qualified.
func (r *ProductRepo) DecrementStockTx(ctx context.Context, tx *sql.Tx, productID uint64, qty uint32) error {
    res, err := tx.ExecContext(ctx,
        "UPDATE products SET quantity = quantity - ?, sold = sold + ? WHERE id = ? AND quantity >= ?",
        qty, qty, productID, qty)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return ErrInsufficientStock
    }
    return nil
}

// RestockTx reverses DecrementStockTx for a cancelled order.  sold never
// drops below zero.
func (r *ProductRepo) RestockTx(ctx context.Context, tx *sql.Tx, productID uint64, qty uint32) error {
    _, err := tx.ExecContext(ctx,
        "UPDATE products SET quantity = quantity + ?, sold = GREATEST(sold - ?, 0) WHERE id = ?",
        qty, qty, productID)
    return err
}

// RecomputeRatingTx refreshes rating and num_reviews from the reviews table.
func (r *ProductRepo) RecomputeRatingTx(ctx context.Context, tx *sql.Tx, productID uint64) error {
    _, err := tx.ExecContext(ctx,
        `UPDATE products p
         SET p.num_reviews = (SELECT COUNT(*) FROM reviews r WHERE r.product_id = p.id),
             p.rating = COALESCE((SELECT ROUND(AVG(r.rating), 2) FROM reviews r WHERE r.product_id = p.id), 0)
         WHERE p.id = ?`, productID)
    return err
}

func scanProduct(row rowScanner) (*model.Product, error) {
    var p model.Product
    err := row.Scan(&p.ID, &p.Name, &p.Description, &p.ImageURL, &p.Price, &p.Discount,
        &p.Quantity, &p.Sold, &p.Rating, &p.NumReviews, &p.CreatedAt, &p.UpdatedAt)
    if err != nil {
        return nil, notFound(err)
    }
    return &p, nil
}
