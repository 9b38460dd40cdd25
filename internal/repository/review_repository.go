package repository

import (
    "context"
    "database/sql"

    "github.com/iliyamo/ecommerce-api/internal/model"
)

// ReviewRepo stores product reviews and keeps the product's aggregate
// rating in step.
type ReviewRepo struct {
    db       *sql.DB
    products *ProductRepo
}

func NewReviewRepo(db *sql.DB, products *ProductRepo) *ReviewRepo {
    return &ReviewRepo{db: db, products: products}
}

// Create inserts a review and recomputes the product rating in the same
// transaction.  A second review by the same user is ErrAlreadyReviewed.
func (r *ReviewRepo) Create(ctx context.Context, rv *model.Review) error {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    committed := false
    defer rollback(tx, &committed)

    res, err := tx.ExecContext(ctx,
        "INSERT INTO reviews (user_id, product_id, rating, comment) VALUES (?,?,?,?)",
        rv.UserID, rv.ProductID, rv.Rating, rv.Comment)
    if err != nil {
        return duplicate(err, ErrAlreadyReviewed)
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    rv.ID = uint64(id)
    if err := r.products.RecomputeRatingTx(ctx, tx, rv.ProductID); err != nil {
        return err
    }
    if err := tx.QueryRowContext(ctx, "SELECT created_at FROM reviews WHERE id=?", rv.ID).Scan(&rv.CreatedAt); err != nil {
        return err
    }
    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}

// ListByProduct returns one page of a product's reviews, newest first.
func (r *ReviewRepo) ListByProduct(ctx context.Context, productID uint64, p model.Page) ([]model.Review, int, error) {
    var total int
    if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM reviews WHERE product_id=?", productID).Scan(&total); err != nil {
        return nil, 0, err
    }
    rows, err := r.db.QueryContext(ctx,
        `SELECT id, user_id, product_id, rating, comment, created_at FROM reviews
         WHERE product_id=? ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
        productID, p.Limit, p.Offset())
    if err != nil {
        return nil, 0, err
    }
    defer rows.Close()
    out := make([]model.Review, 0, p.Limit)
    for rows.Next() {
        var rv model.Review
        if err := rows.Scan(&rv.ID, &rv.UserID, &rv.ProductID, &rv.Rating, &rv.Comment, &rv.CreatedAt); err != nil {
            return nil, 0, err
        }
        out = append(out, rv)
    }
    return out, total, rows.Err()
}
