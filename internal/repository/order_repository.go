package repository

import (
    "context"
    "database/sql"
    "strings"
    "time"

    "github.com/iliyamo/ecommerce-api/internal/model"
)

// OrderRepo persists orders and their item snapshots.  Stock movements go
// through ProductRepo inside the same transaction as the order write.
type OrderRepo struct {
    db       *sql.DB
    products *ProductRepo
}

// NewOrderRepo returns an OrderRepo; products supplies the *Tx stock methods.
func NewOrderRepo(db *sql.DB, products *ProductRepo) *OrderRepo {
    return &OrderRepo{db: db, products: products}
}

const orderColumns = `id, user_id, ship_address, ship_city, ship_postal_code, ship_phone, payment_method,
    items_price, shipping_price, tax_price, total_price, status, is_paid, paid_at, is_delivered, delivered_at,
    created_at, updated_at`

// Create stores o and its items and moves stock for every line, all in one
// transaction.  If any line cannot be covered the transaction is rolled
// back and ErrInsufficientStock is returned; nothing is persisted and no
// stock moves.  o.ID, item IDs and timestamps are filled in on success.
func (r *OrderRepo) Create(ctx context.Context, o *model.Order) error {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    committed := false
    defer rollback(tx, &committed)

    for _, it := range o.Items {
        if err := r.products.DecrementStockTx(ctx, tx, it.ProductID, it.Quantity); err != nil {
            return err
        }
    }

    res, err := tx.ExecContext(ctx,
        `INSERT INTO orders (user_id, ship_address, ship_city, ship_postal_code, ship_phone, payment_method,
            items_price, shipping_price, tax_price, total_price, status)
         VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
        o.UserID, o.Shipping.Address, o.Shipping.City, o.Shipping.PostalCode, o.ShippingPhone, string(o.PaymentMethod),
        o.ItemsPrice, o.ShippingPrice, o.TaxPrice, o.TotalPrice, string(o.Status))
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    o.ID = uint64(id)

    for i := range o.Items {
        it := &o.Items[i]
        it.OrderID = o.ID
        res, err := tx.ExecContext(ctx,
            "INSERT INTO order_items (order_id, product_id, name, image_url, price, quantity) VALUES (?,?,?,?,?,?)",
            it.OrderID, it.ProductID, it.Name, it.ImageURL, it.Price, it.Quantity)
        if err != nil {
            return err
        }
        itemID, err := res.LastInsertId()
        if err != nil {
            return err
        }
        it.ID = uint64(itemID)
    }

    if err := tx.QueryRowContext(ctx, "SELECT created_at, updated_at FROM orders WHERE id=?", o.ID).
        Scan(&o.CreatedAt, &o.UpdatedAt); err != nil {
        return err
    }
    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}

// GetByID loads an order with its items.
func (r *OrderRepo) GetByID(ctx context.Context, id uint64) (*model.Order, error) {
    o, err := scanOrder(r.db.QueryRowContext(ctx, "SELECT "+orderColumns+" FROM orders WHERE id=? LIMIT 1", id))
    if err != nil {
        return nil, err
    }
    orders := []model.Order{*o}
    if err := r.attachItems(ctx, orders); err != nil {
        return nil, err
    }
    return &orders[0], nil
}

// ListByUser returns one page of a user's orders, newest first.
func (r *OrderRepo) ListByUser(ctx context.Context, userID uint64, p model.Page) ([]model.Order, int, error) {
    return r.list(ctx, " WHERE user_id=?", []interface{}{userID}, p)
}

// List returns one page of all orders, newest first.
func (r *OrderRepo) List(ctx context.Context, p model.Page) ([]model.Order, int, error) {
    return r.list(ctx, "", nil, p)
}

func (r *OrderRepo) list(ctx context.Context, where string, args []interface{}, p model.Page) ([]model.Order, int, error) {
    var total int
    if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM orders"+where, args...).Scan(&total); err != nil {
        return nil, 0, err
    }
    rows, err := r.db.QueryContext(ctx,
        "SELECT "+orderColumns+" FROM orders"+where+" ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
        append(args, p.Limit, p.Offset())...)
    if err != nil {
        return nil, 0, err
    }
    defer rows.Close()
    out := make([]model.Order, 0, p.Limit)
    for rows.Next() {
        o, err := scanOrder(rows)
        if err != nil {
            return nil, 0, err
        }
        out = append(out, *o)
    }
    if err := rows.Err(); err != nil {
        return nil, 0, err
    }
    if err := r.attachItems(ctx, out); err != nil {
        return nil, 0, err
    }
    return out, total, nil
}

// MarkPaid sets the paid flag and timestamp once.  ErrConflict is returned
// when the order is already paid or cancelled, ErrNotFound when it does
// not exist.
func (r *OrderRepo) MarkPaid(ctx context.Context, id uint64, at time.Time) error {
    res, err := r.db.ExecContext(ctx,
        "UPDATE orders SET is_paid=1, paid_at=? WHERE id=? AND is_paid=0 AND status<>?",
        at, id, string(model.OrderCancelled))
    if err != nil {
        return err
    }
    return r.casResult(ctx, res, id)
}

// Transition moves an order from one status to another with a
// compare-and-swap on the current status.  Reaching delivered stamps the
// delivery fields.  Reaching cancelled puts every line back into stock
// inside the same transaction, so the adjustment happens exactly once.
func (r *OrderRepo) Transition(ctx context.Context, id uint64, from, to model.OrderStatus, at time.Time) error {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    committed := false
    defer rollback(tx, &committed)

    var res sql.Result
    if to == model.OrderDelivered {
        res, err = tx.ExecContext(ctx,
            "UPDATE orders SET status=?, is_delivered=1, delivered_at=? WHERE id=? AND status=?",
            string(to), at, id, string(from))
    } else {
        res, err = tx.ExecContext(ctx,
            "UPDATE orders SET status=? WHERE id=? AND status=?", string(to), id, string(from))
    }
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        var one int
        if err := tx.QueryRowContext(ctx, "SELECT 1 FROM orders WHERE id=?", id).Scan(&one); err != nil {
            return notFound(err)
        }
        return ErrConflict
    }

    if to == model.OrderCancelled {
        rows, err := tx.QueryContext(ctx,
            "SELECT product_id, quantity FROM order_items WHERE order_id=? ORDER BY product_id", id)
        if err != nil {
            return err
        }
        type line struct {
            productID uint64
            qty       uint32
        }
        var lines []line
        for rows.Next() {
            var l line
            if err := rows.Scan(&l.productID, &l.qty); err != nil {
                rows.Close()
                return err
            }
            lines = append(lines, l)
        }
        rows.Close()
        if err := rows.Err(); err != nil {
            return err
        }
        for _, l := range lines {
            if err := r.products.RestockTx(ctx, tx, l.productID, l.qty); err != nil {
                return err
            }
        }
    }

    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}

func (r *OrderRepo) casResult(ctx context.Context, res sql.Result, id uint64) error {
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n > 0 {
        return nil
    }
    var one int
    if err := r.db.QueryRowContext(ctx, "SELECT 1 FROM orders WHERE id=?", id).Scan(&one); err != nil {
        return notFound(err)
    }
    return ErrConflict
}

// attachItems loads the items of all given orders with one query.
func (r *OrderRepo) attachItems(ctx context.Context, orders []model.Order) error {
    if len(orders) == 0 {
        return nil
    }
    idx := make(map[uint64]int, len(orders))
    args := make([]interface{}, 0, len(orders))
    for i := range orders {
        idx[orders[i].ID] = i
        orders[i].Items = []model.OrderItem{}
        args = append(args, orders[i].ID)
    }
    q := "SELECT id, order_id, product_id, name, image_url, price, quantity FROM order_items WHERE order_id IN (" +
        strings.TrimSuffix(strings.Repeat("?,", len(args)), ",") + ") ORDER BY order_id, id"
    rows, err := r.db.QueryContext(ctx, q, args...)
    if err != nil {
        return err
    }
    defer rows.Close()
    for rows.Next() {
        var it model.OrderItem
        if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Name, &it.ImageURL, &it.Price, &it.Quantity); err != nil {
            return err
        }
        if i, ok := idx[it.OrderID]; ok {
            orders[i].Items = append(orders[i].Items, it)
        }
    }
    return rows.Err()
}

func scanOrder(row rowScanner) (*model.Order, error) {
    var (
        o               model.Order
        method, status  string
        paidAt, delivAt sql.NullTime
    )
    err := row.Scan(&o.ID, &o.UserID, &o.Shipping.Address, &o.Shipping.City, &o.Shipping.PostalCode, &o.ShippingPhone,
        &method, &o.ItemsPrice, &o.ShippingPrice, &o.TaxPrice, &o.TotalPrice, &status,
        &o.IsPaid, &paidAt, &o.IsDelivered, &delivAt, &o.CreatedAt, &o.UpdatedAt)
    if err != nil {
        return nil, notFound(err)
    }
    o.PaymentMethod = model.PaymentMethod(method)
    o.Status = model.OrderStatus(status)
    o.PaidAt = nullTime(paidAt)
    o.DeliveredAt = nullTime(delivAt)
    return &o, nil
}
