package repository

import (
    "context"
    "errors"
    "regexp"
    "testing"
    "time"

    "github.com/DATA-DOG/go-sqlmock"
    "github.com/shopspring/decimal"

    "github.com/iliyamo/ecommerce-api/internal/model"
)

func newOrderRepo(t *testing.T) (*OrderRepo, sqlmock.Sqlmock) {
    t.Helper()
    db, mock, err := sqlmock.New()
    if err != nil {
        t.Fatalf("sqlmock: %v", err)
    }
    t.Cleanup(func() { db.Close() })
    return NewOrderRepo(db, NewProductRepo(db)), mock
}

func sampleOrder() *model.Order {
    return &model.Order{
        UserID:        9,
        Shipping:      model.ShippingAddress{Address: "1 Main St", City: "Springfield", PostalCode: "12345"},
        PaymentMethod: model.PaymentCash,
        ItemsPrice:    decimal.NewFromInt(35),
        ShippingPrice: decimal.Zero,
        TaxPrice:      decimal.Zero,
        TotalPrice:    decimal.NewFromInt(35),
        Status:        model.OrderPending,
        Items: []model.OrderItem{
            {ProductID: 1, Name: "Mug", Price: decimal.NewFromInt(10), Quantity: 2},
            {ProductID: 2, Name: "Pen", Price: decimal.NewFromInt(5), Quantity: 3},
        },
    }
}

var decrementSQL = regexp.QuoteMeta("UPDATE products SET quantity = quantity - ?, sold = sold + ? WHERE id = ? AND quantity >= ?")

func TestOrderCreateDecrementsStockInTransaction(t *testing.T) {
    repo, mock := newOrderRepo(t)
    now := time.Now().UTC()

    mock.ExpectBegin()
    mock.ExpectExec(decrementSQL).WithArgs(2, 2, 1, 2).WillReturnResult(sqlmock.NewResult(0, 1))
    mock.ExpectExec(decrementSQL).WithArgs(3, 3, 2, 3).WillReturnResult(sqlmock.NewResult(0, 1))
    mock.ExpectExec(regexp.QuoteMeta("INSERT INTO orders")).WillReturnResult(sqlmock.NewResult(77, 1))
    mock.ExpectExec(regexp.QuoteMeta("INSERT INTO order_items")).
        WithArgs(77, 1, "Mug", "", sqlmock.AnyArg(), 2).WillReturnResult(sqlmock.NewResult(501, 1))
    mock.ExpectExec(regexp.QuoteMeta("INSERT INTO order_items")).
        WithArgs(77, 2, "Pen", "", sqlmock.AnyArg(), 3).WillReturnResult(sqlmock.NewResult(502, 1))
    mock.ExpectQuery(regexp.QuoteMeta("SELECT created_at, updated_at FROM orders")).WithArgs(77).
        WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
    mock.ExpectCommit()

    o := sampleOrder()
    if err := repo.Create(context.Background(), o); err != nil {
        t.Fatalf("create: %v", err)
    }
    if o.ID != 77 || o.Items[0].ID != 501 || o.Items[1].OrderID != 77 {
        t.Fatalf("ids not populated: %+v", o)
    }
    if err := mock.ExpectationsWereMet(); err != nil {
        t.Fatalf("unmet expectations: %v", err)
    }
}

func TestOrderCreateRollsBackOnInsufficientStock(t *testing.T) {
    repo, mock := newOrderRepo(t)

    mock.ExpectBegin()
    mock.ExpectExec(decrementSQL).WithArgs(2, 2, 1, 2).WillReturnResult(sqlmock.NewResult(0, 1))
    mock.ExpectExec(decrementSQL).WithArgs(3, 3, 2, 3).WillReturnResult(sqlmock.NewResult(0, 0))
    mock.ExpectRollback()

    err := repo.Create(context.Background(), sampleOrder())
    if !errors.Is(err, ErrInsufficientStock) {
        t.Fatalf("expected ErrInsufficientStock, got %v", err)
    }
    if err := mock.ExpectationsWereMet(); err != nil {
        t.Fatalf("order row must not be written: %v", err)
    }
}

func TestOrderCancelRestocksOnce(t *testing.T) {
    repo, mock := newOrderRepo(t)
    at := time.Now().UTC()

    mock.ExpectBegin()
    mock.ExpectExec(regexp.QuoteMeta("UPDATE orders SET status=? WHERE id=? AND status=?")).
        WithArgs("cancelled", 7, "pending").WillReturnResult(sqlmock.NewResult(0, 1))
    mock.ExpectQuery(regexp.QuoteMeta("SELECT product_id, quantity FROM order_items")).WithArgs(7).
        WillReturnRows(sqlmock.NewRows([]string{"product_id", "quantity"}).AddRow(1, 2).AddRow(2, 3))
    restock := regexp.QuoteMeta("UPDATE products SET quantity = quantity + ?")
    mock.ExpectExec(restock).WithArgs(2, 2, 1).WillReturnResult(sqlmock.NewResult(0, 1))
    mock.ExpectExec(restock).WithArgs(3, 3, 2).WillReturnResult(sqlmock.NewResult(0, 1))
    mock.ExpectCommit()

    if err := repo.Transition(context.Background(), 7, model.OrderPending, model.OrderCancelled, at); err != nil {
        t.Fatalf("cancel: %v", err)
    }
    if err := mock.ExpectationsWereMet(); err != nil {
        t.Fatalf("unmet expectations: %v", err)
    }
}

func TestOrderTransitionLostRace(t *testing.T) {
    repo, mock := newOrderRepo(t)

    mock.ExpectBegin()
    mock.ExpectExec(regexp.QuoteMeta("UPDATE orders SET status=? WHERE id=? AND status=?")).
        WithArgs("cancelled", 7, "pending").WillReturnResult(sqlmock.NewResult(0, 0))
    mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM orders WHERE id=?")).WithArgs(7).
        WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
    mock.ExpectRollback()

    err := repo.Transition(context.Background(), 7, model.OrderPending, model.OrderCancelled, time.Now())
    if !errors.Is(err, ErrConflict) {
        t.Fatalf("expected ErrConflict, got %v", err)
    }
    if err := mock.ExpectationsWereMet(); err != nil {
        t.Fatalf("stock must not be restored twice: %v", err)
    }
}

func TestOrderMarkPaidMissing(t *testing.T) {
    repo, mock := newOrderRepo(t)
    mock.ExpectExec(regexp.QuoteMeta("UPDATE orders SET is_paid=1")).WillReturnResult(sqlmock.NewResult(0, 0))
    mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM orders WHERE id=?")).WithArgs(404).
        WillReturnRows(sqlmock.NewRows([]string{"1"}))

    if err := repo.MarkPaid(context.Background(), 404, time.Now()); !errors.Is(err, ErrNotFound) {
        t.Fatalf("expected ErrNotFound, got %v", err)
    }
}
