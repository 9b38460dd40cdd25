// Package repository holds the MySQL data access layer.  The sentinel
// values below let the service layer distinguish failure scenarios
// without inspecting driver errors.  ErrNotFound replaces sql.ErrNoRows
// at the package boundary so callers never import database/sql just to
// compare errors.
package repository

import (
    "database/sql"
    "errors"

    "github.com/iliyamo/ecommerce-api/internal/database"
)

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned when a user insert or email change would
// collide with another account.
var ErrEmailExists = errors.New("email already exists")

// ErrInsufficientStock is returned by the order transaction when a
// conditional stock decrement matched no row.  The whole order is rolled
// back.
var ErrInsufficientStock = errors.New("insufficient stock")

// ErrConflict is returned when a compare-and-swap update found the row in
// a different state than expected (order status, reset code).
var ErrConflict = errors.New("conflict")

// ErrAlreadyReviewed is returned when a user reviews the same product twice.
var ErrAlreadyReviewed = errors.New("product already reviewed")

// notFound maps sql.ErrNoRows to ErrNotFound and passes other errors through.
func notFound(err error) error {
    if errors.Is(err, sql.ErrNoRows) {
        return ErrNotFound
    }
    return err
}

// duplicate maps a unique-key violation to target.
func duplicate(err, target error) error {
    if database.IsDuplicateKey(err) {
        return target
    }
    return err
}

// rollback is deferred by every transactional method; it is a no-op after
// a successful Commit.
func rollback(tx *sql.Tx, committed *bool) {
    if !*committed {
        _ = tx.Rollback()
    }
}
