package model

import (
    "time"

    "github.com/shopspring/decimal"
)

// Product is a catalog row.  Quantity is stock on hand and Sold the
// running total of units ordered; both move together inside the order
// transaction.
type Product struct {
    ID          uint64          // products.id
    Name        string          // products.name
    Description string          // products.description
    ImageURL    string          // products.image_url
    Price       decimal.Decimal // products.price
    Discount    uint8           // products.discount (percent)
    Quantity    int             // products.quantity
    Sold        int             // products.sold
    Rating      decimal.Decimal // products.rating (average of reviews)
    NumReviews  uint32          // products.num_reviews
    CreatedAt   time.Time       // products.created_at
    UpdatedAt   time.Time       // products.updated_at
}

// Review is a single user's rating of a product.  A user may review a
// product once.
type Review struct {
    ID        uint64    // reviews.id
    UserID    uint64    // reviews.user_id
    ProductID uint64    // reviews.product_id
    Rating    uint8     // reviews.rating (1..5)
    Comment   string    // reviews.comment
    CreatedAt time.Time // reviews.created_at
}

// Cart is created empty at registration and holds product/quantity pairs.
type Cart struct {
    ID        uint64
    UserID    uint64
    Items     []CartItem
    CreatedAt time.Time
    UpdatedAt time.Time
}

// CartItem is one line of a cart.
type CartItem struct {
    ProductID uint64
    Quantity  uint32
}
