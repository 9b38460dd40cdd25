package handler

import (
    "time"

    "github.com/iliyamo/ecommerce-api/internal/model"
)

// Response shapes.  These views decide what leaves the process.  Password hashes, reset codes and the encrypted phone
// never do.

type userView struct {
    ID        uint64                 `json:"id"`
    FirstName string                 `json:"first_name"`
    LastName  string                 `json:"last_name"`
    Email     string                 `json:"email"`
    Phone     string                 `json:"phone,omitempty"`
    Gender    *string                `json:"gender,omitempty"`
    Role      model.Role             `json:"role"`
    Block     blockView              `json:"block"`
    Shipping  *model.ShippingAddress `json:"shipping,omitempty"`
    CreatedAt time.Time              `json:"created_at"`
}

type blockView struct {
    Blocked bool       `json:"blocked"`
    Reason  *string    `json:"reason,omitempty"`
    Date    *time.Time `json:"date,omitempty"`
}

func toUser(u *model.User) userView {
    return userView{
        ID:        u.ID,
        FirstName: u.FirstName,
        LastName:  u.LastName,
        Email:     u.Email,
        Phone:     u.Phone,
        Gender:    u.Gender,
        Role:      u.Role,
        Block:     blockView{Blocked: u.Block.Blocked, Reason: u.Block.Reason, Date: u.Block.Date},
        Shipping:  u.Shipping,
        CreatedAt: u.CreatedAt,
    }
}

type orderItemView struct {
    ProductID uint64 `json:"product_id"`
    Name      string `json:"name"`
    ImageURL  string `json:"image_url,omitempty"`
    Price     string `json:"price"`
    Quantity  uint32 `json:"quantity"`
}

type orderView struct {
    ID            uint64                `json:"id"`
    UserID        uint64                `json:"user_id"`
    Items         []orderItemView       `json:"items"`
    Shipping      model.ShippingAddress `json:"shipping"`
    Phone         string                `json:"phone"`
    PaymentMethod model.PaymentMethod   `json:"payment_method"`
    ItemsPrice    string                `json:"items_price"`
    ShippingPrice string                `json:"shipping_price"`
    TaxPrice      string                `json:"tax_price"`
    TotalPrice    string                `json:"total_price"`
    Status        model.OrderStatus     `json:"status"`
    IsPaid        bool                  `json:"is_paid"`
    PaidAt        *time.Time            `json:"paid_at,omitempty"`
    IsDelivered   bool                  `json:"is_delivered"`
    DeliveredAt   *time.Time            `json:"delivered_at,omitempty"`
    CreatedAt     time.Time             `json:"created_at"`
}

// Money is rendered as fixed two-decimal strings so clients never see
// float rounding.
func toOrder(o *model.Order) orderView {
    items := make([]orderItemView, len(o.Items))
    for i, it := range o.Items {
        items[i] = orderItemView{
            ProductID: it.ProductID,
            Name:      it.Name,
            ImageURL:  it.ImageURL,
            Price:     it.Price.StringFixed(2),
            Quantity:  it.Quantity,
        }
    }
    return orderView{
        ID:            o.ID,
        UserID:        o.UserID,
        Items:         items,
        Shipping:      o.Shipping,
        Phone:         o.ShippingPhone,
        PaymentMethod: o.PaymentMethod,
        ItemsPrice:    o.ItemsPrice.StringFixed(2),
        ShippingPrice: o.ShippingPrice.StringFixed(2),
        TaxPrice:      o.TaxPrice.StringFixed(2),
        TotalPrice:    o.TotalPrice.StringFixed(2),
        Status:        o.Status,
        IsPaid:        o.IsPaid,
        PaidAt:        o.PaidAt,
        IsDelivered:   o.IsDelivered,
        DeliveredAt:   o.DeliveredAt,
        CreatedAt:     o.CreatedAt,
    }
}

type productView struct {
    ID          uint64 `json:"id"`
    Name        string `json:"name"`
    Description string `json:"description"`
    ImageURL    string `json:"image_url,omitempty"`
    Price       string `json:"price"`
    Discount    uint8  `json:"discount"`
    InStock     int    `json:"quantity"`
    Rating      string `json:"rating"`
    NumReviews  uint32 `json:"num_reviews"`
}

func toProduct(p *model.Product) productView {
    return productView{
        ID:          p.ID,
        Name:        p.Name,
        Description: p.Description,
        ImageURL:    p.ImageURL,
        Price:       p.Price.StringFixed(2),
        Discount:    p.Discount,
        InStock:     p.Quantity,
        Rating:      p.Rating.StringFixed(1),
        NumReviews:  p.NumReviews,
    }
}

type reviewView struct {
    ID        uint64    `json:"id"`
    UserID    uint64    `json:"user_id"`
    ProductID uint64    `json:"product_id"`
    Rating    uint8     `json:"rating"`
    Comment   string    `json:"comment"`
    CreatedAt time.Time `json:"created_at"`
}

func toReview(r *model.Review) reviewView {
    return reviewView{ID: r.ID, UserID: r.UserID, ProductID: r.ProductID, Rating: r.Rating, Comment: r.Comment, CreatedAt: r.CreatedAt}
}

type cartItemView struct {
    ProductID uint64 `json:"product_id"`
    Quantity  uint32 `json:"quantity"`
}

func mapAll[T, V any](in []T, f func(*T) V) []V {
    out := make([]V, len(in))
    for i := range in {
        out[i] = f(&in[i])
    }
    return out
}
