package model

const (
    DefaultPage  = 1
    DefaultLimit = 20
    MaxLimit     = 100
    MaxPage      = 1000000
)

// Page is a normalised page request.
type Page struct {
    Page  int
    Limit int
}

// NewPage applies the defaults: non-positive values fall back to page 1 and
// limit 20, limit is capped at MaxLimit and page at MaxPage.
func NewPage(page, limit int) Page {
    if page < 1 {
        page = DefaultPage
    }
    if page > MaxPage {
        page = MaxPage
    }
    if limit < 1 {
        limit = DefaultLimit
    }
    if limit > MaxLimit {
        limit = MaxLimit
    }
    return Page{Page: page, Limit: limit}
}

// Offset is the number of rows to skip.
func (p Page) Offset() int { return (p.Page - 1) * p.Limit }

// PageResult wraps one page of items with the total row count.
type PageResult[T any] struct {
    Items []T
    Total int
    Page  Page
}

// Pages returns the number of pages needed for Total rows.
func (r PageResult[T]) Pages() int {
    if r.Page.Limit == 0 {
        return 0
    }
    return (r.Total + r.Page.Limit - 1) / r.Page.Limit
}
