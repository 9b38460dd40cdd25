package service

import (
    "context"
    "errors"
    "sort"
    "strings"
    "sync"
    "time"

    "github.com/iliyamo/ecommerce-api/internal/model"
    "github.com/iliyamo/ecommerce-api/internal/repository"
)

// memDB is an in-memory stand-in for the MySQL repositories.  One mutex
// guards every table so multi-table operations are atomic, like the SQL
// transactions they replace.
type memDB struct {
    mu       sync.Mutex
    clock    time.Time
    seq      uint64
    users    map[uint64]*model.User
    tokens   map[string]*model.Token
    carts    map[uint64]*model.Cart
    products map[uint64]*model.Product
    orders   map[uint64]*model.Order
    reviews  []model.Review

    failCart bool
}

func newMemDB() *memDB {
    return &memDB{
        clock:    time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
        users:    map[uint64]*model.User{},
        tokens:   map[string]*model.Token{},
        carts:    map[uint64]*model.Cart{},
        products: map[uint64]*model.Product{},
        orders:   map[uint64]*model.Order{},
    }
}

// tick returns strictly increasing timestamps so newest-first ordering is
// deterministic.
func (db *memDB) tick() time.Time {
    db.seq++
    return db.clock.Add(time.Duration(db.seq) * time.Second)
}

func (db *memDB) addProduct(p model.Product) {
    db.mu.Lock()
    defer db.mu.Unlock()
    cp := p
    cp.CreatedAt = db.tick()
    db.products[p.ID] = &cp
}

func (db *memDB) product(id uint64) model.Product {
    db.mu.Lock()
    defer db.mu.Unlock()
    return *db.products[id]
}

type memUsers struct{ db *memDB }

func (m memUsers) Create(_ context.Context, u *model.User) error {
    m.db.mu.Lock()
    defer m.db.mu.Unlock()
    u.Email = repository.NormalizeEmail(u.Email)
    for _, x := range m.db.users {
        if x.Email == u.Email {
            return repository.ErrEmailExists
        }
    }
    u.ID = uint64(len(m.db.users) + 1)
    u.CreatedAt = m.db.tick()
    u.UpdatedAt = u.CreatedAt
    cp := *u
    cp.Phone = ""
    m.db.users[u.ID] = &cp
    return nil
}

func (m memUsers) GetByID(_ context.Context, id uint64) (*model.User, error) {
    m.db.mu.Lock()
    defer m.db.mu.Unlock()
    u, ok := m.db.users[id]
    if !ok {
        return nil, repository.ErrNotFound
    }
    cp := *u
    return &cp, nil
}

func (m memUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
    m.db.mu.Lock()
    defer m.db.mu.Unlock()
    email = repository.NormalizeEmail(email)
    for _, u := range m.db.users {
        if u.Email == email {
            cp := *u
            return &cp, nil
        }
    }
    return nil, repository.ErrNotFound
}

func (m memUsers) Update(_ context.Context, id uint64, upd repository.UserUpdate) error {
    m.db.mu.Lock()
    defer m.db.mu.Unlock()
    u, ok := m.db.users[id]
    if !ok {
        return repository.ErrNotFound
    }
    if upd.Email != nil {
        for _, x := range m.db.users {
            if x.ID != id && x.Email == *upd.Email {
                return repository.ErrEmailExists
            }
        }
        u.Email = *upd.Email
    }
    if upd.FirstName != nil {
        u.FirstName = *upd.FirstName
    }
    if upd.LastName != nil {
        u.LastName = *upd.LastName
    }
    if upd.PasswordHash != nil {
        u.PasswordHash = *upd.PasswordHash
    }
    if upd.PhoneEnc != nil {
        v := *upd.PhoneEnc
        u.PhoneEnc = &v
    }
    if upd.Gender != nil {
        v := *upd.Gender
        u.Gender = &v
    }
    if upd.Shipping != nil {
        v := *upd.Shipping
        u.Shipping = &v
    }
    return nil
}

func (m memUsers) SetResetCode(_ context.Context, id uint64, code string, exp time.Time) error {
    m.db.mu.Lock()
    defer m.db.mu.Unlock()
    u, ok := m.db.users[id]
    if !ok {
        return repository.ErrNotFound
    }
    u.ResetCode, u.ResetCodeExpiresAt = &code, &exp
    return nil
}

func (m memUsers) ResetPassword(_ context.Context, id uint64, code, hash string) error {
    m.db.mu.Lock()
    defer m.db.mu.Unlock()
    u, ok := m.db.users[id]
    if !ok || u.ResetCode == nil || *u.ResetCode != code {
        return repository.ErrConflict
    }
    u.PasswordHash = hash
    u.ResetCode, u.ResetCodeExpiresAt = nil, nil
    return nil
}

func (m memUsers) SetBlocked(_ context.Context, id uint64, blocked bool, reason *string, at *time.Time) error {
    m.db.mu.Lock()
    defer m.db.mu.Unlock()
    u, ok := m.db.users[id]
    if !ok {
        return repository.ErrNotFound
    }
    if !blocked {
        reason, at = nil, nil
    }
    u.Block = model.BlockStatus{Blocked: blocked, Reason: reason, Date: at}
    return nil
}

func (m memUsers) List(_ context.Context, search string, p model.Page) ([]model.User, int, error) {
    m.db.mu.Lock()
    defer m.db.mu.Unlock()
    var all []model.User
    for _, u := range m.db.users {
        if search == "" || strings.Contains(u.Email, strings.ToLower(search)) {
            all = append(all, *u)
        }
    }
    sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
    return pageOf(all, p), len(all), nil
}

type memTokens struct{ db *memDB }

func (m memTokens) Create(_ context.Context, t *model.Token) error {
    m.db.mu.Lock()
    defer m.db.mu.Unlock()
    if _, dup := m.db.tokens[t.TokenHash]; dup {
        return repository.ErrConflict
    }
    m.db.seq++
    t.ID = m.db.seq
    cp := *t
    m.db.tokens[t.TokenHash] = &cp
    return nil
}

func (m memTokens) GetByHash(_ context.Context, h string) (*model.Token, error) {
    m.db.mu.Lock()
    defer m.db.mu.Unlock()
    t, ok := m.db.tokens[h]
    if !ok {
        return nil, repository.ErrNotFound
    }
    cp := *t
    return &cp, nil
}

func (m memTokens) DeleteByHash(_ context.Context, h string) error {
    m.db.mu.Lock()
    defer m.db.mu.Unlock()
    delete(m.db.tokens, h)
    return nil
}

func (m memTokens) DeleteByUser(_ context.Context, userID uint64) (int64, error) {
    m.db.mu.Lock()
    defer m.db.mu.Unlock()
    var n int64
    for h, t := range m.db.tokens {
        if t.UserID == userID {
            delete(m.db.tokens, h)
            n++
        }
    }
    return n, nil
}

func (m memTokens) count(userID uint64) int {
    m.db.mu.Lock()
    defer m.db.mu.Unlock()
    n := 0
    for _, t := range m.db.tokens {
        if t.UserID == userID {
            n++
        }
    }
    return n
}

type memCarts struct{ db *memDB }

func (m memCarts) CreateEmpty(_ context.Context, userID uint64) error {
    m.db.mu.Lock()
    defer m.db.mu.Unlock()
    if m.db.failCart {
        return errors.New("cart table unavailable")
    }
    if _, ok := m.db.carts[userID]; !ok {
        m.db.carts[userID] = &model.Cart{ID: userID, UserID: userID, Items: []model.CartItem{}}
    }
    return nil
}

func (m memCarts) GetByUser(_ context.Context, userID uint64) (*model.Cart, error) {
    m.db.mu.Lock()
    defer m.db.mu.Unlock()
    c, ok := m.db.carts[userID]
    if !ok {
        return nil, repository.ErrNotFound
    }
    cp := *c
    return &cp, nil
}

type memCatalog struct{ db *memDB }

func (m memCatalog) FindByID(_ context.Context, id uint64) (*model.Product, error) {
    m.db.mu.Lock()
    defer m.db.mu.Unlock()
    p, ok := m.db.products[id]
    if !ok {
        return nil, repository.ErrNotFound
    }
    cp := *p
    return &cp, nil
}

func (m memCatalog) List(_ context.Context, search string, p model.Page) ([]model.Product, int, error) {
    m.db.mu.Lock()
    defer m.db.mu.Unlock()
    var all []model.Product
    for _, pr := range m.db.products {
        if search == "" || strings.Contains(pr.Name, search) {
            all = append(all, *pr)
        }
    }
    sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
    return pageOf(all, p), len(all), nil
}

type memOrders struct{ db *memDB }

// Create checks every line before touching any stock, mirroring the
// all-or-nothing transaction of the SQL store.
func (m memOrders) Create(_ context.Context, o *model.Order) error {
    m.db.mu.Lock()
    defer m.db.mu.Unlock()
    for _, it := range o.Items {
        p, ok := m.db.products[it.ProductID]
        if !ok || p.Quantity < int(it.Quantity) {
            return repository.ErrInsufficientStock
        }
    }
    for _, it := range o.Items {
        p := m.db.products[it.ProductID]
        p.Quantity -= int(it.Quantity)
        p.Sold += int(it.Quantity)
    }
    o.ID = uint64(len(m.db.orders) + 1)
    o.CreatedAt = m.db.tick()
    o.UpdatedAt = o.CreatedAt
    for i := range o.Items {
        o.Items[i].OrderID = o.ID
        o.Items[i].ID = uint64(i + 1)
    }
    m.db.orders[o.ID] = cloneOrder(o)
    return nil
}

func (m memOrders) GetByID(_ context.Context, id uint64) (*model.Order, error) {
    m.db.mu.Lock()
    defer m.db.mu.Unlock()
    o, ok := m.db.orders[id]
    if !ok {
        return nil, repository.ErrNotFound
    }
    return cloneOrder(o), nil
}

func (m memOrders) ListByUser(_ context.Context, userID uint64, p model.Page) ([]model.Order, int, error) {
    return m.list(func(o *model.Order) bool { return o.UserID == userID }, p)
}

func (m memOrders) List(_ context.Context, p model.Page) ([]model.Order, int, error) {
    return m.list(func(*model.Order) bool { return true }, p)
}

func (m memOrders) list(keep func(*model.Order) bool, p model.Page) ([]model.Order, int, error) {
    m.db.mu.Lock()
    defer m.db.mu.Unlock()
    var all []model.Order
    for _, o := range m.db.orders {
        if keep(o) {
            all = append(all, *cloneOrder(o))
        }
    }
    sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
    return pageOf(all, p), len(all), nil
}

func (m memOrders) MarkPaid(_ context.Context, id uint64, at time.Time) error {
    m.db.mu.Lock()
    defer m.db.mu.Unlock()
    o, ok := m.db.orders[id]
    if !ok {
        return repository.ErrNotFound
    }
    if o.IsPaid || o.Status == model.OrderCancelled {
        return repository.ErrConflict
    }
    o.IsPaid, o.PaidAt = true, &at
    return nil
}

func (m memOrders) Transition(_ context.Context, id uint64, from, to model.OrderStatus, at time.Time) error {
    m.db.mu.Lock()
    defer m.db.mu.Unlock()
    o, ok := m.db.orders[id]
    if !ok {
        return repository.ErrNotFound
    }
    if o.Status != from {
        return repository.ErrConflict
    }
    o.Status = to
    if to == model.OrderDelivered {
        o.IsDelivered, o.DeliveredAt = true, &at
    }
    if to == model.OrderCancelled {
        for _, it := range o.Items {
            if p, ok := m.db.products[it.ProductID]; ok {
                p.Quantity += int(it.Quantity)
                p.Sold -= int(it.Quantity)
            }
        }
    }
    return nil
}

type memReviews struct{ db *memDB }

func (m memReviews) Create(_ context.Context, r *model.Review) error {
    m.db.mu.Lock()
    defer m.db.mu.Unlock()
    for _, x := range m.db.reviews {
        if x.UserID == r.UserID && x.ProductID == r.ProductID {
            return repository.ErrAlreadyReviewed
        }
    }
    r.ID = uint64(len(m.db.reviews) + 1)
    r.CreatedAt = m.db.tick()
    m.db.reviews = append(m.db.reviews, *r)
    if p, ok := m.db.products[r.ProductID]; ok {
        p.NumReviews++
    }
    return nil
}

func (m memReviews) ListByProduct(_ context.Context, productID uint64, p model.Page) ([]model.Review, int, error) {
    m.db.mu.Lock()
    defer m.db.mu.Unlock()
    var all []model.Review
    for i := len(m.db.reviews) - 1; i >= 0; i-- {
        if m.db.reviews[i].ProductID == productID {
            all = append(all, m.db.reviews[i])
        }
    }
    return pageOf(all, p), len(all), nil
}

func cloneOrder(o *model.Order) *model.Order {
    cp := *o
    cp.Items = append([]model.OrderItem(nil), o.Items...)
    return &cp
}

func pageOf[T any](all []T, p model.Page) []T {
    if p.Offset() >= len(all) {
        return []T{}
    }
    end := p.Offset() + p.Limit
    if end > len(all) {
        end = len(all)
    }
    return all[p.Offset():end]
}

type fakeMailer struct {
    mu   sync.Mutex
    sent []string // bodies
    to   []string
    fail bool
}

func (f *fakeMailer) Send(_ context.Context, to, _, body string) (bool, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    if f.fail {
        return false, errors.New("smtp down")
    }
    f.sent = append(f.sent, body)
    f.to = append(f.to, to)
    return true, nil
}

type fakeEvents struct {
    mu   sync.Mutex
    ids  []uint64
    fail bool
}

func (f *fakeEvents) OrderCreated(_ context.Context, o *model.Order) error {
    f.mu.Lock()
    defer f.mu.Unlock()
    if f.fail {
        return errors.New("broker unreachable")
    }
    f.ids = append(f.ids, o.ID)
    return nil
}
