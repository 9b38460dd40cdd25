package service

import (
    "context"
    "io"
    "log/slog"
    "testing"
    "time"

    "golang.org/x/crypto/bcrypt"

    "github.com/iliyamo/ecommerce-api/internal/model"
    "github.com/iliyamo/ecommerce-api/internal/utils"
)

const testSecret = "test-signing-secret"

type testEnv struct {
    db       *memDB
    clock    time.Time
    tokens   *TokenService
    gate     *AccessGate
    accounts *AccountService
    orders   *OrderService
    catalog  *CatalogService
    mailer   *fakeMailer
    events   *fakeEvents
}

func newTestEnv(t *testing.T) *testEnv {
    t.Helper()
    log := slog.New(slog.NewTextHandler(io.Discard, nil))
    cipher, err := utils.NewFieldCipher("test-encryption-key")
    if err != nil {
        t.Fatalf("cipher: %v", err)
    }
    e := &testEnv{
        db:     newMemDB(),
        clock:  time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
        mailer: &fakeMailer{},
        events: &fakeEvents{},
    }
    now := func() time.Time { return e.clock }

    e.tokens = NewTokenService(memTokens{e.db}, testSecret, 7*24*time.Hour, log)
    e.tokens.now = now
    e.gate = NewAccessGate(e.tokens, memUsers{e.db}, log)
    e.accounts = NewAccountService(memUsers{e.db}, memCarts{e.db}, e.tokens, e.mailer, cipher,
        AccountConfig{BcryptCost: bcrypt.MinCost, ResetCodeTTL: 15 * time.Minute}, log)
    e.accounts.now = now
    e.orders = NewOrderService(memOrders{e.db}, memCatalog{e.db}, e.events, Pricing{}, log)
    e.orders.now = now
    e.catalog = NewCatalogService(memCatalog{e.db}, memReviews{e.db}, log)
    return e
}

func (e *testEnv) advance(d time.Duration) { e.clock = e.clock.Add(d) }

// register creates an account and logs it in.
func (e *testEnv) register(t *testing.T, email, password string) (*model.User, string) {
    t.Helper()
    ctx := context.Background()
    u, err := e.accounts.Register(ctx, RegisterInput{FirstName: "Test", LastName: "User", Email: email, Password: password})
    if err != nil {
        t.Fatalf("register %s: %v", email, err)
    }
    res, err := e.accounts.Login(ctx, LoginInput{Email: email, Password: password, Agent: "go-test"})
    if err != nil {
        t.Fatalf("login %s: %v", email, err)
    }
    return u, res.Token
}

// staff registers an account and promotes it directly in the store.
func (e *testEnv) staff(t *testing.T, email string, role model.Role) (*model.User, string) {
    t.Helper()
    u, tok := e.register(t, email, "staff-password")
    e.db.mu.Lock()
    e.db.users[u.ID].Role = role
    e.db.mu.Unlock()
    u.Role = role
    return u, tok
}
