package client_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"aurum-storefront/internal/cart"
	"aurum-storefront/internal/client"
	"aurum-storefront/internal/domain"
	"aurum-storefront/internal/httpserver"
	cartrepo "aurum-storefront/internal/repository/cart"
	otprepo "aurum-storefront/internal/repository/otp"
	cartsvc "aurum-storefront/internal/service/cart"
	checkoutsvc "aurum-storefront/internal/service/checkout"
	customersvc "aurum-storefront/internal/service/customer"
	otpsvc "aurum-storefront/internal/service/otp"
	"aurum-storefront/internal/session"
	"aurum-storefront/internal/shopify"
)

// fakeShop is an in-memory commerce platform holding one customer.
type fakeShop struct {
	mu       sync.Mutex
	customer domain.Customer
	cart     domain.RemoteCart
}

func (s *fakeShop) FindCustomerByEmail(_ context.Context, email string) (*domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if email != s.customer.Email {
		return nil, domain.ErrNotFound
	}
	c := s.customer
	return &c, nil
}

func (s *fakeShop) GetCustomer(_ context.Context, id string) (*domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id != s.customer.ID {
		return nil, domain.ErrNotFound
	}
	c := s.customer
	return &c, nil
}

func (s *fakeShop) CreateCustomer(context.Context, string) (*domain.Customer, error) {
	return nil, errors.New("unexpected create")
}

func (s *fakeShop) GetCartMetafield(_ context.Context, _ string) (*domain.RemoteCart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.cart
	c.Items = domain.CloneItems(c.Items)
	return &c, nil
}

func (s *fakeShop) SetCartMetafield(_ context.Context, _ string, c domain.RemoteCart) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart = c
	return nil
}

func (s *fakeShop) stored() domain.RemoteCart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart
}

func (s *fakeShop) GetProfile(ctx context.Context, id string) (*domain.Customer, error) {
	return s.GetCustomer(ctx, id)
}

func (s *fakeShop) UpdateCustomer(context.Context, string, domain.ProfileUpdate) (*domain.Customer, error) {
	return nil, errors.New("not supported")
}

func (s *fakeShop) FindCustomersByPhone(context.Context, string) ([]domain.Customer, error) {
	return nil, nil
}

func (s *fakeShop) CreateAddress(context.Context, string, domain.Address) (*domain.Address, error) {
	return nil, errors.New("not supported")
}

func (s *fakeShop) UpdateAddress(context.Context, domain.Address) (*domain.Address, error) {
	return nil, errors.New("not supported")
}

func (s *fakeShop) DeleteAddress(context.Context, string) error { return errors.New("not supported") }

func (s *fakeShop) SetDefaultAddress(context.Context, string, string) error {
	return errors.New("not supported")
}

func (s *fakeShop) CreateOrder(context.Context, shopify.OrderInput) (*shopify.CreatedOrder, error) {
	return &shopify.CreatedOrder{ID: "gid://shopify/Order/1", Name: "#1001"}, nil
}

// inbox captures the last mailed code.
type inbox struct {
	mu   sync.Mutex
	code string
}

func (b *inbox) SendOTP(_ context.Context, _, code string) error {
	b.mu.Lock()
	b.code = code
	b.mu.Unlock()
	return nil
}

func (b *inbox) last() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.code
}

func startAPI(t *testing.T, shop *fakeShop, mail *inbox) string {
	t.Helper()
	issuer, err := session.NewIssuer([]byte("test-secret"), time.Hour)
	require.NoError(t, err)

	store := otprepo.NewFile(filepath.Join(t.TempDir(), "otp_store.json"))
	carts := cartsvc.New(cartrepo.NewShopify(shop))
	otp := otpsvc.New(otpsvc.Deps{
		Store:     store,
		Customers: shop,
		Carts:     carts,
		Mailer:    mail,
		Sessions:  issuer,
		Logger:    zerolog.Nop(),
	}, otpsvc.Config{HashCost: bcrypt.MinCost})

	srv, err := httpserver.New(":0", zerolog.Nop(), httpserver.Deps{
		OTP:       otp,
		Carts:     carts,
		Customers: customersvc.New(shop),
		Checkout:  checkoutsvc.New(shop, carts, zerolog.Nop()),
		Sessions:  issuer,
		Ready:     map[string]httpserver.Pinger{"otp store": store},
	})
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts.URL
}

func newShop() *fakeShop {
	return &fakeShop{
		customer: domain.Customer{ID: "gid://shopify/Customer/1", Email: "a@b.co"},
		cart: domain.RemoteCart{
			Version: 1,
			Items: []domain.LineItem{
				{VariantID: "v1", Quantity: 1},
				{VariantID: "v2", Quantity: 3},
			},
		},
	}
}

func TestLogin_MergesRemoteCartOnce(t *testing.T) {
	shop, mail := newShop(), &inbox{}
	url := startAPI(t, shop, mail)
	ctx := context.Background()

	storage := cart.NewMemoryStorage()
	api := client.New(url, storage, 5*time.Second)
	local := cart.NewStore(storage, zerolog.Nop())

	// Shopping as a guest, before any session exists.
	product := cart.Product{Variants: []cart.Variant{{ID: "v1", Price: &cart.VariantPrice{Amount: "100"}}}}
	require.NoError(t, local.Add("v1", 2, product))

	syncer := cart.NewSyncer(api, local, zerolog.Nop())
	local.SetPusher(syncer)

	_, err := api.SendOTP(ctx, "A@B.co ")
	require.NoError(t, err)
	res, err := api.VerifyOTP(ctx, "a@b.co", mail.last())
	require.NoError(t, err)
	require.NotNil(t, res.Customer.Cart)

	merged, err := local.MergeOnce(res.Customer.Cart.Version, res.Customer.Cart.Items)
	require.NoError(t, err)
	require.True(t, merged)
	syncer.Close()

	items := local.Get()
	require.Len(t, items, 2)
	require.Equal(t, "v1", items[0].VariantID)
	require.Equal(t, 3, items[0].Quantity)
	require.Equal(t, domain.Price("100"), items[0].Price)
	require.Equal(t, "v2", items[1].VariantID)
	require.Equal(t, 3, items[1].Quantity)

	remote := shop.stored()
	require.EqualValues(t, 2, remote.Version)
	require.Equal(t, 6, domain.TotalQuantity(remote.Items))

	// Logging in again sees the cart this device already pushed.
	_, err = api.SendOTP(ctx, "a@b.co")
	require.NoError(t, err)
	res, err = api.VerifyOTP(ctx, "a@b.co", mail.last())
	require.NoError(t, err)
	merged, err = local.MergeOnce(res.Customer.Cart.Version, res.Customer.Cart.Items)
	require.NoError(t, err)
	require.False(t, merged)
	require.Equal(t, 6, domain.TotalQuantity(local.Get()))
}

func TestLogin_CodeIsSingleUse(t *testing.T) {
	shop, mail := newShop(), &inbox{}
	url := startAPI(t, shop, mail)
	ctx := context.Background()
	api := client.New(url, cart.NewMemoryStorage(), 5*time.Second)

	_, err := api.SendOTP(ctx, "a@b.co")
	require.NoError(t, err)
	code := mail.last()

	_, err = api.VerifyOTP(ctx, "a@b.co", code)
	require.NoError(t, err)

	_, err = api.VerifyOTP(ctx, "a@b.co", code)
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "Invalid or expired OTP", apiErr.Message)
}

func TestCart_ConcurrentDeviceConflictResolves(t *testing.T) {
	shop, mail := newShop(), &inbox{}
	url := startAPI(t, shop, mail)
	ctx := context.Background()

	storage := cart.NewMemoryStorage()
	api := client.New(url, storage, 5*time.Second)
	_, err := api.SendOTP(ctx, "a@b.co")
	require.NoError(t, err)
	_, err = api.VerifyOTP(ctx, "a@b.co", mail.last())
	require.NoError(t, err)

	local := cart.NewStore(storage, zerolog.Nop())
	require.NoError(t, local.MarkSynced(1))

	// Another device moves the remote cart on.
	_, err = api.SaveCart(ctx, []domain.LineItem{{VariantID: "v9", Quantity: 1}}, nil)
	require.NoError(t, err)

	syncer := cart.NewSyncer(api, local, zerolog.Nop())
	local.SetPusher(syncer)
	require.NoError(t, local.Add("v5", 1, cart.Product{}))
	syncer.Close()

	remote := shop.stored()
	require.EqualValues(t, 3, remote.Version)
	require.Len(t, remote.Items, 1)
	require.Equal(t, "v5", remote.Items[0].VariantID)
	v, ok := local.SyncedVersion()
	require.True(t, ok)
	require.EqualValues(t, 3, v)
}

func TestMe_RequiresSession(t *testing.T) {
	url := startAPI(t, newShop(), &inbox{})
	storage := cart.NewMemoryStorage()
	require.NoError(t, storage.Save(client.KeySession, []byte("forged")))

	_, err := client.New(url, storage, 5*time.Second).Me(context.Background())
	require.ErrorIs(t, err, client.ErrUnauthorized)
}
