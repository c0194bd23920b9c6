package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"aurum-storefront/internal/domain"
	checkoutsvc "aurum-storefront/internal/service/checkout"
	otpsvc "aurum-storefront/internal/service/otp"
	"aurum-storefront/internal/shopify"
)

type stubOTP struct {
	sendRes   *otpsvc.SendResult
	verifyRes *otpsvc.VerifyResult
	err       error
	email     string
	code      string
}

func (s *stubOTP) Send(_ context.Context, email string) (*otpsvc.SendResult, error) {
	s.email = email
	return s.sendRes, s.err
}

func (s *stubOTP) Verify(_ context.Context, email, code string) (*otpsvc.VerifyResult, error) {
	s.email, s.code = email, code
	return s.verifyRes, s.err
}

type stubCarts struct {
	cart     *domain.RemoteCart
	err      error
	saved    []domain.LineItem
	expected *int64
	owner    string
}

func (s *stubCarts) Get(_ context.Context, customerID string) (*domain.RemoteCart, error) {
	s.owner = customerID
	return s.cart, s.err
}

func (s *stubCarts) Save(_ context.Context, customerID string, items []domain.LineItem, expected *int64) (*domain.RemoteCart, error) {
	s.owner, s.saved, s.expected = customerID, items, expected
	if s.err != nil {
		return nil, s.err
	}
	return &domain.RemoteCart{Items: items, Version: 2}, nil
}

type stubCustomers struct {
	profile   *domain.Customer
	address   *domain.Address
	err       error
	owner     string
	addressID string
	update    domain.ProfileUpdate
}

func (s *stubCustomers) Profile(_ context.Context, id string) (*domain.Customer, error) {
	s.owner = id
	return s.profile, s.err
}

func (s *stubCustomers) UpdateProfile(_ context.Context, id string, in domain.ProfileUpdate) (*domain.Customer, error) {
	s.owner, s.update = id, in
	return s.profile, s.err
}

func (s *stubCustomers) AddAddress(_ context.Context, id string, _ domain.Address) (*domain.Address, error) {
	s.owner = id
	return s.address, s.err
}

func (s *stubCustomers) UpdateAddress(_ context.Context, id string, addr domain.Address) (*domain.Address, error) {
	s.owner, s.addressID = id, addr.ID
	return s.address, s.err
}

func (s *stubCustomers) DeleteAddress(_ context.Context, id, addressID string) error {
	s.owner, s.addressID = id, addressID
	return s.err
}

func (s *stubCustomers) SetDefaultAddress(_ context.Context, id, addressID string) error {
	s.owner, s.addressID = id, addressID
	return s.err
}

type stubCheckout struct {
	order      *shopify.CreatedOrder
	err        error
	customerID string
	input      checkoutsvc.Input
}

func (s *stubCheckout) PlaceOrder(_ context.Context, customerID string, in checkoutsvc.Input) (*shopify.CreatedOrder, error) {
	s.customerID, s.input = customerID, in
	return s.order, s.err
}

// stubSessions accepts the tokens it knows.
type stubSessions map[string]domain.Claims

func (s stubSessions) Verify(token string) (domain.Claims, bool) {
	c, ok := s[token]
	return c, ok
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

const goodToken = "good-token"

type fixture struct {
	otp       *stubOTP
	carts     *stubCarts
	customers *stubCustomers
	checkout  *stubCheckout
	router    *gin.Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	f := &fixture{
		otp:       &stubOTP{},
		carts:     &stubCarts{},
		customers: &stubCustomers{},
		checkout:  &stubCheckout{},
	}
	router, err := buildRouter(zerolog.Nop(), Deps{
		OTP:       f.otp,
		Carts:     f.carts,
		Customers: f.customers,
		Checkout:  f.checkout,
		Sessions: stubSessions{
			goodToken: {CustomerID: "gid://shopify/Customer/1", Email: "a@b.co"},
		},
		Ready:          map[string]Pinger{"otp store": stubPinger{}},
		AllowedOrigins: []string{"http://localhost:3000"},
	})
	if err != nil {
		t.Fatalf("build router: %v", err)
	}
	f.router = router
	return f
}

func (f *fixture) do(method, path, body, token string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestBuildRouter_RequiresServices(t *testing.T) {
	if _, err := buildRouter(zerolog.Nop(), Deps{}); err == nil {
		t.Fatalf("expected error for missing services")
	}
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodGet, "/healthz", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected request id header")
	}
}

func TestReadyz_ReportsUnreachableBackend(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router, err := buildRouter(zerolog.Nop(), Deps{
		OTP:       &stubOTP{},
		Carts:     &stubCarts{},
		Customers: &stubCustomers{},
		Checkout:  &stubCheckout{},
		Sessions:  stubSessions{},
		Ready:     map[string]Pinger{"otp store": stubPinger{err: errors.New("down")}},
	})
	if err != nil {
		t.Fatalf("build router: %v", err)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "otp store not reachable") {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestReadyz_OK(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodGet, "/readyz", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestCORS_AllowsConfiguredOrigin(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/auth/otp", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Fatalf("expected allowed origin, got %q (status %d)", got, rec.Code)
	}
}

func newRequest(method, path string) *http.Request {
	return httptest.NewRequest(method, path, nil)
}

func serve(f *fixture, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}
