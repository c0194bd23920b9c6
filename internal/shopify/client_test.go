package shopify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"aurum-storefront/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type recordedCall struct {
	Method    string
	Path      string
	Token     string
	Query     string
	Variables map[string]any
}

// fakeShop answers GraphQL calls by matching a substring of the query.
type fakeShop struct {
	t         *testing.T
	responses map[string]string
	rest      map[string]string
	calls     []recordedCall
}

func newFakeShop(t *testing.T) (*fakeShop, *Client) {
	t.Helper()
	shop := &fakeShop{t: t, responses: map[string]string{}, rest: map[string]string{}}
	srv := httptest.NewServer(shop)
	t.Cleanup(srv.Close)
	client := New(Config{
		AccessToken: "shpat_test",
		BaseURL:     srv.URL + "/admin/api/2025-01",
		Timeout:     2 * time.Second,
	}, zerolog.Nop())
	return shop, client
}

func (s *fakeShop) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	call := recordedCall{Method: r.Method, Path: r.URL.Path, Token: r.Header.Get("X-Shopify-Access-Token")}
	w.Header().Set("Content-Type", "application/json")
	if !strings.HasSuffix(r.URL.Path, "/graphql.json") {
		s.calls = append(s.calls, call)
		body, ok := s.rest[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"errors":"Not Found"}`)
			return
		}
		_, _ = io.WriteString(w, body)
		return
	}

	var req graphQLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.t.Errorf("decode graphql request: %v", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	call.Query = req.Query
	call.Variables = req.Variables
	s.calls = append(s.calls, call)
	for marker, body := range s.responses {
		if strings.Contains(req.Query, marker) {
			_, _ = io.WriteString(w, body)
			return
		}
	}
	s.t.Errorf("unexpected query %s", req.Query)
	w.WriteHeader(http.StatusInternalServerError)
}

func (s *fakeShop) last() recordedCall {
	s.t.Helper()
	require.NotEmpty(s.t, s.calls)
	return s.calls[len(s.calls)-1]
}

func TestFindCustomerByEmail(t *testing.T) {
	shop, client := newFakeShop(t)
	shop.responses["findCustomer"] = `{"data":{"customers":{"edges":[{"node":{
		"id":"gid://shopify/Customer/7","email":"a@x.com","firstName":"Asha","lastName":null,
		"metafield":{"value":"[{\"variantId\":\"v2\",\"quantity\":3}]"}}}]}}}`

	c, err := client.FindCustomerByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	require.Equal(t, "gid://shopify/Customer/7", c.ID)
	require.Equal(t, "Asha", c.FirstName)
	require.Empty(t, c.LastName)
	require.NotNil(t, c.Cart)
	require.Equal(t, int64(0), c.Cart.Version)
	require.Equal(t, []domain.LineItem{{VariantID: "v2", Quantity: 3}}, c.Cart.Items)

	call := shop.last()
	require.Equal(t, "shpat_test", call.Token)
	require.Equal(t, "/admin/api/2025-01/graphql.json", call.Path)
	require.Equal(t, "email:a@x.com", call.Variables["query"])
}

func TestFindCustomerByEmail_NotFound(t *testing.T) {
	shop, client := newFakeShop(t)
	shop.responses["findCustomer"] = `{"data":{"customers":{"edges":[]}}}`

	_, err := client.FindCustomerByEmail(context.Background(), "nobody@x.com")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetCustomer_Missing(t *testing.T) {
	shop, client := newFakeShop(t)
	shop.responses["getCustomer"] = `{"data":{"customer":null}}`

	_, err := client.GetCustomer(context.Background(), "gid://shopify/Customer/1")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCreateCustomer_SendsGuestInput(t *testing.T) {
	shop, client := newFakeShop(t)
	shop.responses["customerCreate"] = `{"data":{"customerCreate":{"customer":{"id":"gid://shopify/Customer/9","email":"a@x.com"},"userErrors":[]}}}`

	c, err := client.CreateCustomer(context.Background(), "a@x.com")
	require.NoError(t, err)
	require.Equal(t, "gid://shopify/Customer/9", c.ID)

	input := shop.last().Variables["input"].(map[string]any)
	require.Equal(t, []any{"otp-guest"}, input["tags"])
	consent := input["emailMarketingConsent"].(map[string]any)
	require.Equal(t, "NOT_SUBSCRIBED", consent["marketingState"])
	require.Equal(t, "SINGLE_OPT_IN", consent["marketingOptInLevel"])
}

func TestCreateCustomer_EmailTaken(t *testing.T) {
	shop, client := newFakeShop(t)
	shop.responses["customerCreate"] = `{"data":{"customerCreate":{"customer":null,"userErrors":[{"field":["email"],"message":"Email has already been taken"}]}}}`

	_, err := client.CreateCustomer(context.Background(), "a@x.com")
	require.ErrorIs(t, err, ErrEmailTaken)
	require.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestCreateCustomer_OtherUserError(t *testing.T) {
	shop, client := newFakeShop(t)
	shop.responses["customerCreate"] = `{"data":{"customerCreate":{"customer":null,"userErrors":[{"message":"Email is invalid"}]}}}`

	_, err := client.CreateCustomer(context.Background(), "bad")
	var ue *UserError
	require.True(t, errors.As(err, &ue))
	require.Equal(t, "Email is invalid", err.Error())
	require.False(t, ue.Taken())
}

func TestGraphQLErrorsSurface(t *testing.T) {
	shop, client := newFakeShop(t)
	shop.responses["getCustomer"] = `{"errors":[{"message":"Access denied for customer field."}]}`

	_, err := client.GetCustomer(context.Background(), "gid://shopify/Customer/1")
	var gqlErr *GraphQLError
	require.True(t, errors.As(err, &gqlErr))
	require.Equal(t, "Access denied for customer field.", err.Error())
}

func TestNonJSONErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, "<html>bad gateway</html>")
	}))
	defer srv.Close()
	client := New(Config{BaseURL: srv.URL}, zerolog.Nop())

	_, err := client.GetCustomer(context.Background(), "gid://shopify/Customer/1")
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
}

func TestGetProfile_MapsOrders(t *testing.T) {
	shop, client := newFakeShop(t)
	shop.responses["getProfile"] = `{"data":{"customer":{
		"id":"gid://shopify/Customer/7","email":"a@x.com","phone":null,
		"defaultAddress":{"id":"gid://shopify/MailingAddress/3","city":"Jaipur","phone":"+919800000000"},
		"addresses":null,
		"orders":{"edges":[{"node":{
			"name":"#1001","processedAt":"2025-03-01T10:00:00Z",
			"totalPriceSet":{"shopMoney":{"amount":"1500.00","currencyCode":"INR"}},
			"subtotalPriceSet":{"shopMoney":{"amount":"1400.00","currencyCode":"INR"}},
			"totalTaxSet":null,
			"displayFulfillmentStatus":"UNFULFILLED",
			"lineItems":{"edges":[
				{"node":{"title":"Ring","quantity":1,"variant":{"image":{"url":"https://cdn/v.png"}},"image":{"url":"https://cdn/p.png"}}},
				{"node":{"title":"Chain","quantity":2,"variant":null,"image":{"url":"https://cdn/c.png"}}}
			]}
		}}]}
	}}}`

	p, err := client.GetProfile(context.Background(), "gid://shopify/Customer/7")
	require.NoError(t, err)
	require.Equal(t, "+919800000000", p.Phone)
	require.NotNil(t, p.Addresses)
	require.Len(t, p.Orders, 1)

	o := p.Orders[0]
	require.Equal(t, "1001", o.OrderNumber)
	require.Equal(t, "1500.00", o.TotalPrice.Amount)
	require.Equal(t, "1400.00", o.SubtotalPrice.Amount)
	require.Nil(t, o.TotalTax)
	require.Equal(t, "https://cdn/v.png", o.LineItems[0].Image)
	require.Equal(t, "https://cdn/c.png", o.LineItems[1].Image)
}

func TestUpdateCustomer_UserError(t *testing.T) {
	shop, client := newFakeShop(t)
	shop.responses["customerUpdate"] = `{"data":{"customerUpdate":{"customer":null,"userErrors":[{"field":["phone"],"message":"Phone has already been taken"}]}}}`

	_, err := client.UpdateCustomer(context.Background(), "gid://shopify/Customer/7", domain.ProfileUpdate{Phone: "+91"})
	var ue *UserError
	require.True(t, errors.As(err, &ue))
	require.True(t, ue.Taken())
}

func TestCartMetafieldRoundTrip(t *testing.T) {
	shop, client := newFakeShop(t)
	shop.responses["updateCartMetafield"] = `{"data":{"customerUpdate":{"customer":{"id":"gid://shopify/Customer/7"},"userErrors":[]}}}`

	updated := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	cart := domain.RemoteCart{
		Items:     []domain.LineItem{{VariantID: "v1", Quantity: 2, Price: "10.00"}},
		Version:   3,
		UpdatedAt: updated,
	}
	require.NoError(t, client.SetCartMetafield(context.Background(), "gid://shopify/Customer/7", cart))

	input := shop.last().Variables["input"].(map[string]any)
	metafield := input["metafields"].([]any)[0].(map[string]any)
	require.Equal(t, "custom", metafield["namespace"])
	require.Equal(t, "cart_data", metafield["key"])
	require.Equal(t, "json", metafield["type"])

	value := metafield["value"].(string)
	decodedBody, err := json.Marshal(map[string]any{"data": map[string]any{"customer": map[string]any{
		"id": "gid://shopify/Customer/7", "metafield": map[string]any{"value": value},
	}}})
	require.NoError(t, err)
	shop.responses["getCustomerCart"] = string(decodedBody)

	got, err := client.GetCartMetafield(context.Background(), "gid://shopify/Customer/7")
	require.NoError(t, err)
	require.Equal(t, int64(3), got.Version)
	require.True(t, updated.Equal(got.UpdatedAt))
	require.Equal(t, cart.Items, got.Items)
}

func TestGetCartMetafield_Absent(t *testing.T) {
	shop, client := newFakeShop(t)
	shop.responses["getCustomerCart"] = `{"data":{"customer":{"id":"gid://shopify/Customer/7","metafield":null}}}`

	got, err := client.GetCartMetafield(context.Background(), "gid://shopify/Customer/7")
	require.NoError(t, err)
	require.Empty(t, got.Items)
	require.Equal(t, int64(0), got.Version)
}

func TestDecodeCart(t *testing.T) {
	legacy, err := DecodeCart(`[{"variantId":"v1","quantity":1,"price":0}]`)
	require.NoError(t, err)
	require.Equal(t, int64(0), legacy.Version)
	require.Equal(t, domain.Price("0"), legacy.Items[0].Price)

	empty, err := DecodeCart("")
	require.NoError(t, err)
	require.NotNil(t, empty.Items)

	_, err = DecodeCart("{broken")
	require.Error(t, err)
}

func TestSetDefaultAddress_StripsGIDs(t *testing.T) {
	shop, client := newFakeShop(t)
	shop.rest["/admin/api/2025-01/customers/7/addresses/55/default.json"] = `{"customer_address":{"id":55,"default":true}}`

	err := client.SetDefaultAddress(context.Background(), "gid://shopify/Customer/7", "gid://shopify/MailingAddress/55?model_name=CustomerAddress")
	require.NoError(t, err)
	call := shop.last()
	require.Equal(t, http.MethodPut, call.Method)
	require.Equal(t, "shpat_test", call.Token)
}

func TestSetDefaultAddress_Errors(t *testing.T) {
	shop, client := newFakeShop(t)
	shop.rest["/admin/api/2025-01/customers/7/addresses/55/default.json"] = `{"errors":{"base":["address not found"]}}`

	err := client.SetDefaultAddress(context.Background(), "7", "55")
	require.ErrorIs(t, err, ErrDefaultAddress)
}

func TestCreateOrder_BuildsTransaction(t *testing.T) {
	shop, client := newFakeShop(t)
	shop.responses["orderCreate"] = `{"data":{"orderCreate":{"userErrors":[],"order":{"id":"gid://shopify/Order/1","name":"#1001","totalTaxSet":{"shopMoney":{"amount":"54.00","currencyCode":"INR"}}}}}}`

	created, err := client.CreateOrder(context.Background(), OrderInput{
		CustomerID:        "gid://shopify/Customer/7",
		Email:             "a@x.com",
		Currency:          "INR",
		ShippingCountry:   "IN",
		Lines:             []OrderLineInput{{VariantID: "gid://shopify/ProductVariant/1", Quantity: 2}},
		Amount:            1054,
		TransactionStatus: TransactionPending,
	})
	require.NoError(t, err)
	require.Equal(t, "#1001", created.Name)
	require.Equal(t, "54.00", created.TotalTax.Amount)

	order := shop.last().Variables["order"].(map[string]any)
	require.Equal(t, "INR", order["currency"])
	tx := order["transactions"].([]any)[0].(map[string]any)
	require.Equal(t, "PENDING", tx["status"])
	money := tx["amountSet"].(map[string]any)["shopMoney"].(map[string]any)
	require.Equal(t, "1054.00", money["amount"])
	shipping := order["shippingAddress"].(map[string]any)
	require.Equal(t, "IN", shipping["countryCode"])
}

func TestCreateOrder_UserErrors(t *testing.T) {
	shop, client := newFakeShop(t)
	shop.responses["orderCreate"] = `{"data":{"orderCreate":{"userErrors":[{"field":["order","lineItems"],"message":"Variant is invalid"}],"order":null}}}`

	_, err := client.CreateOrder(context.Background(), OrderInput{Currency: "INR"})
	var ue *UserError
	require.True(t, errors.As(err, &ue))
	require.Equal(t, []string{"order", "lineItems"}, ue.Errors[0].Field)
}

func TestNumericID(t *testing.T) {
	require.Equal(t, "123", NumericID("gid://shopify/Customer/123"))
	require.Equal(t, "55", NumericID("gid://shopify/CustomerAddress/55?model_name=CustomerAddress"))
	require.Equal(t, "42", NumericID("42"))
}
