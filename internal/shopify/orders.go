package shopify

import (
	"context"
	"errors"
	"strconv"

	"aurum-storefront/internal/domain"
)

const createOrderMutation = `
mutation orderCreate($order: OrderCreateOrderInput!) {
  orderCreate(order: $order) {
    userErrors { field message }
    order { id name totalTaxSet { shopMoney { amount currencyCode } } }
  }
}`

// Transaction statuses used for placed orders.
const (
	TransactionSuccess = "SUCCESS"
	TransactionPending = "PENDING"
)

// OrderLineInput is one purchased variant.
type OrderLineInput struct {
	VariantID string
	Quantity  int
}

// OrderInput describes an order to record.
type OrderInput struct {
	CustomerID        string
	Email             string
	Phone             string
	Currency          string
	ShippingAddress   domain.Address
	ShippingCountry   string
	Lines             []OrderLineInput
	Amount            float64
	TransactionStatus string
}

// CreatedOrder is the platform's acknowledgement of an order.
type CreatedOrder struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	TotalTax *domain.Money `json:"totalTax,omitempty"`
}

// CreateOrder records a sale with a single transaction for the full amount.
func (c *Client) CreateOrder(ctx context.Context, in OrderInput) (*CreatedOrder, error) {
	lines := make([]map[string]any, 0, len(in.Lines))
	for _, l := range in.Lines {
		lines = append(lines, map[string]any{"variantId": l.VariantID, "quantity": l.Quantity})
	}
	amount := strconv.FormatFloat(in.Amount, 'f', 2, 64)
	order := map[string]any{
		"currency": in.Currency,
		"email":    in.Email,
		"phone":    in.Phone,
		"shippingAddress": map[string]any{
			"firstName":   in.ShippingAddress.FirstName,
			"lastName":    in.ShippingAddress.LastName,
			"address1":    in.ShippingAddress.Address1,
			"city":        in.ShippingAddress.City,
			"zip":         in.ShippingAddress.Zip,
			"phone":       in.ShippingAddress.Phone,
			"countryCode": in.ShippingCountry,
		},
		"lineItems": lines,
		"transactions": []map[string]any{{
			"kind":   "SALE",
			"status": in.TransactionStatus,
			"amountSet": map[string]any{
				"shopMoney": map[string]any{"amount": amount, "currencyCode": in.Currency},
			},
		}},
	}
	if in.CustomerID != "" {
		order["customer"] = map[string]any{"toAssociate": map[string]any{"id": in.CustomerID}}
	}

	var data struct {
		OrderCreate *struct {
			UserErrors []FieldError `json:"userErrors"`
			Order      *struct {
				ID          string    `json:"id"`
				Name        string    `json:"name"`
				TotalTaxSet *moneySet `json:"totalTaxSet"`
			} `json:"order"`
		} `json:"orderCreate"`
	}
	if err := c.graphql(ctx, "orderCreate", createOrderMutation, map[string]any{"order": order}, &data); err != nil {
		return nil, err
	}
	if data.OrderCreate == nil {
		return nil, errors.New("orderCreate returned no payload")
	}
	if err := userErrors("orderCreate", data.OrderCreate.UserErrors); err != nil {
		return nil, err
	}
	if data.OrderCreate.Order == nil {
		return nil, errors.New("orderCreate returned no order")
	}
	created := &CreatedOrder{ID: data.OrderCreate.Order.ID, Name: data.OrderCreate.Order.Name}
	if data.OrderCreate.Order.TotalTaxSet != nil {
		m := data.OrderCreate.Order.TotalTaxSet.ShopMoney
		created.TotalTax = &m
	}
	return created, nil
}
