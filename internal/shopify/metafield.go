package shopify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"aurum-storefront/internal/domain"
)

// Cart metafield coordinates on the customer record.
const (
	CartNamespace = "custom"
	CartKey       = "cart_data"
)

const cartMetafieldQuery = `
query getCustomerCart($id: ID!) {
  customer(id: $id) {
    id
    metafield(namespace: "custom", key: "cart_data") { value }
  }
}`

const setCartMetafieldMutation = `
mutation updateCartMetafield($input: CustomerInput!) {
  customerUpdate(input: $input) {
    customer { id }
    userErrors { field message }
  }
}`

type cartEnvelope struct {
	Version   int64             `json:"version"`
	UpdatedAt time.Time         `json:"updatedAt"`
	Items     []domain.LineItem `json:"items"`
}

// DecodeCart reads a cart metafield value. A bare JSON array is a cart written
// before versioning and reads as version 0. An empty value is an empty cart.
func DecodeCart(value string) (*domain.RemoteCart, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" || trimmed == "null" {
		return &domain.RemoteCart{Items: []domain.LineItem{}}, nil
	}
	if strings.HasPrefix(trimmed, "[") {
		var items []domain.LineItem
		if err := json.Unmarshal([]byte(trimmed), &items); err != nil {
			return nil, fmt.Errorf("decode legacy cart: %w", err)
		}
		return &domain.RemoteCart{Items: domain.CloneItems(items)}, nil
	}
	var env cartEnvelope
	if err := json.Unmarshal([]byte(trimmed), &env); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	return &domain.RemoteCart{
		Items:     domain.CloneItems(env.Items),
		Version:   env.Version,
		UpdatedAt: env.UpdatedAt,
	}, nil
}

// EncodeCart renders cart as a metafield value.
func EncodeCart(cart domain.RemoteCart) (string, error) {
	raw, err := json.Marshal(cartEnvelope{
		Version:   cart.Version,
		UpdatedAt: cart.UpdatedAt.UTC(),
		Items:     domain.CloneItems(cart.Items),
	})
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// GetCartMetafield returns the stored cart, or an empty cart at version 0 when none is stored.
func (c *Client) GetCartMetafield(ctx context.Context, customerID string) (*domain.RemoteCart, error) {
	var data struct {
		Customer *struct {
			ID        string         `json:"id"`
			Metafield *metafieldNode `json:"metafield"`
		} `json:"customer"`
	}
	if err := c.graphql(ctx, "getCustomerCart", cartMetafieldQuery, map[string]any{"id": customerID}, &data); err != nil {
		return nil, err
	}
	if data.Customer == nil {
		return nil, domain.ErrNotFound
	}
	if data.Customer.Metafield == nil {
		return &domain.RemoteCart{Items: []domain.LineItem{}}, nil
	}
	return DecodeCart(data.Customer.Metafield.Value)
}

// SetCartMetafield overwrites the stored cart.
func (c *Client) SetCartMetafield(ctx context.Context, customerID string, cart domain.RemoteCart) error {
	value, err := EncodeCart(cart)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	input := map[string]any{
		"id": customerID,
		"metafields": []map[string]any{{
			"namespace": CartNamespace,
			"key":       CartKey,
			"value":     value,
			"type":      "json",
		}},
	}
	var data struct {
		CustomerUpdate *struct {
			Customer   *struct{ ID string } `json:"customer"`
			UserErrors []FieldError         `json:"userErrors"`
		} `json:"customerUpdate"`
	}
	if err := c.graphql(ctx, "updateCartMetafield", setCartMetafieldMutation, map[string]any{"input": input}, &data); err != nil {
		return err
	}
	if data.CustomerUpdate == nil {
		return errors.New("customerUpdate returned no payload")
	}
	if err := userErrors("updateCartMetafield", data.CustomerUpdate.UserErrors); err != nil {
		return err
	}
	if data.CustomerUpdate.Customer == nil {
		return domain.ErrNotFound
	}
	return nil
}
