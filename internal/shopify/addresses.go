package shopify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"aurum-storefront/internal/domain"
)

const createAddressMutation = `
mutation customerAddressCreate($customerId: ID!, $address: MailingAddressInput!) {
  customerAddressCreate(customerId: $customerId, address: $address) {
    address { id }
    userErrors { field message }
  }
}`

const updateAddressMutation = `
mutation customerAddressUpdate($id: ID!, $address: MailingAddressInput!) {
  customerAddressUpdate(id: $id, address: $address) {
    address { id }
    userErrors { field message }
  }
}`

const deleteAddressMutation = `
mutation customerAddressDelete($id: ID!) {
  customerAddressDelete(id: $id) {
    deletedCustomerAddressId
    userErrors { field message }
  }
}`

func mailingAddress(a domain.Address) map[string]any {
	return map[string]any{
		"address1":  a.Address1,
		"city":      a.City,
		"zip":       a.Zip,
		"country":   a.Country,
		"firstName": a.FirstName,
		"lastName":  a.LastName,
		"phone":     a.Phone,
	}
}

type addressPayload struct {
	Address    *domain.Address `json:"address"`
	UserErrors []FieldError    `json:"userErrors"`
}

// CreateAddress adds an address to the customer and returns it with its new id.
func (c *Client) CreateAddress(ctx context.Context, customerID string, addr domain.Address) (*domain.Address, error) {
	var data struct {
		Payload *addressPayload `json:"customerAddressCreate"`
	}
	vars := map[string]any{"customerId": customerID, "address": mailingAddress(addr)}
	if err := c.graphql(ctx, "customerAddressCreate", createAddressMutation, vars, &data); err != nil {
		return nil, err
	}
	if data.Payload == nil {
		return nil, errors.New("customerAddressCreate returned no payload")
	}
	if err := userErrors("customerAddressCreate", data.Payload.UserErrors); err != nil {
		return nil, err
	}
	if data.Payload.Address != nil {
		addr.ID = data.Payload.Address.ID
	}
	return &addr, nil
}

// UpdateAddress rewrites the address identified by addr.ID.
func (c *Client) UpdateAddress(ctx context.Context, addr domain.Address) (*domain.Address, error) {
	var data struct {
		Payload *addressPayload `json:"customerAddressUpdate"`
	}
	vars := map[string]any{"id": addr.ID, "address": mailingAddress(addr)}
	if err := c.graphql(ctx, "customerAddressUpdate", updateAddressMutation, vars, &data); err != nil {
		return nil, err
	}
	if data.Payload == nil {
		return nil, errors.New("customerAddressUpdate returned no payload")
	}
	if err := userErrors("customerAddressUpdate", data.Payload.UserErrors); err != nil {
		return nil, err
	}
	return &addr, nil
}

// DeleteAddress removes the address with the given id.
func (c *Client) DeleteAddress(ctx context.Context, id string) error {
	var data struct {
		Payload *struct {
			DeletedCustomerAddressID string       `json:"deletedCustomerAddressId"`
			UserErrors               []FieldError `json:"userErrors"`
		} `json:"customerAddressDelete"`
	}
	if err := c.graphql(ctx, "customerAddressDelete", deleteAddressMutation, map[string]any{"id": id}, &data); err != nil {
		return err
	}
	if data.Payload == nil {
		return errors.New("customerAddressDelete returned no payload")
	}
	return userErrors("customerAddressDelete", data.Payload.UserErrors)
}

// ErrDefaultAddress is returned when the REST default-address call reports errors.
var ErrDefaultAddress = errors.New("failed to set default address")

// SetDefaultAddress marks addressID as the customer's default via the REST endpoint.
// Both ids may be GIDs; only their numeric tails are sent.
func (c *Client) SetDefaultAddress(ctx context.Context, customerID, addressID string) error {
	url := fmt.Sprintf("%s/customers/%s/addresses/%s/default.json", c.baseURL, NumericID(customerID), NumericID(addressID))
	raw, status, err := c.send(ctx, http.MethodPut, url, nil)
	if err != nil {
		return fmt.Errorf("set default address: %w", err)
	}

	var body struct {
		Errors json.RawMessage `json:"errors"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		if status >= http.StatusBadRequest {
			return &StatusError{StatusCode: status, Body: truncate(string(raw), 256)}
		}
		return fmt.Errorf("decode default address response: %w", err)
	}
	if len(body.Errors) > 0 && string(body.Errors) != "null" {
		c.logger.Error().RawJSON("errors", body.Errors).Msg("default address rejected")
		return ErrDefaultAddress
	}
	if status >= http.StatusBadRequest {
		return &StatusError{StatusCode: status, Body: truncate(string(raw), 256)}
	}
	return nil
}
