package shopify

import (
	"context"
	"errors"
	"strings"
	"time"

	"aurum-storefront/internal/domain"
)

const customerSummaryFields = `id firstName lastName email phone metafield(namespace: "custom", key: "cart_data") { value }`

const findCustomerQuery = `
query findCustomer($query: String!) {
  customers(first: 1, query: $query) {
    edges { node { ` + customerSummaryFields + ` } }
  }
}`

const getCustomerQuery = `
query getCustomer($id: ID!) {
  customer(id: $id) { ` + customerSummaryFields + ` }
}`

const createCustomerMutation = `
mutation customerCreate($input: CustomerInput!) {
  customerCreate(input: $input) {
    customer { id firstName lastName email }
    userErrors { field message }
  }
}`

const updateCustomerMutation = `
mutation customerUpdate($input: CustomerInput!) {
  customerUpdate(input: $input) {
    customer { id firstName lastName email phone }
    userErrors { field message }
  }
}`

const customersByPhoneQuery = `
query customersByPhone($query: String!) {
  customers(first: 10, query: $query) {
    edges { node { id phone email } }
  }
}`

const profileQuery = `
query getProfile($id: ID!) {
  customer(id: $id) {
    id firstName lastName email phone
    defaultAddress { id address1 city zip country phone }
    addresses { id address1 city zip country firstName lastName phone }
    orders(first: 10, sortKey: PROCESSED_AT, reverse: true) {
      edges {
        node {
          name
          processedAt
          totalPriceSet { shopMoney { amount currencyCode } }
          subtotalPriceSet { shopMoney { amount currencyCode } }
          totalTaxSet { shopMoney { amount currencyCode } }
          lineItems(first: 20) {
            edges {
              node {
                title
                quantity
                originalTotalSet { shopMoney { amount currencyCode } }
                variant { image { url } }
                image { url }
              }
            }
          }
          shippingAddress { address1 city zip country firstName lastName phone }
          displayFulfillmentStatus
        }
      }
    }
  }
}`

type metafieldNode struct {
	Value string `json:"value"`
}

type customerNode struct {
	ID             string           `json:"id"`
	FirstName      string           `json:"firstName"`
	LastName       string           `json:"lastName"`
	Email          string           `json:"email"`
	Phone          string           `json:"phone"`
	DefaultAddress *domain.Address  `json:"defaultAddress"`
	Addresses      []domain.Address `json:"addresses"`
	Orders         *struct {
		Edges []struct {
			Node orderNode `json:"node"`
		} `json:"edges"`
	} `json:"orders"`
	Metafield *metafieldNode `json:"metafield"`
}

type moneySet struct {
	ShopMoney domain.Money `json:"shopMoney"`
}

type imageNode struct {
	URL string `json:"url"`
}

type orderNode struct {
	Name                     string          `json:"name"`
	ProcessedAt              time.Time       `json:"processedAt"`
	TotalPriceSet            moneySet        `json:"totalPriceSet"`
	SubtotalPriceSet         *moneySet       `json:"subtotalPriceSet"`
	TotalTaxSet              *moneySet       `json:"totalTaxSet"`
	DisplayFulfillmentStatus string          `json:"displayFulfillmentStatus"`
	ShippingAddress          *domain.Address `json:"shippingAddress"`
	LineItems                struct {
		Edges []struct {
			Node struct {
				Title            string    `json:"title"`
				Quantity         int       `json:"quantity"`
				OriginalTotalSet *moneySet `json:"originalTotalSet"`
				Variant          *struct {
					Image *imageNode `json:"image"`
				} `json:"variant"`
				Image *imageNode `json:"image"`
			} `json:"node"`
		} `json:"edges"`
	} `json:"lineItems"`
}

// toDomain maps a node to a Customer. A metafield that cannot be decoded is dropped
// so that login still succeeds with an empty remote cart.
func (n customerNode) toDomain() *domain.Customer {
	c := &domain.Customer{
		ID:             n.ID,
		Email:          n.Email,
		FirstName:      n.FirstName,
		LastName:       n.LastName,
		Phone:          n.Phone,
		DefaultAddress: n.DefaultAddress,
		Addresses:      n.Addresses,
	}
	if c.Phone == "" && c.DefaultAddress != nil {
		c.Phone = c.DefaultAddress.Phone
	}
	if n.Metafield != nil {
		if cart, err := DecodeCart(n.Metafield.Value); err == nil {
			c.Cart = cart
		}
	}
	if n.Orders != nil {
		c.Orders = make([]domain.Order, 0, len(n.Orders.Edges))
		for _, e := range n.Orders.Edges {
			c.Orders = append(c.Orders, e.Node.toDomain())
		}
	}
	return c
}

func (n orderNode) toDomain() domain.Order {
	o := domain.Order{
		OrderNumber:       strings.Replace(n.Name, "#", "", 1),
		ProcessedAt:       n.ProcessedAt,
		TotalPrice:        n.TotalPriceSet.ShopMoney,
		FulfillmentStatus: n.DisplayFulfillmentStatus,
		ShippingAddress:   n.ShippingAddress,
		LineItems:         make([]domain.OrderLine, 0, len(n.LineItems.Edges)),
	}
	if n.SubtotalPriceSet != nil {
		m := n.SubtotalPriceSet.ShopMoney
		o.SubtotalPrice = &m
	}
	if n.TotalTaxSet != nil {
		m := n.TotalTaxSet.ShopMoney
		o.TotalTax = &m
	}
	for _, e := range n.LineItems.Edges {
		line := domain.OrderLine{Title: e.Node.Title, Quantity: e.Node.Quantity}
		if e.Node.OriginalTotalSet != nil {
			m := e.Node.OriginalTotalSet.ShopMoney
			line.OriginalTotalPrice = &m
		}
		switch {
		case e.Node.Variant != nil && e.Node.Variant.Image != nil:
			line.Image = e.Node.Variant.Image.URL
		case e.Node.Image != nil:
			line.Image = e.Node.Image.URL
		}
		o.LineItems = append(o.LineItems, line)
	}
	return o
}

type customerEdges struct {
	Customers struct {
		Edges []struct {
			Node customerNode `json:"node"`
		} `json:"edges"`
	} `json:"customers"`
}

// FindCustomerByEmail returns the first customer matching email or domain.ErrNotFound.
func (c *Client) FindCustomerByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	var data customerEdges
	if err := c.graphql(ctx, "findCustomer", findCustomerQuery, map[string]any{"query": "email:" + email}, &data); err != nil {
		return nil, err
	}
	if len(data.Customers.Edges) == 0 {
		return nil, domain.ErrNotFound
	}
	return data.Customers.Edges[0].Node.toDomain(), nil
}

// GetCustomer returns the customer with the given GID or domain.ErrNotFound.
func (c *Client) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	var data struct {
		Customer *customerNode `json:"customer"`
	}
	if err := c.graphql(ctx, "getCustomer", getCustomerQuery, map[string]any{"id": id}, &data); err != nil {
		return nil, err
	}
	if data.Customer == nil {
		return nil, domain.ErrNotFound
	}
	return data.Customer.toDomain(), nil
}

// CreateCustomer registers a guest customer for email, tagged otp-guest and not subscribed to marketing.
func (c *Client) CreateCustomer(ctx context.Context, email string) (*domain.Customer, error) {
	input := map[string]any{
		"email": email,
		"tags":  []string{"otp-guest"},
		"emailMarketingConsent": map[string]any{
			"marketingState":      "NOT_SUBSCRIBED",
			"marketingOptInLevel": "SINGLE_OPT_IN",
		},
	}
	var data struct {
		CustomerCreate *struct {
			Customer   *customerNode `json:"customer"`
			UserErrors []FieldError  `json:"userErrors"`
		} `json:"customerCreate"`
	}
	if err := c.graphql(ctx, "customerCreate", createCustomerMutation, map[string]any{"input": input}, &data); err != nil {
		return nil, err
	}
	if data.CustomerCreate == nil {
		return nil, errors.New("customerCreate returned no payload")
	}
	if err := userErrors("customerCreate", data.CustomerCreate.UserErrors); err != nil {
		var ue *UserError
		if errors.As(err, &ue) && ue.Taken() {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	if data.CustomerCreate.Customer == nil {
		c.logger.Error().Str("email", email).Msg("customerCreate returned no customer and no errors")
		return nil, nil
	}
	return data.CustomerCreate.Customer.toDomain(), nil
}

// UpdateCustomer writes name and phone. Validation failures come back as *UserError.
func (c *Client) UpdateCustomer(ctx context.Context, id string, in domain.ProfileUpdate) (*domain.Customer, error) {
	input := map[string]any{
		"id":        id,
		"firstName": in.FirstName,
		"lastName":  in.LastName,
	}
	if in.Phone != "" {
		input["phone"] = in.Phone
	}
	var data struct {
		CustomerUpdate *struct {
			Customer   *customerNode `json:"customer"`
			UserErrors []FieldError  `json:"userErrors"`
		} `json:"customerUpdate"`
	}
	if err := c.graphql(ctx, "customerUpdate", updateCustomerMutation, map[string]any{"input": input}, &data); err != nil {
		return nil, err
	}
	if data.CustomerUpdate == nil {
		return nil, errors.New("customerUpdate returned no payload")
	}
	if err := userErrors("customerUpdate", data.CustomerUpdate.UserErrors); err != nil {
		return nil, err
	}
	if data.CustomerUpdate.Customer == nil {
		return nil, domain.ErrNotFound
	}
	return data.CustomerUpdate.Customer.toDomain(), nil
}

// FindCustomersByPhone returns up to ten customers matching phone.
func (c *Client) FindCustomersByPhone(ctx context.Context, phone string) ([]domain.Customer, error) {
	var data customerEdges
	if err := c.graphql(ctx, "customersByPhone", customersByPhoneQuery, map[string]any{"query": "phone:" + phone}, &data); err != nil {
		return nil, err
	}
	out := make([]domain.Customer, 0, len(data.Customers.Edges))
	for _, e := range data.Customers.Edges {
		out = append(out, *e.Node.toDomain())
	}
	return out, nil
}

// GetProfile returns the customer with addresses and the ten most recent orders.
func (c *Client) GetProfile(ctx context.Context, id string) (*domain.Customer, error) {
	var data struct {
		Customer *customerNode `json:"customer"`
	}
	if err := c.graphql(ctx, "getProfile", profileQuery, map[string]any{"id": id}, &data); err != nil {
		return nil, err
	}
	if data.Customer == nil {
		return nil, domain.ErrNotFound
	}
	profile := data.Customer.toDomain()
	if profile.Addresses == nil {
		profile.Addresses = []domain.Address{}
	}
	if profile.Orders == nil {
		profile.Orders = []domain.Order{}
	}
	return profile, nil
}
