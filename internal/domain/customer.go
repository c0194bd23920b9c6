package domain

import "time"

// Address is a customer mailing address.
type Address struct {
	ID        string `json:"id,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Address1  string `json:"address1,omitempty"`
	City      string `json:"city,omitempty"`
	Zip       string `json:"zip,omitempty"`
	Country   string `json:"country,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// Money is an amount with its currency as reported by the platform.
type Money struct {
	Amount       string `json:"amount"`
	CurrencyCode string `json:"currencyCode,omitempty"`
}

// OrderLine is a purchased line on a past order.
type OrderLine struct {
	Title              string `json:"title"`
	Quantity           int    `json:"quantity"`
	OriginalTotalPrice *Money `json:"originalTotalPrice,omitempty"`
	Image              string `json:"image,omitempty"`
}

// Order summarises a past order for the profile page.
type Order struct {
	OrderNumber       string      `json:"orderNumber"`
	ProcessedAt       time.Time   `json:"processedAt"`
	TotalPrice        Money       `json:"totalPrice"`
	SubtotalPrice     *Money      `json:"subtotalPrice,omitempty"`
	TotalTax          *Money      `json:"totalTax,omitempty"`
	FulfillmentStatus string      `json:"fulfillmentStatus,omitempty"`
	ShippingAddress   *Address    `json:"shippingAddress,omitempty"`
	LineItems         []OrderLine `json:"lineItems"`
}

// Customer is a platform customer record.
type Customer struct {
	ID             string      `json:"id"`
	Email          string      `json:"email"`
	FirstName      string      `json:"firstName,omitempty"`
	LastName       string      `json:"lastName,omitempty"`
	Phone          string      `json:"phone,omitempty"`
	DefaultAddress *Address    `json:"defaultAddress,omitempty"`
	Addresses      []Address   `json:"addresses,omitempty"`
	Orders         []Order     `json:"orders,omitempty"`
	Cart           *RemoteCart `json:"cart,omitempty"`
}

// ProfileUpdate holds mutable profile fields.
type ProfileUpdate struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
}
