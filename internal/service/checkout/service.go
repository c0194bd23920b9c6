package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"aurum-storefront/internal/domain"
	"aurum-storefront/internal/shopify"
	"github.com/rs/zerolog"
)

// Store currency and shipping country for every order.
const (
	Currency        = "INR"
	ShippingCountry = "IN"
)

// Payment methods accepted at checkout.
const (
	PaymentCard = "card"
	PaymentCOD  = "cod"
)

var (
	// ErrEmailRequired is returned without a contact email.
	ErrEmailRequired = fmt.Errorf("email required: %w", domain.ErrInvalidInput)
	// ErrEmptyCart is returned when there is nothing to order.
	ErrEmptyCart = fmt.Errorf("cart is empty: %w", domain.ErrInvalidInput)
)

// OrderCreator records orders on the platform.
type OrderCreator interface {
	CreateOrder(ctx context.Context, in shopify.OrderInput) (*shopify.CreatedOrder, error)
}

// CartClearer empties the remote cart of a customer.
type CartClearer interface {
	Clear(ctx context.Context, customerID string) error
}

// Contact is the buyer and shipping details entered at checkout.
type Contact struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Address1  string `json:"address1"`
	City      string `json:"city"`
	Zip       string `json:"zip"`
}

// Input is a checkout submission.
type Input struct {
	Customer      Contact           `json:"customer"`
	Items         []domain.LineItem `json:"items"`
	Subtotal      float64           `json:"subtotal"`
	Tax           float64           `json:"tax"`
	PaymentMethod string            `json:"paymentMethod"`
}

// Service places orders.
type Service struct {
	orders OrderCreator
	carts  CartClearer
	logger zerolog.Logger
}

// New creates a Service. carts may be nil.
func New(orders OrderCreator, carts CartClearer, logger zerolog.Logger) *Service {
	return &Service{orders: orders, carts: carts, logger: logger}
}

// PlaceOrder creates the order and, for a signed-in customer, clears the remote cart.
// Card payments are recorded as a successful sale, anything else as pending.
func (s *Service) PlaceOrder(ctx context.Context, customerID string, in Input) (*shopify.CreatedOrder, error) {
	email := strings.TrimSpace(in.Customer.Email)
	if email == "" {
		return nil, ErrEmailRequired
	}
	lines := make([]shopify.OrderLineInput, 0, len(in.Items))
	for _, it := range in.Items {
		if it.VariantID == "" || it.Quantity <= 0 {
			continue
		}
		lines = append(lines, shopify.OrderLineInput{VariantID: it.VariantID, Quantity: it.Quantity})
	}
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	status := shopify.TransactionPending
	if strings.EqualFold(in.PaymentMethod, PaymentCard) {
		status = shopify.TransactionSuccess
	}

	created, err := s.orders.CreateOrder(ctx, shopify.OrderInput{
		CustomerID: customerID,
		Email:      email,
		Phone:      in.Customer.Phone,
		Currency:   Currency,
		ShippingAddress: domain.Address{
			FirstName: in.Customer.FirstName,
			LastName:  in.Customer.LastName,
			Address1:  in.Customer.Address1,
			City:      in.Customer.City,
			Zip:       in.Customer.Zip,
			Phone:     in.Customer.Phone,
		},
		ShippingCountry:   ShippingCountry,
		Lines:             lines,
		Amount:            in.Subtotal + in.Tax,
		TransactionStatus: status,
	})
	if err != nil {
		var ue *shopify.UserError
		if errors.As(err, &ue) {
			s.logger.Warn().Interface("user_errors", ue.Errors).Msg("order rejected")
		}
		return nil, err
	}

	s.logger.Info().Str("order", created.Name).Str("payment", status).Msg("order created")
	if customerID != "" && s.carts != nil {
		if err := s.carts.Clear(ctx, customerID); err != nil {
			s.logger.Warn().Err(err).Str("customer_id", customerID).Msg("clear remote cart after order failed")
		}
	}
	return created, nil
}
