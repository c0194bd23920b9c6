package customer

import (
	"context"
	"errors"
	"strings"

	"aurum-storefront/internal/domain"
	"aurum-storefront/internal/shopify"
)

var (
	// ErrPhoneTaken is returned when another customer already uses the phone number.
	ErrPhoneTaken = errors.New("phone number already registered to another account")
	// ErrContactTaken is returned when the platform rejects the update as a duplicate.
	ErrContactTaken = errors.New("phone number or email already registered to another account")
	// ErrAddressIDRequired is returned by address operations without an id.
	ErrAddressIDRequired = errors.New("address id required")
)

// Platform is the customer side of the commerce platform.
type Platform interface {
	GetProfile(ctx context.Context, id string) (*domain.Customer, error)
	UpdateCustomer(ctx context.Context, id string, in domain.ProfileUpdate) (*domain.Customer, error)
	FindCustomersByPhone(ctx context.Context, phone string) ([]domain.Customer, error)
	CreateAddress(ctx context.Context, customerID string, addr domain.Address) (*domain.Address, error)
	UpdateAddress(ctx context.Context, addr domain.Address) (*domain.Address, error)
	DeleteAddress(ctx context.Context, id string) error
	SetDefaultAddress(ctx context.Context, customerID, addressID string) error
}

// Service handles the signed-in customer's profile and address book.
type Service struct {
	platform Platform
}

// New creates a Service.
func New(platform Platform) *Service {
	return &Service{platform: platform}
}

// Profile returns the customer with addresses and recent orders.
func (s *Service) Profile(ctx context.Context, customerID string) (*domain.Customer, error) {
	return s.platform.GetProfile(ctx, customerID)
}

// UpdateProfile writes name and phone after checking the phone is not in use elsewhere.
func (s *Service) UpdateProfile(ctx context.Context, customerID string, in domain.ProfileUpdate) (*domain.Customer, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Phone = strings.TrimSpace(in.Phone)

	if in.Phone != "" {
		matches, err := s.platform.FindCustomersByPhone(ctx, in.Phone)
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			if m.ID != customerID {
				return nil, ErrPhoneTaken
			}
		}
	}

	updated, err := s.platform.UpdateCustomer(ctx, customerID, in)
	if err != nil {
		var ue *shopify.UserError
		if errors.As(err, &ue) && ue.Taken() {
			return nil, ErrContactTaken
		}
		return nil, err
	}
	return updated, nil
}

// AddAddress creates an address for the customer.
func (s *Service) AddAddress(ctx context.Context, customerID string, addr domain.Address) (*domain.Address, error) {
	addr.ID = ""
	return s.platform.CreateAddress(ctx, customerID, addr)
}

// UpdateAddress rewrites one of the customer's addresses.
func (s *Service) UpdateAddress(ctx context.Context, customerID string, addr domain.Address) (*domain.Address, error) {
	if strings.TrimSpace(addr.ID) == "" {
		return nil, ErrAddressIDRequired
	}
	if err := s.ensureOwned(ctx, customerID, addr.ID); err != nil {
		return nil, err
	}
	return s.platform.UpdateAddress(ctx, addr)
}

// DeleteAddress removes one of the customer's addresses.
func (s *Service) DeleteAddress(ctx context.Context, customerID, addressID string) error {
	if strings.TrimSpace(addressID) == "" {
		return ErrAddressIDRequired
	}
	if err := s.ensureOwned(ctx, customerID, addressID); err != nil {
		return err
	}
	return s.platform.DeleteAddress(ctx, addressID)
}

// SetDefaultAddress marks one of the customer's addresses as default.
func (s *Service) SetDefaultAddress(ctx context.Context, customerID, addressID string) error {
	if strings.TrimSpace(addressID) == "" {
		return ErrAddressIDRequired
	}
	return s.platform.SetDefaultAddress(ctx, customerID, addressID)
}

// ensureOwned returns domain.ErrNotFound unless addressID is in the customer's address book.
// Ids are compared by numeric tail since the platform mixes MailingAddress and CustomerAddress GIDs.
func (s *Service) ensureOwned(ctx context.Context, customerID, addressID string) error {
	profile, err := s.platform.GetProfile(ctx, customerID)
	if err != nil {
		return err
	}
	want := shopify.NumericID(addressID)
	for _, a := range profile.Addresses {
		if shopify.NumericID(a.ID) == want {
			return nil
		}
	}
	return domain.ErrNotFound
}
