package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"aurum-storefront/internal/domain"
	cartrepo "aurum-storefront/internal/repository/cart"
)

// ErrInvalidItem is returned for a line without a variant id or with a non-positive quantity.
var ErrInvalidItem = fmt.Errorf("invalid cart item: %w", domain.ErrInvalidInput)

// ConflictError reports a save against a stale version and carries the stored cart.
type ConflictError struct {
	Current *domain.RemoteCart
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("cart version conflict: stored version is %d", e.Current.Version)
}

// Is lets errors.Is match domain.ErrConflict.
func (e *ConflictError) Is(target error) bool {
	return target == domain.ErrConflict
}

// Service validates and stores the remote cart shadow of authenticated customers.
type Service struct {
	repo cartrepo.Repository
}

func New(repo cartrepo.Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Get(ctx context.Context, customerID string) (*domain.RemoteCart, error) {
	return s.repo.Get(ctx, customerID)
}

// Save stores items for customerID. Duplicated variant ids collapse into one line
// with the summed quantity. A stale expectedVersion yields *ConflictError.
func (s *Service) Save(ctx context.Context, customerID string, items []domain.LineItem, expectedVersion *int64) (*domain.RemoteCart, error) {
	normalized, err := Normalize(items)
	if err != nil {
		return nil, err
	}
	saved, err := s.repo.Save(ctx, customerID, normalized, expectedVersion)
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			current, getErr := s.repo.Get(ctx, customerID)
			if getErr != nil {
				return nil, err
			}
			return nil, &ConflictError{Current: current}
		}
		return nil, err
	}
	return saved, nil
}

// Clear empties the remote cart regardless of its version.
func (s *Service) Clear(ctx context.Context, customerID string) error {
	_, err := s.repo.Save(ctx, customerID, []domain.LineItem{}, nil)
	return err
}

// Normalize checks every line and merges duplicates, keeping first-seen order.
func Normalize(items []domain.LineItem) ([]domain.LineItem, error) {
	out := make([]domain.LineItem, 0, len(items))
	index := make(map[string]int, len(items))
	for _, it := range items {
		it.VariantID = strings.TrimSpace(it.VariantID)
		if it.VariantID == "" {
			return nil, fmt.Errorf("%w: variantId required", ErrInvalidItem)
		}
		if it.Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantity for %s must be positive", ErrInvalidItem, it.VariantID)
		}
		if i, ok := index[it.VariantID]; ok {
			out[i].Quantity += it.Quantity
			continue
		}
		index[it.VariantID] = len(out)
		out = append(out, it)
	}
	return out, nil
}
