// Package cart is the shopper-side cart: a local, persisted list of line
// items with change notification, additive merging of the customer's
// remote cart on login, and a background push of every change.
package cart

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"aurum-storefront/internal/domain"
)

// Storage keys.
const (
	KeyCart   = "cart"
	KeyMerged = "cart_merged"
)

// Pusher receives the whole cart after every mutation. Push must not block.
type Pusher interface {
	Push(items []domain.LineItem)
}

// Store is safe for concurrent use. Subscribers run on the mutating
// goroutine after the change is persisted.
type Store struct {
	storage Storage
	logger  zerolog.Logger

	mu     sync.Mutex
	pusher Pusher
	subs   map[int]func([]domain.LineItem)
	nextID int
}

func NewStore(storage Storage, logger zerolog.Logger) *Store {
	return &Store{
		storage: storage,
		logger:  logger,
		subs:    make(map[int]func([]domain.LineItem)),
	}
}

// SetPusher attaches the remote push target. nil detaches it.
func (s *Store) SetPusher(p Pusher) {
	s.mu.Lock()
	s.pusher = p
	s.mu.Unlock()
}

// Subscribe registers fn for cart changes and returns a function that removes it.
func (s *Store) Subscribe(fn func([]domain.LineItem)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Get returns the current cart. Missing or unreadable state is an empty cart.
func (s *Store) Get() []domain.LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Add increases the quantity of variantID, or appends a new line built from product.
func (s *Store) Add(variantID string, quantity int, product Product) error {
	variantID = strings.TrimSpace(variantID)
	if variantID == "" || quantity <= 0 {
		return nil
	}
	return s.mutate(func(items []domain.LineItem) ([]domain.LineItem, bool) {
		for i := range items {
			if items[i].VariantID == variantID {
				items[i].Quantity += quantity
				return items, true
			}
		}
		return append(items, product.LineItem(variantID, quantity)), true
	})
}

// Remove deletes variantID from the cart. An unknown id changes nothing.
func (s *Store) Remove(variantID string) error {
	return s.mutate(func(items []domain.LineItem) ([]domain.LineItem, bool) {
		for i := range items {
			if items[i].VariantID == variantID {
				return append(items[:i], items[i+1:]...), true
			}
		}
		return items, false
	})
}

// SetQuantity overwrites the quantity of an existing line; n <= 0 removes it.
func (s *Store) SetQuantity(variantID string, n int) error {
	if n <= 0 {
		return s.Remove(variantID)
	}
	return s.mutate(func(items []domain.LineItem) ([]domain.LineItem, bool) {
		for i := range items {
			if items[i].VariantID == variantID {
				items[i].Quantity = n
				return items, true
			}
		}
		return items, false
	})
}

// Clear empties the cart.
func (s *Store) Clear() error {
	return s.mutate(func([]domain.LineItem) ([]domain.LineItem, bool) {
		return []domain.LineItem{}, true
	})
}

// Replace overwrites the cart with a server snapshot.
func (s *Store) Replace(items []domain.LineItem) error {
	next := make([]domain.LineItem, 0, len(items))
	for _, it := range items {
		if it.VariantID == "" || it.Quantity <= 0 {
			continue
		}
		next = append(next, it)
	}
	return s.mutate(func([]domain.LineItem) ([]domain.LineItem, bool) {
		return next, true
	})
}

// Reset forgets the cart and the merge marker without pushing. Used on logout.
func (s *Store) Reset() error {
	s.mu.Lock()
	err := errors.Join(s.storage.Remove(KeyCart), s.storage.Remove(KeyMerged))
	subs := s.subscribers()
	s.mu.Unlock()

	for _, fn := range subs {
		fn([]domain.LineItem{})
	}
	return err
}

// mutate applies fn to a copy of the cart. When fn reports a change the
// result is persisted, subscribers are notified and the pusher is handed a copy.
func (s *Store) mutate(fn func([]domain.LineItem) ([]domain.LineItem, bool)) error {
	s.mu.Lock()
	next, changed := fn(s.load())
	if !changed {
		s.mu.Unlock()
		return nil
	}
	if err := s.save(next); err != nil {
		s.mu.Unlock()
		return err
	}
	subs, pusher := s.subscribers(), s.pusher
	s.mu.Unlock()

	notify(subs, pusher, next)
	return nil
}

func notify(subs []func([]domain.LineItem), pusher Pusher, items []domain.LineItem) {
	for _, fn := range subs {
		fn(domain.CloneItems(items))
	}
	if pusher != nil {
		pusher.Push(domain.CloneItems(items))
	}
}

func (s *Store) subscribers() []func([]domain.LineItem) {
	out := make([]func([]domain.LineItem), 0, len(s.subs))
	for id := 0; id < s.nextID; id++ {
		if fn, ok := s.subs[id]; ok {
			out = append(out, fn)
		}
	}
	return out
}

func (s *Store) load() []domain.LineItem {
	data, err := s.storage.Load(KeyCart)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn().Err(err).Msg("read cart")
		}
		return []domain.LineItem{}
	}
	var items []domain.LineItem
	if err := json.Unmarshal(data, &items); err != nil {
		s.logger.Warn().Err(err).Msg("discarding unreadable cart")
		return []domain.LineItem{}
	}
	return domain.CloneItems(items)
}

func (s *Store) save(items []domain.LineItem) error {
	data, err := json.Marshal(domain.CloneItems(items))
	if err != nil {
		return err
	}
	return s.storage.Save(KeyCart, data)
}
