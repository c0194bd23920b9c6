package cart

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"aurum-storefront/internal/domain"
)

// DefaultPushTimeout bounds one remote save.
const DefaultPushTimeout = 10 * time.Second

// Remote is the authenticated cart endpoint. SaveCart returns an error
// matching domain.ErrConflict when expected is stale.
type Remote interface {
	HasSession() bool
	GetCart(ctx context.Context) (*domain.RemoteCart, error)
	SaveCart(ctx context.Context, items []domain.LineItem, expected *int64) (*domain.RemoteCart, error)
}

// VersionTracker remembers which remote version the local cart matches.
type VersionTracker interface {
	SyncedVersion() (int64, bool)
	MarkSynced(version int64) error
}

// Syncer pushes cart snapshots to Remote on one background goroutine. Only
// the latest pending snapshot is kept; older ones are dropped unsent.
type Syncer struct {
	remote  Remote
	tracker VersionTracker
	logger  zerolog.Logger
	timeout time.Duration

	mu         sync.Mutex
	pending    []domain.LineItem
	hasPending bool
	closed     bool

	wake      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewSyncer starts the worker. tracker may be nil, in which case every push
// overwrites the remote cart unconditionally.
func NewSyncer(remote Remote, tracker VersionTracker, logger zerolog.Logger) *Syncer {
	s := &Syncer{
		remote:  remote,
		tracker: tracker,
		logger:  logger,
		timeout: DefaultPushTimeout,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go s.run()
	return s
}

// Push queues items, replacing any snapshot not yet sent.
func (s *Syncer) Push(items []domain.LineItem) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.pending = domain.CloneItems(items)
	s.hasPending = true
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Close sends whatever is pending and stops the worker.
func (s *Syncer) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		select {
		case s.wake <- struct{}{}:
		default:
		}
	})
	<-s.done
}

func (s *Syncer) run() {
	defer close(s.done)
	for {
		items, ok, closing := s.take()
		if ok {
			s.push(items)
			continue
		}
		if closing {
			return
		}
		<-s.wake
	}
}

func (s *Syncer) take() ([]domain.LineItem, bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasPending {
		return nil, false, s.closed
	}
	items := s.pending
	s.pending, s.hasPending = nil, false
	return items, true, s.closed
}

func (s *Syncer) push(items []domain.LineItem) {
	if !s.remote.HasSession() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	expected := s.expectedVersion()
	saved, err := s.remote.SaveCart(ctx, items, expected)
	if errors.Is(err, domain.ErrConflict) {
		s.logger.Warn().Msg("remote cart changed elsewhere, overwriting with local cart")
		current, gerr := s.remote.GetCart(ctx)
		if gerr != nil {
			s.logger.Error().Err(gerr).Msg("refetch remote cart")
			return
		}
		saved, err = s.remote.SaveCart(ctx, items, &current.Version)
	}
	if err != nil {
		s.logger.Error().Err(err).Int("items", len(items)).Msg("cart sync failed")
		return
	}
	if s.tracker != nil && saved != nil {
		if err := s.tracker.MarkSynced(saved.Version); err != nil {
			s.logger.Warn().Err(err).Msg("record synced version")
		}
	}
	s.logger.Debug().Int64("version", versionOf(saved)).Int("items", len(items)).Msg("cart synced")
}

func (s *Syncer) expectedVersion() *int64 {
	if s.tracker == nil {
		return nil
	}
	v, ok := s.tracker.SyncedVersion()
	if !ok {
		return nil
	}
	return &v
}

func versionOf(c *domain.RemoteCart) int64 {
	if c == nil {
		return 0
	}
	return c.Version
}
