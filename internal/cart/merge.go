package cart

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"aurum-storefront/internal/domain"
)

// Merge folds remote into the local cart. Quantities of shared variants are
// summed, remote-only lines are appended in remote order. Merging the same
// remote cart twice counts it twice; use MergeOnce when that matters.
func (s *Store) Merge(remote []domain.LineItem) error {
	if len(remote) == 0 {
		return nil
	}
	return s.mutate(func(items []domain.LineItem) ([]domain.LineItem, bool) {
		return mergeItems(items, remote), true
	})
}

func mergeItems(local, remote []domain.LineItem) []domain.LineItem {
	index := make(map[string]int, len(local))
	for i, it := range local {
		index[it.VariantID] = i
	}
	for _, r := range remote {
		if r.VariantID == "" || r.Quantity <= 0 {
			continue
		}
		if i, ok := index[r.VariantID]; ok {
			local[i].Quantity += r.Quantity
			continue
		}
		index[r.VariantID] = len(local)
		local = append(local, r)
	}
	return local
}

// MergeOnce merges remote unless the local cart is already reconciled with
// that remote version. It reports whether a merge happened. The version is
// recorded together with the merged cart so a later login skips it.
func (s *Store) MergeOnce(version int64, remote []domain.LineItem) (bool, error) {
	s.mu.Lock()
	if v, ok := s.syncedVersion(); ok && v == version {
		s.mu.Unlock()
		return false, nil
	}
	var next []domain.LineItem
	changed := len(remote) > 0
	if changed {
		next = mergeItems(s.load(), remote)
		if err := s.save(next); err != nil {
			s.mu.Unlock()
			return false, err
		}
	}
	if err := s.markSynced(version); err != nil {
		s.mu.Unlock()
		return changed, err
	}
	subs, pusher := s.subscribers(), s.pusher
	s.mu.Unlock()

	if changed {
		notify(subs, pusher, next)
	}
	return true, nil
}

// MarkSynced records the remote version the local cart now matches.
func (s *Store) MarkSynced(version int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.markSynced(version)
}

// SyncedVersion returns the recorded remote version, if any.
func (s *Store) SyncedVersion() (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.syncedVersion()
}

func (s *Store) markSynced(version int64) error {
	return s.storage.Save(KeyMerged, []byte(strconv.FormatInt(version, 10)))
}

func (s *Store) syncedVersion() (int64, bool) {
	data, err := s.storage.Load(KeyMerged)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn().Err(err).Msg("read merge marker")
		}
		return 0, false
	}
	v, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		s.logger.Warn().Err(fmt.Errorf("parse merge marker: %w", err)).Send()
		return 0, false
	}
	return v, true
}
