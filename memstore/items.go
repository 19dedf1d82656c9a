// Package memstore provides in-process implementations of the item store,
// blob store and similarity index. They back the server's memory mode and
// the tests of the packages that consume those capabilities.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/docutag/curator/models"
	"github.com/docutag/curator/pagination"
)

// Items is a concurrency-safe item store enforcing unique ids and URL hashes.
type Items struct {
	mu      sync.RWMutex
	byID    map[string]models.Item
	byHash  map[string]string
	profile models.CurationContext
}

// NewItems creates an empty store.
func NewItems() *Items {
	return &Items{
		byID:   make(map[string]models.Item),
		byHash: make(map[string]string),
	}
}

func clone(it models.Item) models.Item {
	if it.Tags != nil {
		it.Tags = append([]string(nil), it.Tags...)
	}
	if it.ProcessedAt != nil {
		t := *it.ProcessedAt
		it.ProcessedAt = &t
	}
	return it
}

// Insert adds item, failing with models.ErrDuplicate on an id or hash clash.
func (s *Items) Insert(_ context.Context, item *models.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[item.ID]; ok {
		return models.ErrDuplicate
	}
	if _, ok := s.byHash[item.URLHash]; ok {
		return models.ErrDuplicate
	}
	s.byID[item.ID] = clone(*item)
	s.byHash[item.URLHash] = item.ID
	return nil
}

// GetByID returns the item with id.
func (s *Items) GetByID(_ context.Context, id string) (*models.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	it, ok := s.byID[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	it = clone(it)
	return &it, nil
}

// GetByURLHash returns the item whose canonical URL hashes to hash.
func (s *Items) GetByURLHash(ctx context.Context, hash string) (*models.Item, error) {
	s.mu.RLock()
	id, ok := s.byHash[hash]
	s.mu.RUnlock()
	if !ok {
		return nil, models.ErrNotFound
	}
	return s.GetByID(ctx, id)
}

// GetByIDs returns the items found among ids, in no particular order.
func (s *Items) GetByIDs(_ context.Context, ids []string) ([]models.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Item, 0, len(ids))
	for _, id := range ids {
		if it, ok := s.byID[id]; ok {
			out = append(out, clone(it))
		}
	}
	return out, nil
}

// Scan evaluates a page query over the current snapshot.
func (s *Items) Scan(_ context.Context, q pagination.Query) ([]models.Item, error) {
	s.mu.RLock()
	out := make([]models.Item, 0, len(s.byID))
	for _, it := range s.byID {
		if q.Match(it) {
			out = append(out, clone(it))
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if pagination.Less(q.View, out[i], out[j]) {
			return true
		}
		if pagination.Less(q.View, out[j], out[i]) {
			return false
		}
		return out[i].ID < out[j].ID
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// UpdateStatus overwrites the status of id.
func (s *Items) UpdateStatus(_ context.Context, id string, status models.Status) error {
	return s.update(id, func(it *models.Item) { it.Status = status })
}

// UpdatePin overwrites the pin flag of id.
func (s *Items) UpdatePin(_ context.Context, id string, pin int) error {
	return s.update(id, func(it *models.Item) { it.Pin = pin })
}

func (s *Items) update(id string, fn func(*models.Item)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.byID[id]
	if !ok {
		return models.ErrNotFound
	}
	fn(&it)
	s.byID[id] = it
	return nil
}

// Count returns the number of stored items.
func (s *Items) Count(_ context.Context) (int, error) {
	return s.Len(), nil
}

// Len returns the number of stored items.
func (s *Items) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// SetCurationContext replaces the profile returned by CurationContext.
func (s *Items) SetCurationContext(cc models.CurationContext) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profile = cc
}

// CurationContext returns the stored profile.
func (s *Items) CurationContext(_ context.Context) (models.CurationContext, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile, nil
}
