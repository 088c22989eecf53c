package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/iliyamo/table-reservation/internal/model"
)

// MemoryStore keeps reservation documents in process memory.  It is used
// for development (STORE_DRIVER=memory) and by tests.  Documents are stored
// in their encoded JSON form so every read decodes a fresh copy, exactly as
// a document database would return it.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string][]byte)}
}

func (s *MemoryStore) Put(_ context.Context, r model.Reservation) error {
	b, err := json.Marshal(model.ToDocument(r))
	if err != nil {
		return fmt.Errorf("encode reservation %s: %w", r.ID, err)
	}
	s.mu.Lock()
	s.docs[r.ID] = b
	s.mu.Unlock()
	return nil
}

// PutIfVersion implements VersionedStore.
func (s *MemoryStore) PutIfVersion(_ context.Context, r model.Reservation, expected int64) error {
	b, err := json.Marshal(model.ToDocument(r))
	if err != nil {
		return fmt.Errorf("encode reservation %s: %w", r.ID, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.docs[r.ID]
	switch {
	case !ok && expected != 0:
		return ErrVersionMismatch
	case ok:
		var d model.Document
		if err := json.Unmarshal(current, &d); err != nil {
			return fmt.Errorf("decode reservation %s: %w", r.ID, err)
		}
		if d.Version != expected {
			return ErrVersionMismatch
		}
	}
	s.docs[r.ID] = b
	return nil
}

func (s *MemoryStore) GetByID(_ context.Context, id string) (model.Reservation, error) {
	s.mu.RLock()
	b, ok := s.docs[id]
	s.mu.RUnlock()
	if !ok {
		return model.Reservation{}, ErrNotFound
	}
	return decodeDocument(b)
}

func (s *MemoryStore) QueryByEmail(_ context.Context, email string) ([]model.Reservation, error) {
	all, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	out := make([]model.Reservation, 0)
	for _, r := range all {
		if r.GuestEmail == email {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *MemoryStore) QueryFiltered(_ context.Context, q Query) ([]model.Reservation, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	all, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	matched := make([]model.Reservation, 0, len(all))
	for _, r := range all {
		if Match(q.Predicates, r) {
			matched = append(matched, r)
		}
	}
	if q.Offset >= len(matched) {
		return []model.Reservation{}, nil
	}
	matched = matched[q.Offset:]
	if q.Limit > 0 && q.Limit < len(matched) {
		matched = matched[:q.Limit]
	}
	return matched, nil
}

func (s *MemoryStore) Count(_ context.Context, preds []Predicate) (int, error) {
	all, err := s.snapshot()
	if err != nil {
		return 0, err
	}
	n := 0
	for _, r := range all {
		if Match(preds, r) {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[id]; !ok {
		return ErrNotFound
	}
	delete(s.docs, id)
	return nil
}

// snapshot decodes every document, sorted by OrderCreatedDesc.
func (s *MemoryStore) snapshot() ([]model.Reservation, error) {
	s.mu.RLock()
	out := make([]model.Reservation, 0, len(s.docs))
	for _, b := range s.docs {
		r, err := decodeDocument(b)
		if err != nil {
			s.mu.RUnlock()
			return nil, err
		}
		out = append(out, r)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out, nil
}

func decodeDocument(b []byte) (model.Reservation, error) {
	var d model.Document
	if err := json.Unmarshal(b, &d); err != nil {
		return model.Reservation{}, fmt.Errorf("decode reservation document: %w", err)
	}
	return model.FromDocument(d)
}
