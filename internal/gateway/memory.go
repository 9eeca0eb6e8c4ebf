package gateway

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore keeps records in process. It backs tests and GATEWAY_DRIVER=memory.
type MemoryStore struct {
	mu       sync.Mutex
	data     map[string][]Record
	failNext error
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]Record)}
}

// FailNext injects err into the next gateway call.
func (m *MemoryStore) FailNext(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = err
}

func (m *MemoryStore) takeFailure() error {
	err := m.failNext
	m.failNext = nil
	return err
}

// Seed inserts records without owner validation; intended for fixtures.
func (m *MemoryStore) Seed(collection string, recs ...Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range recs {
		rec = rec.Clone()
		if rec.ID() == "" {
			rec[IDField] = uuid.NewString()
		}
		m.data[collection] = append(m.data[collection], rec)
	}
}

// Len counts the records of a collection across all owners.
func (m *MemoryStore) Len(collection string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data[collection])
}

// Fetch implements Gateway.
func (m *MemoryStore) Fetch(ctx context.Context, collection, owner string, filters ...Filter) Result {
	if err := ValidateScope(collection, owner, FilterFields(filters)...); err != nil {
		return Result{Err: err}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return Failed(err)
	}
	var out []Record
	for _, rec := range m.data[collection] {
		if matches(rec, owner, filters) {
			out = append(out, rec.Clone())
		}
	}
	return Result{Records: out}
}

// Insert implements Gateway.
func (m *MemoryStore) Insert(ctx context.Context, collection string, rec Record) (Record, error) {
	if err := ValidateScope(collection, rec.String(OwnerField), RecordFields(rec)...); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return nil, Backend(err)
	}
	stored := rec.Clone()
	if stored.ID() == "" {
		stored[IDField] = uuid.NewString()
	}
	m.data[collection] = append(m.data[collection], stored)
	return stored.Clone(), nil
}

// Update implements Gateway.
func (m *MemoryStore) Update(ctx context.Context, collection, matchField string, matchValue any, owner string, patch Record) (int64, error) {
	fields := append(RecordFields(patch), matchField)
	if err := ValidateScope(collection, owner, fields...); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return 0, Backend(err)
	}
	filters := []Filter{Eq(matchField, matchValue)}
	var n int64
	for _, rec := range m.data[collection] {
		if !matches(rec, owner, filters) {
			continue
		}
		for k, v := range patch {
			if k == IDField || k == OwnerField {
				continue
			}
			rec[k] = v
		}
		n++
	}
	return n, nil
}

// Delete implements Gateway.
func (m *MemoryStore) Delete(ctx context.Context, collection, matchField string, matchValue any, owner string) (int64, error) {
	if err := ValidateScope(collection, owner, matchField); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return 0, Backend(err)
	}
	filters := []Filter{Eq(matchField, matchValue)}
	kept := m.data[collection][:0]
	var n int64
	for _, rec := range m.data[collection] {
		if matches(rec, owner, filters) {
			n++
			continue
		}
		kept = append(kept, rec)
	}
	m.data[collection] = kept
	return n, nil
}

func matches(rec Record, owner string, filters []Filter) bool {
	if rec.String(OwnerField) != owner {
		return false
	}
	for _, f := range filters {
		if rec.String(f.Field) != ValueString(f.Value) {
			return false
		}
	}
	return true
}

var _ Gateway = (*MemoryStore)(nil)
