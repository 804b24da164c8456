package storage

import (
	"context"
	"sort"
	"sync"

	"astraguard/aegis/pkg/audit"
)

// MemoryStorage implements audit.Storage on an in-memory map. It is intended
// for tests and for deployments that tolerate losing the trail on restart.
type MemoryStorage struct {
	records map[string]*audit.Record
	mu      sync.RWMutex
}

// NewMemoryStorage creates an empty in-memory backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		records: make(map[string]*audit.Record),
	}
}

// Store persists one audit record.
func (s *MemoryStorage) Store(ctx context.Context, record *audit.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	recordCopy := *record
	s.records[record.ID] = &recordCopy

	return nil
}

// Query returns matching records ordered by RecordedAt.
func (s *MemoryStorage) Query(ctx context.Context, query *audit.Query) ([]*audit.Record, error) {
	s.mu.RLock()
	matched := s.collect(query)
	s.mu.RUnlock()

	sortRecords(matched, query.SortOrder)

	return paginate(matched, query.Offset, query.Limit), nil
}

// QueryStream streams matching records over a channel in RecordedAt order.
func (s *MemoryStorage) QueryStream(ctx context.Context, query *audit.Query) (<-chan *audit.Record, <-chan error, error) {
	recordsCh := make(chan *audit.Record, 100)
	errCh := make(chan error, 1)

	s.mu.RLock()
	matched := s.collect(query)
	s.mu.RUnlock()

	sortRecords(matched, query.SortOrder)
	matched = paginate(matched, query.Offset, query.Limit)

	go func() {
		defer close(recordsCh)
		defer close(errCh)

		for _, record := range matched {
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case recordsCh <- record:
			}
		}
	}()

	return recordsCh, errCh, nil
}

// Count returns the number of matching records.
func (s *MemoryStorage) Count(ctx context.Context, query *audit.Query) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, record := range s.records {
		if query.Matches(record) {
			count++
		}
	}

	return count, nil
}

// Delete removes matching records and returns the count removed.
func (s *MemoryStorage) Delete(ctx context.Context, query *audit.Query) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	toDelete := []string{}
	for id, record := range s.records {
		if query.Matches(record) {
			toDelete = append(toDelete, id)
		}
	}

	for _, id := range toDelete {
		delete(s.records, id)
	}

	return int64(len(toDelete)), nil
}

// Ping always succeeds for the in-memory backend.
func (s *MemoryStorage) Ping(ctx context.Context) error {
	return nil
}

// Close releases the stored records.
func (s *MemoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[string]*audit.Record)
	return nil
}

// collect copies out the records matching the query. Callers hold the lock.
func (s *MemoryStorage) collect(query *audit.Query) []*audit.Record {
	matched := []*audit.Record{}
	for _, record := range s.records {
		if query.Matches(record) {
			recordCopy := *record
			matched = append(matched, &recordCopy)
		}
	}
	return matched
}

// Clear removes all records from storage (for testing).
func (s *MemoryStorage) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[string]*audit.Record)
}

// GetByID retrieves a single record by ID (for testing).
func (s *MemoryStorage) GetByID(id string) *audit.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[id]
	if !ok {
		return nil
	}

	recordCopy := *record
	return &recordCopy
}

// Size returns the number of records in storage (for testing).
func (s *MemoryStorage) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.records)
}

func sortRecords(records []*audit.Record, order string) {
	sort.Slice(records, func(i, j int) bool {
		if order == audit.SortAsc {
			return records[i].RecordedAt.Before(records[j].RecordedAt)
		}
		return records[i].RecordedAt.After(records[j].RecordedAt)
	})
}

func paginate(records []*audit.Record, offset, limit int) []*audit.Record {
	if offset > len(records) {
		return []*audit.Record{}
	}

	records = records[offset:]
	if limit > 0 && limit < len(records) {
		records = records[:limit]
	}

	return records
}
