package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"shiftsync/internal/models"
)

// MemoryRepository implements Repository with in-process maps. It backs unit
// tests and local development runs that have no Postgres at hand.
type MemoryRepository struct {
	mu        sync.RWMutex
	records   map[models.EntityKind]map[string]models.Record
	auditLogs map[string]models.AuditLog
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	records := make(map[models.EntityKind]map[string]models.Record)
	for _, kind := range models.Kinds() {
		records[kind] = make(map[string]models.Record)
	}
	return &MemoryRepository{
		records:   records,
		auditLogs: make(map[string]models.AuditLog),
	}
}

func (r *MemoryRepository) kindTable(kind models.EntityKind) (map[string]models.Record, error) {
	table, ok := r.records[kind]
	if !ok {
		return nil, fmt.Errorf("unknown entity kind %q", kind)
	}
	return table, nil
}

func (r *MemoryRepository) FindRecord(ctx context.Context, kind models.EntityKind, id string) (*models.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	table, err := r.kindTable(kind)
	if err != nil {
		return nil, err
	}
	rec, ok := table[id]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (r *MemoryRepository) UpsertRecord(ctx context.Context, kind models.EntityKind, rec models.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	table, err := r.kindTable(kind)
	if err != nil {
		return err
	}
	table[rec.ID] = rec
	return nil
}

func (r *MemoryRepository) RecordsChangedSince(ctx context.Context, kind models.EntityKind, since int64) ([]models.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	table, err := r.kindTable(kind)
	if err != nil {
		return nil, err
	}

	var changed []models.Record
	for _, rec := range table {
		if rec.LastModified > since {
			changed = append(changed, rec)
		}
	}
	sortByLastModified(changed)
	return changed, nil
}

func (r *MemoryRepository) AllRecords(ctx context.Context, kind models.EntityKind, includeDeleted bool) ([]models.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	table, err := r.kindTable(kind)
	if err != nil {
		return nil, err
	}

	records := make([]models.Record, 0, len(table))
	for _, rec := range table {
		if rec.IsDeleted && !includeDeleted {
			continue
		}
		records = append(records, rec)
	}
	sortByLastModified(records)
	return records, nil
}

func (r *MemoryRepository) InsertAuditLog(ctx context.Context, entry models.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Same id, same entry: a no-op, matching ON CONFLICT DO NOTHING
	if _, exists := r.auditLogs[entry.ID]; exists {
		return nil
	}
	r.auditLogs[entry.ID] = entry
	return nil
}

// AuditLogCount reports how many distinct audit entries are stored.
func (r *MemoryRepository) AuditLogCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.auditLogs)
}

func sortByLastModified(records []models.Record) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].LastModified == records[j].LastModified {
			return records[i].ID < records[j].ID
		}
		return records[i].LastModified < records[j].LastModified
	})
}
