package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"crediflow-data/internal/domain"
)

// MemoryDynamicColumnsRepository supports unit tests and the no-DB fallback.
// Records must be seeded before their dynamic columns can be addressed,
// mirroring the "record row must exist" contract of the postgres implementation.
type MemoryDynamicColumnsRepository struct {
	mu sync.RWMutex
	// "tenant/entity/record" -> column -> raw JSON
	records map[string]map[string]json.RawMessage
}

func NewMemoryDynamicColumnsRepository() *MemoryDynamicColumnsRepository {
	return &MemoryDynamicColumnsRepository{
		records: map[string]map[string]json.RawMessage{},
	}
}

var _ DynamicColumnsRepository = (*MemoryDynamicColumnsRepository)(nil)

func recordKey(tenantID int64, entity domain.EntityKind, recordID int64) string {
	return fmt.Sprintf("%d/%s/%d", tenantID, entity, recordID)
}

// SeedRecord 创建一条空记录（测试与内存回退模式使用）
func (r *MemoryDynamicColumnsRepository) SeedRecord(tenantID int64, entity domain.EntityKind, recordID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := recordKey(tenantID, entity, recordID)
	if _, ok := r.records[key]; !ok {
		r.records[key] = map[string]json.RawMessage{}
	}
}

func (r *MemoryDynamicColumnsRepository) GetColumn(_ context.Context, tenantID int64, entity domain.EntityKind, column string, recordID int64) (json.RawMessage, error) {
	if !entity.HasDynamicColumn(column) {
		return nil, fmt.Errorf("entity %q has no dynamic column %q", entity, column)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	cols, ok := r.records[recordKey(tenantID, entity, recordID)]
	if !ok {
		return nil, fmt.Errorf("failed to get %s.%s: %w", entity.TableName(), column, ErrNotFound)
	}
	raw, ok := cols[column]
	if !ok || len(raw) == 0 {
		return json.RawMessage("{}"), nil
	}
	out := make(json.RawMessage, len(raw))
	copy(out, raw)
	return out, nil
}

func (r *MemoryDynamicColumnsRepository) SetColumn(_ context.Context, tenantID int64, entity domain.EntityKind, column string, recordID int64, value json.RawMessage) error {
	if !entity.HasDynamicColumn(column) {
		return fmt.Errorf("entity %q has no dynamic column %q", entity, column)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cols, ok := r.records[recordKey(tenantID, entity, recordID)]
	if !ok {
		return fmt.Errorf("failed to set %s.%s: %w", entity.TableName(), column, ErrNotFound)
	}
	if len(value) == 0 {
		value = json.RawMessage("{}")
	}
	stored := make(json.RawMessage, len(value))
	copy(stored, value)
	cols[column] = stored
	return nil
}
