package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"crediflow-data/internal/domain"
)

// MemoryCreditRequestsRepository supports unit tests and the no-DB fallback.
type MemoryCreditRequestsRepository struct {
	mu     sync.RWMutex
	nextID int64
	reqs   map[int64]*domain.CreditRequest // requestID -> CreditRequest
}

func NewMemoryCreditRequestsRepository() *MemoryCreditRequestsRepository {
	return &MemoryCreditRequestsRepository{
		nextID: 1,
		reqs:   map[int64]*domain.CreditRequest{},
	}
}

var _ CreditRequestsRepository = (*MemoryCreditRequestsRepository)(nil)

func cloneCreditRequest(req *domain.CreditRequest) *domain.CreditRequest {
	copied := *req
	if len(req.Atributos) > 0 {
		copied.Atributos = append(json.RawMessage(nil), req.Atributos...)
	}
	if len(req.Historial) > 0 {
		copied.Historial = append(json.RawMessage(nil), req.Historial...)
	}
	return &copied
}

func (r *MemoryCreditRequestsRepository) GetCreditRequest(_ context.Context, tenantID int64, requestID int64) (*domain.CreditRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	req, ok := r.reqs[requestID]
	if !ok || req.TenantID != tenantID {
		return nil, fmt.Errorf("failed to get credit request: %w", ErrNotFound)
	}
	return cloneCreditRequest(req), nil
}

func (r *MemoryCreditRequestsRepository) ListCreditRequests(_ context.Context, tenantID int64, scope RequestScope, filter CreditRequestFilters, page, size int) ([]*domain.CreditRequest, int, error) {
	if scope.None {
		return []*domain.CreditRequest{}, 0, nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	actorSet := map[int64]bool{}
	for _, id := range scope.ActorIDs {
		actorSet[id] = true
	}

	all := []*domain.CreditRequest{}
	for _, req := range r.reqs {
		if req.TenantID != tenantID {
			continue
		}
		if !scope.All {
			switch {
			case scope.Banco != "":
				if !req.Banco.Valid || req.Banco.String != scope.Banco {
					continue
				}
				if scope.Ciudad != "" && (!req.Ciudad.Valid || req.Ciudad.String != scope.Ciudad) {
					continue
				}
			case len(actorSet) > 0:
				assigned := req.AssignedTo.Valid && actorSet[req.AssignedTo.Int64]
				if !actorSet[req.CreatedBy] && !assigned {
					continue
				}
			default:
				// 约束缺失必须收敛：空结果
				return []*domain.CreditRequest{}, 0, nil
			}
		}
		if filter.Status != "" && req.Status != filter.Status {
			continue
		}
		all = append(all, cloneCreditRequest(req))
	}

	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].RequestID > all[j].RequestID
	})

	total := len(all)
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 50
	}
	start := (page - 1) * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

func (r *MemoryCreditRequestsRepository) CreateCreditRequest(_ context.Context, tenantID int64, req *domain.CreditRequest) (int64, error) {
	if req == nil {
		return 0, fmt.Errorf("credit request is required")
	}
	if req.CreatedBy == 0 {
		return 0, fmt.Errorf("created_by is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored := cloneCreditRequest(req)
	stored.RequestID = r.nextID
	r.nextID++
	stored.TenantID = tenantID
	if stored.Status == "" {
		stored.Status = domain.CreditStatusPending
	}
	if len(stored.Atributos) == 0 {
		stored.Atributos = json.RawMessage("{}")
	}
	if len(stored.Historial) == 0 {
		stored.Historial = json.RawMessage("[]")
	}
	now := time.Now()
	stored.CreatedAt = now
	stored.UpdatedAt = now

	r.reqs[stored.RequestID] = stored
	return stored.RequestID, nil
}

func (r *MemoryCreditRequestsRepository) UpdateCreditRequest(_ context.Context, tenantID int64, requestID int64, upd domain.CreditRequestUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	req, ok := r.reqs[requestID]
	if !ok || req.TenantID != tenantID {
		return fmt.Errorf("failed to update credit request: %w", ErrNotFound)
	}

	if upd.Status != nil {
		req.Status = *upd.Status
	}
	if upd.Monto != nil {
		req.Monto.Valid = true
		req.Monto.Float64 = *upd.Monto
	}
	if upd.Banco != nil {
		req.Banco.Valid = *upd.Banco != ""
		req.Banco.String = *upd.Banco
	}
	if upd.Ciudad != nil {
		req.Ciudad.Valid = *upd.Ciudad != ""
		req.Ciudad.String = *upd.Ciudad
	}
	if upd.AssignedTo != nil {
		req.AssignedTo.Valid = true
		req.AssignedTo.Int64 = *upd.AssignedTo
	}
	if len(upd.Atributos) > 0 {
		req.Atributos = append(json.RawMessage(nil), upd.Atributos...)
	}
	if len(upd.Historial) > 0 {
		req.Historial = append(json.RawMessage(nil), upd.Historial...)
	}
	req.UpdatedAt = time.Now()
	return nil
}
