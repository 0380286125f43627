package httpapi

import (
	"net/http"
	"strconv"

	"crediflow-data/internal/domain"
	"crediflow-data/internal/repository"

	"go.uber.org/zap"
)

// TenantsHandler 租户管理 Handler（平台级）
// 路由：
//   - GET    /admin/api/v1/tenants            列表
//   - POST   /admin/api/v1/tenants            创建
//   - GET    /admin/api/v1/tenants/:id        单个
//   - PATCH  /admin/api/v1/tenants/:id/status 状态变更
type TenantsHandler struct {
	repo   repository.TenantsRepository
	logger *zap.Logger
}

func NewTenantsHandler(repo repository.TenantsRepository, logger *zap.Logger) *TenantsHandler {
	return &TenantsHandler{repo: repo, logger: logger}
}

func (h *TenantsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	parts := splitPath(r.URL.Path, "/admin/api/v1/tenants")

	switch {
	case len(parts) == 0:
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}

	default:
		tenantID, err := strconv.ParseInt(parts[0], 10, 64)
		if err != nil || tenantID <= 0 {
			writeJSON(w, http.StatusBadRequest, Fail("tenant_id must be a positive integer"))
			return
		}
		switch {
		case len(parts) == 1 && r.Method == http.MethodGet:
			h.get(w, r, tenantID)
		case len(parts) == 2 && parts[1] == "status" && r.Method == http.MethodPatch:
			h.setStatus(w, r, tenantID)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}
}

func (h *TenantsHandler) list(w http.ResponseWriter, r *http.Request) {
	filter := repository.TenantFilters{
		Status: r.URL.Query().Get("status"),
		Search: r.URL.Query().Get("search"),
	}
	page := parseInt(r.URL.Query().Get("page"), 1)
	size := parseInt(r.URL.Query().Get("size"), 50)

	items, total, err := h.repo.ListTenants(r.Context(), filter, page, size)
	if err != nil {
		writeServiceError(w, h.logger, "ListTenants", err)
		return
	}
	out := make([]map[string]any, 0, len(items))
	for _, t := range items {
		out = append(out, tenantOut(t))
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"items": out, "total": total}))
}

func (h *TenantsHandler) get(w http.ResponseWriter, r *http.Request, tenantID int64) {
	t, err := h.repo.GetTenant(r.Context(), tenantID)
	if err != nil {
		writeServiceError(w, h.logger, "GetTenant", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(tenantOut(t)))
}

func (h *TenantsHandler) create(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		TenantName string `json:"tenant_name"`
		Nit        string `json:"nit"`
		Email      string `json:"email"`
		Phone      string `json:"phone"`
	}
	if err := readBodyJSON(r, 1<<20, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	if payload.TenantName == "" {
		writeJSON(w, http.StatusBadRequest, Fail("tenant_name is required"))
		return
	}

	tenantID, err := h.repo.CreateTenant(r.Context(), &domain.Tenant{
		TenantName: payload.TenantName,
		Nit:        payload.Nit,
		Email:      payload.Email,
		Phone:      payload.Phone,
		Status:     "active",
	})
	if err != nil {
		writeServiceError(w, h.logger, "CreateTenant", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"tenant_id": tenantID}))
}

func (h *TenantsHandler) setStatus(w http.ResponseWriter, r *http.Request, tenantID int64) {
	var payload struct {
		Status string `json:"status"`
	}
	if err := readBodyJSON(r, 1<<20, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	switch payload.Status {
	case "active", "suspended", "deleted":
	default:
		writeJSON(w, http.StatusBadRequest, Fail("status must be active, suspended or deleted"))
		return
	}

	if err := h.repo.SetTenantStatus(r.Context(), tenantID, payload.Status); err != nil {
		writeServiceError(w, h.logger, "SetTenantStatus", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"updated": true}))
}

func tenantOut(t *domain.Tenant) map[string]any {
	return map[string]any{
		"tenant_id":   t.TenantID,
		"tenant_name": t.TenantName,
		"nit":         t.Nit,
		"email":       t.Email,
		"phone":       t.Phone,
		"status":      t.Status,
		"metadata":    t.Metadata,
	}
}
