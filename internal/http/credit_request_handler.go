package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"crediflow-data/internal/domain"
	"crediflow-data/internal/service"

	"go.uber.org/zap"
)

// CreditRequestHandler 信贷申请 Handler
// 路由：
//   - GET    /data/api/v1/credit-requests            列表（角色作用域）
//   - POST   /data/api/v1/credit-requests            创建
//   - GET    /data/api/v1/credit-requests/export     导出 xlsx
//   - GET    /data/api/v1/credit-requests/:id        单个（含 historial）
//   - PATCH  /data/api/v1/credit-requests/:id        带审计更新
//   - POST   /data/api/v1/credit-requests/:id/comments  追加备注
type CreditRequestHandler struct {
	requests *service.CreditRequestService
	logger   *zap.Logger
}

func NewCreditRequestHandler(requests *service.CreditRequestService, logger *zap.Logger) *CreditRequestHandler {
	return &CreditRequestHandler{requests: requests, logger: logger}
}

func (h *CreditRequestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantIDFromReq(w, r)
	if !ok {
		return
	}
	actorID, actorRole := actorFromReq(r)

	parts := splitPath(r.URL.Path, "/data/api/v1/credit-requests")

	switch {
	case len(parts) == 0:
		switch r.Method {
		case http.MethodGet:
			h.list(w, r, tenantID, actorID)
		case http.MethodPost:
			h.create(w, r, tenantID, actorID, actorRole)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}

	case len(parts) == 1 && parts[0] == "export":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.export(w, r, tenantID, actorID)

	default:
		requestID, err := strconv.ParseInt(parts[0], 10, 64)
		if err != nil || requestID <= 0 {
			writeJSON(w, http.StatusBadRequest, Fail("request_id must be a positive integer"))
			return
		}
		switch {
		case len(parts) == 1 && r.Method == http.MethodGet:
			h.get(w, r, tenantID, requestID)
		case len(parts) == 1 && r.Method == http.MethodPatch:
			h.update(w, r, tenantID, requestID, actorID, actorRole)
		case len(parts) == 2 && parts[1] == "comments" && r.Method == http.MethodPost:
			h.comment(w, r, tenantID, requestID, actorID, actorRole)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}
}

func (h *CreditRequestHandler) list(w http.ResponseWriter, r *http.Request, tenantID, actorID int64) {
	resp, err := h.requests.ListCreditRequests(r.Context(), service.ListCreditRequestsRequest{
		TenantID: tenantID,
		ActorID:  actorID,
		Status:   r.URL.Query().Get("status"),
		Page:     parseInt(r.URL.Query().Get("page"), 1),
		Size:     parseInt(r.URL.Query().Get("size"), 20),
	})
	if err != nil {
		writeServiceError(w, h.logger, "ListCreditRequests", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

func (h *CreditRequestHandler) get(w http.ResponseWriter, r *http.Request, tenantID, requestID int64) {
	request, err := h.requests.GetCreditRequest(r.Context(), tenantID, requestID)
	if err != nil {
		writeServiceError(w, h.logger, "GetCreditRequest", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(creditRequestOut(request)))
}

func (h *CreditRequestHandler) create(w http.ResponseWriter, r *http.Request, tenantID, actorID int64, actorRole string) {
	var payload struct {
		ApplicantID  int64          `json:"applicant_id"`
		CreditTypeID int64          `json:"credit_type_id"`
		Monto        float64        `json:"monto"`
		Banco        string         `json:"banco"`
		Ciudad       string         `json:"ciudad"`
		Atributos    map[string]any `json:"atributos"`
	}
	if err := readBodyJSON(r, 1<<20, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}

	requestID, err := h.requests.CreateCreditRequest(r.Context(), service.CreateCreditRequestRequest{
		TenantID:     tenantID,
		ActorID:      actorID,
		ActorRole:    actorRole,
		ApplicantID:  payload.ApplicantID,
		CreditTypeID: payload.CreditTypeID,
		Monto:        payload.Monto,
		Banco:        payload.Banco,
		Ciudad:       payload.Ciudad,
		Atributos:    payload.Atributos,
	})
	if err != nil {
		writeServiceError(w, h.logger, "CreateCreditRequest", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"request_id": requestID}))
}

func (h *CreditRequestHandler) update(w http.ResponseWriter, r *http.Request, tenantID, requestID, actorID int64, actorRole string) {
	var payload struct {
		Status     *string        `json:"status"`
		Monto      *float64       `json:"monto"`
		Banco      *string        `json:"banco"`
		Ciudad     *string        `json:"ciudad"`
		AssignedTo *int64         `json:"assigned_to"`
		Atributos  map[string]any `json:"atributos"`
		Note       string         `json:"note"`
	}
	if err := readBodyJSON(r, 1<<20, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}

	request, err := h.requests.UpdateWithAudit(r.Context(), service.UpdateWithAuditRequest{
		TenantID:   tenantID,
		RequestID:  requestID,
		ActorID:    actorID,
		ActorRole:  actorRole,
		Status:     payload.Status,
		Monto:      payload.Monto,
		Banco:      payload.Banco,
		Ciudad:     payload.Ciudad,
		AssignedTo: payload.AssignedTo,
		Atributos:  payload.Atributos,
		Note:       payload.Note,
	})
	if err != nil {
		writeServiceError(w, h.logger, "UpdateWithAudit", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(creditRequestOut(request)))
}

func (h *CreditRequestHandler) comment(w http.ResponseWriter, r *http.Request, tenantID, requestID, actorID int64, actorRole string) {
	var payload struct {
		Note string `json:"note"`
	}
	if err := readBodyJSON(r, 1<<20, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}

	entry, err := h.requests.AppendAuditEntry(r.Context(), service.AppendAuditEntryRequest{
		TenantID:  tenantID,
		RequestID: requestID,
		ActorID:   actorID,
		ActorRole: actorRole,
		Kind:      domain.AuditKindComment,
		Note:      payload.Note,
	})
	if err != nil {
		writeServiceError(w, h.logger, "AppendAuditEntry", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(entry))
}

func (h *CreditRequestHandler) export(w http.ResponseWriter, r *http.Request, tenantID, actorID int64) {
	resp, err := h.requests.ListCreditRequests(r.Context(), service.ListCreditRequestsRequest{
		TenantID: tenantID,
		ActorID:  actorID,
		Status:   r.URL.Query().Get("status"),
		Page:     1,
		Size:     200,
	})
	if err != nil {
		writeServiceError(w, h.logger, "ExportCreditRequests", err)
		return
	}

	data, err := GenerateCreditRequestExport(resp.Items)
	if err != nil {
		h.logger.Error("ExportCreditRequests excel generation failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("internal error"))
		return
	}

	filename := fmt.Sprintf("credit-requests-%s.xlsx", time.Now().Format("20060102-150405"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// creditRequestOut 领域模型转前端格式
func creditRequestOut(r *domain.CreditRequest) map[string]any {
	out := map[string]any{
		"request_id": r.RequestID,
		"status":     r.Status,
		"created_by": r.CreatedBy,
		"created_at": r.CreatedAt,
		"updated_at": r.UpdatedAt,
	}
	if r.ApplicantID.Valid {
		out["applicant_id"] = r.ApplicantID.Int64
	}
	if r.CreditTypeID.Valid {
		out["credit_type_id"] = r.CreditTypeID.Int64
	}
	if r.Monto.Valid {
		out["monto"] = r.Monto.Float64
	}
	if r.Banco.Valid {
		out["banco"] = r.Banco.String
	}
	if r.Ciudad.Valid {
		out["ciudad"] = r.Ciudad.String
	}
	if r.AssignedTo.Valid {
		out["assigned_to"] = r.AssignedTo.Int64
	}
	if len(r.Atributos) > 0 {
		out["atributos"] = json.RawMessage(r.Atributos)
	}
	if len(r.Historial) > 0 {
		out["historial"] = json.RawMessage(r.Historial)
	}
	return out
}
