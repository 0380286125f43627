package httpapi

import (
	"net/http"
	"strconv"

	"crediflow-data/internal/domain"
	"crediflow-data/internal/service"

	"go.uber.org/zap"
)

// RecordsHandler 记录动态属性 Handler（文档字段 + 子文档集合）
// 路由：/data/api/v1/records/:entity/:record_id/:column
//   - GET    ?path=key           读取整列或单个顶层 key
//   - PATCH  {path,value,...}    合并写入
//   - DELETE ?path=key           删除单个顶层 key
//
// 子文档：/data/api/v1/records/:entity/:record_id/:column/items[/:item_id]
//   - POST   items               追加项（item_id 由服务端分配）
//   - GET    items/:item_id      按 id 读取
//   - PATCH  items/:item_id      按 id 浅覆盖
//   - DELETE items/:item_id      按 id 删除
type RecordsHandler struct {
	docFields *service.DocFieldService
	subdocs   *service.SubdocService
	logger    *zap.Logger
}

func NewRecordsHandler(docFields *service.DocFieldService, subdocs *service.SubdocService, logger *zap.Logger) *RecordsHandler {
	return &RecordsHandler{docFields: docFields, subdocs: subdocs, logger: logger}
}

func (h *RecordsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantIDFromReq(w, r)
	if !ok {
		return
	}

	parts := splitPath(r.URL.Path, "/data/api/v1/records/")
	if len(parts) < 3 {
		writeJSON(w, http.StatusBadRequest, Fail("expected /records/:entity/:record_id/:column"))
		return
	}
	entity, ok := domain.ParseEntityKind(parts[0])
	if !ok {
		writeJSON(w, http.StatusBadRequest, Fail("unknown entity kind"))
		return
	}
	recordID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || recordID <= 0 {
		writeJSON(w, http.StatusBadRequest, Fail("record_id must be a positive integer"))
		return
	}
	column := parts[2]

	switch {
	case len(parts) == 3:
		h.serveField(w, r, tenantID, entity, recordID, column)
	case parts[3] == "items" && len(parts) <= 5:
		h.serveItems(w, r, service.SubdocScope{
			TenantID: tenantID,
			Entity:   entity,
			Column:   column,
			RecordID: recordID,
		}, parts[4:])
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// ========== 文档字段 ==========

func (h *RecordsHandler) serveField(w http.ResponseWriter, r *http.Request, tenantID int64, entity domain.EntityKind, recordID int64, column string) {
	switch r.Method {
	case http.MethodGet:
		resp, err := h.docFields.Read(r.Context(), service.ReadFieldRequest{
			TenantID: tenantID,
			Entity:   entity,
			Column:   column,
			RecordID: recordID,
			Path:     r.URL.Query().Get("path"),
		})
		if err != nil {
			writeServiceError(w, h.logger, "ReadField", err)
			return
		}
		writeJSON(w, http.StatusOK, Ok(resp))

	case http.MethodPatch:
		var payload struct {
			Path     string `json:"path"`
			Value    any    `json:"value"`
			Validate bool   `json:"validate"`
		}
		if err := readBodyJSON(r, 1<<20, &payload); err != nil {
			writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
			return
		}
		err := h.docFields.Merge(r.Context(), service.MergeFieldRequest{
			TenantID: tenantID,
			Entity:   entity,
			Column:   column,
			RecordID: recordID,
			Path:     payload.Path,
			Value:    payload.Value,
			Validate: payload.Validate,
		})
		if err != nil {
			writeServiceError(w, h.logger, "MergeField", err)
			return
		}
		writeJSON(w, http.StatusOK, Ok(map[string]any{"updated": true}))

	case http.MethodDelete:
		err := h.docFields.Delete(r.Context(), service.DeleteFieldRequest{
			TenantID: tenantID,
			Entity:   entity,
			Column:   column,
			RecordID: recordID,
			Path:     r.URL.Query().Get("path"),
		})
		if err != nil {
			writeServiceError(w, h.logger, "DeleteField", err)
			return
		}
		writeJSON(w, http.StatusOK, Ok(map[string]any{"deleted": true}))

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// ========== 子文档集合 ==========

func (h *RecordsHandler) serveItems(w http.ResponseWriter, r *http.Request, scope service.SubdocScope, rest []string) {
	// POST /items
	if len(rest) == 0 {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var fields map[string]any
		if err := readBodyJSON(r, 1<<20, &fields); err != nil || fields == nil {
			writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
			return
		}
		item, err := h.subdocs.Append(r.Context(), scope, fields)
		if err != nil {
			writeServiceError(w, h.logger, "AppendItem", err)
			return
		}
		writeJSON(w, http.StatusOK, Ok(item))
		return
	}

	// /items/:item_id
	itemID, err := strconv.ParseInt(rest[0], 10, 64)
	if err != nil || itemID <= 0 {
		writeJSON(w, http.StatusBadRequest, Fail("item_id must be a positive integer"))
		return
	}

	switch r.Method {
	case http.MethodGet:
		item, err := h.subdocs.GetByID(r.Context(), scope, itemID)
		if err != nil {
			writeServiceError(w, h.logger, "GetItem", err)
			return
		}
		if item == nil {
			writeJSON(w, http.StatusNotFound, Fail("not found"))
			return
		}
		writeJSON(w, http.StatusOK, Ok(item))

	case http.MethodPatch:
		var updates map[string]any
		if err := readBodyJSON(r, 1<<20, &updates); err != nil || updates == nil {
			writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
			return
		}
		item, err := h.subdocs.UpdateByID(r.Context(), scope, itemID, updates)
		if err != nil {
			writeServiceError(w, h.logger, "UpdateItem", err)
			return
		}
		writeJSON(w, http.StatusOK, Ok(item))

	case http.MethodDelete:
		item, err := h.subdocs.RemoveByID(r.Context(), scope, itemID)
		if err != nil {
			writeServiceError(w, h.logger, "RemoveItem", err)
			return
		}
		writeJSON(w, http.StatusOK, Ok(item))

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}
