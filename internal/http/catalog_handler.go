package httpapi

import (
	"net/http"
	"strings"

	"crediflow-data/internal/domain"
	"crediflow-data/internal/service"

	"go.uber.org/zap"
)

// CatalogHandler 字段定义目录 Handler
// 路由：
//   - GET              /data/api/v1/schema/:column/:entity
//   - POST|PUT         /data/api/v1/definitions/:entity/:column
//   - DELETE           /data/api/v1/definitions/:entity/:column[/:key]
type CatalogHandler struct {
	catalog *service.CatalogService
	logger  *zap.Logger
}

func NewCatalogHandler(catalog *service.CatalogService, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, logger: logger}
}

// ServeSchema 处理 /data/api/v1/schema/ 前缀
// 读侧路径把 column 放在 entity 前面（历史前端契约），写侧相反
func (h *CatalogHandler) ServeSchema(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	tenantID, ok := tenantIDFromReq(w, r)
	if !ok {
		return
	}

	parts := splitPath(r.URL.Path, "/data/api/v1/schema/")
	if len(parts) != 2 {
		writeJSON(w, http.StatusBadRequest, Fail("expected /schema/:column/:entity"))
		return
	}
	column := parts[0]
	entity, ok := domain.ParseEntityKind(parts[1])
	if !ok {
		writeJSON(w, http.StatusBadRequest, Fail("unknown entity kind"))
		return
	}

	items, err := h.catalog.GetDefinitions(r.Context(), tenantID, entity, column)
	if err != nil {
		writeServiceError(w, h.logger, "GetDefinitions", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(items))
}

// ServeDefinitions 处理 /data/api/v1/definitions/ 前缀
func (h *CatalogHandler) ServeDefinitions(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantIDFromReq(w, r)
	if !ok {
		return
	}

	parts := splitPath(r.URL.Path, "/data/api/v1/definitions/")
	if len(parts) < 2 || len(parts) > 3 {
		writeJSON(w, http.StatusBadRequest, Fail("expected /definitions/:entity/:column[/:key]"))
		return
	}
	entity, ok := domain.ParseEntityKind(parts[0])
	if !ok {
		writeJSON(w, http.StatusBadRequest, Fail("unknown entity kind"))
		return
	}
	column := parts[1]

	switch r.Method {
	case http.MethodPost, http.MethodPut:
		if len(parts) != 2 {
			writeJSON(w, http.StatusBadRequest, Fail("key is not allowed on upsert"))
			return
		}
		h.upsert(w, r, tenantID, entity, column)
	case http.MethodDelete:
		key := ""
		if len(parts) == 3 {
			key = parts[2]
		}
		h.delete(w, r, tenantID, entity, column, key)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *CatalogHandler) upsert(w http.ResponseWriter, r *http.Request, tenantID int64, entity domain.EntityKind, column string) {
	var payload struct {
		Definitions []service.DefinitionItem `json:"definitions"`
	}
	if err := readBodyJSON(r, 1<<20, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}

	err := h.catalog.UpsertDefinitions(r.Context(), service.UpsertDefinitionsRequest{
		TenantID: tenantID,
		Entity:   entity,
		Column:   column,
		Items:    payload.Definitions,
	})
	if err != nil {
		writeServiceError(w, h.logger, "UpsertDefinitions", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"count": len(payload.Definitions)}))
}

func (h *CatalogHandler) delete(w http.ResponseWriter, r *http.Request, tenantID int64, entity domain.EntityKind, column, key string) {
	n, err := h.catalog.DeleteDefinitions(r.Context(), tenantID, entity, column, key)
	if err != nil {
		writeServiceError(w, h.logger, "DeleteDefinitions", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"deleted": n}))
}

// splitPath 去掉前缀后按 / 切分，过滤空段
func splitPath(path, prefix string) []string {
	rest := strings.TrimPrefix(path, prefix)
	raw := strings.Split(strings.Trim(rest, "/"), "/")
	parts := make([]string, 0, len(raw))
	for _, p := range raw {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}
