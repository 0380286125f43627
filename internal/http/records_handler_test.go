package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"crediflow-data/internal/domain"
	"crediflow-data/internal/repository"
	"crediflow-data/internal/service"
	"crediflow-data/internal/store"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRecordsHandler() (*RecordsHandler, *repository.MemoryDynamicColumnsRepository) {
	logger := zap.NewNop()
	records := repository.NewMemoryDynamicColumnsRepository()
	catalog := service.NewCatalogService(repository.NewMemoryFieldCatalogRepository(), store.NewMemoryKV(), logger)
	docFields := service.NewDocFieldService(records, catalog, logger)
	subdocs := service.NewSubdocService(records, logger)
	return NewRecordsHandler(docFields, subdocs, logger), records
}

func decodeResult(t *testing.T, body string) map[string]any {
	t.Helper()
	out := map[string]any{}
	require.NoError(t, json.Unmarshal([]byte(body), &out))
	return out
}

func TestRecordsHandler_MergeThenRead(t *testing.T) {
	h, records := newTestRecordsHandler()
	records.SeedRecord(7, domain.EntityApplicant, 42)

	patch := httptest.NewRequest(http.MethodPatch, "/data/api/v1/records/applicant/42/extra",
		strings.NewReader(`{"path":"estado_civil","value":"casado"}`))
	patch.Header.Set("X-Tenant-Id", "7")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, patch)
	require.Equal(t, http.StatusOK, w.Code)

	get := httptest.NewRequest(http.MethodGet, "/data/api/v1/records/applicant/42/extra?path=estado_civil", nil)
	get.Header.Set("X-Tenant-Id", "7")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, get)
	require.Equal(t, http.StatusOK, w.Code)

	result := decodeResult(t, w.Body.String())
	require.Equal(t, true, result["ok"])
	data := result["data"].(map[string]any)
	require.Equal(t, "casado", data["value"])
	require.Equal(t, true, data["present"])
}

func TestRecordsHandler_MissingTenantIs400(t *testing.T) {
	h, _ := newTestRecordsHandler()

	req := httptest.NewRequest(http.MethodGet, "/data/api/v1/records/applicant/42/extra", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	result := decodeResult(t, w.Body.String())
	require.Equal(t, false, result["ok"])
}

func TestRecordsHandler_NonIntegerTenantIs400(t *testing.T) {
	h, _ := newTestRecordsHandler()

	req := httptest.NewRequest(http.MethodGet, "/data/api/v1/records/applicant/42/extra?tenant_id=acme", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRecordsHandler_MultiSegmentPathIs400(t *testing.T) {
	h, records := newTestRecordsHandler()
	records.SeedRecord(7, domain.EntityApplicant, 42)

	req := httptest.NewRequest(http.MethodGet, "/data/api/v1/records/applicant/42/extra?path=direccion.ciudad", nil)
	req.Header.Set("X-Tenant-Id", "7")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRecordsHandler_MissingRecordIs404(t *testing.T) {
	h, _ := newTestRecordsHandler()

	req := httptest.NewRequest(http.MethodGet, "/data/api/v1/records/applicant/9999/extra", nil)
	req.Header.Set("X-Tenant-Id", "7")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestRecordsHandler_SubdocLifecycle(t *testing.T) {
	h, records := newTestRecordsHandler()
	records.SeedRecord(7, domain.EntityApplicant, 9)

	// append
	post := httptest.NewRequest(http.MethodPost, "/data/api/v1/records/applicant/9/referencias/items",
		strings.NewReader(`{"nombre":"Ana","telefono":"111"}`))
	post.Header.Set("X-Tenant-Id", "7")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, post)
	require.Equal(t, http.StatusOK, w.Code)

	item := decodeResult(t, w.Body.String())["data"].(map[string]any)
	require.Equal(t, float64(1), item["item_id"])

	// update
	patch := httptest.NewRequest(http.MethodPatch, "/data/api/v1/records/applicant/9/referencias/items/1",
		strings.NewReader(`{"telefono":"222"}`))
	patch.Header.Set("X-Tenant-Id", "7")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, patch)
	require.Equal(t, http.StatusOK, w.Code)

	// get
	get := httptest.NewRequest(http.MethodGet, "/data/api/v1/records/applicant/9/referencias/items/1", nil)
	get.Header.Set("X-Tenant-Id", "7")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, get)
	require.Equal(t, http.StatusOK, w.Code)
	got := decodeResult(t, w.Body.String())["data"].(map[string]any)
	require.Equal(t, "222", got["telefono"])

	// delete
	del := httptest.NewRequest(http.MethodDelete, "/data/api/v1/records/applicant/9/referencias/items/1", nil)
	del.Header.Set("X-Tenant-Id", "7")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, del)
	require.Equal(t, http.StatusOK, w.Code)

	// get again -> 404
	w = httptest.NewRecorder()
	h.ServeHTTP(w, get)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestRecordsHandler_UnknownEntityIs400(t *testing.T) {
	h, _ := newTestRecordsHandler()

	req := httptest.NewRequest(http.MethodGet, "/data/api/v1/records/vehicle/42/extra", nil)
	req.Header.Set("X-Tenant-Id", "7")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}
