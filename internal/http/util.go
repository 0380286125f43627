package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"crediflow-data/internal/repository"
	"crediflow-data/internal/service"

	"go.uber.org/zap"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func readBodyJSON(r *http.Request, maxBytes int64, out any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBytes))
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

// tenantIDFromReq 提取租户ID：X-Tenant-Id header 优先，其次 tenant_id 查询参数
// 缺失或非整数时写入 400 并返回 ok=false
func tenantIDFromReq(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.Header.Get("X-Tenant-Id")
	if raw == "" {
		raw = r.URL.Query().Get("tenant_id")
	}
	if raw == "" {
		writeJSON(w, http.StatusBadRequest, Fail("tenant_id is required"))
		return 0, false
	}
	tenantID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || tenantID <= 0 {
		writeJSON(w, http.StatusBadRequest, Fail("tenant_id must be a positive integer"))
		return 0, false
	}
	return tenantID, true
}

// actorFromReq 提取操作者（网关注入的 X-User-Id / X-User-Role）
func actorFromReq(r *http.Request) (int64, string) {
	actorID, _ := strconv.ParseInt(r.Header.Get("X-User-Id"), 10, 64)
	return actorID, r.Header.Get("X-User-Role")
}

// writeServiceError 错误分类到 HTTP 状态码
// 校验类 400，未找到 404，存储不可用 503，其余 500（细节只进日志不回显）
func writeServiceError(w http.ResponseWriter, logger *zap.Logger, op string, err error) {
	switch {
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrInvalidPath),
		errors.Is(err, service.ErrUnknownField):
		writeJSON(w, http.StatusBadRequest, Fail(err.Error()))
	case errors.Is(err, repository.ErrNotFound):
		writeJSON(w, http.StatusNotFound, Fail("not found"))
	case errors.Is(err, repository.ErrStorageUnavailable):
		logger.Error(op+" storage unavailable", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, Fail("storage unavailable"))
	default:
		logger.Error(op+" failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("internal error"))
	}
}
