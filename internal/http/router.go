package httpapi

import (
	"net/http"

	"go.uber.org/zap"
)

// Router 使用标准库 http.ServeMux（避免引入第三方路由依赖）
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

// HandleHandler 支持 http.Handler 接口（用于 pprof 等）
func (r *Router) HandleHandler(pattern string, h http.Handler) {
	r.mux.Handle(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterCatalogRoutes 注册字段定义目录路由
func (r *Router) RegisterCatalogRoutes(h *CatalogHandler) {
	r.Handle("/data/api/v1/schema/", h.ServeSchema)
	r.Handle("/data/api/v1/definitions/", h.ServeDefinitions)
}

// RegisterRecordRoutes 注册记录动态属性路由（文档字段 + 子文档集合）
func (r *Router) RegisterRecordRoutes(h *RecordsHandler) {
	r.Handle("/data/api/v1/records/", h.ServeHTTP)
}

// RegisterCreditRequestRoutes 注册信贷申请路由
func (r *Router) RegisterCreditRequestRoutes(h *CreditRequestHandler) {
	r.Handle("/data/api/v1/credit-requests", h.ServeHTTP)
	r.Handle("/data/api/v1/credit-requests/", h.ServeHTTP)
}

// RegisterAdminTenantRoutes 注册租户管理路由（平台级）
func (r *Router) RegisterAdminTenantRoutes(h *TenantsHandler) {
	r.Handle("/admin/api/v1/tenants", h.ServeHTTP)
	r.Handle("/admin/api/v1/tenants/", h.ServeHTTP)
}

// RegisterHealthRoute 健康检查
func (r *Router) RegisterHealthRoute() {
	r.Handle("/healthz", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, Ok(map[string]any{"status": "up"}))
	})
}
