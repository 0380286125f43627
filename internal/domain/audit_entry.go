package domain

// 审计条目类型
const (
	AuditKindCreation    = "creacion"      // 创建
	AuditKindStateChange = "cambio_estado" // 状态变更
	AuditKindComment     = "comentario"    // 备注
)

// AuditEntry 审计条目（credit_requests.historial JSONB 数组的元素）
// 不可变：只追加，不编辑、不删除；顺序即插入顺序
type AuditEntry struct {
	ID            string `json:"id"`        // UUID
	Timestamp     string `json:"timestamp"` // RFC3339
	ActorID       int64  `json:"actor_id"`
	ActorRole     string `json:"actor_role"`
	Kind          string `json:"kind"` // creacion/cambio_estado/comentario
	PreviousState string `json:"previous_state,omitempty"`
	NewState      string `json:"new_state,omitempty"`
	Note          string `json:"note,omitempty"`
}
