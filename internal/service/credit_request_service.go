package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"crediflow-data/internal/domain"
	"crediflow-data/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreditRequestService 信贷申请服务：角色作用域列表 + 审计合并引擎
type CreditRequestService struct {
	requestsRepo repository.CreditRequestsRepository
	usersRepo    repository.UsersRepository
	events       EventPublisher
	notifier     Notifier
	logger       *zap.Logger
}

// NewCreditRequestService 创建信贷申请服务
func NewCreditRequestService(
	requestsRepo repository.CreditRequestsRepository,
	usersRepo repository.UsersRepository,
	events EventPublisher,
	notifier Notifier,
	logger *zap.Logger,
) *CreditRequestService {
	return &CreditRequestService{
		requestsRepo: requestsRepo,
		usersRepo:    usersRepo,
		events:       events,
		notifier:     notifier,
		logger:       logger,
	}
}

// ========== 列表查询 ==========

// ListCreditRequestsRequest 列表查询请求
type ListCreditRequestsRequest struct {
	TenantID int64
	ActorID  int64 // 发起查询的用户，作用域由其角色推导
	Status   string
	Page     int
	Size     int
}

// CreditRequestListItem 列表项（含补全的人员姓名）
type CreditRequestListItem struct {
	RequestID      int64           `json:"request_id"`
	ApplicantID    int64           `json:"applicant_id,omitempty"`
	CreditTypeID   int64           `json:"credit_type_id,omitempty"`
	Status         string          `json:"status"`
	Monto          float64         `json:"monto,omitempty"`
	Banco          string          `json:"banco,omitempty"`
	Ciudad         string          `json:"ciudad,omitempty"`
	CreatedBy      int64           `json:"created_by"`
	CreatedByName  string          `json:"created_by_name,omitempty"`
	SupervisorName string          `json:"supervisor_name,omitempty"`
	AssignedTo     int64           `json:"assigned_to,omitempty"`
	AssignedToName string          `json:"assigned_to_name,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	Atributos      json.RawMessage `json:"atributos,omitempty"`
}

// ListCreditRequestsResponse 列表查询响应
type ListCreditRequestsResponse struct {
	Items []CreditRequestListItem `json:"items"`
	Total int                     `json:"total"`
	Page  int                     `json:"page"`
	Size  int                     `json:"size"`
}

// ListCreditRequests 查询信贷申请列表
// 作用域由操作者角色推导（见 BuildRequestScope），在 SQL 层收窄结果集；
// 创建人/负责人/主管姓名补全走两次批量查询，调用次数与行数无关
func (s *CreditRequestService) ListCreditRequests(ctx context.Context, req ListCreditRequestsRequest) (*ListCreditRequestsResponse, error) {
	if req.TenantID <= 0 {
		return nil, fmt.Errorf("tenant_id is required: %w", ErrValidation)
	}
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.Size <= 0 || req.Size > 200 {
		req.Size = 20
	}

	actor, err := s.usersRepo.GetUser(ctx, req.TenantID, req.ActorID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve actor: %w", err)
	}

	scope, err := BuildRequestScope(ctx, actor, s.usersRepo)
	if err != nil {
		return nil, err
	}

	requests, total, err := s.requestsRepo.ListCreditRequests(ctx, req.TenantID,
		scope, repository.CreditRequestFilters{Status: req.Status}, req.Page, req.Size)
	if err != nil {
		return nil, err
	}

	items, err := s.enrichListItems(ctx, req.TenantID, requests)
	if err != nil {
		return nil, err
	}

	return &ListCreditRequestsResponse{
		Items: items,
		Total: total,
		Page:  req.Page,
		Size:  req.Size,
	}, nil
}

// enrichListItems 补全列表项的创建人/负责人姓名及创建人的主管姓名
func (s *CreditRequestService) enrichListItems(ctx context.Context, tenantID int64, requests []*domain.CreditRequest) ([]CreditRequestListItem, error) {
	idSet := map[int64]bool{}
	for _, r := range requests {
		idSet[r.CreatedBy] = true
		if r.AssignedTo.Valid {
			idSet[r.AssignedTo.Int64] = true
		}
	}
	ids := make([]int64, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}

	usersByID := map[int64]*domain.User{}
	if len(ids) > 0 {
		users, err := s.usersRepo.GetUsersByIDs(ctx, tenantID, ids)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve request actors: %w", err)
		}
		for _, u := range users {
			usersByID[u.UserID] = u
		}
	}

	// 第二批：创建人的主管（第一批未覆盖的才查）
	supSet := map[int64]bool{}
	for _, u := range usersByID {
		if u.SupervisorID.Valid && usersByID[u.SupervisorID.Int64] == nil {
			supSet[u.SupervisorID.Int64] = true
		}
	}
	if len(supSet) > 0 {
		supIDs := make([]int64, 0, len(supSet))
		for id := range supSet {
			supIDs = append(supIDs, id)
		}
		sups, err := s.usersRepo.GetUsersByIDs(ctx, tenantID, supIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve supervisors: %w", err)
		}
		for _, u := range sups {
			usersByID[u.UserID] = u
		}
	}

	items := make([]CreditRequestListItem, 0, len(requests))
	for _, r := range requests {
		item := CreditRequestListItem{
			RequestID: r.RequestID,
			Status:    r.Status,
			CreatedBy: r.CreatedBy,
			CreatedAt: r.CreatedAt,
			UpdatedAt: r.UpdatedAt,
			Atributos: r.Atributos,
		}
		if r.ApplicantID.Valid {
			item.ApplicantID = r.ApplicantID.Int64
		}
		if r.CreditTypeID.Valid {
			item.CreditTypeID = r.CreditTypeID.Int64
		}
		if r.Monto.Valid {
			item.Monto = r.Monto.Float64
		}
		if r.Banco.Valid {
			item.Banco = r.Banco.String
		}
		if r.Ciudad.Valid {
			item.Ciudad = r.Ciudad.String
		}
		if creator := usersByID[r.CreatedBy]; creator != nil {
			item.CreatedByName = creator.FullName
			if creator.SupervisorID.Valid {
				if sup := usersByID[creator.SupervisorID.Int64]; sup != nil {
					item.SupervisorName = sup.FullName
				}
			}
		}
		if r.AssignedTo.Valid {
			item.AssignedTo = r.AssignedTo.Int64
			if assignee := usersByID[r.AssignedTo.Int64]; assignee != nil {
				item.AssignedToName = assignee.FullName
			}
		}
		items = append(items, item)
	}
	return items, nil
}

// ========== 单个查询 ==========

// GetCreditRequest 按 request_id 获取申请（含 atributos 与完整 historial）
func (s *CreditRequestService) GetCreditRequest(ctx context.Context, tenantID, requestID int64) (*domain.CreditRequest, error) {
	if tenantID <= 0 {
		return nil, fmt.Errorf("tenant_id is required: %w", ErrValidation)
	}
	return s.requestsRepo.GetCreditRequest(ctx, tenantID, requestID)
}

// ========== 创建 ==========

// CreateCreditRequestRequest 创建请求
type CreateCreditRequestRequest struct {
	TenantID     int64
	ActorID      int64
	ActorRole    string
	ApplicantID  int64
	CreditTypeID int64
	Monto        float64
	Banco        string
	Ciudad       string
	Atributos    map[string]any
}

// CreateCreditRequest 创建信贷申请
// 初始状态 pendiente；historial 自带一条 creacion 条目
func (s *CreditRequestService) CreateCreditRequest(ctx context.Context, req CreateCreditRequestRequest) (int64, error) {
	if req.TenantID <= 0 {
		return 0, fmt.Errorf("tenant_id is required: %w", ErrValidation)
	}
	if req.ActorID <= 0 {
		return 0, fmt.Errorf("actor_id is required: %w", ErrValidation)
	}

	entry := newAuditEntry(req.ActorID, req.ActorRole, domain.AuditKindCreation)
	historial, err := json.Marshal([]domain.AuditEntry{entry})
	if err != nil {
		return 0, fmt.Errorf("failed to marshal historial: %w", err)
	}

	atributos := json.RawMessage("{}")
	if req.Atributos != nil {
		raw, err := json.Marshal(req.Atributos)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal atributos: %w", err)
		}
		atributos = raw
	}

	request := &domain.CreditRequest{
		TenantID:  req.TenantID,
		Status:    domain.CreditStatusPending,
		CreatedBy: req.ActorID,
		Atributos: atributos,
		Historial: historial,
	}
	if req.ApplicantID > 0 {
		request.ApplicantID.Int64, request.ApplicantID.Valid = req.ApplicantID, true
	}
	if req.CreditTypeID > 0 {
		request.CreditTypeID.Int64, request.CreditTypeID.Valid = req.CreditTypeID, true
	}
	if req.Monto > 0 {
		request.Monto.Float64, request.Monto.Valid = req.Monto, true
	}
	if req.Banco != "" {
		request.Banco.String, request.Banco.Valid = req.Banco, true
	}
	if req.Ciudad != "" {
		request.Ciudad.String, request.Ciudad.Valid = req.Ciudad, true
	}

	requestID, err := s.requestsRepo.CreateCreditRequest(ctx, req.TenantID, request)
	if err != nil {
		return 0, err
	}

	s.logger.Info("Credit request created",
		zap.Int64("tenant_id", req.TenantID),
		zap.Int64("request_id", requestID),
		zap.Int64("actor_id", req.ActorID),
	)
	return requestID, nil
}

// ========== 审计合并更新 ==========

// UpdateWithAuditRequest 带审计的更新请求
type UpdateWithAuditRequest struct {
	TenantID  int64
	RequestID int64
	ActorID   int64
	ActorRole string

	// 固定列（nil = 不更新）
	Status     *string
	Monto      *float64
	Banco      *string
	Ciudad     *string
	AssignedTo *int64

	// Atributos 递归深合并：只更新提交的嵌套块，兄弟块保留
	Atributos map[string]any

	// Note 备注：状态变更时并入 cambio_estado 条目，否则单独成 comentario 条目
	Note string
}

// UpdateWithAudit 更新申请并追加审计
// 单次更新产出至多一条审计条目：状态变更生成 cambio_estado（并入备注），
// 仅有备注生成 comentario，其余变更不产出条目
// 审计与数据落在同一行的同一次 UPDATE；事件与通知在落库后尽力发出，失败只记日志
func (s *CreditRequestService) UpdateWithAudit(ctx context.Context, req UpdateWithAuditRequest) (*domain.CreditRequest, error) {
	if req.TenantID <= 0 {
		return nil, fmt.Errorf("tenant_id is required: %w", ErrValidation)
	}
	if req.Status != nil && !validCreditStatus(*req.Status) {
		return nil, fmt.Errorf("unknown status %q: %w", *req.Status, ErrValidation)
	}

	current, err := s.requestsRepo.GetCreditRequest(ctx, req.TenantID, req.RequestID)
	if err != nil {
		return nil, err
	}

	upd := domain.CreditRequestUpdate{
		Monto:      req.Monto,
		Banco:      req.Banco,
		Ciudad:     req.Ciudad,
		AssignedTo: req.AssignedTo,
	}

	// 深合并 atributos（读-改-写；并发覆盖风险见 DynamicColumnsRepository 说明）
	if req.Atributos != nil {
		stored := map[string]any{}
		if len(current.Atributos) > 0 && string(current.Atributos) != "null" {
			if err := json.Unmarshal(current.Atributos, &stored); err != nil {
				return nil, fmt.Errorf("stored atributos is not an object: %w", err)
			}
		}
		merged, err := json.Marshal(DeepMerge(stored, req.Atributos))
		if err != nil {
			return nil, fmt.Errorf("failed to marshal atributos: %w", err)
		}
		upd.Atributos = merged
	}

	// 状态迁移与审计条目
	previousState := current.Status
	stateChanged := req.Status != nil && *req.Status != previousState
	if stateChanged {
		upd.Status = req.Status
	}

	var entry *domain.AuditEntry
	switch {
	case stateChanged:
		e := newAuditEntry(req.ActorID, req.ActorRole, domain.AuditKindStateChange)
		e.PreviousState = previousState
		e.NewState = *req.Status
		// 无备注时生成默认描述，保证状态迁移条目可读
		e.Note = req.Note
		if e.Note == "" {
			e.Note = fmt.Sprintf("estado cambiado de %s a %s", previousState, *req.Status)
		}
		entry = &e
	case req.Note != "":
		e := newAuditEntry(req.ActorID, req.ActorRole, domain.AuditKindComment)
		e.Note = req.Note
		entry = &e
	}

	if entry != nil {
		historial, err := appendHistorial(current.Historial, *entry)
		if err != nil {
			return nil, err
		}
		upd.Historial = historial
	}

	if err := s.requestsRepo.UpdateCreditRequest(ctx, req.TenantID, req.RequestID, upd); err != nil {
		return nil, err
	}

	if stateChanged {
		s.publishStateChange(ctx, req, previousState, current)
	}

	return s.requestsRepo.GetCreditRequest(ctx, req.TenantID, req.RequestID)
}

// AppendAuditEntryRequest 追加审计条目请求
type AppendAuditEntryRequest struct {
	TenantID  int64
	RequestID int64
	ActorID   int64
	ActorRole string
	Kind      string
	Note      string
}

// AppendAuditEntry 向 historial 追加一条独立审计条目（不改数据列）
// kind 限定 comentario：creacion/cambio_estado 只能由创建与状态迁移自动产出
func (s *CreditRequestService) AppendAuditEntry(ctx context.Context, req AppendAuditEntryRequest) (*domain.AuditEntry, error) {
	if req.TenantID <= 0 {
		return nil, fmt.Errorf("tenant_id is required: %w", ErrValidation)
	}
	if req.Kind != domain.AuditKindComment {
		return nil, fmt.Errorf("audit kind %q cannot be appended directly: %w", req.Kind, ErrValidation)
	}
	if req.Note == "" {
		return nil, fmt.Errorf("note is required: %w", ErrValidation)
	}

	current, err := s.requestsRepo.GetCreditRequest(ctx, req.TenantID, req.RequestID)
	if err != nil {
		return nil, err
	}

	entry := newAuditEntry(req.ActorID, req.ActorRole, domain.AuditKindComment)
	entry.Note = req.Note

	historial, err := appendHistorial(current.Historial, entry)
	if err != nil {
		return nil, err
	}
	if err := s.requestsRepo.UpdateCreditRequest(ctx, req.TenantID, req.RequestID,
		domain.CreditRequestUpdate{Historial: historial}); err != nil {
		return nil, err
	}
	return &entry, nil
}

// publishStateChange 落库后的尽力副作用：流事件 + 邮件通知
func (s *CreditRequestService) publishStateChange(ctx context.Context, req UpdateWithAuditRequest, previousState string, current *domain.CreditRequest) {
	event := StateChangeEvent{
		TenantID:      req.TenantID,
		RequestID:     req.RequestID,
		PreviousState: previousState,
		NewState:      *req.Status,
		ActorID:       req.ActorID,
		ActorRole:     req.ActorRole,
	}
	if err := s.events.PublishStateChange(ctx, event); err != nil {
		s.logger.Warn("Failed to publish state change event",
			zap.Int64("request_id", req.RequestID),
			zap.Error(err),
		)
	}

	notification := StateChangeNotification{
		TenantID:      req.TenantID,
		RequestID:     req.RequestID,
		PreviousState: previousState,
		NewState:      *req.Status,
		Note:          req.Note,
	}
	if req.AssignedTo != nil {
		notification.AssignedTo = *req.AssignedTo
	} else if current.AssignedTo.Valid {
		notification.AssignedTo = current.AssignedTo.Int64
	}
	if err := s.notifier.NotifyStateChange(ctx, notification); err != nil {
		s.logger.Warn("Failed to send state change notification",
			zap.Int64("request_id", req.RequestID),
			zap.Error(err),
		)
	}
}

// newAuditEntry 构造审计条目（UUID + RFC3339 时间戳）
func newAuditEntry(actorID int64, actorRole, kind string) domain.AuditEntry {
	return domain.AuditEntry{
		ID:        uuid.New().String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		ActorID:   actorID,
		ActorRole: actorRole,
		Kind:      kind,
	}
}

// appendHistorial 解析存量 historial 数组并追加一条；存量非法时报错而不是吞掉
func appendHistorial(stored json.RawMessage, entry domain.AuditEntry) (json.RawMessage, error) {
	entries := []domain.AuditEntry{}
	if len(stored) > 0 && string(stored) != "null" {
		if err := json.Unmarshal(stored, &entries); err != nil {
			return nil, fmt.Errorf("stored historial is not an array: %w", err)
		}
	}
	entries = append(entries, entry)
	raw, err := json.Marshal(entries)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal historial: %w", err)
	}
	return raw, nil
}

func validCreditStatus(status string) bool {
	switch status {
	case domain.CreditStatusPending, domain.CreditStatusStudy, domain.CreditStatusApproved,
		domain.CreditStatusRejected, domain.CreditStatusDisbursed:
		return true
	}
	return false
}
