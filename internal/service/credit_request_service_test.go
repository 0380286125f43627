package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"

	"crediflow-data/internal/domain"
	"crediflow-data/internal/repository"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// capturingEventPublisher 记录发布的事件（测试用）
type capturingEventPublisher struct {
	events []StateChangeEvent
}

func (p *capturingEventPublisher) PublishStateChange(_ context.Context, event StateChangeEvent) error {
	p.events = append(p.events, event)
	return nil
}

func newTestCreditRequestService() (*CreditRequestService, *repository.MemoryCreditRequestsRepository, *repository.MemoryUsersRepository, *capturingEventPublisher) {
	requests := repository.NewMemoryCreditRequestsRepository()
	users := repository.NewMemoryUsersRepository()
	events := &capturingEventPublisher{}
	svc := NewCreditRequestService(requests, users, events, NoopNotifier{}, zap.NewNop())
	return svc, requests, users, events
}

func decodeHistorial(t *testing.T, raw json.RawMessage) []domain.AuditEntry {
	t.Helper()
	entries := []domain.AuditEntry{}
	require.NoError(t, json.Unmarshal(raw, &entries))
	return entries
}

func TestCreateCreditRequest_WritesCreationEntry(t *testing.T) {
	svc, _, _, _ := newTestCreditRequestService()
	ctx := context.Background()

	requestID, err := svc.CreateCreditRequest(ctx, CreateCreditRequestRequest{
		TenantID:  7,
		ActorID:   5,
		ActorRole: domain.RoleCodeAnalyst,
		Monto:     25000000,
		Banco:     "Banco Andino",
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), requestID)

	request, err := svc.GetCreditRequest(ctx, 7, requestID)
	require.NoError(t, err)
	require.Equal(t, domain.CreditStatusPending, request.Status)

	entries := decodeHistorial(t, request.Historial)
	require.Len(t, entries, 1)
	require.Equal(t, domain.AuditKindCreation, entries[0].Kind)
	require.Equal(t, int64(5), entries[0].ActorID)
	require.NotEmpty(t, entries[0].ID)
	require.NotEmpty(t, entries[0].Timestamp)
}

func TestUpdateWithAudit_StateChangeAppendsEntryAndPublishes(t *testing.T) {
	svc, _, _, events := newTestCreditRequestService()
	ctx := context.Background()

	requestID, err := svc.CreateCreditRequest(ctx, CreateCreditRequestRequest{
		TenantID:  7,
		ActorID:   5,
		ActorRole: domain.RoleCodeAnalyst,
	})
	require.NoError(t, err)

	status := domain.CreditStatusStudy
	request, err := svc.UpdateWithAudit(ctx, UpdateWithAuditRequest{
		TenantID:  7,
		RequestID: requestID,
		ActorID:   10,
		ActorRole: domain.RoleCodeSupervisor,
		Status:    &status,
		Note:      "pasa a estudio",
	})
	require.NoError(t, err)
	require.Equal(t, domain.CreditStatusStudy, request.Status)

	entries := decodeHistorial(t, request.Historial)
	require.Len(t, entries, 2)
	last := entries[1]
	require.Equal(t, domain.AuditKindStateChange, last.Kind)
	require.Equal(t, domain.CreditStatusPending, last.PreviousState)
	require.Equal(t, domain.CreditStatusStudy, last.NewState)
	require.Equal(t, "pasa a estudio", last.Note)

	require.Len(t, events.events, 1)
	require.Equal(t, domain.CreditStatusPending, events.events[0].PreviousState)
	require.Equal(t, domain.CreditStatusStudy, events.events[0].NewState)
}

func TestUpdateWithAudit_StateChangeWithoutNoteGetsDefaultMessage(t *testing.T) {
	svc, _, _, _ := newTestCreditRequestService()
	ctx := context.Background()

	requestID, err := svc.CreateCreditRequest(ctx, CreateCreditRequestRequest{
		TenantID: 7, ActorID: 5, ActorRole: domain.RoleCodeAnalyst,
	})
	require.NoError(t, err)

	status := domain.CreditStatusStudy
	request, err := svc.UpdateWithAudit(ctx, UpdateWithAuditRequest{
		TenantID:  7,
		RequestID: requestID,
		ActorID:   10,
		ActorRole: domain.RoleCodeSupervisor,
		Status:    &status,
	})
	require.NoError(t, err)

	entries := decodeHistorial(t, request.Historial)
	require.Len(t, entries, 2)
	last := entries[1]
	require.Equal(t, domain.AuditKindStateChange, last.Kind)
	require.Equal(t, "estado cambiado de pendiente a en_estudio", last.Note)
}

func TestUpdateWithAudit_SameStatusIsNotAStateChange(t *testing.T) {
	svc, _, _, events := newTestCreditRequestService()
	ctx := context.Background()

	requestID, err := svc.CreateCreditRequest(ctx, CreateCreditRequestRequest{
		TenantID: 7, ActorID: 5, ActorRole: domain.RoleCodeAnalyst,
	})
	require.NoError(t, err)

	status := domain.CreditStatusPending
	request, err := svc.UpdateWithAudit(ctx, UpdateWithAuditRequest{
		TenantID:  7,
		RequestID: requestID,
		ActorID:   5,
		ActorRole: domain.RoleCodeAnalyst,
		Status:    &status,
	})
	require.NoError(t, err)

	entries := decodeHistorial(t, request.Historial)
	require.Len(t, entries, 1) // 只有 creacion
	require.Empty(t, events.events)
}

func TestUpdateWithAudit_NoteOnlyAppendsComment(t *testing.T) {
	svc, _, _, events := newTestCreditRequestService()
	ctx := context.Background()

	requestID, err := svc.CreateCreditRequest(ctx, CreateCreditRequestRequest{
		TenantID: 7, ActorID: 5, ActorRole: domain.RoleCodeAnalyst,
	})
	require.NoError(t, err)

	request, err := svc.UpdateWithAudit(ctx, UpdateWithAuditRequest{
		TenantID:  7,
		RequestID: requestID,
		ActorID:   5,
		ActorRole: domain.RoleCodeAnalyst,
		Note:      "cliente aportó certificado laboral",
	})
	require.NoError(t, err)

	entries := decodeHistorial(t, request.Historial)
	require.Len(t, entries, 2)
	require.Equal(t, domain.AuditKindComment, entries[1].Kind)
	require.Equal(t, "cliente aportó certificado laboral", entries[1].Note)
	require.Empty(t, events.events)
}

func TestUpdateWithAudit_DeepMergesAtributos(t *testing.T) {
	svc, _, _, _ := newTestCreditRequestService()
	ctx := context.Background()

	requestID, err := svc.CreateCreditRequest(ctx, CreateCreditRequestRequest{
		TenantID:  7,
		ActorID:   5,
		ActorRole: domain.RoleCodeAnalyst,
		Atributos: map[string]any{
			"vivienda": map[string]any{"valor_inmueble": 300, "cuota_inicial": 60},
			"vehiculo": map[string]any{"placa": "ABC123"},
		},
	})
	require.NoError(t, err)

	request, err := svc.UpdateWithAudit(ctx, UpdateWithAuditRequest{
		TenantID:  7,
		RequestID: requestID,
		ActorID:   5,
		ActorRole: domain.RoleCodeAnalyst,
		Atributos: map[string]any{
			"vivienda": map[string]any{"valor_inmueble": 350},
		},
	})
	require.NoError(t, err)

	atributos := map[string]any{}
	require.NoError(t, json.Unmarshal(request.Atributos, &atributos))

	vivienda := atributos["vivienda"].(map[string]any)
	require.Equal(t, float64(350), vivienda["valor_inmueble"])
	require.Equal(t, float64(60), vivienda["cuota_inicial"]) // 嵌套兄弟 key 保留
	require.Contains(t, atributos, "vehiculo")               // 兄弟块保留
}

func TestUpdateWithAudit_UnknownStatusRejected(t *testing.T) {
	svc, _, _, _ := newTestCreditRequestService()
	ctx := context.Background()

	requestID, err := svc.CreateCreditRequest(ctx, CreateCreditRequestRequest{
		TenantID: 7, ActorID: 5, ActorRole: domain.RoleCodeAnalyst,
	})
	require.NoError(t, err)

	status := "archivada"
	_, err = svc.UpdateWithAudit(ctx, UpdateWithAuditRequest{
		TenantID:  7,
		RequestID: requestID,
		ActorID:   5,
		ActorRole: domain.RoleCodeAnalyst,
		Status:    &status,
	})
	require.ErrorIs(t, err, ErrValidation)
}

func TestAppendAuditEntry_OnlyCommentsAllowed(t *testing.T) {
	svc, _, _, _ := newTestCreditRequestService()
	ctx := context.Background()

	requestID, err := svc.CreateCreditRequest(ctx, CreateCreditRequestRequest{
		TenantID: 7, ActorID: 5, ActorRole: domain.RoleCodeAnalyst,
	})
	require.NoError(t, err)

	entry, err := svc.AppendAuditEntry(ctx, AppendAuditEntryRequest{
		TenantID:  7,
		RequestID: requestID,
		ActorID:   5,
		ActorRole: domain.RoleCodeAnalyst,
		Kind:      domain.AuditKindComment,
		Note:      "llamada de seguimiento",
	})
	require.NoError(t, err)
	require.Equal(t, domain.AuditKindComment, entry.Kind)

	_, err = svc.AppendAuditEntry(ctx, AppendAuditEntryRequest{
		TenantID:  7,
		RequestID: requestID,
		ActorID:   5,
		ActorRole: domain.RoleCodeAnalyst,
		Kind:      domain.AuditKindStateChange,
		Note:      "no permitido",
	})
	require.ErrorIs(t, err, ErrValidation)
}

func TestListCreditRequests_AnalystScopedToOwn(t *testing.T) {
	svc, _, users, _ := newTestCreditRequestService()
	ctx := context.Background()

	analyst := testUser(5, domain.RoleCodeAnalyst)
	users.PutUser(analyst)
	colleague := testUser(6, domain.RoleCodeAnalyst)
	users.PutUser(colleague)

	for _, actorID := range []int64{5, 5, 6} {
		_, err := svc.CreateCreditRequest(ctx, CreateCreditRequestRequest{
			TenantID: 7, ActorID: actorID, ActorRole: domain.RoleCodeAnalyst,
		})
		require.NoError(t, err)
	}

	resp, err := svc.ListCreditRequests(ctx, ListCreditRequestsRequest{
		TenantID: 7,
		ActorID:  5,
	})
	require.NoError(t, err)
	require.Equal(t, 2, resp.Total)
	for _, item := range resp.Items {
		require.Equal(t, int64(5), item.CreatedBy)
	}
}

func TestListCreditRequests_EnrichesNames(t *testing.T) {
	svc, _, users, _ := newTestCreditRequestService()
	ctx := context.Background()

	supervisor := testUser(10, domain.RoleCodeSupervisor)
	supervisor.FullName = "Marta Ruiz"
	users.PutUser(supervisor)

	analyst := testUser(5, domain.RoleCodeAnalyst)
	analyst.FullName = "Carlos Gómez"
	analyst.SupervisorID = sql.NullInt64{Int64: 10, Valid: true}
	users.PutUser(analyst)

	_, err := svc.CreateCreditRequest(ctx, CreateCreditRequestRequest{
		TenantID: 7, ActorID: 5, ActorRole: domain.RoleCodeAnalyst,
	})
	require.NoError(t, err)

	resp, err := svc.ListCreditRequests(ctx, ListCreditRequestsRequest{
		TenantID: 7,
		ActorID:  10, // 主管查询：作用域含下属
	})
	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	require.Equal(t, "Carlos Gómez", resp.Items[0].CreatedByName)
	require.Equal(t, "Marta Ruiz", resp.Items[0].SupervisorName)
}

func TestListCreditRequests_BankWithoutInstitutionGetsEmptyList(t *testing.T) {
	svc, _, users, _ := newTestCreditRequestService()
	ctx := context.Background()

	bank := testUser(3, domain.RoleCodeBank)
	users.PutUser(bank)

	analyst := testUser(5, domain.RoleCodeAnalyst)
	users.PutUser(analyst)
	_, err := svc.CreateCreditRequest(ctx, CreateCreditRequestRequest{
		TenantID: 7, ActorID: 5, ActorRole: domain.RoleCodeAnalyst, Banco: "Banco Andino",
	})
	require.NoError(t, err)

	resp, err := svc.ListCreditRequests(ctx, ListCreditRequestsRequest{
		TenantID: 7,
		ActorID:  3,
	})
	require.NoError(t, err)
	require.Equal(t, 0, resp.Total)
	require.Empty(t, resp.Items)
}
