package service

import (
	"context"
	"testing"

	"crediflow-data/internal/domain"
	"crediflow-data/internal/repository"
	"crediflow-data/internal/store"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestDocFieldService() (*DocFieldService, *repository.MemoryDynamicColumnsRepository, *CatalogService) {
	records := repository.NewMemoryDynamicColumnsRepository()
	catalog := NewCatalogService(repository.NewMemoryFieldCatalogRepository(), store.NewMemoryKV(), zap.NewNop())
	return NewDocFieldService(records, catalog, zap.NewNop()), records, catalog
}

func TestDocField_MergeAndReadRoundTrip(t *testing.T) {
	svc, records, _ := newTestDocFieldService()
	ctx := context.Background()
	records.SeedRecord(7, domain.EntityApplicant, 42)

	err := svc.Merge(ctx, MergeFieldRequest{
		TenantID: 7,
		Entity:   domain.EntityApplicant,
		Column:   "extra",
		RecordID: 42,
		Path:     "estado_civil",
		Value:    "casado",
	})
	require.NoError(t, err)

	resp, err := svc.Read(ctx, ReadFieldRequest{
		TenantID: 7,
		Entity:   domain.EntityApplicant,
		Column:   "extra",
		RecordID: 42,
		Path:     "estado_civil",
	})
	require.NoError(t, err)
	require.True(t, resp.Present)
	require.Equal(t, "casado", resp.Value)
}

func TestDocField_WholeMapMergePreservesUnmentionedKeys(t *testing.T) {
	svc, records, _ := newTestDocFieldService()
	ctx := context.Background()
	records.SeedRecord(7, domain.EntityApplicant, 42)

	err := svc.Merge(ctx, MergeFieldRequest{
		TenantID: 7,
		Entity:   domain.EntityApplicant,
		Column:   "extra",
		RecordID: 42,
		Value:    map[string]any{"a": "uno", "b": "dos"},
	})
	require.NoError(t, err)

	err = svc.Merge(ctx, MergeFieldRequest{
		TenantID: 7,
		Entity:   domain.EntityApplicant,
		Column:   "extra",
		RecordID: 42,
		Value:    map[string]any{"b": "actualizado"},
	})
	require.NoError(t, err)

	resp, err := svc.Read(ctx, ReadFieldRequest{
		TenantID: 7,
		Entity:   domain.EntityApplicant,
		Column:   "extra",
		RecordID: 42,
	})
	require.NoError(t, err)
	stored := resp.Value.(map[string]any)
	require.Equal(t, "uno", stored["a"])
	require.Equal(t, "actualizado", stored["b"])
}

func TestDocField_WholeMapMergeRequiresObject(t *testing.T) {
	svc, records, _ := newTestDocFieldService()
	records.SeedRecord(7, domain.EntityApplicant, 42)

	err := svc.Merge(context.Background(), MergeFieldRequest{
		TenantID: 7,
		Entity:   domain.EntityApplicant,
		Column:   "extra",
		RecordID: 42,
		Value:    "not an object",
	})
	require.ErrorIs(t, err, ErrValidation)
}

func TestDocField_MultiSegmentPathRejected(t *testing.T) {
	svc, records, _ := newTestDocFieldService()
	ctx := context.Background()
	records.SeedRecord(7, domain.EntityApplicant, 42)

	_, err := svc.Read(ctx, ReadFieldRequest{
		TenantID: 7,
		Entity:   domain.EntityApplicant,
		Column:   "extra",
		RecordID: 42,
		Path:     "direccion.ciudad",
	})
	require.ErrorIs(t, err, ErrInvalidPath)

	err = svc.Merge(ctx, MergeFieldRequest{
		TenantID: 7,
		Entity:   domain.EntityApplicant,
		Column:   "extra",
		RecordID: 42,
		Path:     "direccion.ciudad",
		Value:    "Bogotá",
	})
	require.ErrorIs(t, err, ErrInvalidPath)
}

func TestDocField_AbsentKeyIsNotAnError(t *testing.T) {
	svc, records, _ := newTestDocFieldService()
	records.SeedRecord(7, domain.EntityApplicant, 42)

	resp, err := svc.Read(context.Background(), ReadFieldRequest{
		TenantID: 7,
		Entity:   domain.EntityApplicant,
		Column:   "extra",
		RecordID: 42,
		Path:     "no_existe",
	})
	require.NoError(t, err)
	require.False(t, resp.Present)
	require.Nil(t, resp.Value)
}

func TestDocField_MissingRecordIsNotFound(t *testing.T) {
	svc, _, _ := newTestDocFieldService()

	_, err := svc.Read(context.Background(), ReadFieldRequest{
		TenantID: 7,
		Entity:   domain.EntityApplicant,
		Column:   "extra",
		RecordID: 9999,
	})
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestDocField_DeleteIsIdempotent(t *testing.T) {
	svc, records, _ := newTestDocFieldService()
	ctx := context.Background()
	records.SeedRecord(7, domain.EntityApplicant, 42)

	err := svc.Merge(ctx, MergeFieldRequest{
		TenantID: 7,
		Entity:   domain.EntityApplicant,
		Column:   "extra",
		RecordID: 42,
		Value:    map[string]any{"a": 1, "b": 2},
	})
	require.NoError(t, err)

	del := DeleteFieldRequest{
		TenantID: 7,
		Entity:   domain.EntityApplicant,
		Column:   "extra",
		RecordID: 42,
		Path:     "a",
	}
	require.NoError(t, svc.Delete(ctx, del))
	// 再删一次：key 已不存在，不报错
	require.NoError(t, svc.Delete(ctx, del))

	resp, err := svc.Read(ctx, ReadFieldRequest{
		TenantID: 7,
		Entity:   domain.EntityApplicant,
		Column:   "extra",
		RecordID: 42,
	})
	require.NoError(t, err)
	stored := resp.Value.(map[string]any)
	require.NotContains(t, stored, "a")
	require.Contains(t, stored, "b")
}

func TestDocField_DeleteRequiresPath(t *testing.T) {
	svc, records, _ := newTestDocFieldService()
	records.SeedRecord(7, domain.EntityApplicant, 42)

	err := svc.Delete(context.Background(), DeleteFieldRequest{
		TenantID: 7,
		Entity:   domain.EntityApplicant,
		Column:   "extra",
		RecordID: 42,
	})
	require.ErrorIs(t, err, ErrInvalidPath)
}

func TestDocField_ValidateAgainstCatalog(t *testing.T) {
	svc, records, catalog := newTestDocFieldService()
	ctx := context.Background()
	records.SeedRecord(7, domain.EntityApplicant, 42)

	err := catalog.UpsertDefinitions(ctx, UpsertDefinitionsRequest{
		TenantID: 7,
		Entity:   domain.EntityApplicant,
		Column:   "extra",
		Items:    []DefinitionItem{{Key: "estado_civil", Type: "select"}},
	})
	require.NoError(t, err)

	// 目录内的 key 通过
	err = svc.Merge(ctx, MergeFieldRequest{
		TenantID: 7,
		Entity:   domain.EntityApplicant,
		Column:   "extra",
		RecordID: 42,
		Path:     "estado_civil",
		Value:    "soltero",
		Validate: true,
	})
	require.NoError(t, err)

	// 目录外的 key 被拒
	err = svc.Merge(ctx, MergeFieldRequest{
		TenantID: 7,
		Entity:   domain.EntityApplicant,
		Column:   "extra",
		RecordID: 42,
		Path:     "no_definido",
		Value:    "x",
		Validate: true,
	})
	require.ErrorIs(t, err, ErrUnknownField)
}

func TestDocField_UnknownColumnRejected(t *testing.T) {
	svc, _, _ := newTestDocFieldService()

	_, err := svc.Read(context.Background(), ReadFieldRequest{
		TenantID: 7,
		Entity:   domain.EntityApplicant,
		Column:   "atributos", // credit_requests 的列，不属于 applicant
		RecordID: 42,
	})
	require.ErrorIs(t, err, ErrValidation)
}
