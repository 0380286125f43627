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

func newTestCatalogService() *CatalogService {
	return NewCatalogService(repository.NewMemoryFieldCatalogRepository(), store.NewMemoryKV(), zap.NewNop())
}

func TestUpsertDefinitions_Idempotent(t *testing.T) {
	svc := newTestCatalogService()
	ctx := context.Background()

	req := UpsertDefinitionsRequest{
		TenantID: 7,
		Entity:   domain.EntityApplicant,
		Column:   "extra",
		Items: []DefinitionItem{
			{Key: "estado_civil", Type: "select"},
			{Key: "telefono_alterno", Type: "text"},
		},
	}

	require.NoError(t, svc.UpsertDefinitions(ctx, req))
	// 重复提交同一组定义：每个 key 仍只有一份
	require.NoError(t, svc.UpsertDefinitions(ctx, req))

	items, err := svc.GetDefinitions(ctx, 7, domain.EntityApplicant, "extra")
	require.NoError(t, err)
	require.Len(t, items, 2)
}

func TestUpsertDefinitions_RequiresKey(t *testing.T) {
	svc := newTestCatalogService()

	err := svc.UpsertDefinitions(context.Background(), UpsertDefinitionsRequest{
		TenantID: 7,
		Entity:   domain.EntityApplicant,
		Column:   "extra",
		Items:    []DefinitionItem{{Key: "  ", Type: "text"}},
	})
	require.ErrorIs(t, err, ErrValidation)
}

func TestUpsertDefinitions_UnknownTypeAccepted(t *testing.T) {
	// 未知 type 按不透明字符串接受（向前兼容）
	svc := newTestCatalogService()
	ctx := context.Background()

	err := svc.UpsertDefinitions(ctx, UpsertDefinitionsRequest{
		TenantID: 7,
		Entity:   domain.EntityApplicant,
		Column:   "extra",
		Items:    []DefinitionItem{{Key: "firma", Type: "signature-pad"}},
	})
	require.NoError(t, err)

	items, err := svc.GetDefinitions(ctx, 7, domain.EntityApplicant, "extra")
	require.NoError(t, err)
	require.Equal(t, "signature-pad", items[0].Type)
}

func TestGetDefinitions_Ordering(t *testing.T) {
	svc := newTestCatalogService()
	ctx := context.Background()

	two, five := 2, 5
	embedded := 1
	err := svc.UpsertDefinitions(ctx, UpsertDefinitionsRequest{
		TenantID: 7,
		Entity:   domain.EntityApplicant,
		Column:   "extra",
		Items: []DefinitionItem{
			{Key: "zz_sin_orden", Type: "text"},
			{Key: "aa_sin_orden", Type: "text"},
			{Key: "quinto", Type: "text", OrderIndex: &five},
			{Key: "segundo", Type: "text", OrderIndex: &two},
			{Key: "embebido", Type: "select", AllowedValues: &domain.AllowedValues{
				Values:     []string{"a", "b"},
				OrderIndex: &embedded,
			}},
		},
	})
	require.NoError(t, err)

	items, err := svc.GetDefinitions(ctx, 7, domain.EntityApplicant, "extra")
	require.NoError(t, err)

	keys := make([]string, 0, len(items))
	for _, item := range items {
		keys = append(keys, item.Key)
	}
	// 自身 order_index > 内嵌 order_index > 无序（组内按 key 稳定排序）
	require.Equal(t, []string{"embebido", "segundo", "quinto", "aa_sin_orden", "zz_sin_orden"}, keys)
}

func TestDeleteDefinitions_SingleKeyAndAll(t *testing.T) {
	svc := newTestCatalogService()
	ctx := context.Background()

	err := svc.UpsertDefinitions(ctx, UpsertDefinitionsRequest{
		TenantID: 7,
		Entity:   domain.EntityApplicant,
		Column:   "extra",
		Items: []DefinitionItem{
			{Key: "uno", Type: "text"},
			{Key: "dos", Type: "text"},
			{Key: "tres", Type: "text"},
		},
	})
	require.NoError(t, err)

	n, err := svc.DeleteDefinitions(ctx, 7, domain.EntityApplicant, "extra", "dos")
	require.NoError(t, err)
	require.Equal(t, 1, n)

	items, err := svc.GetDefinitions(ctx, 7, domain.EntityApplicant, "extra")
	require.NoError(t, err)
	require.Len(t, items, 2)

	n, err = svc.DeleteDefinitions(ctx, 7, domain.EntityApplicant, "extra", "")
	require.NoError(t, err)
	require.Equal(t, 2, n)

	items, err = svc.GetDefinitions(ctx, 7, domain.EntityApplicant, "extra")
	require.NoError(t, err)
	require.Empty(t, items)
}

func TestCatalog_TenantIsolation(t *testing.T) {
	svc := newTestCatalogService()
	ctx := context.Background()

	err := svc.UpsertDefinitions(ctx, UpsertDefinitionsRequest{
		TenantID: 7,
		Entity:   domain.EntityApplicant,
		Column:   "extra",
		Items:    []DefinitionItem{{Key: "solo_tenant_7", Type: "text"}},
	})
	require.NoError(t, err)

	items, err := svc.GetDefinitions(ctx, 8, domain.EntityApplicant, "extra")
	require.NoError(t, err)
	require.Empty(t, items)
}

func TestCatalog_UnknownEntityRejected(t *testing.T) {
	svc := newTestCatalogService()

	_, err := svc.GetDefinitions(context.Background(), 7, domain.EntityKind("vehicle"), "extra")
	require.ErrorIs(t, err, ErrValidation)
}

func TestCatalog_CacheInvalidatedOnUpsert(t *testing.T) {
	svc := newTestCatalogService()
	ctx := context.Background()

	first := UpsertDefinitionsRequest{
		TenantID: 7,
		Entity:   domain.EntityApplicant,
		Column:   "extra",
		Items:    []DefinitionItem{{Key: "uno", Type: "text"}},
	}
	require.NoError(t, svc.UpsertDefinitions(ctx, first))

	// 预热缓存
	_, err := svc.GetDefinitions(ctx, 7, domain.EntityApplicant, "extra")
	require.NoError(t, err)

	second := first
	second.Items = []DefinitionItem{
		{Key: "uno", Type: "text"},
		{Key: "dos", Type: "number"},
	}
	require.NoError(t, svc.UpsertDefinitions(ctx, second))

	items, err := svc.GetDefinitions(ctx, 7, domain.EntityApplicant, "extra")
	require.NoError(t, err)
	require.Len(t, items, 2)
}
