// +build integration

package repository

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"crediflow-data/internal/common/config"
	"crediflow-data/internal/common/database"
	"crediflow-data/internal/domain"

	"github.com/stretchr/testify/require"
)

func getTestEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getTestDB 连接测试数据库；不可用时跳过
func getTestDB(t *testing.T) *sql.DB {
	cfg := &config.DatabaseConfig{
		Host:     getTestEnv("TEST_DB_HOST", "localhost"),
		Port:     5432,
		User:     getTestEnv("TEST_DB_USER", "postgres"),
		Password: getTestEnv("TEST_DB_PASSWORD", "postgres"),
		Database: getTestEnv("TEST_DB_NAME", "crediflow_test"),
		SSLMode:  "disable",
	}

	db, err := database.NewPostgresDB(cfg)
	if err != nil {
		t.Skipf("Skipping integration test: cannot connect to database: %v", err)
		return nil
	}
	if err := db.Ping(); err != nil {
		t.Skipf("Skipping integration test: cannot ping database: %v", err)
		return nil
	}
	return db
}

// createTestTenantForCatalog 创建测试租户
func createTestTenantForCatalog(t *testing.T, db *sql.DB) int64 {
	var tenantID int64
	err := db.QueryRow(
		`INSERT INTO tenants (tenant_name, nit, status)
		 VALUES ($1, $2, 'active')
		 ON CONFLICT (nit) DO UPDATE SET tenant_name = EXCLUDED.tenant_name, status = 'active'
		 RETURNING tenant_id`,
		"Test Catalog Tenant", "900123456-7",
	).Scan(&tenantID)
	require.NoError(t, err)
	return tenantID
}

// cleanupTestDataForCatalog 清理测试数据
func cleanupTestDataForCatalog(t *testing.T, db *sql.DB, tenantID int64) {
	_, _ = db.Exec(`DELETE FROM field_definitions WHERE tenant_id = $1`, tenantID)
	_, _ = db.Exec(`DELETE FROM tenants WHERE tenant_id = $1`, tenantID)
}

// TestFieldCatalog_ReplaceAndGet 测试定义替换与读取
func TestFieldCatalog_ReplaceAndGet(t *testing.T) {
	db := getTestDB(t)
	if db == nil {
		return
	}
	defer db.Close()

	tenantID := createTestTenantForCatalog(t, db)
	defer cleanupTestDataForCatalog(t, db, tenantID)

	repo := NewPostgresFieldCatalogRepository(db)
	ctx := context.Background()

	two := 2
	defs := []*domain.FieldDefinition{
		{
			TenantID:   tenantID,
			EntityKind: domain.EntityApplicant,
			ColumnName: "extra",
			Key:        "estado_civil",
			Type:       "select",
			Required:   true,
			AllowedValues: &domain.AllowedValues{
				Values: []string{"soltero", "casado", "union_libre"},
			},
			OrderIndex: &two,
		},
		{
			TenantID:   tenantID,
			EntityKind: domain.EntityApplicant,
			ColumnName: "extra",
			Key:        "telefono_alterno",
			Type:       "text",
		},
	}

	require.NoError(t, repo.ReplaceDefinitions(ctx, tenantID, domain.EntityApplicant, "extra", defs))
	// 重复替换：每个 key 仍只有一份定义
	require.NoError(t, repo.ReplaceDefinitions(ctx, tenantID, domain.EntityApplicant, "extra", defs))

	got, err := repo.GetDefinitions(ctx, tenantID, domain.EntityApplicant, "extra")
	require.NoError(t, err)
	require.Len(t, got, 2)

	byKey := map[string]*domain.FieldDefinition{}
	for _, def := range got {
		byKey[def.Key] = def
	}
	require.NotNil(t, byKey["estado_civil"].AllowedValues)
	require.Equal(t, []string{"soltero", "casado", "union_libre"}, byKey["estado_civil"].AllowedValues.Values)
	require.NotNil(t, byKey["estado_civil"].OrderIndex)
	require.Equal(t, 2, *byKey["estado_civil"].OrderIndex)
	require.Nil(t, byKey["telefono_alterno"].OrderIndex)
}

// TestFieldCatalog_DeleteSingleKey 测试删除单个 key
func TestFieldCatalog_DeleteSingleKey(t *testing.T) {
	db := getTestDB(t)
	if db == nil {
		return
	}
	defer db.Close()

	tenantID := createTestTenantForCatalog(t, db)
	defer cleanupTestDataForCatalog(t, db, tenantID)

	repo := NewPostgresFieldCatalogRepository(db)
	ctx := context.Background()

	defs := []*domain.FieldDefinition{
		{TenantID: tenantID, EntityKind: domain.EntityApplicant, ColumnName: "extra", Key: "uno", Type: "text"},
		{TenantID: tenantID, EntityKind: domain.EntityApplicant, ColumnName: "extra", Key: "dos", Type: "text"},
	}
	require.NoError(t, repo.ReplaceDefinitions(ctx, tenantID, domain.EntityApplicant, "extra", defs))

	n, err := repo.DeleteDefinitions(ctx, tenantID, domain.EntityApplicant, "extra", "uno")
	require.NoError(t, err)
	require.Equal(t, 1, n)

	got, err := repo.GetDefinitions(ctx, tenantID, domain.EntityApplicant, "extra")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "dos", got[0].Key)
}
