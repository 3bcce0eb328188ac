package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrations(t *testing.T) {
	list := GetMigrations()
	require.Len(t, list, 2)

	assert.Equal(t, 1, list[0].Version)
	assert.Equal(t, "create_users", list[0].Name)
	assert.Equal(t, "000002_create_products", list[1].String())
	for _, m := range list {
		assert.NotEmpty(t, m.UpScript)
		assert.NotEmpty(t, m.DownScript)
	}
	assert.Contains(t, list[1].UpScript, "chk_products_donate_free")
	assert.Nil(t, GetMigrationByVersion(99))
}

func TestValidateAppliedVersions(t *testing.T) {
	registered := GetMigrations()

	assert.NoError(t, validateAppliedVersions(nil, registered))
	assert.NoError(t, validateAppliedVersions([]int{1, 2}, registered))

	err := validateAppliedVersions([]int{1, 7, 3}, registered)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "000003, 000007")
}

func TestMigrationStore_Lifecycle(t *testing.T) {
	db := openSQLite(t)
	store := NewMigrationStore(db)
	ctx := context.Background()

	applied, err := store.GetAppliedMigrations(ctx)
	require.NoError(t, err, "missing table reads as nothing applied")
	assert.Empty(t, applied)

	require.NoError(t, db.AutoMigrate(&MigrationLog{}))
	require.NoError(t, store.ApplyMigration(ctx, 1, "create_widgets", "CREATE TABLE widgets (id INTEGER PRIMARY KEY)"))
	assert.True(t, db.Migrator().HasTable("widgets"))

	applied, err = store.GetAppliedMigrations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, applied)

	assert.Error(t, store.ApplyMigration(ctx, 2, "broken", "CREATE TABLE"))
	applied, err = store.GetAppliedMigrations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, applied, "failed migration is not recorded")

	require.NoError(t, store.RemoveMigration(ctx, 1))
	applied, err = store.GetAppliedMigrations(ctx)
	require.NoError(t, err)
	assert.Empty(t, applied)
}
