package repository

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type widget struct {
	ID    int64  `gorm:"primaryKey"`
	Code  string `gorm:"uniqueIndex"`
	Label string
}

func setupStore(t *testing.T) (*gorm.DB, Repository[widget]) {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&widget{}))
	return conn, ProvideStore[widget](conn)
}

func TestStoreFindOneMissing(t *testing.T) {
	_, store := setupStore(t)
	got, err := store.FindOne(context.Background(), &widget{Code: "nope"})
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStoreUpsert(t *testing.T) {
	_, store := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, &widget{ID: 1, Code: "a", Label: "first"}))
	require.NoError(t, store.Upsert(ctx, &widget{ID: 2, Code: "a", Label: "second"}, []string{"code"}, []string{"label"}))

	got, err := store.FindOne(ctx, &widget{Code: "a"})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(1), got.ID)
	assert.Equal(t, "second", got.Label)

	count, err := store.Count(ctx, &widget{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestStoreUpsertDoNothing(t *testing.T) {
	_, store := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, &widget{ID: 1, Code: "a", Label: "first"}))
	require.NoError(t, store.Upsert(ctx, &widget{ID: 2, Code: "a", Label: "ignored"}, []string{"code"}, nil))

	got, err := store.FindOne(ctx, &widget{Code: "a"})
	require.NoError(t, err)
	assert.Equal(t, "first", got.Label)
}
