package cart

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStorage_GetSet(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQLiteStorage(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	_, ok, err := s.Get(ctx, "cart")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "cart", []byte(`[{"id":1}]`)))
	require.NoError(t, s.Set(ctx, "cart", []byte(`[{"id":2}]`)))

	v, ok, err := s.Get(ctx, "cart")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[{"id":2}]`, string(v))
	assert.NoError(t, s.Ping(ctx))
}

func TestSQLiteStorage_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cart.db")

	first, err := OpenSQLiteStorage(ctx, path)
	require.NoError(t, err)
	store := Open(ctx, first, Key("s1"))
	require.NoError(t, store.Add(ctx, bk(7)))
	require.NoError(t, first.Close())

	second, err := OpenSQLiteStorage(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = second.Close() })

	assert.Equal(t, []int{7}, ids(Open(ctx, second, Key("s1")).Items()))
}
