package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gd-practice/gd-coach/internal/infrastructure/persistence/kv"
)

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "gd.db")

	s, err := Open(ctx, path)
	require.NoError(t, err)

	_, err = s.Get(ctx, "gd_gamification")
	assert.ErrorIs(t, err, kv.ErrNotFound)

	require.NoError(t, s.Set(ctx, "gd_gamification", []byte(`{"xp":1}`)))
	require.NoError(t, s.Set(ctx, "gd_gamification", []byte(`{"xp":2}`)))

	got, err := s.Get(ctx, "gd_gamification")
	require.NoError(t, err)
	assert.JSONEq(t, `{"xp":2}`, string(got))

	require.NoError(t, s.Close())

	reopened, err := Open(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err = reopened.Get(ctx, "gd_gamification")
	require.NoError(t, err)
	assert.JSONEq(t, `{"xp":2}`, string(got))

	require.NoError(t, reopened.Delete(ctx, "gd_gamification"))
	require.NoError(t, reopened.Delete(ctx, "gd_gamification"))
	_, err = reopened.Get(ctx, "gd_gamification")
	assert.True(t, kv.IsNotFound(err))
	assert.NoError(t, reopened.Ping(ctx))
}
