package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gd-practice/gd-coach/internal/infrastructure/persistence/kv"
)

func TestStore(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, err := s.Get(ctx, "a")
	assert.ErrorIs(t, err, kv.ErrNotFound)

	buf := []byte("one")
	require.NoError(t, s.Set(ctx, "a", buf))
	buf[0] = 'X'

	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "one", string(got))

	require.NoError(t, s.Set(ctx, "b", []byte("two")))
	assert.Equal(t, []string{"a", "b"}, s.Keys())

	require.NoError(t, s.Delete(ctx, "a"))
	assert.Equal(t, []string{"b"}, s.Keys())
}

func TestStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, New().Set(ctx, "a", nil), context.Canceled)
}
