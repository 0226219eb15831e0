package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryProviderExpiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemoryProvider(0)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "view:Tumor", []byte("page"), time.Minute))
	require.NoError(t, m.Set(ctx, "view:Home", []byte("home"), 0))

	got, err := m.Get(ctx, "view:Tumor")
	require.NoError(t, err)
	assert.Equal(t, []byte("page"), got)

	now = now.Add(time.Minute)
	_, err = m.Get(ctx, "view:Tumor")
	assert.True(t, errors.Is(err, ErrCacheMiss))

	got, err = m.Get(ctx, "view:Home")
	require.NoError(t, err)
	assert.Equal(t, []byte("home"), got)
}

func TestMemoryProviderReturnsCopies(t *testing.T) {
	m := NewMemoryProvider(0)
	ctx := context.Background()
	value := []byte("abc")
	require.NoError(t, m.Set(ctx, "k", value, 0))
	value[0] = 'z'

	got, err := m.Get(ctx, "k")
	require.NoError(t, err)
	got[1] = 'z'

	again, _ := m.Get(ctx, "k")
	assert.Equal(t, []byte("abc"), again)
}

func TestMemoryProviderEvictsWhenFull(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemoryProvider(2)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "soon", []byte("1"), time.Second))
	require.NoError(t, m.Set(ctx, "later", []byte("2"), time.Hour))
	require.NoError(t, m.Set(ctx, "new", []byte("3"), time.Hour))

	assert.Equal(t, 2, m.Len())
	_, err := m.Get(ctx, "soon")
	assert.ErrorIs(t, err, ErrCacheMiss)
	_, err = m.Get(ctx, "later")
	assert.NoError(t, err)
}

func TestMemoryProviderDelAndClose(t *testing.T) {
	m := NewMemoryProvider(0)
	ctx := context.Background()
	require.NoError(t, m.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, m.Set(ctx, "b", []byte("2"), 0))

	require.NoError(t, m.Del(ctx, "a"))
	_, err := m.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, m.Close())
	assert.Equal(t, 0, m.Len())
}

func TestMemoryProviderHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m := NewMemoryProvider(0)
	assert.ErrorIs(t, m.Set(ctx, "k", nil, 0), context.Canceled)
	_, err := m.Get(ctx, "k")
	assert.ErrorIs(t, err, context.Canceled)
}
