package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stats struct {
	Patients int `json:"patients"`
}

func TestMemory_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, ok, err := m.Get(ctx, "settings:hospital")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.Set(ctx, "settings:hospital", []byte(`{"name":"General"}`), time.Minute))
	data, ok, err := m.Get(ctx, "settings:hospital")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `{"name":"General"}`, string(data))

	require.NoError(t, m.Delete(ctx, "settings:hospital"))
	_, ok, _ = m.Get(ctx, "settings:hospital")
	assert.False(t, ok)
}

func TestMemory_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	m := NewMemory()
	m.now = func() time.Time { return now }

	require.NoError(t, m.Set(ctx, "k", []byte("v"), time.Minute))
	now = now.Add(2 * time.Minute)

	_, ok, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, m.Len())
}

func TestRemember_LoadsOnceThenHits(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	loads := 0
	load := func(context.Context) (stats, error) {
		loads++
		return stats{Patients: 42}, nil
	}

	first, err := Remember(ctx, m, zerolog.Nop(), "dashboard:stats", time.Minute, load)
	require.NoError(t, err)
	second, err := Remember(ctx, m, zerolog.Nop(), "dashboard:stats", time.Minute, load)
	require.NoError(t, err)

	assert.Equal(t, 42, first.Patients)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, loads)
}

func TestRemember_LoadErrorNotCached(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	boom := errors.New("db down")

	_, err := Remember(ctx, m, zerolog.Nop(), "dashboard:stats", time.Minute, func(context.Context) (stats, error) {
		return stats{}, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, m.Len())
}

type failingCache struct{}

func (failingCache) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("redis unreachable")
}
func (failingCache) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("redis unreachable")
}
func (failingCache) Delete(context.Context, ...string) error { return errors.New("redis unreachable") }

func TestRemember_FallsThroughOnCacheFailure(t *testing.T) {
	v, err := Remember(context.Background(), failingCache{}, zerolog.Nop(), "settings:hospital", time.Minute,
		func(context.Context) (stats, error) { return stats{Patients: 7}, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v.Patients)

	Invalidate(context.Background(), failingCache{}, zerolog.Nop(), "settings:hospital")
}
