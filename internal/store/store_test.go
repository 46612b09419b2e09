package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/galois26/eventclash/internal/config"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newTestMemory(maxKeys int, ttl time.Duration) (*Memory, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 6, 1, 20, 0, 0, 0, time.UTC)}
	m := NewMemory(maxKeys, ttl)
	m.now = clock.now
	return m, clock
}

func TestMemoryGetSet(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMemory(10, time.Minute)

	_, err := m.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrCacheMiss)

	val := []byte("payload")
	require.NoError(t, m.Set(ctx, "k", val, 0))
	val[0] = 'X'

	got, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "payload", string(got))

	got[0] = 'Y'
	again, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "payload", string(again))
}

func TestMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	m, clock := newTestMemory(10, time.Minute)

	require.NoError(t, m.Set(ctx, "default", []byte("a"), 0))
	require.NoError(t, m.Set(ctx, "short", []byte("b"), 10*time.Second))

	clock.t = clock.t.Add(30 * time.Second)
	_, err := m.Get(ctx, "short")
	assert.ErrorIs(t, err, ErrCacheMiss)
	_, err = m.Get(ctx, "default")
	assert.NoError(t, err)

	clock.t = clock.t.Add(time.Minute)
	_, err = m.Get(ctx, "default")
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.Zero(t, m.Len())
}

func TestMemoryEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMemory(2, time.Minute)

	require.NoError(t, m.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, m.Set(ctx, "b", []byte("2"), 0))
	_, err := m.Get(ctx, "a")
	require.NoError(t, err)
	require.NoError(t, m.Set(ctx, "c", []byte("3"), 0))

	_, err = m.Get(ctx, "b")
	assert.ErrorIs(t, err, ErrCacheMiss)
	_, err = m.Get(ctx, "a")
	assert.NoError(t, err)
	_, err = m.Get(ctx, "c")
	assert.NoError(t, err)
	assert.Equal(t, 2, m.Len())
}

func TestMemoryOverwriteRefreshesExpiry(t *testing.T) {
	ctx := context.Background()
	m, clock := newTestMemory(10, time.Minute)

	require.NoError(t, m.Set(ctx, "k", []byte("old"), 0))
	clock.t = clock.t.Add(50 * time.Second)
	require.NoError(t, m.Set(ctx, "k", []byte("new"), 0))
	clock.t = clock.t.Add(50 * time.Second)

	got, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "new", string(got))
}

func TestRedisCache(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	client, err := Connect(ctx, mr.Addr())
	require.NoError(t, err)
	r := NewRedis(client, "eventclash:", time.Minute)
	t.Cleanup(func() { _ = r.Close() })

	_, err = r.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, r.Set(ctx, "k", []byte("payload"), 0))
	got, err := r.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "payload", string(got))

	assert.True(t, mr.Exists("eventclash:k"))
	assert.Equal(t, time.Minute, mr.TTL("eventclash:k"))

	require.NoError(t, r.Set(ctx, "short", []byte("x"), 5*time.Second))
	mr.FastForward(6 * time.Second)
	_, err = r.Get(ctx, "short")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestConnectParsesURL(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := Connect(context.Background(), fmt.Sprintf("redis://%s/2", mr.Addr()))
	require.NoError(t, err)
	defer client.Close()
	assert.Equal(t, 2, client.Options().DB)

	_, err = Connect(context.Background(), "redis://localhost:notaport")
	assert.Error(t, err)
}

func TestNewFromConfig(t *testing.T) {
	ctx := context.Background()

	c, err := NewFromConfig(ctx, config.CacheConfig{Enable: false})
	require.NoError(t, err)
	assert.Nil(t, c)

	c, err = NewFromConfig(ctx, config.CacheConfig{Enable: true, TTL: time.Minute, MaxKeys: 5})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, c)

	mr := miniredis.RunT(t)
	c, err = NewFromConfig(ctx, config.CacheConfig{Enable: true, TTL: time.Minute, RedisURL: "redis://" + mr.Addr()})
	require.NoError(t, err)
	assert.IsType(t, &Redis{}, c)
	require.NoError(t, c.Close())
}

func TestEventsKeyRoundsCoordinates(t *testing.T) {
	assert.Equal(t, EventsKey("feed", 40.73094, -74.00065, 5), EventsKey("feed", 40.73091, -74.00071, 5))
	assert.NotEqual(t, EventsKey("feed", 40.731, -74.0, 5), EventsKey("feed", 40.732, -74.0, 5))
	assert.NotEqual(t, EventsKey("feed", 40.731, -74.0, 5), EventsKey("file", 40.731, -74.0, 5))
	assert.Equal(t, "events:feed:40.731:-74.001:2.5", EventsKey("feed", 40.73094, -74.00065, 2.5))
}

func TestPushLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pushlog.json")
	now := time.Date(2024, 6, 1, 20, 0, 0, 0, time.UTC)

	log, err := LoadPushLog(path)
	require.NoError(t, err, "missing file is an empty log")
	assert.Empty(t, log.Pushed)

	log.Mark("a", now.Add(-2*time.Hour))
	log.Mark("b", now)
	log.LastRun = now
	assert.True(t, log.Seen("b", now.Add(time.Minute), time.Hour))
	assert.False(t, log.Seen("a", now, time.Hour))
	assert.False(t, log.Seen("c", now, time.Hour))

	require.NoError(t, SavePushLog(path, log))
	back, err := LoadPushLog(path)
	require.NoError(t, err)
	assert.True(t, back.LastRun.Equal(now))
	require.Len(t, back.Pushed, 2)

	assert.Equal(t, 1, back.Prune(now, time.Hour))
	assert.Contains(t, back.Pushed, "b")
}

func TestLoadPushLogRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pushlog.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	_, err := LoadPushLog(path)
	assert.Error(t, err)
}
