package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryKV struct {
	data    map[string]string
	ttls    map[string]time.Duration
	failGet error
}

func newMemoryKV() *memoryKV {
	return &memoryKV{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryKV) Get(_ context.Context, key string) *redis.StringCmd {
	if m.failGet != nil {
		return redis.NewStringResult("", m.failGet)
	}
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *memoryKV) Set(_ context.Context, key string, value interface{}, ttl time.Duration) *redis.StatusCmd {
	m.data[key] = string(value.([]byte))
	m.ttls[key] = ttl
	return redis.NewStatusResult("OK", nil)
}

type cachedScore struct {
	ID    string `json:"id"`
	Score int    `json:"score"`
}

func TestConnect(t *testing.T) {
	client, err := Connect(context.Background(), "redis://localhost:6379/2")
	require.NoError(t, err)
	assert.Equal(t, 2, client.Options().DB)
	assert.NoError(t, client.Close())

	client, err = Connect(context.Background(), "cache:6380")
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", client.Options().Addr)
	assert.NoError(t, client.Close())

	_, err = Connect(context.Background(), "redis://localhost:6379/notadb")
	assert.Error(t, err)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "reelscore:analysis:v1:abc123", Key("", "abc123"))
	assert.Equal(t, "reelscore:analysis:v1:9f2c:abc123", Key("9f2c", "abc123"))
}

func TestRoundTripWithTTL(t *testing.T) {
	kv := newMemoryKV()
	store := &RedisResultStore{client: kv, ttl: time.Hour}
	ctx := context.Background()

	var miss cachedScore
	found, err := store.Get(ctx, Key("p", "h1"), &miss)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.Set(ctx, Key("p", "h1"), cachedScore{ID: "a", Score: 94}))
	assert.Equal(t, time.Hour, kv.ttls[Key("p", "h1")])

	var hit cachedScore
	found, err = store.Get(ctx, Key("p", "h1"), &hit)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, cachedScore{ID: "a", Score: 94}, hit)
}

func TestGetErrors(t *testing.T) {
	kv := newMemoryKV()
	store := &RedisResultStore{client: kv}
	ctx := context.Background()

	kv.data[Key("p", "bad")] = "{not json"
	var dst cachedScore
	_, err := store.Get(ctx, Key("p", "bad"), &dst)
	assert.Error(t, err)

	boom := errors.New("connection refused")
	kv.failGet = boom
	_, err = store.Get(ctx, Key("p", "h1"), &dst)
	assert.ErrorIs(t, err, boom)
}
