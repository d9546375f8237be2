package presence

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/ChinmayaKolhe/VicharManthan/internal/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRedis struct {
	mu   sync.Mutex
	keys map[string]string
	ttls map[string]time.Duration
	sets int
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{keys: make(map[string]string), ttls: make(map[string]time.Duration)}
}

func (f *fakeRedis) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys[key] = value.(string)
	f.ttls[key] = expiration
	f.sets++
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := f.keys[k]; ok {
			delete(f.keys, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func (f *fakeRedis) get(key string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.keys[key]
	return v, ok
}

func (f *fakeRedis) setCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sets
}

func Test_key(t *testing.T) {
	assert.Equal(t, "presence:alice", key("alice"))
}

func TestRedisMirror_Run(t *testing.T) {
	rdb := newFakeRedis()
	m := NewRedisMirror(rdb, time.Minute, testutil.TestLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	m.Online("alice", "s1")
	m.Online("bob", "s2")
	m.Offline("bob")

	require.Eventually(t, func() bool {
		_, aliceOnline := rdb.get(key("alice"))
		_, bobOnline := rdb.get(key("bob"))
		return aliceOnline && !bobOnline && rdb.setCount() == 2
	}, time.Second, 10*time.Millisecond)

	sessionId, _ := rdb.get(key("alice"))
	assert.Equal(t, "s1", sessionId)
	rdb.mu.Lock()
	assert.Equal(t, time.Minute, rdb.ttls[key("alice")])
	rdb.mu.Unlock()
}

func TestRedisMirror_Refresh(t *testing.T) {
	rdb := newFakeRedis()
	m := NewRedisMirror(rdb, 40*time.Millisecond, testutil.TestLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	m.Online("alice", "s1")

	require.Eventually(t, func() bool {
		return rdb.setCount() >= 3
	}, time.Second, 10*time.Millisecond, "expected online key to be refreshed")
}

func TestRedisMirror_QueueFull(t *testing.T) {
	m := NewRedisMirror(newFakeRedis(), time.Minute, testutil.TestLogger(t))

	assert.NotPanics(t, func() {
		for i := 0; i < queueSize+10; i++ {
			m.Online("alice", "s1")
		}
	}, "expected a full queue to drop updates without blocking")
	assert.Len(t, m.updates, queueSize)
}

func TestRedisMirror_Integration(t *testing.T) {
	addr := os.Getenv("VICHARMANTHAN_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("VICHARMANTHAN_TEST_REDIS_ADDR not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rdb, err := NewRedisClient(ctx, addr, "", 0)
	require.NoError(t, err)
	defer rdb.Close()

	m := NewRedisMirror(rdb, time.Minute, testutil.TestLogger(t))
	go m.Run(ctx)

	userId := "integration-" + time.Now().Format("150405.000000")
	m.Online(userId, "s1")
	require.Eventually(t, func() bool {
		sessionId, err := rdb.Get(ctx, key(userId)).Result()
		return err == nil && sessionId == "s1"
	}, 2*time.Second, 20*time.Millisecond)

	m.Offline(userId)
	require.Eventually(t, func() bool {
		_, err := rdb.Get(ctx, key(userId)).Result()
		return errors.Is(err, redis.Nil)
	}, 2*time.Second, 20*time.Millisecond)
}
