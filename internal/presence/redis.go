package presence

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "presence:"
	queueSize = 1024
)

func key(userId string) string { return keyPrefix + userId }

// commander is the subset of *redis.Client the mirror uses.
type commander interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type update struct {
	userId    string
	sessionId string
	online    bool
}

// RedisMirror copies online/offline transitions into redis so other services
// can see who is connected. Updates are queued without blocking and written
// by Run; when the queue is full an update is dropped. Online keys expire
// after ttl unless refreshed, so a crashed process does not leave users
// online forever.
type RedisMirror struct {
	rdb     commander
	ttl     time.Duration
	log     *log.Logger
	updates chan update
}

func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, errors.Wrap(err, "ping redis")
	}

	return rdb, nil
}

func NewRedisMirror(rdb commander, ttl time.Duration, logger *log.Logger) *RedisMirror {
	return &RedisMirror{
		rdb:     rdb,
		ttl:     ttl,
		log:     logger,
		updates: make(chan update, queueSize),
	}
}

func (m *RedisMirror) Online(userId, sessionId string) {
	m.enqueue(update{userId: userId, sessionId: sessionId, online: true})
}

func (m *RedisMirror) Offline(userId string) {
	m.enqueue(update{userId: userId})
}

func (m *RedisMirror) enqueue(u update) {
	select {
	case m.updates <- u:
	default:
		m.log.Warn("presence queue full, dropping update", "user", u.userId, "online", u.online)
	}
}

// Run writes queued updates until ctx is done.
func (m *RedisMirror) Run(ctx context.Context) {
	refresh := m.ttl / 2
	if refresh <= 0 {
		refresh = m.ttl
	}
	ticker := time.NewTicker(refresh)
	defer ticker.Stop()

	online := make(map[string]string)
	for {
		select {
		case <-ctx.Done():
			return
		case u := <-m.updates:
			m.apply(ctx, online, u)
		case <-ticker.C:
			m.refresh(ctx, online)
		}
	}
}

func (m *RedisMirror) apply(ctx context.Context, online map[string]string, u update) {
	if u.online {
		online[u.userId] = u.sessionId
		if err := m.rdb.Set(ctx, key(u.userId), u.sessionId, m.ttl).Err(); err != nil {
			m.log.Error("mirror online", "user", u.userId, "err", err)
		}
		return
	}

	delete(online, u.userId)
	if err := m.rdb.Del(ctx, key(u.userId)).Err(); err != nil {
		m.log.Error("mirror offline", "user", u.userId, "err", err)
	}
}

func (m *RedisMirror) refresh(ctx context.Context, online map[string]string) {
	for userId, sessionId := range online {
		if err := m.rdb.Set(ctx, key(userId), sessionId, m.ttl).Err(); err != nil {
			m.log.Error("refresh presence", "user", userId, "err", err)
		}
	}
}
