package service

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/table-reservation/internal/reservation"
)

var _ reservation.Locker = (*RedisLocker)(nil)

func TestRedisLocker_Defaults(t *testing.T) {
	l := NewRedisLocker(nil, "", 0)
	assert.Equal(t, 5*time.Second, l.ttl)
	assert.Equal(t, "lock:reservation:ann@example.com", l.Key("ann@example.com"))

	l = NewRedisLocker(nil, "tr", time.Minute)
	assert.Equal(t, "tr:x", l.Key("x"))
}

func TestRedisLocker_UnreachableServer(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer func() { _ = rdb.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	unlock, err := NewRedisLocker(rdb, "t", time.Second).Lock(ctx, "k")
	assert.Error(t, err)
	assert.Nil(t, unlock)
}
