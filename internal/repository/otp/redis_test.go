package otp

import (
	"context"
	"testing"
	"time"

	"aurum-storefront/internal/domain"
	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, Repository) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewRedis(client)
}

func TestRedis_PutGetConsume(t *testing.T) {
	ctx := context.Background()
	mr, repo := newTestRedis(t)

	rec := sampleRecord("a@x.com", "hash-1")
	require.NoError(t, repo.Put(ctx, rec))
	require.True(t, mr.Exists("otp:a@x.com"))
	require.Greater(t, mr.TTL("otp:a@x.com"), 9*time.Minute)

	got, err := repo.Get(ctx, "a@x.com")
	require.NoError(t, err)
	require.Equal(t, rec, *got)

	require.NoError(t, repo.Consume(ctx, *got))
	require.False(t, mr.Exists("otp:a@x.com"))
	require.ErrorIs(t, repo.Consume(ctx, *got), domain.ErrNotFound)
}

func TestRedis_ConsumeRefusesReplacedCode(t *testing.T) {
	ctx := context.Background()
	mr, repo := newTestRedis(t)

	first := sampleRecord("a@x.com", "hash-1")
	second := sampleRecord("a@x.com", "hash-2")
	require.NoError(t, repo.Put(ctx, first))
	require.NoError(t, repo.Put(ctx, second))

	require.ErrorIs(t, repo.Consume(ctx, first), domain.ErrNotFound)
	require.True(t, mr.Exists("otp:a@x.com"))
}

func TestRedis_ExpiresWithTTL(t *testing.T) {
	ctx := context.Background()
	mr, repo := newTestRedis(t)

	require.NoError(t, repo.Put(ctx, sampleRecord("a@x.com", "hash-1")))
	mr.FastForward(11 * time.Minute)

	_, err := repo.Get(ctx, "a@x.com")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRedis_PutRejectsExpiredRecord(t *testing.T) {
	ctx := context.Background()
	_, repo := newTestRedis(t)

	rec := sampleRecord("a@x.com", "hash-1")
	rec.ExpiresAt = time.Now().Add(-time.Second)
	require.ErrorIs(t, repo.Put(ctx, rec), domain.ErrInvalidInput)
}

func TestRedis_Ping(t *testing.T) {
	ctx := context.Background()
	mr, repo := newTestRedis(t)
	require.NoError(t, repo.Ping(ctx))
	mr.Close()
	require.Error(t, repo.Ping(ctx))
}
