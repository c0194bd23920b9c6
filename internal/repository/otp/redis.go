package otp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"aurum-storefront/internal/domain"
	goredis "github.com/redis/go-redis/v9"
)

const otpKeyPrefix = "otp:"

// consumeScript deletes KEYS[1] only when it still holds ARGV[1].
var consumeScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type redisEntry struct {
	Code       string `json:"code"`
	CustomerID string `json:"customerId"`
	Expires    int64  `json:"expires"`
}

type redisRepo struct {
	client goredis.UniversalClient
	now    func() time.Time
}

// NewRedis returns a Repository that keeps one key per email with a native TTL.
func NewRedis(client goredis.UniversalClient) Repository {
	return &redisRepo{client: client, now: time.Now}
}

func (r *redisRepo) Put(ctx context.Context, rec domain.OTPRecord) error {
	ttl := rec.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		return fmt.Errorf("otp for %s already expired: %w", rec.Email, domain.ErrInvalidInput)
	}
	raw, err := encodeEntry(rec)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, otpKeyPrefix+rec.Email, raw, ttl).Err(); err != nil {
		return fmt.Errorf("store otp: %w", err)
	}
	return nil
}

func (r *redisRepo) Get(ctx context.Context, email string) (*domain.OTPRecord, error) {
	raw, err := r.client.Get(ctx, otpKeyPrefix+email).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get otp: %w", err)
	}
	var e redisEntry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return nil, fmt.Errorf("decode otp: %w", err)
	}
	return &domain.OTPRecord{
		Email:      email,
		CodeHash:   e.Code,
		CustomerID: e.CustomerID,
		ExpiresAt:  time.UnixMilli(e.Expires).UTC(),
	}, nil
}

func (r *redisRepo) Consume(ctx context.Context, rec domain.OTPRecord) error {
	raw, err := encodeEntry(rec)
	if err != nil {
		return err
	}
	deleted, err := consumeScript.Run(ctx, r.client, []string{otpKeyPrefix + rec.Email}, raw).Int64()
	if err != nil {
		return fmt.Errorf("consume otp: %w", err)
	}
	if deleted == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *redisRepo) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func encodeEntry(rec domain.OTPRecord) (string, error) {
	raw, err := json.Marshal(redisEntry{
		Code:       rec.CodeHash,
		CustomerID: rec.CustomerID,
		Expires:    rec.ExpiresAt.UnixMilli(),
	})
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
