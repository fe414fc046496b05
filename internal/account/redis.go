package account

import (
	"context"
	"errors"
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// RedisStore keeps each record as a JSON string under Prefix+account.
type RedisStore struct {
	Client redis.Cmdable
	Prefix string
}

func NewRedisStore(client redis.Cmdable, prefix string) *RedisStore {
	return &RedisStore{Client: client, Prefix: prefix}
}

func (r *RedisStore) Key(account string) string { return r.Prefix + account }

func (r *RedisStore) Load(ctx context.Context, account string) (*Record, error) {
	if err := checkAccount(account); err != nil {
		return nil, err
	}
	raw, err := r.Client.Get(ctx, r.Key(account)).Result()
	if errors.Is(err, redis.Nil) {
		return NewRecord(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", r.Key(account), err)
	}
	return decodeRecord(raw)
}

func (r *RedisStore) Save(ctx context.Context, account string, rec *Record) error {
	if err := checkAccount(account); err != nil {
		return err
	}
	raw, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	if err := r.Client.Set(ctx, r.Key(account), raw, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", r.Key(account), err)
	}
	return nil
}

func encodeRecord(rec *Record) (string, error) {
	return json.MarshalToString(rec)
}

func decodeRecord(raw string) (*Record, error) {
	rec := &Record{}
	if err := json.UnmarshalFromString(raw, rec); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	rec.Ensure()
	return rec, nil
}
