package tokenstore

import (
	"context"
	"encoding/hex"
	"time"

	"github.com/Isma450/inkpost/internal/errs"
	"github.com/gofrs/uuid/v5"
	"github.com/redis/go-redis/v9"
)

// Redis is a refresh-token store backed by Redis; TTLs handle expiry.
// Keys: refresh:<hex hash> -> user id, user_tokens:<user id> -> set of hashes.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis constructs a Redis-backed store.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client, prefix: "refresh:"}
}

func (s *Redis) key(tokenHash []byte) string {
	return s.prefix + hex.EncodeToString(tokenHash)
}

func (s *Redis) userKey(userID uuid.UUID) string {
	return "user_tokens:" + userID.String()
}

// Save records a token hash for a user with a TTL derived from expiresAt.
func (s *Redis) Save(ctx context.Context, tokenHash []byte, userID uuid.UUID, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return errs.ErrValidation
	}
	if err := s.client.Set(ctx, s.key(tokenHash), userID.String(), ttl).Err(); err != nil {
		return err
	}
	pipe := s.client.Pipeline()
	pipe.SAdd(ctx, s.userKey(userID), s.key(tokenHash))
	pipe.Expire(ctx, s.userKey(userID), ttl)
	_, err := pipe.Exec(ctx)
	return err
}

// Resolve returns the owner of a live token hash.
func (s *Redis) Resolve(ctx context.Context, tokenHash []byte) (uuid.UUID, error) {
	val, err := s.client.Get(ctx, s.key(tokenHash)).Result()
	if err == redis.Nil {
		return uuid.Nil, errs.ErrNotFound
	}
	if err != nil {
		return uuid.Nil, err
	}
	id, err := uuid.FromString(val)
	if err != nil {
		return uuid.Nil, errs.ErrNotFound
	}
	return id, nil
}

// Delete revokes a single token hash.
func (s *Redis) Delete(ctx context.Context, tokenHash []byte) error {
	return s.client.Del(ctx, s.key(tokenHash)).Err()
}

// DeleteForUser revokes every token the user holds.
func (s *Redis) DeleteForUser(ctx context.Context, userID uuid.UUID) error {
	members, err := s.client.SMembers(ctx, s.userKey(userID)).Result()
	if err != nil && err != redis.Nil {
		return err
	}
	if len(members) > 0 {
		if err := s.client.Del(ctx, members...).Err(); err != nil {
			return err
		}
	}
	return s.client.Del(ctx, s.userKey(userID)).Err()
}
