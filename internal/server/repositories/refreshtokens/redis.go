package refreshtokens

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/redis/go-redis/v9"
)

// The id counter lives outside the token namespace so no client-supplied
// token string can address it.
const (
	redisKeyPrefix = "refresh_token:"
	redisSeqKey    = "refresh_token_seq"
)

// saveScript creates the hash only when the key is absent and lets Redis drop
// it once the token expires.
var saveScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
  return 0
end
redis.call("HSET", KEYS[1], "id", ARGV[1], "user_id", ARGV[2], "expire_at", ARGV[3], "revoked", "0", "created_at", ARGV[4])
redis.call("PEXPIREAT", KEYS[1], ARGV[3])
return 1
`)

var revokeScript = redis.NewScript(`
if redis.call("HGET", KEYS[1], "revoked") == "0" then
  redis.call("HSET", KEYS[1], "revoked", "1")
  return 1
end
return 0
`)

// RedisRepository keeps each refresh token in a hash whose key expires
// together with the token.
type RedisRepository struct {
	client redis.UniversalClient
}

func NewRedisRepository(client redis.UniversalClient) *RedisRepository {
	return &RedisRepository{client: client}
}

func redisKey(token string) string {
	return redisKeyPrefix + token
}

func (r *RedisRepository) Save(ctx context.Context, token *models.RefreshToken) (*models.RefreshToken, error) {
	id, err := r.client.Incr(ctx, redisSeqKey).Result()
	if err != nil {
		return nil, fmt.Errorf("redis error: %w", err)
	}

	created := time.Now()
	ok, err := saveScript.Run(ctx, r.client, []string{redisKey(token.Token)},
		id, token.UserID, token.ExpireAt.UnixMilli(), created.UnixMilli()).Int()
	if err != nil {
		return nil, fmt.Errorf("redis error: %w", err)
	}
	if ok == 0 {
		return nil, common.ErrorAlreadyExists
	}

	token.ID = id
	token.CreatedAt = created
	token.Revoked = false
	return token, nil
}

func (r *RedisRepository) FindByToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	fields, err := r.client.HGetAll(ctx, redisKey(token)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis error: %w", err)
	}
	if len(fields) == 0 {
		return nil, common.ErrorNotFound
	}

	rt := &models.RefreshToken{Token: token, Revoked: fields["revoked"] == "1"}
	if rt.ID, err = strconv.ParseInt(fields["id"], 10, 64); err != nil {
		return nil, fmt.Errorf("corrupt refresh token record: %w", err)
	}
	if rt.UserID, err = strconv.ParseInt(fields["user_id"], 10, 64); err != nil {
		return nil, fmt.Errorf("corrupt refresh token record: %w", err)
	}
	if rt.ExpireAt, err = parseMillis(fields["expire_at"]); err != nil {
		return nil, fmt.Errorf("corrupt refresh token record: %w", err)
	}
	if rt.CreatedAt, err = parseMillis(fields["created_at"]); err != nil {
		return nil, fmt.Errorf("corrupt refresh token record: %w", err)
	}
	return rt, nil
}

func (r *RedisRepository) Revoke(ctx context.Context, token string) error {
	n, err := revokeScript.Run(ctx, r.client, []string{redisKey(token)}).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redis error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

// DeleteExpired is a no-op: keys carry their own expiry.
func (r *RedisRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

func parseMillis(s string) (time.Time, error) {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms), nil
}
