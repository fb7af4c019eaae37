package users

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "jobfit:user:"

// incrementScript adds one credit only while the counter is below ARGV[1].
// Returns -2 for a missing user and -1 when the ceiling is reached.
var incrementScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return -2
end
local used = tonumber(redis.call('HGET', KEYS[1], 'credits_used') or '0')
if used >= tonumber(ARGV[1]) then
  return -1
end
redis.call('HSET', KEYS[1], 'updated_at', ARGV[2])
return redis.call('HINCRBY', KEYS[1], 'credits_used', 1)
`)

// RedisRepo keeps each user as a hash under jobfit:user:<id>.
type RedisRepo struct {
	Client *redis.Client
}

// NewRedisClient parses a redis:// URL and applies conservative timeouts.
func NewRedisClient(rawURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	return redis.NewClient(opts), nil
}

func (r *RedisRepo) Upsert(ctx context.Context, user User) error {
	key := redisKey(user.ID)
	now := time.Now().UTC().Format(time.RFC3339Nano)
	plan := user.Plan
	if plan == "" {
		plan = PlanFree
	}
	pipe := r.Client.TxPipeline()
	pipe.HSetNX(ctx, key, "created_at", now)
	pipe.HSetNX(ctx, key, "credits_used", 0)
	pipe.HSetNX(ctx, key, "plan", plan)
	pipe.HSet(ctx, key, "email", user.Email, "name", user.Name, "updated_at", now)
	_, err := pipe.Exec(ctx)
	return err
}

func (r *RedisRepo) GetByID(ctx context.Context, userID string) (User, error) {
	fields, err := r.Client.HGetAll(ctx, redisKey(userID)).Result()
	if err != nil {
		return User{}, err
	}
	if len(fields) == 0 {
		return User{}, ErrNotFound
	}
	return userFromHash(userID, fields)
}

func (r *RedisRepo) IncrementCredits(ctx context.Context, userID string, ceiling int) (int, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := incrementScript.Run(ctx, r.Client, []string{redisKey(userID)}, ceiling, now).Int()
	if err != nil {
		return 0, err
	}
	switch res {
	case -2:
		return 0, ErrNotFound
	case -1:
		return ceiling, ErrLimitReached
	}
	return res, nil
}

func redisKey(userID string) string {
	return redisKeyPrefix + userID
}

func userFromHash(userID string, fields map[string]string) (User, error) {
	user := User{
		ID:    userID,
		Email: fields["email"],
		Name:  fields["name"],
		Plan:  fields["plan"],
	}
	if user.Plan == "" {
		user.Plan = PlanFree
	}
	if raw := fields["credits_used"]; raw != "" {
		used, err := strconv.Atoi(raw)
		if err != nil {
			return User{}, fmt.Errorf("credits_used: %w", err)
		}
		if used < 0 {
			return User{}, errors.New("credits_used is negative")
		}
		user.CreditsUsed = used
	}
	if t, err := time.Parse(time.RFC3339Nano, fields["created_at"]); err == nil {
		user.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339Nano, fields["updated_at"]); err == nil {
		user.UpdatedAt = t
	}
	return user, nil
}

var _ Store = (*RedisRepo)(nil)
