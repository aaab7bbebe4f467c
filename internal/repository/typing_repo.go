package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pailhq/courier/pkg/constant"
)

// TypingRepo holds ephemeral typing signals in Redis with a short TTL.
// This is the only non-durable state in the core; losing it on restart is
// an accepted failure mode.
type TypingRepo struct {
	rdb *redis.Client
}

// NewTypingRepo creates a new TypingRepo
func NewTypingRepo(rdb *redis.Client) *TypingRepo {
	return &TypingRepo{rdb: rdb}
}

func typingKey(conversationId, userId string) string {
	return fmt.Sprintf(constant.RedisKeyTyping(), conversationId, userId)
}

// Set asserts the typing signal, refreshing the expiry on repeat calls
func (r *TypingRepo) Set(ctx context.Context, conversationId, userId string, ttl time.Duration) error {
	return r.rdb.Set(ctx, typingKey(conversationId, userId), 1, ttl).Err()
}

// Clear removes the typing signal immediately
func (r *TypingRepo) Clear(ctx context.Context, conversationId, userId string) error {
	return r.rdb.Del(ctx, typingKey(conversationId, userId)).Err()
}

// ActiveUsers filters userIds down to those with a live typing signal.
// Point-in-time snapshot, no ordering guarantee.
func (r *TypingRepo) ActiveUsers(ctx context.Context, conversationId string, userIds []string) ([]string, error) {
	if len(userIds) == 0 {
		return nil, nil
	}

	pipe := r.rdb.Pipeline()
	cmds := make([]*redis.IntCmd, len(userIds))
	for i, userId := range userIds {
		cmds[i] = pipe.Exists(ctx, typingKey(conversationId, userId))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}

	var active []string
	for i, cmd := range cmds {
		if cmd.Val() > 0 {
			active = append(active, userIds[i])
		}
	}
	return active, nil
}
