package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/opiniox/chat-bet-poc/internal/chatbot/conversation"
)

// Redis guarda o estado serializado em JSON com TTL
// O TTL expira conversas abandonadas no meio do fluxo
type Redis struct {
	R   *redis.Client
	TTL time.Duration
}

func NewRedis(r *redis.Client, ttl time.Duration) *Redis {
	return &Redis{R: r, TTL: ttl}
}

func key(id string) string { return "chatbot:session:" + id }

func (s *Redis) Get(ctx context.Context, id string) (conversation.State, bool, error) {
	b, err := s.R.Get(ctx, key(id)).Bytes()
	if err == redis.Nil {
		return conversation.Idle(), false, nil
	}
	if err != nil {
		return conversation.Idle(), false, fmt.Errorf("session get: %w", err)
	}

	var st conversation.State
	if err := json.Unmarshal(b, &st); err != nil {
		// payload irrecuperável: trata como ausente, usuário recomeça
		return conversation.Idle(), false, nil
	}
	return st, true, nil
}

func (s *Redis) Put(ctx context.Context, id string, st conversation.State) error {
	b, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("session marshal: %w", err)
	}
	return s.R.Set(ctx, key(id), b, s.TTL).Err()
}

func (s *Redis) Delete(ctx context.Context, id string) error {
	return s.R.Del(ctx, key(id)).Err()
}
