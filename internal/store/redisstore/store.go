package redisstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/codebridge/codebridge/internal/approval"
)

const approvalKeyPrefix = "bridge:approval:"

// Store mirrors resolved approvals into redis with a TTL, giving operators an
// audit window independent of the in-memory registry's eviction.
type Store struct {
	rdb *redis.Client
}

func New(addr, password string, db int) *Store {
	return &Store{rdb: redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *Store) Close() error {
	return s.rdb.Close()
}

// SaveResolved writes an approval snapshot under its id with the given TTL.
func (s *Store) SaveResolved(ctx context.Context, p *approval.Pending, ttl time.Duration) error {
	body, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, approvalKeyPrefix+p.ID, body, ttl).Err()
}

// GetResolved returns the mirrored approval, redis.Nil error if absent or
// expired.
func (s *Store) GetResolved(ctx context.Context, approvalID string) (*approval.Pending, error) {
	body, err := s.rdb.Get(ctx, approvalKeyPrefix+approvalID).Bytes()
	if err != nil {
		return nil, err
	}
	var p approval.Pending
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
