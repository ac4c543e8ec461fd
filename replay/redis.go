package replay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vorpalengineering/x402-stellar/types"
)

const (
	settlementKeyPrefix = "x402:settlement:"
	pendingKeyPrefix    = "x402:pending:"
	discoveryKey        = "x402:discovery"
)

// RedisStore backs the replay and discovery state with a shared Redis
// instance. Settlement claims use SETNX with a TTL; final records are
// written without expiry and never overwritten.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(connString string) (*RedisStore, error) {
	opts, err := redis.ParseURL(connString)
	if err != nil {
		return nil, fmt.Errorf("invalid store connection string: %w", err)
	}
	return &RedisStore{client: redis.NewClient(opts)}, nil
}

func (s *RedisStore) GetSettlement(ctx context.Context, hash string) (*types.SettleResponse, error) {
	data, err := s.client.Get(ctx, settlementKeyPrefix+hash).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read settlement record: %w", err)
	}

	var result types.SettleResponse
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("corrupt settlement record for %s: %w", hash, err)
	}
	return &result, nil
}

func (s *RedisStore) BeginSettlement(ctx context.Context, hash string, ttl time.Duration) (bool, error) {
	// A recorded settlement always wins over a new claim.
	existing, err := s.GetSettlement(ctx, hash)
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, nil
	}

	claimed, err := s.client.SetNX(ctx, pendingKeyPrefix+hash, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim settlement: %w", err)
	}
	return claimed, nil
}

func (s *RedisStore) CompleteSettlement(ctx context.Context, hash string, result *types.SettleResponse) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal settlement record: %w", err)
	}

	if err := s.client.Set(ctx, settlementKeyPrefix+hash, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to write settlement record: %w", err)
	}
	if err := s.client.Del(ctx, pendingKeyPrefix+hash).Err(); err != nil {
		return fmt.Errorf("failed to release settlement claim: %w", err)
	}
	return nil
}

func (s *RedisStore) AbortSettlement(ctx context.Context, hash string) error {
	if err := s.client.Del(ctx, pendingKeyPrefix+hash).Err(); err != nil {
		return fmt.Errorf("failed to release settlement claim: %w", err)
	}
	return nil
}

func (s *RedisStore) PutResource(ctx context.Context, entry *types.DiscoveryResource) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal discovery entry: %w", err)
	}
	if err := s.client.HSet(ctx, discoveryKey, entry.Resource, data).Err(); err != nil {
		return fmt.Errorf("failed to write discovery entry: %w", err)
	}
	return nil
}

func (s *RedisStore) GetResource(ctx context.Context, resource string) (*types.DiscoveryResource, error) {
	data, err := s.client.HGet(ctx, discoveryKey, resource).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read discovery entry: %w", err)
	}

	var entry types.DiscoveryResource
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("corrupt discovery entry for %s: %w", resource, err)
	}
	return &entry, nil
}

func (s *RedisStore) DeleteResource(ctx context.Context, resource string) error {
	if err := s.client.HDel(ctx, discoveryKey, resource).Err(); err != nil {
		return fmt.Errorf("failed to delete discovery entry: %w", err)
	}
	return nil
}

func (s *RedisStore) ListResources(ctx context.Context) ([]types.DiscoveryResource, error) {
	raw, err := s.client.HGetAll(ctx, discoveryKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list discovery entries: %w", err)
	}

	entries := make([]types.DiscoveryResource, 0, len(raw))
	for resource, data := range raw {
		var entry types.DiscoveryResource
		if err := json.Unmarshal([]byte(data), &entry); err != nil {
			return nil, fmt.Errorf("corrupt discovery entry for %s: %w", resource, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

var _ Store = (*RedisStore)(nil)
