package services

import (
	"context"
	"encoding/json"
	"time"

	"rescue-alert-service/internal/infrastructure/config"

	"github.com/go-redis/redis/v8"
)

const responderNumbersKey = "responders:phone_numbers"

// InterfaceRedisService defines the Redis service interface
type InterfaceRedisService interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, key string) error
	CacheResponderNumbers(ctx context.Context, numbers []string, expiration time.Duration) error
	GetResponderNumbers(ctx context.Context) ([]string, error)
	InvalidateResponderNumbers(ctx context.Context) error
	Ping(ctx context.Context) error
}

// RedisService handles Redis operations
type RedisService struct {
	Client *redis.Client
}

// NewRedisService creates a new Redis service
func NewRedisService(cfg *config.Config) InterfaceRedisService {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.GetRedisAddr(),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	return &RedisService{Client: client}
}

// 1 Set sets a key-value pair in Redis with expiration
func (s *RedisService) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.Client.Set(ctx, key, jsonValue, expiration).Err()
}

// 2 Get gets a value from Redis by key
func (s *RedisService) Get(ctx context.Context, key string, dest interface{}) error {
	val, err := s.Client.Get(ctx, key).Result()
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(val), dest)
}

// 3 Delete deletes a key from Redis
func (s *RedisService) Delete(ctx context.Context, key string) error {
	return s.Client.Del(ctx, key).Err()
}

// 4 CacheResponderNumbers caches the responder phone number list
func (s *RedisService) CacheResponderNumbers(ctx context.Context, numbers []string, expiration time.Duration) error {
	return s.Set(ctx, responderNumbersKey, numbers, expiration)
}

// 5 GetResponderNumbers reads the cached responder list; redis.Nil when absent
func (s *RedisService) GetResponderNumbers(ctx context.Context) ([]string, error) {
	var numbers []string
	if err := s.Get(ctx, responderNumbersKey, &numbers); err != nil {
		return nil, err
	}
	return numbers, nil
}

// 6 InvalidateResponderNumbers drops the cached list after the directory changes
func (s *RedisService) InvalidateResponderNumbers(ctx context.Context) error {
	return s.Delete(ctx, responderNumbersKey)
}

// 7 Ping checks the connection
func (s *RedisService) Ping(ctx context.Context) error {
	return s.Client.Ping(ctx).Err()
}
