package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/angewarren12/billeterie-maritime-sub002/config"
	"github.com/angewarren12/billeterie-maritime-sub002/internal/domain"
	"github.com/redis/go-redis/v9"
)

type RedisCache struct {
	client    *redis.Client
	deviceTTL time.Duration
}

func NewRedisCache(cfg config.RedisConfig, deviceTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:    redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		deviceTTL: deviceTTL,
	}
}

// AcquireScanLock takes a short-lived mutex on a credential so the
// check-then-write of a scan runs as a critical section across service
// instances. The TTL bounds the lock in case the holder dies mid-scan.
func (c *RedisCache) AcquireScanLock(ctx context.Context, credentialKey string, ttl time.Duration) (bool, error) {
	return c.client.SetNX(ctx, scanLockKey(credentialKey), "locked", ttl).Result()
}

func (c *RedisCache) ReleaseScanLock(ctx context.Context, credentialKey string) error {
	return c.client.Del(ctx, scanLockKey(credentialKey)).Err()
}

// GetDevice returns the cached device for an API token, or nil on a miss.
func (c *RedisCache) GetDevice(ctx context.Context, token string) (*domain.AccessDevice, error) {
	data, err := c.client.Get(ctx, deviceKey(token)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var device domain.AccessDevice
	if err := json.Unmarshal(data, &device); err != nil {
		return nil, err
	}
	return &device, nil
}

func (c *RedisCache) SetDevice(ctx context.Context, token string, device *domain.AccessDevice) error {
	payload, err := json.Marshal(device)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, deviceKey(token), payload, c.deviceTTL).Err()
}

func scanLockKey(credentialKey string) string {
	return fmt.Sprintf("lock:scan:%s", credentialKey)
}

func deviceKey(token string) string {
	return fmt.Sprintf("cache:device:%s", token)
}
