package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"coldtrace-monitor/internal/models"
)

// RealtimeCache 最新读数缓存
// 每条新读数写入 Redis，供推送桥接层在连接建立时下发初始快照。
// 车队统计有意绕过本缓存，始终从存储层新鲜计算。
type RealtimeCache struct {
	redisClient *redis.Client
	keyPrefix   string
	keySuffix   string
	ttl         time.Duration
	logger      *zap.Logger
}

// NewRealtimeCache 创建实时缓存
func NewRealtimeCache(redisClient *redis.Client, keyPrefix, keySuffix string, ttl time.Duration, logger *zap.Logger) *RealtimeCache {
	return &RealtimeCache{
		redisClient: redisClient,
		keyPrefix:   keyPrefix,
		keySuffix:   keySuffix,
		ttl:         ttl,
		logger:      logger,
	}
}

// key 构建缓存键，如 "coldtrace:device:<id>:latest"
func (c *RealtimeCache) key(deviceID string) string {
	return c.keyPrefix + deviceID + c.keySuffix
}

// SetLatestReading 写入设备最新读数（带 TTL）
func (c *RealtimeCache) SetLatestReading(ctx context.Context, reading models.Reading) error {
	jsonData, err := json.Marshal(reading)
	if err != nil {
		return fmt.Errorf("failed to marshal reading: %w", err)
	}

	if err := c.redisClient.Set(ctx, c.key(reading.DeviceID), jsonData, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set latest reading: %w", err)
	}

	return nil
}

// GetLatestReading 读取设备最新读数
func (c *RealtimeCache) GetLatestReading(ctx context.Context, deviceID string) (*models.Reading, error) {
	val, err := c.redisClient.Get(ctx, c.key(deviceID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("latest reading not found: %s", deviceID)
		}
		return nil, fmt.Errorf("failed to get latest reading: %w", err)
	}

	var reading models.Reading
	if err := json.Unmarshal([]byte(val), &reading); err != nil {
		return nil, fmt.Errorf("failed to unmarshal reading: %w", err)
	}

	return &reading, nil
}
