package cache

import (
	"context"
	"encoding/json"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/puntoventa/pos-backoffice/internal/application/dto"
)

const (
	keyLowStock   = "products:low_stock"
	keyLastReport = "reconciliation:last_report"
)

// RedisCache implementa LowStockCache y ReportCache sobre un cliente Redis
// compartido. Los valores se serializan como JSON.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(addr string, password string, db int) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisCache{client: client}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) GetLowStock(ctx context.Context) ([]dto.ProductResponse, bool, error) {
	val, err := c.client.Get(ctx, keyLowStock).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var products []dto.ProductResponse
	if err := json.Unmarshal([]byte(val), &products); err != nil {
		return nil, false, err
	}
	return products, true, nil
}

func (c *RedisCache) SetLowStock(ctx context.Context, products []dto.ProductResponse, ttl time.Duration) error {
	payload, err := json.Marshal(products)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, keyLowStock, payload, ttl).Err()
}

// SetLastReport persiste el reporte sin TTL: siempre interesa el último,
// aunque la corrida sea vieja.
func (c *RedisCache) SetLastReport(ctx context.Context, report *dto.ReconciliationReport) error {
	if report == nil {
		return nil
	}
	payload, err := json.Marshal(report)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, keyLastReport, payload, 0).Err()
}

func (c *RedisCache) GetLastReport(ctx context.Context) (*dto.ReconciliationReport, bool, error) {
	val, err := c.client.Get(ctx, keyLastReport).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var report dto.ReconciliationReport
	if err := json.Unmarshal([]byte(val), &report); err != nil {
		return nil, false, err
	}
	return &report, true, nil
}
