package attachments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "attachment:"

// RedisOptions configures the Redis connection.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// RedisGateway stores blobs as plain Redis strings keyed by attachment id.
type RedisGateway struct {
	client *redis.Client
}

// NewRedisGateway dials Redis and verifies the connection.
func NewRedisGateway(ctx context.Context, opts RedisOptions) (*RedisGateway, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisGateway{client: client}, nil
}

// NewRedisGatewayFromClient wraps an existing client.
func NewRedisGatewayFromClient(client *redis.Client) *RedisGateway {
	return &RedisGateway{client: client}
}

func blobKey(id string) string {
	return keyPrefix + id
}

// Put implements domain.AttachmentGateway.
func (g *RedisGateway) Put(ctx context.Context, id string, data []byte) error {
	return g.client.Set(ctx, blobKey(id), data, 0).Err()
}

// Get implements domain.AttachmentGateway. Unknown ids yield nil data.
func (g *RedisGateway) Get(ctx context.Context, id string) ([]byte, error) {
	data, err := g.client.Get(ctx, blobKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Delete implements domain.AttachmentGateway.
func (g *RedisGateway) Delete(ctx context.Context, id string) error {
	return g.client.Del(ctx, blobKey(id)).Err()
}

// Ping checks connectivity for readiness probes.
func (g *RedisGateway) Ping(ctx context.Context) error {
	return g.client.Ping(ctx).Err()
}

// Close releases the underlying client.
func (g *RedisGateway) Close() error {
	return g.client.Close()
}
