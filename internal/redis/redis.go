package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"
)

// Config holds Redis configuration
type Config struct {
	Addr     string
	Password string
	DB       int
}

// Client wraps redis.Client
type Client struct {
	*redis.Client
	logger *log.Logger
}

// New connects and pings; an unreachable server is an error.
func New(ctx context.Context, config Config, logger *log.Logger) (*Client, error) {
	if logger == nil {
		logger = log.Default().WithPrefix("redis")
	}
	logger.Info("connecting to redis", "addr", config.Addr)

	client := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("connected to redis", "addr", config.Addr)
	return &Client{Client: client, logger: logger}, nil
}

func (c *Client) Close() error {
	c.logger.Info("closing redis connection")
	return c.Client.Close()
}

// HealthCheck performs a health check on the Redis connection
func (c *Client) HealthCheck(ctx context.Context) error {
	return c.Ping(ctx).Err()
}
