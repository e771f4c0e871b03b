package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisConnectTimeout = 5 * time.Second

// Redis holds the shared client used for the token blacklist, rate limiting,
// latest results and extension login attempts.
type Redis struct {
	Client *redis.Client
}

// RedisOptions prefers url (redis:// or rediss:// for hosted TLS instances)
// and falls back to the discrete address fields.
func RedisOptions(url, addr, password string, db int) (*redis.Options, error) {
	if url != "" {
		opts, err := redis.ParseURL(url)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		return opts, nil
	}
	return &redis.Options{Addr: addr, Password: password, DB: db}, nil
}

// NewRedis connects with opts and fails unless the server answers a ping.
func NewRedis(opts *redis.Options) (*Redis, error) {
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), redisConnectTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis at %s unreachable: %w", opts.Addr, err)
	}

	return &Redis{Client: client}, nil
}

func (r *Redis) Close() error {
	return r.Client.Close()
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.Client.Ping(ctx).Err()
}
