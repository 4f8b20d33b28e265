package cache

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"github.com/gomodule/redigo/redis"
)

// ValkeyProvider implements Provider backed by a Valkey/Redis-compatible server.
type ValkeyProvider struct {
	pool *redis.Pool
	cfg  ValkeyConfig
}

// ValkeyConfig holds connection parameters for the Valkey cluster.
type ValkeyConfig struct {
	Addr         string
	Username     string
	Password     string
	DB           int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	MaxRetries   int
	TLS          bool
}

// NewValkeyProvider creates a Provider using the supplied configuration. It
// performs a ping against the target to fail fast when credentials or
// connectivity are incorrect.
func NewValkeyProvider(cfg ValkeyConfig) (*ValkeyProvider, error) {
	if cfg.Addr == "" {
		return nil, errors.New("valkey addr is required")
	}
	normaliseDurations(&cfg)

	pool := &redis.Pool{
		MaxIdle:     4,
		IdleTimeout: 2 * time.Minute,
		Dial: func() (redis.Conn, error) {
			opts := []redis.DialOption{
				redis.DialConnectTimeout(cfg.DialTimeout),
				redis.DialReadTimeout(cfg.ReadTimeout),
				redis.DialWriteTimeout(cfg.WriteTimeout),
				redis.DialDatabase(cfg.DB),
			}
			if cfg.Password != "" {
				opts = append(opts, redis.DialPassword(cfg.Password))
			}
			if cfg.Username != "" {
				opts = append(opts, redis.DialUsername(cfg.Username))
			}
			if cfg.TLS {
				opts = append(opts,
					redis.DialUseTLS(true),
					redis.DialTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12}),
				)
			}
			return redis.Dial("tcp", cfg.Addr, opts...)
		},
		TestOnBorrow: func(c redis.Conn, t time.Time) error {
			if time.Since(t) < time.Minute {
				return nil
			}
			_, err := c.Do("PING")
			return err
		},
	}

	provider := &ValkeyProvider{pool: pool, cfg: cfg}
	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()
	if err := provider.ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return provider, nil
}

// Get fetches bytes by key, returning ErrCacheMiss when the key is absent.
func (p *ValkeyProvider) Get(ctx context.Context, key string) ([]byte, error) {
	var payload []byte
	err := p.withConn(ctx, func(conn redis.Conn) error {
		data, err := redis.Bytes(conn.Do("GET", key))
		if errors.Is(err, redis.ErrNil) {
			return ErrCacheMiss
		}
		if err != nil {
			return err
		}
		payload = data
		return nil
	})
	return payload, err
}

// Set stores bytes with the provided TTL.
func (p *ValkeyProvider) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return p.withConn(ctx, func(conn redis.Conn) error {
		args := []interface{}{key, value}
		if ttl > 0 {
			args = append(args, "PX", ttl.Milliseconds())
		}
		reply, err := redis.String(conn.Do("SET", args...))
		if err != nil {
			return err
		}
		if reply != "OK" {
			return fmt.Errorf("unexpected SET response: %s", reply)
		}
		return nil
	})
}

// Del removes a key from the cache.
func (p *ValkeyProvider) Del(ctx context.Context, key string) error {
	return p.withConn(ctx, func(conn redis.Conn) error {
		_, err := conn.Do("DEL", key)
		return err
	})
}

// Close releases the underlying connection pool.
func (p *ValkeyProvider) Close() error { return p.pool.Close() }

func (p *ValkeyProvider) ping(ctx context.Context) error {
	return p.withConn(ctx, func(conn redis.Conn) error {
		reply, err := redis.String(conn.Do("PING"))
		if err != nil {
			return err
		}
		if reply != "PONG" {
			return fmt.Errorf("unexpected PING response: %s", reply)
		}
		return nil
	})
}

func (p *ValkeyProvider) withConn(ctx context.Context, fn func(redis.Conn) error) error {
	retries := p.cfg.MaxRetries
	if retries <= 0 {
		retries = 1
	}

	var lastErr error
	for attempt := 0; attempt < retries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn, err := p.pool.GetContext(ctx)
		if err != nil {
			lastErr = err
			time.Sleep(backoff(attempt))
			continue
		}
		err = fn(conn)
		conn.Close()
		if err == nil || errors.Is(err, ErrCacheMiss) {
			return err
		}
		lastErr = err
		time.Sleep(backoff(attempt))
	}
	return lastErr
}

func backoff(attempt int) time.Duration {
	base := 25 * time.Millisecond
	return time.Duration(1<<attempt) * base
}

func normaliseDurations(cfg *ValkeyConfig) {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 2 * time.Second
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 500 * time.Millisecond
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 500 * time.Millisecond
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 1
	}
}
