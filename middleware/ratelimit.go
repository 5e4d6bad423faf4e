package middleware

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const rateLimitPrefix = "ratelimit:"

// RedisRateLimitStore is a fixed window request counter shared by all
// instances through Redis
type RedisRateLimitStore struct {
	client  redis.Cmdable
	limit   int64
	window  time.Duration
	timeout time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

// NewRedisRateLimitStore creates window store allowing limit requests per window
func NewRedisRateLimitStore(client redis.Cmdable, limit int, window time.Duration, logger *zap.Logger) *RedisRateLimitStore {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RedisRateLimitStore{
		client:  client,
		limit:   int64(limit),
		window:  window,
		timeout: time.Second,
		logger:  logger,
		now:     time.Now,
	}
}

// Allow implements middleware.RateLimiterStore. Redis failures let the
// request through.
func (s *RedisRateLimitStore) Allow(identifier string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	window := s.now().UnixNano() / int64(s.window)
	key := rateLimitPrefix + identifier + ":" + time.Unix(0, window*int64(s.window)).UTC().Format(time.RFC3339)

	n, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		s.logger.Warn("rate limit counter unavailable", zap.Error(err))
		return true, nil
	}

	if n == 1 {
		if err = s.client.Expire(ctx, key, s.window).Err(); err != nil {
			s.logger.Warn("can't set rate limit window expiration", zap.Error(err))
		}
	}

	return n <= s.limit, nil
}

// NewRateLimitStore returns Redis backed store when client is set, per
// process memory store otherwise
func NewRateLimitStore(client redis.Cmdable, limit int, window time.Duration, logger *zap.Logger) middleware.RateLimiterStore {
	if client != nil {
		return NewRedisRateLimitStore(client, limit, window, logger)
	}

	return middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(float64(limit) / window.Seconds()),
		Burst:     limit,
		ExpiresIn: window,
	})
}

// RateLimit limits requests per client IP
func (m *GoMiddleware) RateLimit(store middleware.RateLimiterStore) echo.MiddlewareFunc {
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			m.logger.Warn("rate limit exceeded", zap.String("remote_ip", identifier))
			return echo.ErrTooManyRequests
		},
	})
}
