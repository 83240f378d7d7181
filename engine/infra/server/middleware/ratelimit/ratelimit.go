package ratelimit

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/compozy/listview/engine/infra/server/router"
	"github.com/compozy/listview/pkg/config"
	"github.com/compozy/listview/pkg/logger"
)

var ErrInvalidRate = errors.New("rate limit needs a positive limit and period")

// Manager limits requests per client IP with an in-memory store.
type Manager struct {
	limiter  *limiter.Limiter
	blocked  metric.Int64Counter
	excluded []string
}

// NewManager builds the limiter. Requests whose path starts with one of
// excluded are never limited.
func NewManager(cfg config.RateLimitConfig, meter metric.Meter, excluded ...string) (*Manager, error) {
	if cfg.Limit < 1 || cfg.Period <= 0 {
		return nil, fmt.Errorf("%w: %d per %s", ErrInvalidRate, cfg.Limit, cfg.Period)
	}
	blocked, err := meter.Int64Counter(
		"listview_rate_limit_blocks",
		metric.WithDescription("Requests rejected by the rate limiter"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit counter: %w", err)
	}
	rate := limiter.Rate{Limit: cfg.Limit, Period: cfg.Period}
	return &Manager{
		limiter:  limiter.New(memory.NewStore(), rate),
		blocked:  blocked,
		excluded: excluded,
	}, nil
}

// Middleware applies the limit and sets the X-RateLimit-* headers.
func (m *Manager) Middleware() gin.HandlerFunc {
	limit := mgin.NewMiddleware(m.limiter,
		mgin.WithLimitReachedHandler(func(c *gin.Context) {
			ctx := c.Request.Context()
			m.blocked.Add(ctx, 1, metric.WithAttributes(attribute.String("route", c.FullPath())))
			logger.FromContext(ctx).Warn("Rate limit reached", "client_ip", c.ClientIP(), "path", c.Request.URL.Path)
			router.RespondWithError(c, router.NewServerError(router.ErrTooManyRequestsCode, "Too many requests"))
		}),
		mgin.WithErrorHandler(func(c *gin.Context, err error) {
			router.RespondWithError(c, fmt.Errorf("rate limiter: %w", err))
		}),
	)
	return func(c *gin.Context) {
		for _, prefix := range m.excluded {
			if strings.HasPrefix(c.Request.URL.Path, prefix) {
				c.Next()
				return
			}
		}
		limit(c)
	}
}
