package monitoring

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/compozy/listview/engine/infra/monitoring/middleware"
	"github.com/compozy/listview/pkg/logger"
)

const meterName = "listview"

// Service owns the OTel meter provider and its Prometheus registry.
type Service struct {
	meter       metric.Meter
	provider    *sdkmetric.MeterProvider
	registry    *prom.Registry
	initialized bool
}

func newDisabledService() *Service {
	return &Service{meter: noop.NewMeterProvider().Meter(meterName)}
}

// NewService builds a Prometheus-backed service, or a no-op one when
// disabled.
func NewService(ctx context.Context, enabled bool) (*Service, error) {
	log := logger.FromContext(ctx)
	if !enabled {
		log.Debug("Metrics disabled, using no-op meter")
		return newDisabledService(), nil
	}
	registry := prom.NewRegistry()
	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Prometheus exporter: %w", err)
	}
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	log.Debug("Metrics service initialized")
	return &Service{
		meter:       provider.Meter(meterName),
		provider:    provider,
		registry:    registry,
		initialized: true,
	}, nil
}

func (s *Service) Meter() metric.Meter {
	return s.meter
}

func (s *Service) IsInitialized() bool {
	return s.initialized
}

// SetAsGlobal makes the engines' otel.Meter lookups report here.
func (s *Service) SetAsGlobal() {
	if s.provider != nil {
		otel.SetMeterProvider(s.provider)
	}
}

func (s *Service) GinMiddleware(ctx context.Context) gin.HandlerFunc {
	if !s.initialized {
		return func(c *gin.Context) {
			c.Next()
		}
	}
	return middleware.HTTPMetrics(ctx, s.meter)
}

// ExporterHandler serves the Prometheus exposition format.
func (s *Service) ExporterHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.initialized {
			w.WriteHeader(http.StatusServiceUnavailable)
			if _, err := w.Write([]byte("metrics are disabled")); err != nil {
				logger.FromContext(r.Context()).Error("Failed to write response", "error", err)
			}
			return
		}
		promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}

func (s *Service) Shutdown(ctx context.Context) error {
	if s.provider != nil {
		return s.provider.Shutdown(ctx)
	}
	return nil
}
