package middleware

import (
	"sync"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts failed Redis commands by command name.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_redis_errors_total",
		Help: "Total number of Redis command errors",
	}, []string{"command"})

	// ActiveWebSockets is the number of open notification channel connections.
	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "inkwell_active_websockets",
		Help: "Number of active WebSocket connections",
	})

	// CacheLookups counts cache-aside lookups by outcome.
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_cache_lookups_total",
		Help: "Cache-aside lookups by result (hit, miss, error)",
	}, []string{"result"})

	// AuthEvents counts authentication outcomes.
	AuthEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_auth_events_total",
		Help: "Authentication events by type and outcome",
	}, []string{"event", "outcome"})
)

var (
	promOnce sync.Once
	prom     *fiberprometheus.FiberPrometheus
)

// InitMetrics returns the shared HTTP metrics collector. Collectors register
// with the default registry, so they are created once per process.
func InitMetrics(serviceName string) *fiberprometheus.FiberPrometheus {
	promOnce.Do(func() {
		prom = fiberprometheus.New(serviceName)
	})
	return prom
}

// MetricsMiddleware records request metrics, skipping the scrape endpoint itself.
func MetricsMiddleware(p *fiberprometheus.FiberPrometheus) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Path() == "/metrics" {
			return c.Next()
		}
		return p.Middleware(c)
	}
}
