package middleware

import (
	"sync"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
)

// RedisErrors counts Redis command failures observed by the cache layer.
var RedisErrors = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "redis_errors_total",
		Help: "Total number of Redis command errors",
	},
	[]string{"command"},
)

var (
	fiberProm   *fiberprometheus.FiberPrometheus
	metricsOnce sync.Once
)

// InitMetrics registers the HTTP metrics collector and custom collectors.
// Safe to call more than once; registration happens on the first call.
func InitMetrics(serviceName string) {
	metricsOnce.Do(func() {
		fiberProm = fiberprometheus.New(serviceName)
		prometheus.MustRegister(RedisErrors)
	})
}

// MetricsMiddleware instruments every request and exposes /metrics.
func MetricsMiddleware(app *fiber.App) fiber.Handler {
	fiberProm.RegisterAt(app, "/metrics")
	return fiberProm.Middleware
}
