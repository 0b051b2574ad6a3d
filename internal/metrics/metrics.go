// Package metrics exposes the service's Prometheus collectors.
package metrics

import (
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts handled HTTP requests by method, path and status.
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatflow_http_requests_total",
		Help: "Total number of HTTP requests handled.",
	}, []string{"method", "path", "status"})

	// GenerationDispatches counts chatflow generations handed to the engine.
	GenerationDispatches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatflow_generation_dispatches_total",
		Help: "Total number of background generation dispatches.",
	})

	// ChatflowsPublished counts chatflows created via the publish route.
	ChatflowsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatflow_published_total",
		Help: "Total number of chatflows published directly.",
	})
)

// Middleware records a RequestsTotal sample for every request.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				}
			}
			RequestsTotal.WithLabelValues(c.Request().Method, c.Path(), strconv.Itoa(status)).Inc()
			return err
		}
	}
}
