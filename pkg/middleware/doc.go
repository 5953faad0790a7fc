// Package middleware provides HTTP middleware for Gatehouse servers.
//
// This package includes:
//   - Prometheus metrics middleware
//   - OpenTelemetry tracing middleware
//
// # Prometheus Metrics
//
// The Prometheus middleware records per-request metrics:
//   - gatehouse_http_requests_total: requests by path, method and status
//   - gatehouse_http_request_duration_seconds: request duration histogram
//   - gatehouse_http_requests_in_flight: requests currently being served
//
//	r.Use(middleware.Prometheus())
//
// Configure with options:
//
//	middleware.Prometheus(
//	    middleware.WithNamespace("myapp"),
//	    middleware.WithRegistry(reg),
//	)
//
// Expose the scrape endpoint with promhttp:
//
//	r.Handle("/metrics", promhttp.Handler())
//
// # OpenTelemetry Tracing
//
// The OpenTelemetry middleware opens a span per request and records the
// method, path and resulting status code. It uses the global tracer
// provider; configure an exporter in main() before serving.
//
//	r.Use(middleware.OpenTelemetry(
//	    middleware.WithTracerName("my-service"),
//	    middleware.WithRequestFilter(func(r *http.Request) bool {
//	        return r.URL.Path != "/healthz"
//	    }),
//	))
package middleware
