// Package telemetry provides application-level observability for the Atrium
// backend: the slog default logger and Prometheus metrics.
//
// All metrics are registered against the default Prometheus registry and are
// served on the side-channel HTTP listener started by main.go:
//
//	GET http://<host>:<ATR_TELEMETRY_METRICS_PORT>/metrics
//
// Default port: 9090. The endpoint is not served by the Gin router so it
// stays off the public ingress.
//
// HTTP metrics use the Gin route template (e.g. /v1/admin/tenants/:id) rather
// than the raw URL to prevent unbounded label cardinality from user-supplied
// path segments such as tenant IDs.
package telemetry

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics, labelled by method, route template, and status code.
var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total HTTP requests processed, labelled by method, route template, and status code",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency by method and route template",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})
)

// Tenant lifecycle metrics.
var (
	TenantsProvisionedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tenants_provisioned_total",
		Help: "Completed tenant provisioning runs by outcome (success/failure)",
	}, []string{"outcome"})

	TenantsDeletedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tenants_deleted_total",
		Help: "Completed tenant deletion runs by storage deletion type (immediate/scheduled_90_days/none)",
	}, []string{"deletion_type"})

	ProvisioningStepDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "provisioning_step_duration_seconds",
		Help:    "Duration of individual provisioning steps",
		Buckets: prometheus.DefBuckets,
	}, []string{"step"})

	StorageOperationErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storage_operation_errors_total",
		Help: "Object-storage operation failures by operation name",
	}, []string{"operation"})

	SweeperBucketsFinalized = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sweeper_buckets_finalized_total",
		Help: "Expired tenant buckets removed by the deletion sweeper",
	})
)

// DBConnectionsInUse tracks the database connection pool, polled by
// StartDBPoolGauge.
var DBConnectionsInUse = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "db_connections_in_use",
	Help: "Open connections currently in use by the database pool",
})

// StartDBPoolGauge polls the pool every 30 seconds until stop is closed.
func StartDBPoolGauge(database *sql.DB, stop <-chan struct{}) {
	ticker := time.NewTicker(30 * time.Second)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				DBConnectionsInUse.Set(float64(database.Stats().InUse))
			case <-stop:
				return
			}
		}
	}()
	slog.Debug("database pool gauge started")
}
