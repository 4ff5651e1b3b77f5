// Package api wires together the HTTP routes for the tenant lifecycle
// service: the operator-facing admin API under /v1/admin/ plus liveness,
// readiness, and version endpoints. Route handlers live in the admin
// subpackage; this package only assembles middleware, dependencies, and
// background services.
package api

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/atriumhq/atrium/internal/api/admin"
	"github.com/atriumhq/atrium/internal/audit"
	"github.com/atriumhq/atrium/internal/config"
	"github.com/atriumhq/atrium/internal/db/repositories"
	"github.com/atriumhq/atrium/internal/jobs"
	"github.com/atriumhq/atrium/internal/middleware"
	"github.com/atriumhq/atrium/internal/safego"
	"github.com/atriumhq/atrium/internal/storage"
	"github.com/atriumhq/atrium/internal/telemetry"
	"github.com/atriumhq/atrium/internal/tenancy"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// BackgroundServices holds background jobs and resources that must be stopped
// during graceful shutdown. The caller (cmd/server) calls Shutdown after the
// HTTP server has drained.
type BackgroundServices struct {
	sweeper     *jobs.DeletionSweeper
	auditExport *audit.MultiShipper
	poolGauge   chan struct{}
}

// Shutdown stops all background goroutines and closes the audit exporters.
func (bg *BackgroundServices) Shutdown() {
	if bg.sweeper != nil {
		bg.sweeper.Stop()
	}
	if bg.poolGauge != nil {
		close(bg.poolGauge)
	}
	if bg.auditExport != nil {
		_ = bg.auditExport.Close()
	}
}

// NewRouter creates and configures the Gin router and starts the background
// services.
func NewRouter(cfg *config.Config, db *sql.DB) (*gin.Engine, *BackgroundServices, error) {
	router := gin.New()

	storageBackend, err := storage.New(cfg)
	if err != nil {
		return nil, nil, err
	}

	store := repositories.NewStore(db)
	dispatcher := tenancy.NewDispatcher()

	shipper, err := audit.NewFromConfig(cfg.Audit)
	if err != nil {
		return nil, nil, err
	}
	audit.Subscribe(dispatcher, shipper)

	provisioner := tenancy.NewProvisioner(store, storageBackend, dispatcher, tenancy.Capabilities{}, cfg.Provisioning.BucketPrefix)
	deleter := tenancy.NewDeleter(store, storageBackend, dispatcher, int32(cfg.Deletion.RetentionDays))

	bg := &BackgroundServices{
		auditExport: shipper,
		poolGauge:   make(chan struct{}),
	}
	telemetry.StartDBPoolGauge(db, bg.poolGauge)

	if cfg.Jobs.Sweeper.Enabled {
		bg.sweeper = jobs.NewDeletionSweeper(storageBackend, store, cfg.Provisioning.BucketPrefix, cfg.Jobs.Sweeper.IntervalHours)
		sweeper := bg.sweeper
		safego.Go("deletion-sweeper", func() {
			sweeper.Start(context.Background())
		})
	}

	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.LoggerMiddleware())

	router.GET("/health", healthCheckHandler(db))
	router.GET("/ready", readinessHandler(db, storageBackend, cfg))
	router.GET("/version", versionHandler())

	tenants := admin.NewTenantHandlers(cfg, provisioner, deleter, store)

	v1 := router.Group("/v1/admin")
	{
		v1.POST("/tenants", tenants.ProvisionTenantHandler())
		v1.GET("/tenants/:id", tenants.GetTenantHandler())
		v1.DELETE("/tenants/:id", tenants.DeleteTenantHandler())
		v1.POST("/tenants/:id/soft-delete", tenants.SoftDeleteTenantHandler())
	}

	return router, bg, nil
}

// healthCheckHandler is the liveness probe: database connectivity only.
func healthCheckHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  "database connection failed",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// readinessHandler also probes the storage backend, so a readiness gate fails
// when bucket operations would error. The existence check on a known-absent
// bucket exercises authentication and connectivity without creating state.
func readinessHandler(db *sql.DB, storageBackend storage.TenantStore, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		checks := gin.H{}

		if err := db.Ping(); err != nil {
			checks["database"] = "unhealthy"
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"ready":  false,
				"checks": checks,
				"error":  "database not ready",
			})
			return
		}
		checks["database"] = "healthy"

		probe := cfg.Provisioning.BucketPrefix + "-readiness-probe"
		if _, err := storageBackend.BucketExists(c.Request.Context(), probe); err != nil {
			checks["storage"] = "unhealthy"
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"ready":  false,
				"checks": checks,
				"error":  "storage backend not ready",
			})
			return
		}
		checks["storage"] = "healthy"

		c.JSON(http.StatusOK, gin.H{
			"ready":  true,
			"checks": checks,
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// versionHandler reports the build version.
func versionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"version": Version})
	}
}
