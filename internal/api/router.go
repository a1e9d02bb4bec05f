// Package api exposes the HTTP trigger surface: job submission, run
// history, and the usual liveness/version endpoints.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arencloud/iris/internal/config"
	"github.com/arencloud/iris/internal/db"
	"github.com/arencloud/iris/internal/transfer"
	"github.com/arencloud/iris/internal/version"
)

// RunFunc executes one job. cmd/server wires this to the AWS-backed
// orchestrator; tests substitute stubs.
type RunFunc func(ctx context.Context, job *transfer.Job, invokedARN string) error

func Router(cfg *config.Config, logger *zap.Logger, store *db.Store, run RunFunc) *gin.Engine {
	if cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(requestid.New())
	r.Use(ginzap.Ginzap(logger, time.RFC3339, true))
	r.Use(ginzap.RecoveryWithZap(logger, true))

	r.GET("/health", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/api/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"name": "iris", "version": version.Version})
	})

	v1 := r.Group("/api/v1")
	if cfg.APITokenHash != "" {
		v1.Use(bearerAuth(cfg.APITokenHash))
	}
	v1.POST("/jobs", submitJob(logger, store, run))
	v1.GET("/runs", listRuns(store))
	return r
}
