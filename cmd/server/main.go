package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/arencloud/iris/internal/api"
	"github.com/arencloud/iris/internal/config"
	"github.com/arencloud/iris/internal/db"
	"github.com/arencloud/iris/internal/logging"
	"github.com/arencloud/iris/internal/transfer"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.Env)
	defer logger.Sync()

	store, err := db.Init(cfg, logger)
	if err != nil {
		logger.Fatal("failed to init db", zap.Error(err))
	}

	orch, err := transfer.NewAWS(context.Background(), cfg.Region, logger)
	if err != nil {
		logger.Fatal("failed to init aws clients", zap.Error(err))
	}
	run := func(ctx context.Context, job *transfer.Job, invokedARN string) error {
		return orch.Run(ctx, job, invokedARN)
	}

	r := api.Router(cfg, logger, store, run)

	srv := &http.Server{
		Addr:              ":" + cfg.HttpPort,
		Handler:           r,
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       0, // jobs run synchronously and may block on role propagation
		WriteTimeout:      0,
		MaxHeaderBytes:    1 << 20, // 1MB headers
	}
	logger.Info("server starting", zap.String("addr", srv.Addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Println("server error:", err)
		os.Exit(1)
	}
}
