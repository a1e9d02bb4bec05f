// Command runner executes a single job description and exits. It is
// the entry point for cron/CI invocation, the moral equivalent of a
// one-shot function trigger.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/arencloud/iris/internal/config"
	"github.com/arencloud/iris/internal/db"
	"github.com/arencloud/iris/internal/logging"
	"github.com/arencloud/iris/internal/transfer"
	"github.com/arencloud/iris/internal/version"
)

func main() {
	jobPath := flag.String("job", "", "path to the job description JSON (\"-\" for stdin)")
	invokedARN := flag.String("invoked-arn", "", "invocation ARN for caller-account validation (optional)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Version)
		return
	}
	if *jobPath == "" {
		fmt.Fprintln(os.Stderr, "usage: runner -job <file|-> [-invoked-arn <arn>]")
		os.Exit(2)
	}

	cfg := config.Load()
	logger := logging.New(cfg.Env)
	defer logger.Sync()

	data, err := readJob(*jobPath)
	if err != nil {
		logger.Fatal("failed to read job description", zap.String("path", *jobPath), zap.Error(err))
	}
	job, err := transfer.ParseJob(data)
	if err != nil {
		logger.Fatal("invalid job description", zap.Error(err))
	}

	store, err := db.Init(cfg, logger)
	if err != nil {
		logger.Fatal("failed to init db", zap.Error(err))
	}

	ctx := context.Background()
	orch, err := transfer.NewAWS(ctx, cfg.Region, logger)
	if err != nil {
		logger.Fatal("failed to init aws clients", zap.Error(err))
	}

	rec, err := store.StartRun(job.AccountID, job.RoleToAssume, len(job.Pairs))
	if err != nil {
		logger.Error("failed to record run start", zap.Error(err))
	}
	runErr := orch.Run(ctx, job, *invokedARN)
	if err := store.FinishRun(rec, runErr); err != nil {
		logger.Error("failed to record run outcome", zap.Error(err))
	}
	if runErr != nil {
		logger.Fatal("job failed", zap.Error(runErr))
	}
	logger.Info("job completed",
		zap.String("accountId", job.AccountID), zap.Int("pairs", len(job.Pairs)))
}

func readJob(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}
