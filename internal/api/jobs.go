package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arencloud/iris/internal/db"
	"github.com/arencloud/iris/internal/models"
	"github.com/arencloud/iris/internal/transfer"
)

// invokedARNHeader carries the originating function ARN when the
// request is forwarded from an invocation frontend, enabling the
// caller-account check.
const invokedARNHeader = "X-Invoked-Function-Arn"

func submitJob(logger *zap.Logger, store *db.Store, run RunFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		var job transfer.Job
		if err := c.ShouldBindJSON(&job); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := job.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		rec, err := store.StartRun(job.AccountID, job.RoleToAssume, len(job.Pairs))
		if err != nil {
			// History is best-effort; the run proceeds regardless.
			logger.Error("failed to record run start", zap.Error(err))
		}

		runErr := run(c.Request.Context(), &job, c.GetHeader(invokedARNHeader))
		if err := store.FinishRun(rec, runErr); err != nil {
			logger.Error("failed to record run outcome", zap.Error(err))
		}

		switch {
		case errors.Is(runErr, transfer.ErrInvokerMismatch):
			c.JSON(http.StatusForbidden, gin.H{"error": runErr.Error()})
		case runErr != nil:
			c.JSON(http.StatusBadGateway, gin.H{"error": runErr.Error()})
		default:
			resp := gin.H{"status": "completed"}
			if rec != nil {
				resp["runId"] = rec.ID
			}
			c.JSON(http.StatusOK, resp)
		}
	}
}

func listRuns(store *db.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		runs, err := store.RecentRuns(50)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if runs == nil {
			runs = []models.JobRun{}
		}
		c.JSON(http.StatusOK, runs)
	}
}
