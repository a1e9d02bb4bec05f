package transfer

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"go.uber.org/zap"

	s3c "github.com/arencloud/iris/internal/s3"
)

const (
	probeWait = 5 * time.Second
	// Bucket probing is a propagation-delay workaround: a freshly
	// assumed role is sometimes not authorized yet. Bounded, unlike
	// role assumption itself.
	maxProbeRetries = 5
)

// RoleBroker yields temporary credentials for a role in another account.
type RoleBroker interface {
	AssumeRole(ctx context.Context, accountID, roleName string) (aws.Credentials, error)
}

// StoreFactory builds an ObjectStore authenticated with the given
// credentials. The orchestrator calls it again whenever credentials
// are re-acquired.
type StoreFactory func(aws.Credentials) ObjectStore

// Orchestrator drives one job: validate the invoker, assume the
// cross-account role, probe every destination bucket, then fetch and
// sync each transfer pair in order. Strictly sequential; the first
// fatal error aborts the remaining pairs.
type Orchestrator struct {
	broker RoleBroker
	source ObjectStore
	target StoreFactory
	logger *zap.Logger
	wait   time.Duration
}

func NewOrchestrator(broker RoleBroker, source ObjectStore, target StoreFactory, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{broker: broker, source: source, target: target, logger: logger, wait: probeWait}
}

func (o *Orchestrator) Run(ctx context.Context, job *Job, invokedARN string) error {
	if err := job.Validate(); err != nil {
		return err
	}
	if err := job.validateInvoker(invokedARN); err != nil {
		o.logger.Error("invoker validation failed", zap.String("accountId", job.AccountID), zap.Error(err))
		return err
	}

	creds, err := o.broker.AssumeRole(ctx, job.AccountID, job.RoleToAssume)
	if err != nil {
		return err
	}

	for _, pair := range job.Pairs {
		creds, err = o.probe(ctx, job, pair.TargetBucket, creds)
		if err != nil {
			return err
		}
	}

	for _, pair := range job.Pairs {
		archive, err := o.source.Fetch(ctx, pair.SourceBucket, pair.SourceKey, pair.SourceVersion)
		if err != nil {
			return err
		}
		engine := NewEngine(o.target(creds), o.logger)
		if err := engine.Sync(ctx, archive, pair.TargetBucket, pair.TargetPrefix, true); err != nil {
			return err
		}
		o.logger.Info("transfer pair completed",
			zap.String("sourceBucket", pair.SourceBucket),
			zap.String("sourceKey", pair.SourceKey),
			zap.String("targetBucket", pair.TargetBucket))
	}
	return nil
}

// probe verifies the destination bucket is reachable under the current
// credentials, re-assuming the role between attempts so that
// propagation delay after role creation resolves itself. Returns the
// credentials that finally worked.
func (o *Orchestrator) probe(ctx context.Context, job *Job, bucket string, creds aws.Credentials) (aws.Credentials, error) {
	retries := 0
	for {
		err := o.target(creds).Probe(ctx, bucket)
		if err == nil {
			return creds, nil
		}
		if !s3c.IsClientError(err) {
			return creds, err
		}
		o.logger.Warn("failed to access bucket",
			zap.String("bucket", bucket), zap.Int("retries", retries), zap.Error(err))
		if retries >= maxProbeRetries {
			return creds, fmt.Errorf("bucket %s unreachable after %d attempts: %w", bucket, retries+1, err)
		}
		retries++
		if err := sleep(ctx, o.wait); err != nil {
			return creds, err
		}
		creds, err = o.broker.AssumeRole(ctx, job.AccountID, job.RoleToAssume)
		if err != nil {
			return creds, err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
