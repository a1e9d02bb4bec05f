package transfer

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	awssts "github.com/aws/aws-sdk-go-v2/service/sts"
	"go.uber.org/zap"

	s3c "github.com/arencloud/iris/internal/s3"
	stsc "github.com/arencloud/iris/internal/sts"
)

// NewAWS builds an orchestrator backed by real AWS clients. Source-side
// fetches run under the ambient credential chain; destination clients
// are rebuilt from the assumed role's credentials whenever the broker
// hands out a fresh set.
func NewAWS(ctx context.Context, region string, logger *zap.Logger) (*Orchestrator, error) {
	if region == "" {
		return nil, errors.New("aws region is required (set AWS_REGION)")
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	broker := stsc.NewBroker(awssts.NewFromConfig(cfg), logger)
	source := s3c.New(awss3.NewFromConfig(cfg), logger)
	target := func(c aws.Credentials) ObjectStore {
		tcfg := cfg.Copy()
		tcfg.Credentials = credentials.NewStaticCredentialsProvider(c.AccessKeyID, c.SecretAccessKey, c.SessionToken)
		return s3c.New(awss3.NewFromConfig(tcfg), logger)
	}
	return NewOrchestrator(broker, source, target, logger), nil
}
