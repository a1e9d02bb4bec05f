// Package sts obtains temporary cross-account credentials by assuming
// an IAM role.
package sts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awssts "github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"
)

const (
	sessionName = "NewAccountRole"
	retryWait   = 5 * time.Second
)

// AssumeRoleAPI is the slice of the STS client the broker uses.
type AssumeRoleAPI interface {
	AssumeRole(ctx context.Context, params *awssts.AssumeRoleInput, optFns ...func(*awssts.Options)) (*awssts.AssumeRoleOutput, error)
}

type Broker struct {
	api    AssumeRoleAPI
	wait   time.Duration
	logger *zap.Logger
}

func NewBroker(api AssumeRoleAPI, logger *zap.Logger) *Broker {
	return &Broker{api: api, wait: retryWait, logger: logger}
}

// AssumeRole requests temporary credentials for role/<roleName> in the
// given account. Recoverable API errors are retried indefinitely with a
// fixed backoff; newly created roles can take a while to become
// assumable, and the caller has nothing better to do than wait. Any
// other failure (including context cancellation) is returned as-is.
func (b *Broker) AssumeRole(ctx context.Context, accountID, roleName string) (aws.Credentials, error) {
	roleArn := fmt.Sprintf("arn:aws:iam::%s:role/%s", accountID, roleName)
	for {
		b.logger.Info("assuming role", zap.String("roleArn", roleArn))
		out, err := b.api.AssumeRole(ctx, &awssts.AssumeRoleInput{
			RoleArn:         aws.String(roleArn),
			RoleSessionName: aws.String(sessionName),
		})
		if err == nil {
			c := out.Credentials
			b.logger.Info("assumed role", zap.String("roleArn", roleArn))
			return aws.Credentials{
				AccessKeyID:     aws.ToString(c.AccessKeyId),
				SecretAccessKey: aws.ToString(c.SecretAccessKey),
				SessionToken:    aws.ToString(c.SessionToken),
				CanExpire:       true,
				Expires:         aws.ToTime(c.Expiration),
				Source:          "AssumeRole",
			}, nil
		}
		var apiErr smithy.APIError
		if !errors.As(err, &apiErr) {
			return aws.Credentials{}, fmt.Errorf("assume role %s: %w", roleArn, err)
		}
		b.logger.Warn("failed to assume role, retrying",
			zap.String("roleArn", roleArn),
			zap.Duration("wait", b.wait),
			zap.Error(err))
		if err := sleep(ctx, b.wait); err != nil {
			return aws.Credentials{}, err
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
