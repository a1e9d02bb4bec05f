package sts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awssts "github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/aws-sdk-go-v2/service/sts/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"
)

type fakeSTS struct {
	calls    int
	failures int
	err      error
}

func (f *fakeSTS) AssumeRole(ctx context.Context, in *awssts.AssumeRoleInput, _ ...func(*awssts.Options)) (*awssts.AssumeRoleOutput, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, f.err
	}
	exp := time.Now().Add(time.Hour)
	return &awssts.AssumeRoleOutput{Credentials: &types.Credentials{
		AccessKeyId:     aws.String("AKID"),
		SecretAccessKey: aws.String("SECRET"),
		SessionToken:    aws.String("TOKEN"),
		Expiration:      &exp,
	}}, nil
}

func apiError(code string) error {
	return &smithy.GenericAPIError{Code: code, Message: code}
}

func TestAssumeRoleRetriesUntilSuccess(t *testing.T) {
	f := &fakeSTS{failures: 3, err: apiError("AccessDenied")}
	b := &Broker{api: f, wait: 0, logger: zap.NewNop()}
	creds, err := b.AssumeRole(context.Background(), "123456789012", "deployer")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.calls != 4 {
		t.Fatalf("expected 4 attempts (3 failures + 1 success), got %d", f.calls)
	}
	if creds.AccessKeyID != "AKID" || creds.SessionToken != "TOKEN" {
		t.Fatalf("unexpected credentials: %+v", creds)
	}
	if !creds.CanExpire {
		t.Fatalf("credentials should carry an expiry")
	}
}

func TestAssumeRoleFatalOnNonAPIError(t *testing.T) {
	boom := errors.New("dial tcp: network is unreachable")
	f := &fakeSTS{failures: 100, err: boom}
	b := &Broker{api: f, wait: 0, logger: zap.NewNop()}
	_, err := b.AssumeRole(context.Background(), "123456789012", "deployer")
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped original error, got %v", err)
	}
	if f.calls != 1 {
		t.Fatalf("non-API errors must not be retried, got %d calls", f.calls)
	}
}

func TestAssumeRoleStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f := &fakeSTS{failures: 100, err: apiError("AccessDenied")}
	b := &Broker{api: f, wait: time.Minute, logger: zap.NewNop()}
	_, err := b.AssumeRole(ctx, "123456789012", "deployer")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if f.calls != 1 {
		t.Fatalf("expected a single attempt before cancellation, got %d", f.calls)
	}
}
