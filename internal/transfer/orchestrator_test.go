package transfer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"
)

type fakeBroker struct {
	calls int
	err   error
}

func (b *fakeBroker) AssumeRole(ctx context.Context, accountID, roleName string) (aws.Credentials, error) {
	b.calls++
	if b.err != nil {
		return aws.Credentials{}, b.err
	}
	return aws.Credentials{AccessKeyID: "AKID", SecretAccessKey: "SECRET", SessionToken: "TOK"}, nil
}

func testJob() *Job {
	return &Job{
		AccountID:    "111",
		RoleToAssume: "deployer",
		Pairs: []TransferPair{
			{SourceBucket: "src", SourceKey: "site.zip", TargetBucket: "dst"},
		},
	}
}

func newTestOrchestrator(broker RoleBroker, source, target *fakeStore) *Orchestrator {
	o := NewOrchestrator(broker, source, func(aws.Credentials) ObjectStore { return target }, zap.NewNop())
	o.wait = 0
	return o
}

func TestRunHappyPath(t *testing.T) {
	source := newFakeStore()
	source.objects["src/site.zip"] = zipBytes(t, map[string][]byte{
		"index.html": []byte("<html/>"),
		"app.js":     []byte("js"),
	})
	target := newFakeStore()
	target.objects["dst/stale.txt"] = []byte("old")
	broker := &fakeBroker{}

	o := newTestOrchestrator(broker, source, target)
	if err := o.Run(context.Background(), testJob(), ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if broker.calls != 1 {
		t.Fatalf("expected a single role assumption, got %d", broker.calls)
	}
	got := target.keys("dst")
	if len(got) != 2 || got[0] != "app.js" || got[1] != "index.html" {
		t.Fatalf("destination keys = %v", got)
	}
}

func TestRunInvalidJob(t *testing.T) {
	broker := &fakeBroker{}
	o := newTestOrchestrator(broker, newFakeStore(), newFakeStore())
	err := o.Run(context.Background(), &Job{}, "")
	if err == nil {
		t.Fatal("expected validation error")
	}
	if broker.calls != 0 {
		t.Fatalf("invalid job must not assume a role")
	}
}

func TestRunInvokerMismatchAbortsBeforeAssume(t *testing.T) {
	source := newFakeStore()
	target := newFakeStore()
	broker := &fakeBroker{}
	o := newTestOrchestrator(broker, source, target)
	err := o.Run(context.Background(), testJob(), "arn:aws:lambda:eu-west-1:0:function:deploy:account-222")
	if !errors.Is(err, ErrInvokerMismatch) {
		t.Fatalf("expected ErrInvokerMismatch, got %v", err)
	}
	if broker.calls != 0 {
		t.Fatalf("mismatch must abort before role assumption, got %d calls", broker.calls)
	}
	if target.probeCalls != 0 || source.fetchCalls != 0 {
		t.Fatalf("mismatch must abort before any storage call")
	}
}

func TestProbeAbortsAfterSixFailures(t *testing.T) {
	denied := &smithy.GenericAPIError{Code: "Forbidden", Message: "forbidden"}
	target := newFakeStore()
	for i := 0; i < 10; i++ {
		target.probeErrs = append(target.probeErrs, denied)
	}
	broker := &fakeBroker{}
	o := newTestOrchestrator(broker, newFakeStore(), target)
	err := o.Run(context.Background(), testJob(), "")
	if err == nil || !strings.Contains(err.Error(), "unreachable") {
		t.Fatalf("expected probe exhaustion error, got %v", err)
	}
	if target.probeCalls != 6 {
		t.Fatalf("expected exactly 6 probe attempts, got %d", target.probeCalls)
	}
	// Initial assumption plus one re-acquisition per retry.
	if broker.calls != 6 {
		t.Fatalf("expected 6 role assumptions, got %d", broker.calls)
	}
}

func TestProbeRecoversAfterPropagationDelay(t *testing.T) {
	denied := &smithy.GenericAPIError{Code: "Forbidden"}
	source := newFakeStore()
	source.objects["src/site.zip"] = zipBytes(t, map[string][]byte{"index.html": []byte("x")})
	target := newFakeStore()
	target.probeErrs = []error{denied, denied} // third attempt succeeds
	broker := &fakeBroker{}
	o := newTestOrchestrator(broker, source, target)
	if err := o.Run(context.Background(), testJob(), ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if target.probeCalls != 3 {
		t.Fatalf("expected 3 probe attempts, got %d", target.probeCalls)
	}
	if broker.calls != 3 {
		t.Fatalf("expected initial + 2 re-acquired assumptions, got %d", broker.calls)
	}
}

func TestProbeNonClientErrorIsImmediatelyFatal(t *testing.T) {
	boom := errors.New("tls handshake failure")
	target := newFakeStore()
	target.probeErrs = []error{boom}
	broker := &fakeBroker{}
	o := newTestOrchestrator(broker, newFakeStore(), target)
	err := o.Run(context.Background(), testJob(), "")
	if !errors.Is(err, boom) {
		t.Fatalf("expected propagated error, got %v", err)
	}
	if target.probeCalls != 1 {
		t.Fatalf("non-client errors must not be retried, got %d probes", target.probeCalls)
	}
}

func TestRunFetchFailureAbortsRemainingPairs(t *testing.T) {
	source := newFakeStore() // no objects: every fetch fails
	target := newFakeStore()
	broker := &fakeBroker{}
	job := testJob()
	job.Pairs = append(job.Pairs, TransferPair{SourceBucket: "src", SourceKey: "other.zip", TargetBucket: "dst"})
	o := newTestOrchestrator(broker, source, target)
	if err := o.Run(context.Background(), job, ""); err == nil {
		t.Fatal("expected fetch error")
	}
	if source.fetchCalls != 1 {
		t.Fatalf("expected the run to abort after the first failed fetch, got %d fetches", source.fetchCalls)
	}
}

func TestRunAssumeRoleFailureIsFatal(t *testing.T) {
	broker := &fakeBroker{err: errors.New("sts unavailable")}
	target := newFakeStore()
	o := newTestOrchestrator(broker, newFakeStore(), target)
	if err := o.Run(context.Background(), testJob(), ""); err == nil {
		t.Fatal("expected error")
	}
	if target.probeCalls != 0 {
		t.Fatalf("no probing should happen without credentials")
	}
}
