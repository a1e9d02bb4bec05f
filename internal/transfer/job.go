package transfer

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrInvokerMismatch is returned when the invocation context names a
// caller account other than the one the job wants a role in.
var ErrInvokerMismatch = errors.New("invoking account does not match job account")

// TransferPair names one archive to republish: where the compressed
// bundle lives and which destination bucket mirrors it.
type TransferPair struct {
	SourceBucket  string `json:"s3_source_bucket"`
	SourceKey     string `json:"s3_source_key"`
	SourceVersion string `json:"s3_source_version,omitempty"`
	TargetBucket  string `json:"s3_target_bucket"`
	TargetPrefix  string `json:"s3_target_prefix,omitempty"`
}

// Job is the externally supplied description of one pipeline run.
type Job struct {
	AccountID    string         `json:"account_id"`
	RoleToAssume string         `json:"role_to_assume"`
	Pairs        []TransferPair `json:"s3_source_target_pairs"`
}

// ParseJob decodes and validates a job description.
func ParseJob(data []byte) (*Job, error) {
	var j Job
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("decode job: %w", err)
	}
	if err := j.Validate(); err != nil {
		return nil, err
	}
	return &j, nil
}

// Validate checks field presence only; deeper validation is left to the
// storage service.
func (j *Job) Validate() error {
	if j.AccountID == "" {
		return errors.New("job: account_id is required")
	}
	if j.RoleToAssume == "" {
		return errors.New("job: role_to_assume is required")
	}
	if len(j.Pairs) == 0 {
		return errors.New("job: s3_source_target_pairs is required")
	}
	for i, p := range j.Pairs {
		if p.SourceBucket == "" {
			return fmt.Errorf("job: pair %d: s3_source_bucket is required", i)
		}
		if p.SourceKey == "" {
			return fmt.Errorf("job: pair %d: s3_source_key is required", i)
		}
		if p.TargetBucket == "" {
			return fmt.Errorf("job: pair %d: s3_target_bucket is required", i)
		}
	}
	return nil
}

// AliasFromARN extracts the invocation alias from a function ARN. Only
// ARNs with exactly 8 colon-delimited segments carry an alias; anything
// else yields "".
func AliasFromARN(arn string) string {
	parts := strings.Split(arn, ":")
	if len(parts) != 8 {
		return ""
	}
	return parts[len(parts)-1]
}

// invokerAccount derives the caller account id from an alias of the
// form "...account-<id>".
func invokerAccount(alias string) string {
	segs := strings.Split(alias, "account-")
	return segs[len(segs)-1]
}

// validateInvoker aborts when the invocation alias names an account
// other than the job's. Best effort: no alias, no check.
func (j *Job) validateInvoker(invokedARN string) error {
	alias := AliasFromARN(invokedARN)
	if alias == "" {
		return nil
	}
	invoker := invokerAccount(alias)
	if invoker != "" && invoker != j.AccountID {
		return fmt.Errorf("%w: invoked by %q, job targets %q", ErrInvokerMismatch, invoker, j.AccountID)
	}
	return nil
}
