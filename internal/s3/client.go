// Package s3 wraps the object storage operations the transfer pipeline
// needs: fetching an archive, publishing entries, listing and deleting
// destination objects, and probing bucket reachability.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"
)

// DeleteObjects accepts at most this many keys per request.
const maxDeleteBatch = 1000

// API is the slice of the S3 client this package uses. It is satisfied
// by *s3.Client and by in-memory fakes in tests.
type API interface {
	GetObject(ctx context.Context, params *awss3.GetObjectInput, optFns ...func(*awss3.Options)) (*awss3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *awss3.PutObjectInput, optFns ...func(*awss3.Options)) (*awss3.PutObjectOutput, error)
	HeadBucket(ctx context.Context, params *awss3.HeadBucketInput, optFns ...func(*awss3.Options)) (*awss3.HeadBucketOutput, error)
	DeleteObjects(ctx context.Context, params *awss3.DeleteObjectsInput, optFns ...func(*awss3.Options)) (*awss3.DeleteObjectsOutput, error)
	ListObjectsV2(ctx context.Context, params *awss3.ListObjectsV2Input, optFns ...func(*awss3.Options)) (*awss3.ListObjectsV2Output, error)
}

type Client struct {
	api    API
	logger *zap.Logger
}

func New(api API, logger *zap.Logger) *Client {
	return &Client{api: api, logger: logger}
}

// Fetch downloads an object into memory, optionally pinned to a
// specific version.
func (c *Client) Fetch(ctx context.Context, bucket, key, version string) ([]byte, error) {
	in := &awss3.GetObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)}
	if version != "" {
		in.VersionId = aws.String(version)
	}
	out, err := c.api.GetObject(ctx, in)
	if err != nil {
		c.logger.Error("failed to download object",
			zap.String("bucket", bucket), zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("get s3://%s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()
	body, err := io.ReadAll(out.Body)
	if err != nil {
		c.logger.Error("failed to read object body",
			zap.String("bucket", bucket), zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("read s3://%s/%s: %w", bucket, key, err)
	}
	return body, nil
}

// Publish creates or overwrites an object.
func (c *Client) Publish(ctx context.Context, bucket, key string, body []byte, contentType string) error {
	_, err := c.api.PutObject(ctx, &awss3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", bucket, key, err)
	}
	return nil
}

// ListKeys returns every object key under the prefix, following
// pagination through the full listing.
func (c *Client) ListKeys(ctx context.Context, bucket, prefix string) ([]string, error) {
	in := &awss3.ListObjectsV2Input{Bucket: aws.String(bucket)}
	if prefix != "" {
		in.Prefix = aws.String(prefix)
	}
	var keys []string
	p := awss3.NewListObjectsV2Paginator(c.api, in)
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list s3://%s/%s: %w", bucket, prefix, err)
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}
	return keys, nil
}

// BulkDelete removes the given keys, splitting the request at the
// provider's per-call cap.
func (c *Client) BulkDelete(ctx context.Context, bucket string, keys []string) error {
	for len(keys) > 0 {
		batch := keys
		if len(batch) > maxDeleteBatch {
			batch = batch[:maxDeleteBatch]
		}
		keys = keys[len(batch):]
		ids := make([]types.ObjectIdentifier, len(batch))
		for i, k := range batch {
			ids[i] = types.ObjectIdentifier{Key: aws.String(k)}
		}
		out, err := c.api.DeleteObjects(ctx, &awss3.DeleteObjectsInput{
			Bucket: aws.String(bucket),
			Delete: &types.Delete{Objects: ids, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return fmt.Errorf("delete %d objects from s3://%s: %w", len(batch), bucket, err)
		}
		if len(out.Errors) > 0 {
			e := out.Errors[0]
			return fmt.Errorf("delete s3://%s/%s: %s: %s",
				bucket, aws.ToString(e.Key), aws.ToString(e.Code), aws.ToString(e.Message))
		}
	}
	return nil
}

// Probe issues a lightweight existence check against the bucket.
func (c *Client) Probe(ctx context.Context, bucket string) error {
	_, err := c.api.HeadBucket(ctx, &awss3.HeadBucketInput{Bucket: aws.String(bucket)})
	if err != nil {
		return fmt.Errorf("head s3://%s: %w", bucket, err)
	}
	return nil
}

// IsClientError reports whether err is (or wraps) an API error response
// from the service, the class of failure worth retrying during
// role-assumption and bucket probing.
func IsClientError(err error) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr)
}
