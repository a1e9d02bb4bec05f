package transfer

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/arencloud/iris/internal/contenttype"
)

// ObjectStore captures the object storage operations the pipeline
// performs against a bucket. internal/s3 provides the AWS-backed
// implementation.
type ObjectStore interface {
	Fetch(ctx context.Context, bucket, key, version string) ([]byte, error)
	Publish(ctx context.Context, bucket, key string, body []byte, contentType string) error
	ListKeys(ctx context.Context, bucket, prefix string) ([]string, error)
	BulkDelete(ctx context.Context, bucket string, keys []string) error
	Probe(ctx context.Context, bucket string) error
}

// Engine decompresses an archive and republishes its entries into a
// destination bucket, optionally deleting objects the archive no
// longer contains.
type Engine struct {
	store  ObjectStore
	logger *zap.Logger
}

func NewEngine(store ObjectStore, logger *zap.Logger) *Engine {
	return &Engine{store: store, logger: logger}
}

// Sync publishes every file entry of the zip archive under the given
// prefix, then reconciles: with deleteStale set, destination keys not
// present in the archive are removed in bulk. Publishes are
// independent overwrites, so re-running the same archive is idempotent.
func (e *Engine) Sync(ctx context.Context, archive []byte, bucket, prefix string, deleteStale bool) error {
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}

	published := make(map[string]struct{}, len(zr.File))
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		body, err := readEntry(f)
		if err != nil {
			return fmt.Errorf("extract %q: %w", f.Name, err)
		}
		key := f.Name
		if prefix != "" {
			key = prefix + "/" + f.Name
		}
		ct := contenttype.Resolve(f.Name)
		e.logger.Debug("publishing entry",
			zap.String("bucket", bucket), zap.String("key", key), zap.String("contentType", ct))
		if err := e.store.Publish(ctx, bucket, key, body, ct); err != nil {
			e.logger.Error("failed to publish entry",
				zap.String("bucket", bucket), zap.String("key", key), zap.Error(err))
			return err
		}
		published[key] = struct{}{}
	}
	e.logger.Info("published archive entries",
		zap.String("bucket", bucket), zap.Int("entries", len(published)))

	if !deleteStale {
		return nil
	}
	listPrefix := prefix
	if listPrefix != "" {
		listPrefix += "/"
	}
	keys, err := e.store.ListKeys(ctx, bucket, listPrefix)
	if err != nil {
		e.logger.Error("failed to list destination objects",
			zap.String("bucket", bucket), zap.Error(err))
		return err
	}
	var stale []string
	for _, k := range keys {
		if _, ok := published[k]; !ok {
			stale = append(stale, k)
		}
	}
	if len(stale) == 0 {
		return nil
	}
	e.logger.Info("deleting stale objects",
		zap.String("bucket", bucket), zap.Int("count", len(stale)), zap.Strings("keys", stale))
	if err := e.store.BulkDelete(ctx, bucket, stale); err != nil {
		e.logger.Error("failed to delete stale objects",
			zap.String("bucket", bucket), zap.Error(err))
		return err
	}
	return nil
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
