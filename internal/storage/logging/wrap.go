// Package logging decorates a storage.Backend with per-operation debug logs.
package logging

import (
	"context"
	"io"
	"time"

	"pkt.systems/pslog"
	"pkt.systems/shelfd/internal/clock"
	"pkt.systems/shelfd/internal/storage"
	"pkt.systems/shelfd/internal/svcfields"
)

// Wrap returns a backend that logs every storage operation at debug level.
func Wrap(inner storage.Backend, logger pslog.Logger, clk clock.Clock) storage.Backend {
	if inner == nil {
		return nil
	}
	if logger == nil {
		logger = pslog.NoopLogger()
	}
	if clk == nil {
		clk = clock.Real{}
	}
	return &backend{
		inner:  inner,
		logger: svcfields.WithSubsystem(logger, "storage"),
		clock:  clk,
	}
}

type backend struct {
	inner  storage.Backend
	logger pslog.Logger
	clock  clock.Clock
}

func (b *backend) ListObjects(ctx context.Context, opts storage.ListOptions) (*storage.ListResult, error) {
	start := b.clock.Now()
	res, err := b.inner.ListObjects(ctx, opts)
	b.log(ctx, "storage.list_objects", opts.Prefix, start, err)
	return res, err
}

func (b *backend) GetObject(ctx context.Context, key string) (storage.GetObjectResult, error) {
	start := b.clock.Now()
	res, err := b.inner.GetObject(ctx, key)
	b.log(ctx, "storage.get_object", key, start, err)
	return res, err
}

func (b *backend) PutObject(ctx context.Context, key string, body io.Reader, opts storage.PutObjectOptions) (*storage.ObjectInfo, error) {
	start := b.clock.Now()
	info, err := b.inner.PutObject(ctx, key, body, opts)
	b.log(ctx, "storage.put_object", key, start, err)
	return info, err
}

func (b *backend) DeleteObject(ctx context.Context, key string, opts storage.DeleteObjectOptions) error {
	start := b.clock.Now()
	err := b.inner.DeleteObject(ctx, key, opts)
	b.log(ctx, "storage.delete_object", key, start, err)
	return err
}

func (b *backend) Close() error {
	return b.inner.Close()
}

func (b *backend) log(ctx context.Context, op, key string, start time.Time, err error) {
	logger := pslog.LoggerFromContext(ctx)
	if logger == nil {
		logger = b.logger
	}
	elapsed := b.clock.Now().Sub(start)
	if err != nil {
		logger.Debug(op, "key", key, "elapsed", elapsed, "error", err)
		return
	}
	logger.Debug(op, "key", key, "elapsed", elapsed)
}
