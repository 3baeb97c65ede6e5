package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/yigit/attendance/internal/pkg/filestorage"
)

const probePath = ".attendance-admin-probe"

// probeBucket creates the bucket if needed and round-trips a small object.
func probeBucket(ctx context.Context, blobs filestorage.BlobStore, bucket string) error {
	if err := blobs.EnsureBucket(ctx, bucket); err != nil {
		return fmt.Errorf("ensure bucket: %w", err)
	}
	const body = "ok"
	if err := blobs.Put(ctx, filestorage.Object{
		Bucket:      bucket,
		Path:        probePath,
		ContentType: "text/plain",
		Size:        int64(len(body)),
		Body:        strings.NewReader(body),
	}); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	defer func() { _ = blobs.Delete(ctx, bucket, probePath) }()

	rc, err := blobs.Get(ctx, bucket, probePath)
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}
	defer rc.Close()
	got, err := io.ReadAll(rc)
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}
	if string(got) != body {
		return fmt.Errorf("read back %q, want %q", got, body)
	}
	return nil
}
