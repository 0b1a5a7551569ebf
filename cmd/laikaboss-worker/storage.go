package main

import (
	"bytes"
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ObjectStore persists raw scan buffers outside the process, since the
// core (internal/model.ScanResult) explicitly holds no persistence layer
// (spec.md §6.4) — this is the outer, non-core home for that concern.
type ObjectStore struct {
	client *minio.Client
	bucket string
}

// NewObjectStore connects to an S3-compatible endpoint and ensures the
// target bucket exists, following the teacher pack's minio wiring
// (bryanwahyu-automaton-sec internal/infra/storage/minio.go).
func NewObjectStore(ctx context.Context, endpoint, bucket, accessKey, secretKey string, useSSL bool) (*ObjectStore, error) {
	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("worker: minio client: %w", err)
	}

	exists, err := cli.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("worker: check bucket %s: %w", bucket, err)
	}
	if !exists {
		if err := cli.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("worker: create bucket %s: %w", bucket, err)
		}
	}

	return &ObjectStore{client: cli, bucket: bucket}, nil
}

// PutResult stores a serialized scan result under its root UUID.
func (s *ObjectStore) PutResult(ctx context.Context, rootUUID string, data []byte) error {
	key := "results/" + rootUUID + ".json"
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("worker: put %s: %w", key, err)
	}
	return nil
}

// PutSubmission stores the original submitted bytes under the given key (the
// router passes the root object's hash), so a later re-scan or forensic pull does not depend on the caller
// having kept a copy.
func (s *ObjectStore) PutSubmission(ctx context.Context, key string, buf []byte) error {
	objKey := "submissions/" + key
	_, err := s.client.PutObject(ctx, s.bucket, objKey, bytes.NewReader(buf), int64(len(buf)), minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return fmt.Errorf("worker: put %s: %w", objKey, err)
	}
	return nil
}
