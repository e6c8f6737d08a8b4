package workers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dom/hero-arena/internal/config"
	"github.com/dom/hero-arena/internal/service"
	"github.com/jonboulle/clockwork"
)

// ObjectStore is the part of the S3 client the archiver needs.
type ObjectStore interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// SnapshotSource produces the ledger snapshot to archive.
type SnapshotSource interface {
	Snapshot(ctx context.Context) (*service.SnapshotView, error)
}

// Archiver writes ledger snapshots to an S3-compatible bucket.
type Archiver struct {
	store  ObjectStore
	source SnapshotSource
	clock  clockwork.Clock
	bucket string
	prefix string
}

func NewArchiver(store ObjectStore, source SnapshotSource, clock clockwork.Clock, bucket, prefix string) *Archiver {
	return &Archiver{
		store:  store,
		source: source,
		clock:  clock,
		bucket: bucket,
		prefix: prefix,
	}
}

// NewS3Client builds an S3 client from the snapshot settings. Static
// credentials and a custom endpoint are used when configured.
func NewS3Client(ctx context.Context, cfg *config.Config) (*s3.Client, error) {
	opts := []func(*awsConfig.LoadOptions) error{
		awsConfig.WithRegion(cfg.S3Region),
	}
	if cfg.S3AccessKeyID != "" {
		opts = append(opts, awsConfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKeyID, cfg.S3SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsConfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load S3 config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// Archive uploads one snapshot and returns its object key.
func (a *Archiver) Archive(ctx context.Context) (string, error) {
	snapshot, err := a.source.Snapshot(ctx)
	if err != nil {
		return "", fmt.Errorf("take snapshot: %w", err)
	}

	body, err := json.Marshal(snapshot)
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}

	key := fmt.Sprintf("%s%s.json", a.prefix, a.clock.Now().UTC().Format("20060102T150405Z"))
	_, err = a.store.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload snapshot: %w", err)
	}

	log.Printf("[Snapshot] archived %d players to s3://%s/%s", len(snapshot.Players), a.bucket, key)
	return key, nil
}
