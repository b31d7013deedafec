// Package storage archives raw provider webhook payloads to S3 for audit
// and replay.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	appconfig "github.com/ignite/deliverability/internal/config"
)

// s3API is the subset of the S3 client the archiver calls.
type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Archiver writes raw webhook payloads to an S3 bucket. Archival is
// best-effort: event processing never waits on or fails with the archive.
type Archiver struct {
	client s3API
	bucket string
	prefix string
	now    func() time.Time
}

// NewArchiver creates an S3 payload archiver.
func NewArchiver(ctx context.Context, cfg appconfig.ArchiveConfig) (*Archiver, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return &Archiver{
		client: s3.NewFromConfig(awsCfg),
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
		now:    time.Now,
	}, nil
}

// newWithAPI wires a fake S3 API, for tests.
func newWithAPI(client s3API, bucket, prefix string) *Archiver {
	return &Archiver{client: client, bucket: bucket, prefix: prefix, now: time.Now}
}

// Archive stores one raw payload under prefix/YYYY/MM/DD/<uuid>.json and
// returns the object key.
func (a *Archiver) Archive(ctx context.Context, payload []byte) (string, error) {
	key := fmt.Sprintf("%s/%s/%s.json", a.prefix, a.now().UTC().Format("2006/01/02"), uuid.NewString())

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("archiving payload to s3://%s/%s: %w", a.bucket, key, err)
	}
	return key, nil
}

// ArchiveAsync archives in the background, logging failures.
func (a *Archiver) ArchiveAsync(payload []byte) {
	body := make([]byte, len(payload))
	copy(body, payload)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := a.Archive(ctx, body); err != nil {
			log.Printf("[Storage] Webhook archive failed: %v", err)
		}
	}()
}
