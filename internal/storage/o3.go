package storage

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"

	"github.com/akave-ai/newsreport/internal/config"
	"github.com/akave-ai/newsreport/internal/model"
)

const snapshotExt = ".json.gz"

var (
	// ErrNotConfigured is returned by a nil client.
	ErrNotConfigured = errors.New("o3 storage not configured")
	// ErrSnapshotNotFound is returned by GetSnapshot for an unknown key.
	ErrSnapshotNotFound = errors.New("snapshot not found")
)

// O3Client archives report snapshots to Akave O3 or any other S3-compatible store.
type O3Client struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewO3Client builds a path-style S3 client. Returns nil, nil when cfg is not enabled.
func NewO3Client(cfg config.O3Config) (*O3Client, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	creds := credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
	client := s3.NewFromConfig(aws.Config{
		Region:      region,
		Credentials: aws.NewCredentialsCache(creds),
	}, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = true
		// Most S3-compatible gateways reject the default CRC trailers.
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	})
	return &O3Client{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

// EnsureBucket creates the bucket if HeadBucket fails.
func (c *O3Client) EnsureBucket(ctx context.Context) error {
	if c == nil {
		return ErrNotConfigured
	}
	_, err := c.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(c.bucket)})
	if err == nil {
		return nil
	}
	_, createErr := c.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(c.bucket)})
	if createErr != nil {
		var apiErr smithy.APIError
		if errors.As(createErr, &apiErr) {
			switch apiErr.ErrorCode() {
			case "BucketAlreadyOwnedByYou", "BucketAlreadyExists":
				return nil
			}
		}
		return createErr
	}
	return nil
}

// KeyForSnapshot returns <prefix>/YYYY/MM/DD/<run id>.json.gz for a snapshot generated at t.
func KeyForSnapshot(prefix string, runID uuid.UUID, t time.Time) string {
	if prefix == "" {
		prefix = "reports"
	}
	return path.Join(prefix, t.UTC().Format("2006/01/02"), runID.String()+snapshotExt)
}

// ArchiveSnapshot uploads snap as gzipped JSON and returns its key.
func (c *O3Client) ArchiveSnapshot(ctx context.Context, snap *model.Snapshot) (string, error) {
	if c == nil {
		return "", ErrNotConfigured
	}
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if err := json.NewEncoder(zw).Encode(snap); err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("gzip snapshot: %w", err)
	}

	key := KeyForSnapshot(c.prefix, snap.RunID, snap.GeneratedAt)
	_, err := c.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:          aws.String(c.bucket),
		Key:             aws.String(key),
		Body:            bytes.NewReader(buf.Bytes()),
		ContentType:     aws.String("application/json"),
		ContentEncoding: aws.String("gzip"),
	})
	if err != nil {
		return "", fmt.Errorf("put %s: %w", key, err)
	}
	return key, nil
}

// ObjectInfo describes an archived snapshot.
type ObjectInfo struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// ListSnapshots lists archived objects under prefix, or under the configured prefix when empty.
func (c *O3Client) ListSnapshots(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	if c == nil {
		return nil, ErrNotConfigured
	}
	if prefix == "" {
		prefix = c.prefix
	}
	out, err := c.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(c.bucket),
		Prefix: aws.String(prefix),
	})
	if err != nil {
		return nil, err
	}
	result := make([]ObjectInfo, 0, len(out.Contents))
	for _, o := range out.Contents {
		info := ObjectInfo{Key: aws.ToString(o.Key), Size: aws.ToInt64(o.Size)}
		if o.LastModified != nil {
			info.LastModified = *o.LastModified
		}
		result = append(result, info)
	}
	return result, nil
}

// GetSnapshot downloads and decodes one archived snapshot.
func (c *O3Client) GetSnapshot(ctx context.Context, key string) (*model.Snapshot, error) {
	if c == nil {
		return nil, ErrNotConfigured
	}
	out, err := c.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NoSuchKey" {
			return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, key)
		}
		return nil, err
	}
	defer out.Body.Close()

	zr, err := gzip.NewReader(out.Body)
	if err != nil {
		return nil, fmt.Errorf("gzip: %w", err)
	}
	defer zr.Close()
	decoded, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	var snap model.Snapshot
	if err := json.Unmarshal(decoded, &snap); err != nil {
		return nil, fmt.Errorf("json: %w", err)
	}
	return &snap, nil
}
