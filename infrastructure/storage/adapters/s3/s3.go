package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"ledger/application/ports"
	"ledger/infrastructure/config"
)

// client implements ports.Storage on S3 or an S3-compatible endpoint
type client struct {
	s3Client *s3.Client
	bucket   string
	region   string
	logger   ports.Logger
	metrics  ports.Metrics
}

// New creates the S3 client and makes sure the configured bucket exists
func New(cfg *config.StorageConfig, logger ports.Logger, metrics ports.Metrics) (ports.Storage, error) {
	awsCfg, err := buildAWSConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true
		if cfg.S3.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3.Endpoint)
		}
	})

	c := &client{
		s3Client: s3Client,
		bucket:   cfg.BucketOrPath,
		region:   cfg.S3.Region,
		logger:   logger.WithFields(map[string]interface{}{"storage": "s3"}),
		metrics:  metrics.WithTags(map[string]string{"storage": "s3"}),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := c.ensureBucketExists(ctx); err != nil {
		logger.Error("Failed to verify bucket existence", "error", err, "bucket", c.bucket)
		return nil, fmt.Errorf("failed to verify bucket existence: %w", err)
	}

	logger.Info("S3 client initialized", "bucket", c.bucket, "region", c.region)
	return c, nil
}

// Put buffers the body so the SDK can send a content length; PutObject is
// atomic on the server side.
func (c *client) Put(ctx context.Context, bucket, key string, reader io.Reader, metadata ports.ObjectMetadata) error {
	start := time.Now()
	bucket = c.bucketOr(bucket)

	buf := &bytes.Buffer{}
	size, err := io.Copy(buf, reader)
	if err != nil {
		c.metrics.IncrementCounter("s3.put.errors", map[string]string{"error_type": "read_error"})
		return fmt.Errorf("failed to read content: %w", err)
	}

	input := &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(buf.Bytes()),
		ContentLength: aws.Int64(size),
	}
	if metadata.ContentType != "" {
		input.ContentType = aws.String(metadata.ContentType)
	}
	if metadata.CacheControl != "" {
		input.CacheControl = aws.String(metadata.CacheControl)
	}
	if len(metadata.UserMetadata) > 0 {
		input.Metadata = metadata.UserMetadata
	}

	if _, err := c.s3Client.PutObject(ctx, input); err != nil {
		c.logger.Error("Failed to put object", "error", err, "bucket", bucket, "key", key)
		c.metrics.IncrementCounter("s3.put.errors", map[string]string{"error_type": "s3_error"})
		return fmt.Errorf("failed to put object: %w", err)
	}

	duration := time.Since(start)
	c.logger.Info("Object stored", "bucket", bucket, "key", key, "size_bytes", size, "duration_ms", duration.Milliseconds())
	c.metrics.IncrementCounter("s3.put.success", nil)
	c.metrics.RecordHistogram("s3.put.duration_ms", float64(duration.Milliseconds()), nil)
	c.metrics.RecordHistogram("s3.put.bytes", float64(size), nil)
	return nil
}

func (c *client) Get(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	bucket = c.bucketOr(bucket)

	result, err := c.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFoundError(err) {
			c.metrics.IncrementCounter("s3.get.not_found", nil)
			return nil, fmt.Errorf("%s/%s: %w", bucket, key, ports.ErrObjectNotFound)
		}
		c.logger.Error("Failed to get object", "error", err, "bucket", bucket, "key", key)
		c.metrics.IncrementCounter("s3.get.errors", nil)
		return nil, fmt.Errorf("failed to get object: %w", err)
	}

	c.metrics.IncrementCounter("s3.get.success", nil)
	return result.Body, nil
}

// Delete is idempotent: S3 reports success for a missing key
func (c *client) Delete(ctx context.Context, bucket, key string) error {
	start := time.Now()
	bucket = c.bucketOr(bucket)

	_, err := c.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil && !isNotFoundError(err) {
		c.logger.Error("Failed to delete object", "error", err, "bucket", bucket, "key", key)
		c.metrics.IncrementCounter("s3.delete.errors", nil)
		return fmt.Errorf("failed to delete object: %w", err)
	}

	c.logger.Info("Object deleted", "bucket", bucket, "key", key)
	c.metrics.IncrementCounter("s3.delete.success", nil)
	c.metrics.RecordHistogram("s3.delete.duration_ms", float64(time.Since(start).Milliseconds()), nil)
	return nil
}

func (c *client) Exists(ctx context.Context, bucket, key string) (bool, error) {
	bucket = c.bucketOr(bucket)

	_, err := c.s3Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFoundError(err) {
			return false, nil
		}
		c.metrics.IncrementCounter("s3.exists.errors", nil)
		return false, fmt.Errorf("failed to check object existence: %w", err)
	}
	return true, nil
}

func (c *client) List(ctx context.Context, bucket, prefix string) ([]ports.ObjectInfo, error) {
	bucket = c.bucketOr(bucket)

	input := &s3.ListObjectsV2Input{Bucket: aws.String(bucket)}
	if prefix != "" {
		input.Prefix = aws.String(prefix)
	}

	var objects []ports.ObjectInfo
	paginator := s3.NewListObjectsV2Paginator(c.s3Client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			c.metrics.IncrementCounter("s3.list.errors", nil)
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}
		for _, obj := range page.Contents {
			objects = append(objects, ports.ObjectInfo{
				Key:          aws.ToString(obj.Key),
				Size:         aws.ToInt64(obj.Size),
				LastModified: aws.ToTime(obj.LastModified),
			})
		}
	}

	c.metrics.IncrementCounter("s3.list.success", nil)
	return objects, nil
}

func (c *client) bucketOr(bucket string) string {
	if bucket == "" {
		return c.bucket
	}
	return bucket
}

func (c *client) ensureBucketExists(ctx context.Context) error {
	_, err := c.s3Client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(c.bucket)})
	if err == nil {
		return nil
	}

	var nf *s3types.NotFound
	if !errors.As(err, &nf) {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	c.logger.Info("Bucket does not exist, creating", "bucket", c.bucket)
	input := &s3.CreateBucketInput{Bucket: aws.String(c.bucket)}
	if c.region != "" && c.region != "us-east-1" {
		input.CreateBucketConfiguration = &s3types.CreateBucketConfiguration{
			LocationConstraint: s3types.BucketLocationConstraint(c.region),
		}
	}

	if _, err := c.s3Client.CreateBucket(ctx, input); err != nil {
		var exists *s3types.BucketAlreadyExists
		var owned *s3types.BucketAlreadyOwnedByYou
		if errors.As(err, &exists) || errors.As(err, &owned) {
			return nil
		}
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

func buildAWSConfig(cfg *config.StorageConfig) (aws.Config, error) {
	var optFns []func(*awsconfig.LoadOptions) error

	if cfg.S3.Region != "" {
		optFns = append(optFns, awsconfig.WithRegion(cfg.S3.Region))
	}
	if cfg.S3.AccessKeyID != "" && cfg.S3.SecretAccessKey != "" {
		optFns = append(optFns, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3.AccessKeyID, cfg.S3.SecretAccessKey, ""),
		))
	}
	if cfg.MaxRetries > 0 {
		optFns = append(optFns, awsconfig.WithRetryMaxAttempts(cfg.MaxRetries))
	}
	if cfg.Timeout > 0 {
		optFns = append(optFns, awsconfig.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}))
	}

	return awsconfig.LoadDefaultConfig(context.Background(), optFns...)
}

func isNotFoundError(err error) bool {
	var nsk *s3types.NoSuchKey
	var nf *s3types.NotFound
	return errors.As(err, &nsk) || errors.As(err, &nf)
}
