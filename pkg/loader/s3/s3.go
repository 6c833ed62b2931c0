package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/OFFIS-RIT/parversion/pkg/loader"
)

// S3Loader is a DocumentLoader implementation that loads documents from an
// S3 bucket. Locations of the form s3://bucket/key name their own bucket;
// plain keys use the configured one.
type S3Loader struct {
	bucket string
	client *s3.Client
	memo   loader.Memo
}

// NewS3LoaderWithClient creates a new S3Loader using an existing s3.Client.
func NewS3LoaderWithClient(bucket string, client *s3.Client) *S3Loader {
	return &S3Loader{
		bucket: bucket,
		client: client,
	}
}

// NewS3LoaderParams defines the configuration parameters for creating a new
// S3Loader.
//
// Endpoint allows overriding the S3 endpoint (useful for S3-compatible
// storage like MinIO) and switches to path-style addressing.
type NewS3LoaderParams struct {
	Bucket    string
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
}

// NewS3Loader creates a new S3Loader with static credentials.
//
// Example:
//
//	l, err := s3.NewS3Loader(ctx, s3.NewS3LoaderParams{
//		Bucket:    "documents",
//		Endpoint:  "http://localhost:9000",
//		Region:    "us-east-1",
//		AccessKey: os.Getenv("AWS_ACCESS_KEY"),
//		SecretKey: os.Getenv("AWS_SECRET_KEY"),
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	text, err := l.GetDocumentText(ctx, loader.Source{Location: "s3://documents/page.html"})
func NewS3Loader(ctx context.Context, params NewS3LoaderParams) (*S3Loader, error) {
	client, err := NewClient(ctx, params)
	if err != nil {
		return nil, err
	}
	return NewS3LoaderWithClient(params.Bucket, client), nil
}

// NewClient builds an s3.Client from params.
func NewClient(ctx context.Context, params NewS3LoaderParams) (*s3.Client, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(params.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			params.AccessKey,
			params.SecretKey,
			"",
		)),
	}
	if params.Endpoint != "" {
		opts = append(opts, config.WithBaseEndpoint(params.Endpoint))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load s3 config: %w", err)
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = params.Endpoint != ""
	}), nil
}

// ParseLocation splits an s3://bucket/key location. Plain keys return
// defaultBucket.
func ParseLocation(location, defaultBucket string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(location, "s3://")
	if !ok {
		if defaultBucket == "" {
			return "", "", fmt.Errorf("no bucket for key %q", location)
		}
		return defaultBucket, strings.TrimPrefix(location, "/"), nil
	}

	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("invalid s3 location %q", location)
	}
	return bucket, key, nil
}

// GetDocumentText retrieves the object named by src. Results are cached.
func (l *S3Loader) GetDocumentText(ctx context.Context, src loader.Source) ([]byte, error) {
	bucket, key, err := ParseLocation(src.Location, l.bucket)
	if err != nil {
		return nil, err
	}

	return l.memo.Do(loader.CacheKey(src), func() ([]byte, error) {
		out, err := l.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to get object from S3: %w", err)
		}
		defer out.Body.Close()

		buf := new(bytes.Buffer)
		if _, err := io.Copy(buf, out.Body); err != nil {
			return nil, fmt.Errorf("failed to read object contents: %w", err)
		}
		return buf.Bytes(), nil
	})
}
