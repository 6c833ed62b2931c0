// Package storage keeps rendered analysis results in S3.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/OFFIS-RIT/parversion/internal/config"
	s3loader "github.com/OFFIS-RIT/parversion/pkg/loader/s3"
	"github.com/OFFIS-RIT/parversion/pkg/render"
)

const (
	resultPrefix  = "results"
	presignExpiry = 15 * time.Minute
)

type ResultStore struct {
	client         *s3.Client
	bucket         string
	publicEndpoint string
}

func NewResultStore(client *s3.Client, bucket, publicEndpoint string) *ResultStore {
	return &ResultStore{
		client:         client,
		bucket:         bucket,
		publicEndpoint: publicEndpoint,
	}
}

// NewS3Client builds the client shared by the result store and the s3
// document loader.
func NewS3Client(ctx context.Context, cfg config.S3Config) (*s3.Client, error) {
	return s3loader.NewClient(ctx, s3loader.NewS3LoaderParams{
		Bucket:    cfg.Bucket,
		Endpoint:  cfg.Endpoint,
		Region:    cfg.Region,
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
	})
}

// ResultKey returns the object key of a job's rendered result.
func ResultKey(jobID string, format render.Format) string {
	return fmt.Sprintf("%s/%s.%s", resultPrefix, jobID, format.Extension())
}

// JobPrefix returns the prefix under which all results of a job live.
func JobPrefix(jobID string) string {
	return fmt.Sprintf("%s/%s.", resultPrefix, jobID)
}

func (s *ResultStore) Put(ctx context.Context, key string, body []byte) error {
	mimeType := mime.TypeByExtension(path.Ext(key))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(mimeType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload result to S3: %w", err)
	}
	return nil
}

func (s *ResultStore) Get(ctx context.Context, key string) ([]byte, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get result from S3: %w", err)
	}
	defer result.Body.Close()

	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, result.Body); err != nil {
		return nil, fmt.Errorf("failed to read result contents: %w", err)
	}
	return buf.Bytes(), nil
}

// List returns all keys under prefix.
func (s *ResultStore) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	listInput := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	}

	for {
		listOutput, err := s.client.ListObjectsV2(ctx, listInput)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects with prefix %s: %w", prefix, err)
		}

		for _, obj := range listOutput.Contents {
			if obj.Key != nil {
				keys = append(keys, *obj.Key)
			}
		}

		if listOutput.IsTruncated == nil || !*listOutput.IsTruncated {
			break
		}
		listInput.ContinuationToken = listOutput.NextContinuationToken
	}

	return keys, nil
}

// Delete removes every object under prefix.
func (s *ResultStore) Delete(ctx context.Context, prefix string) error {
	keys, err := s.List(ctx, prefix)
	if err != nil {
		return err
	}

	for start := 0; start < len(keys); start += 1000 {
		end := min(start+1000, len(keys))
		objects := make([]types.ObjectIdentifier, 0, end-start)
		for _, key := range keys[start:end] {
			objects = append(objects, types.ObjectIdentifier{Key: aws.String(key)})
		}

		_, err = s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &types.Delete{
				Objects: objects,
				Quiet:   aws.Bool(true),
			},
		})
		if err != nil {
			return fmt.Errorf("failed to delete objects under %s: %w", prefix, err)
		}
	}
	return nil
}

// DownloadLink presigns a GET for key. With a public endpoint the link is
// signed for that host, and a path prefix on the endpoint is kept.
func (s *ResultStore) DownloadLink(ctx context.Context, key string) (string, error) {
	presignClient := s.client
	prefix := ""

	if s.publicEndpoint != "" {
		publicURL, err := url.Parse(s.publicEndpoint)
		if err != nil || publicURL.Scheme == "" || publicURL.Host == "" {
			return "", fmt.Errorf("invalid public endpoint: %s", s.publicEndpoint)
		}
		prefix = strings.TrimSuffix(publicURL.Path, "/")

		// the signature must match the Host header the caller will send
		base := s.client.Options()
		presignClient = s3.NewFromConfig(
			aws.Config{
				Region:      base.Region,
				Credentials: base.Credentials,
				HTTPClient:  base.HTTPClient,
			},
			func(o *s3.Options) {
				o.BaseEndpoint = aws.String(fmt.Sprintf("%s://%s", publicURL.Scheme, publicURL.Host))
				o.UsePathStyle = true
			},
		)
	}

	out, err := s3.NewPresignClient(presignClient).PresignGetObject(
		ctx,
		&s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		},
		s3.WithPresignExpires(presignExpiry),
	)
	if err != nil {
		return "", fmt.Errorf("failed to generate download link: %w", err)
	}

	if prefix == "" {
		return out.URL, nil
	}
	signedURL, err := url.Parse(out.URL)
	if err != nil {
		return "", fmt.Errorf("failed to parse presigned url: %w", err)
	}
	signedURL.Path = prefix + signedURL.Path
	return signedURL.String(), nil
}
