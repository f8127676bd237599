// Package storage fetches and uploads feed objects over S3.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// Client wraps the S3 API for feed objects addressed by s3:// URLs.
type Client struct {
	s3 *s3.Client
}

// New creates a client from the default AWS configuration.
func New(ctx context.Context) (*Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return &Client{s3: s3.NewFromConfig(cfg)}, nil
}

// ParseURL splits an s3://bucket/key URL into bucket and key.
func ParseURL(raw string) (string, string, error) {
	rest, ok := strings.CutPrefix(raw, "s3://")
	if !ok {
		return "", "", fmt.Errorf("not an s3 URL: %q", raw)
	}
	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("s3 URL missing bucket or key: %q", raw)
	}
	return bucket, key, nil
}

// Fetch downloads an object. A missing object is not an error: it returns
// found == false, which the processor treats as an empty translation map.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, bool, error) {
	bucket, key, err := ParseURL(url)
	if err != nil {
		return nil, false, err
	}

	out, err := c.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %s: %w", url, err)
	}
	return data, true, nil
}

// Upload writes an object with the given content type.
func (c *Client) Upload(ctx context.Context, url string, body []byte, contentType string) error {
	bucket, key, err := ParseURL(url)
	if err != nil {
		return err
	}

	_, err = c.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", url, err)
	}
	return nil
}
