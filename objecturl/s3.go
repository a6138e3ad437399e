package objecturl

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Conf locates the bucket that holds reports.
type S3Conf struct {
	Bucket   string
	Prefix   string // key prefix, e.g. "reports/"
	Region   string // default from the environment when empty
	Endpoint string // custom endpoint for S3-compatible services
}

// S3Store keeps blobs in an S3 bucket and hands out presigned GET URLs
// valid for the store TTL.
type S3Store struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
	prefix  string
	ttl     time.Duration
}

var _ Store = (*S3Store)(nil)

// NewS3Store builds a store from the default AWS credential chain.
func NewS3Store(ctx context.Context, conf S3Conf, ttl time.Duration) (*S3Store, error) {
	var loadOpts []func(*config.LoadOptions) error
	if conf.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(conf.Region))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("objecturl: loading AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if conf.Endpoint != "" {
			o.BaseEndpoint = aws.String(conf.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3StoreFromClient(client, conf.Bucket, conf.Prefix, ttl), nil
}

// NewS3StoreFromClient wraps an existing client.
func NewS3StoreFromClient(client *s3.Client, bucket, prefix string, ttl time.Duration) *S3Store {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &S3Store{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  bucket,
		prefix:  prefix,
		ttl:     ttl,
	}
}

func (s *S3Store) key(id string) string { return s.prefix + id + ".pdf" }

func (s *S3Store) Put(ctx context.Context, data []byte, contentType string) (*Object, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	id := newID()
	key := s.key(id)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return nil, fmt.Errorf("objecturl: s3 put %s: %w", key, err)
	}

	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.ttl))
	if err != nil {
		return nil, fmt.Errorf("objecturl: s3 presign %s: %w", key, err)
	}
	return &Object{
		ID:          id,
		URL:         req.URL,
		ContentType: contentType,
		Size:        len(data),
		Expires:     time.Now().Add(s.ttl),
	}, nil
}

func (s *S3Store) Get(ctx context.Context, id string) ([]byte, string, error) {
	if !validID(id) {
		return nil, "", ErrNotFound
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(id)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, "", ErrNotFound
		}
		return nil, "", fmt.Errorf("objecturl: s3 get: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, "", fmt.Errorf("objecturl: s3 read: %w", err)
	}
	return data, aws.ToString(out.ContentType), nil
}

// Revoke deletes the object. Outstanding presigned URLs stop working once
// the object is gone.
func (s *S3Store) Revoke(ctx context.Context, id string) error {
	if !validID(id) {
		return ErrNotFound
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(id)),
	})
	if err != nil {
		return fmt.Errorf("objecturl: s3 revoke: %w", err)
	}
	return nil
}
