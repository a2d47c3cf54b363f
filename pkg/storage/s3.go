package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/Payphone-Digital/accounts/config"
	"github.com/Payphone-Digital/accounts/pkg/circuit"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

var ErrEmptyFile = errors.New("file path is empty")

// File is a local temporary file produced by a multipart upload.
type File struct {
	Path        string
	Filename    string
	ContentType string
	Size        int64
}

type UploadResult struct {
	URL string
	Key string
}

// ObjectAPI is the part of *s3.Client the uploader needs.
type ObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// UploadObserver receives the outcome and latency of every upload.
type UploadObserver func(err error, duration time.Duration)

type S3Uploader struct {
	client   ObjectAPI
	bucket   string
	prefix   string
	baseURL  string
	breaker  *circuit.Breaker
	observe  UploadObserver
	newKeyID func() string
}

// NewS3Client builds an S3 client with static credentials. A custom endpoint
// (MinIO, localstack) is honoured when configured.
func NewS3Client(ctx context.Context, cfg config.StorageConfig) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	}), nil
}

func NewS3Uploader(client ObjectAPI, cfg config.StorageConfig, breaker *circuit.Breaker, observe UploadObserver) *S3Uploader {
	return &S3Uploader{
		client:   client,
		bucket:   cfg.Bucket,
		prefix:   strings.Trim(cfg.KeyPrefix, "/"),
		baseURL:  publicBaseURL(cfg),
		breaker:  breaker,
		observe:  observe,
		newKeyID: uuid.NewString,
	}
}

// Upload stores file under a fresh key and returns its public URL. The local
// temporary file is removed whether or not the upload succeeds.
func (u *S3Uploader) Upload(ctx context.Context, file File) (*UploadResult, error) {
	if file.Path == "" {
		return nil, ErrEmptyFile
	}
	defer os.Remove(file.Path)

	start := time.Now()
	result, err := u.put(ctx, file)
	if u.observe != nil {
		u.observe(err, time.Since(start))
	}
	return result, err
}

func (u *S3Uploader) put(ctx context.Context, file File) (*UploadResult, error) {
	f, err := os.Open(file.Path)
	if err != nil {
		return nil, fmt.Errorf("open upload %s: %w", file.Filename, err)
	}
	defer f.Close()

	key := u.objectKey(file.Filename)
	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	err = u.guard(ctx, func(ctx context.Context) error {
		_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(u.bucket),
			Key:         aws.String(key),
			Body:        f,
			ContentType: aws.String(contentType),
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("put object %s: %w", key, err)
	}

	return &UploadResult{URL: u.baseURL + "/" + key, Key: key}, nil
}

// Delete removes an object by key.
func (u *S3Uploader) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	return u.guard(ctx, func(ctx context.Context) error {
		_, err := u.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(u.bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return fmt.Errorf("delete object %s: %w", key, err)
		}
		return nil
	})
}

// KeyFromURL recovers the object key from a URL produced by Upload.
func (u *S3Uploader) KeyFromURL(url string) (string, bool) {
	prefix := u.baseURL + "/"
	if !strings.HasPrefix(url, prefix) {
		return "", false
	}
	return strings.TrimPrefix(url, prefix), true
}

func (u *S3Uploader) guard(ctx context.Context, fn func(ctx context.Context) error) error {
	if u.breaker == nil {
		return fn(ctx)
	}
	return u.breaker.Do(ctx, fn)
}

func (u *S3Uploader) objectKey(filename string) string {
	name := u.newKeyID() + strings.ToLower(filepath.Ext(filename))
	if u.prefix == "" {
		return name
	}
	return path.Join(u.prefix, name)
}

func publicBaseURL(cfg config.StorageConfig) string {
	switch {
	case cfg.PublicBaseURL != "":
		return strings.TrimRight(cfg.PublicBaseURL, "/")
	case cfg.Endpoint != "":
		return strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}
}
