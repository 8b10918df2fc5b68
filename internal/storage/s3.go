package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/story-cms-api/internal/config"
	"github.com/story-cms-api/internal/models"
)

// S3API is the subset of *s3.Client used by S3Store
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	CopyObject(ctx context.Context, in *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// NewS3Client builds a client for AWS S3 or any S3 compatible endpoint
// (MinIO, Strato HiDrive). Static credentials are used when configured,
// otherwise the default AWS credential chain applies.
func NewS3Client(ctx context.Context, cfg config.S3Config) (*s3.Client, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	}), nil
}

// S3Store keeps each document as one object. Create relies on conditional
// writes (If-None-Match: *). Archive is a copy followed by a delete and is
// not atomic: a crash between the two leaves the story live and archived.
type S3Store struct {
	client S3API
	bucket string
	prefix string
	now    func() time.Time
}

var _ DocumentStore = (*S3Store)(nil)

// NewS3Store creates a store over bucket; keys are placed below prefix
func NewS3Store(client S3API, bucket, prefix string, opts ...Option) *S3Store {
	o := applyOptions(opts)
	prefix = strings.Trim(prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	return &S3Store{client: client, bucket: bucket, prefix: prefix, now: o.now}
}

func (s *S3Store) objectKey(key string) string {
	return s.prefix + key
}

// Exists checks if an object is stored under key
func (s *S3Store) Exists(ctx context.Context, key string) (bool, error) {
	if err := checkKey(key); err != nil {
		return false, err
	}
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if isS3NotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, ioError("exists", key, err)
	}
	return true, nil
}

// Read downloads and decodes the object stored under key
func (s *S3Store) Read(ctx context.Context, key string, doc interface{}) error {
	if err := checkKey(key); err != nil {
		return err
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if isS3NotFound(err) {
		return fmt.Errorf("%w: %s", models.ErrNotFound, key)
	}
	if err != nil {
		return ioError("read", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return ioError("read", key, err)
	}
	return decodeDocument(key, data, doc)
}

// Write uploads doc under key, replacing any previous object
func (s *S3Store) Write(ctx context.Context, key string, doc interface{}) error {
	return s.put(ctx, "write", key, doc, false)
}

// Create uploads doc under key only if no object exists there
func (s *S3Store) Create(ctx context.Context, key string, doc interface{}) error {
	return s.put(ctx, "create", key, doc, true)
}

func (s *S3Store) put(ctx context.Context, op, key string, doc interface{}, exclusive bool) error {
	if err := checkKey(key); err != nil {
		return err
	}
	data, err := encodeDocument(doc)
	if err != nil {
		return err
	}

	in := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.objectKey(key)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	}
	if exclusive {
		in.IfNoneMatch = aws.String("*")
	}

	if _, err := s.client.PutObject(ctx, in); err != nil {
		if exclusive && isS3PreconditionFailed(err) {
			return fmt.Errorf("%w: %s", models.ErrAlreadyExists, key)
		}
		return ioError(op, key, err)
	}
	return nil
}

// Archive copies the object to its archive key and deletes the original
func (s *S3Store) Archive(ctx context.Context, key string) (string, error) {
	exists, err := s.Exists(ctx, key)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", fmt.Errorf("%w: %s", models.ErrNotFound, key)
	}

	archiveKey := ArchiveKey(key, s.now())
	taken, err := s.Exists(ctx, archiveKey)
	if err != nil {
		return "", err
	}
	if taken {
		return "", fmt.Errorf("%w: %s", models.ErrAlreadyExists, archiveKey)
	}

	_, err = s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(s.bucket),
		Key:        aws.String(s.objectKey(archiveKey)),
		CopySource: aws.String(s.bucket + "/" + s.objectKey(key)),
	})
	if err != nil {
		return "", ioError("archive", key, err)
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		return "", ioError("archive", key, err)
	}
	return archiveKey, nil
}

// List pages through the objects directly inside namespace
func (s *S3Store) List(ctx context.Context, namespace string) ([]Entry, error) {
	prefix := namespacePrefix(namespace)
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Prefix:    aws.String(s.objectKey(prefix)),
		Delimiter: aws.String("/"),
	})

	entries := make([]Entry, 0)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, ioError("list", namespace, err)
		}
		for _, obj := range page.Contents {
			key := strings.TrimPrefix(aws.ToString(obj.Key), s.prefix)
			if !isDirectChild(prefix, key) {
				continue
			}
			entries = append(entries, Entry{Key: key, ModTime: aws.ToTime(obj.LastModified)})
		}
	}
	return entries, nil
}

// HealthCheck lists at most one object to verify bucket access
func (s *S3Store) HealthCheck(ctx context.Context) error {
	_, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		MaxKeys: aws.Int32(1),
	})
	return err
}

func isS3NotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}

func isS3PreconditionFailed(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "PreconditionFailed", "ConditionalRequestConflict":
			return true
		}
	}
	return false
}
