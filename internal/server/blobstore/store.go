// Package blobstore stores uploaded images in S3 (or an S3-compatible server)
// and derives their public URLs.
package blobstore

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/shareplaces/internal/common"
	"github.com/google/uuid"
)

// extensions is the MIME allow-list and the key suffix for each type.
var extensions = map[string]string{
	"image/png":  "png",
	"image/jpg":  "jpg",
	"image/jpeg": "jpeg",
}

type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) objectAPI {
		return s3.NewFromConfig(cfg, optFns...)
	}

	now = time.Now
)

// Config describes the bucket. BaseEndpoint targets an S3-compatible server;
// PublicBaseURL, when set, replaces the AWS virtual-hosted URL.
type Config struct {
	Bucket          string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	BaseEndpoint    string
	PublicBaseURL   string
}

// Object is a stored blob.
type Object struct {
	URL string
	Key string
}

type Store struct {
	api objectAPI
	cfg Config
}

// New builds an S3 client from cfg. Static credentials are used when given,
// the default AWS chain otherwise.
func New(ctx context.Context, cfg Config) (*Store, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}

	awsCfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	api := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.BaseEndpoint)
			o.UsePathStyle = true
		}
	})
	return &Store{api: api, cfg: cfg}, nil
}

// Validate checks the upload against the MIME allow-list and the size limit.
func Validate(data []byte, contentType string) error {
	if _, ok := extensions[strings.ToLower(contentType)]; !ok {
		return fmt.Errorf("%w: unsupported content type %q", common.ErrBadUpload, contentType)
	}
	if len(data) == 0 {
		return fmt.Errorf("%w: empty file", common.ErrBadUpload)
	}
	if len(data) > common.MaxImageBytes {
		return fmt.Errorf("%w: file exceeds %d bytes", common.ErrBadUpload, common.MaxImageBytes)
	}
	return nil
}

// Upload stores data under a fresh key. Invalid uploads are rejected before
// any request is made.
func (s *Store) Upload(ctx context.Context, data []byte, contentType string) (*Object, error) {
	if err := Validate(data, contentType); err != nil {
		return nil, err
	}

	contentType = strings.ToLower(contentType)
	key := storageKey(extensions[contentType])
	_, err := s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.cfg.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return nil, fmt.Errorf("put object: %w", err)
	}

	return &Object{URL: s.URL(key), Key: key}, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}

// URL is the public address of key.
func (s *Store) URL(key string) string {
	if s.cfg.PublicBaseURL != "" {
		return strings.TrimRight(s.cfg.PublicBaseURL, "/") + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.cfg.Bucket, s.cfg.Region, key)
}

func storageKey(ext string) string {
	d := now().UTC()
	return fmt.Sprintf("images/%04d/%02d/%02d/%s.%s", d.Year(), d.Month(), d.Day(), uuid.New(), ext)
}
