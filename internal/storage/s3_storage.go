package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"yamdb/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

type s3ClientOptions struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	ForcePathStyle  bool
}

type s3Getter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type remoteS3Source struct {
	client s3Getter
	bucket string
	prefix string
}

func (s *remoteS3Source) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	key, err := objectKey(s.prefix, name)
	if err != nil {
		return nil, err
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("get object: %w", err)
	}
	return out.Body, nil
}

var _ Source = (*remoteS3Source)(nil)

func isS3NotFound(err error) bool {
	if err == nil {
		return false
	}
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := strings.ToLower(apiErr.ErrorCode())
		if code == "notfound" || code == "nosuchkey" || code == "404" {
			return true
		}
	}
	if strings.Contains(strings.ToLower(err.Error()), "status code: 404") {
		return true
	}
	return false
}

func NewS3Source(cfg config.Config) (Source, error) {
	bucket := strings.TrimSpace(cfg.StorageS3Bucket)
	if bucket == "" {
		return nil, errors.New("storage: missing S3 bucket")
	}
	region := strings.TrimSpace(cfg.StorageS3Region)
	if region == "" {
		return nil, errors.New("storage: missing S3 region")
	}
	accessKey := strings.TrimSpace(cfg.StorageS3AccessKeyID)
	secretKey := strings.TrimSpace(cfg.StorageS3SecretAccessKey)
	if accessKey == "" || secretKey == "" {
		return nil, errors.New("storage: missing S3 credentials")
	}

	client, err := newS3Client(s3ClientOptions{
		Region:          region,
		Endpoint:        strings.TrimSpace(cfg.StorageS3Endpoint),
		AccessKeyID:     accessKey,
		SecretAccessKey: secretKey,
		SessionToken:    strings.TrimSpace(cfg.StorageS3SessionToken),
		ForcePathStyle:  cfg.StorageS3ForcePathStyle,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: create S3 client: %w", err)
	}

	return &remoteS3Source{
		client: client,
		bucket: bucket,
		prefix: trimPrefix(cfg.StorageS3Prefix),
	}, nil
}

func newS3Client(opts s3ClientOptions) (*s3.Client, error) {
	region := strings.TrimSpace(opts.Region)
	if region == "" {
		return nil, errors.New("storage: missing S3 region")
	}
	accessKey := strings.TrimSpace(opts.AccessKeyID)
	secretKey := strings.TrimSpace(opts.SecretAccessKey)
	if accessKey == "" || secretKey == "" {
		return nil, errors.New("storage: missing S3 credentials")
	}

	credentialsProvider := aws.NewCredentialsCache(
		credentials.NewStaticCredentialsProvider(accessKey, secretKey, strings.TrimSpace(opts.SessionToken)),
	)

	awsCfg := aws.Config{
		Region:      region,
		Credentials: credentialsProvider,
	}

	endpoint := strings.TrimSpace(opts.Endpoint)
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = opts.ForcePathStyle
		if endpoint != "" {
			if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
				endpoint = "https://" + endpoint
			}
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	return client, nil
}
