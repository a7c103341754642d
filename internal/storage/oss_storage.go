package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"yamdb/internal/config"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
)

type ossSource struct {
	bucket *oss.Bucket
	prefix string
}

// NewOSSSource reads from an Aliyun OSS bucket.
func NewOSSSource(cfg config.Config) (Source, error) {
	endpoint := strings.TrimSpace(cfg.StorageOSSEndpoint)
	if endpoint == "" {
		return nil, errors.New("storage: missing OSS endpoint")
	}
	bucketName := strings.TrimSpace(cfg.StorageOSSBucket)
	if bucketName == "" {
		return nil, errors.New("storage: missing OSS bucket")
	}
	accessKey := strings.TrimSpace(cfg.StorageOSSAccessKeyID)
	secretKey := strings.TrimSpace(cfg.StorageOSSAccessKeySecret)
	if accessKey == "" || secretKey == "" {
		return nil, errors.New("storage: missing OSS credentials")
	}

	client, err := oss.New(endpoint, accessKey, secretKey)
	if err != nil {
		return nil, fmt.Errorf("storage: create OSS client: %w", err)
	}
	bucket, err := client.Bucket(bucketName)
	if err != nil {
		return nil, fmt.Errorf("storage: open OSS bucket: %w", err)
	}

	return &ossSource{
		bucket: bucket,
		prefix: trimPrefix(cfg.StorageOSSPrefix),
	}, nil
}

func (s *ossSource) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	key, err := objectKey(s.prefix, name)
	if err != nil {
		return nil, err
	}

	body, err := s.bucket.GetObject(key, oss.WithContext(ctx))
	if err != nil {
		var svcErr oss.ServiceError
		if errors.As(err, &svcErr) && (svcErr.StatusCode == http.StatusNotFound || svcErr.Code == "NoSuchKey") {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("get object: %w", err)
	}
	return body, nil
}

var _ Source = (*ossSource)(nil)
