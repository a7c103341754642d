package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"yamdb/internal/config"

	"github.com/tencentyun/cos-go-sdk-v5"
)

type cosSource struct {
	client *cos.Client
	prefix string
}

// NewCOSSource reads from a Tencent COS bucket.
func NewCOSSource(cfg config.Config) (Source, error) {
	baseURL := strings.TrimSpace(cfg.StorageCOSBucketURL)
	if baseURL == "" {
		return nil, errors.New("storage: missing COS bucket URL")
	}
	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("storage: parse COS bucket URL: %w", err)
	}

	secretID := strings.TrimSpace(cfg.StorageCOSSecretID)
	secretKey := strings.TrimSpace(cfg.StorageCOSSecretKey)
	if secretID == "" || secretKey == "" {
		return nil, errors.New("storage: missing COS credentials")
	}

	transport := &cos.AuthorizationTransport{
		SecretID:  secretID,
		SecretKey: secretKey,
	}

	client := cos.NewClient(&cos.BaseURL{BucketURL: parsedURL}, &http.Client{Transport: transport})

	return &cosSource{
		client: client,
		prefix: trimPrefix(cfg.StorageCOSPrefix),
	}, nil
}

func (s *cosSource) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	key, err := objectKey(s.prefix, name)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Object.Get(ctx, key, nil)
	if err != nil {
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		if cos.IsNotFoundError(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("get object: %w", err)
	}
	return resp.Body, nil
}

var _ Source = (*cosSource)(nil)
