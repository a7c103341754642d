// Package storage 提供 CSV 导入所需的只读数据源（本地目录或对象存储桶）。
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"yamdb/internal/config"
)

const (
	// TypeLocal 表示本地文件系统。
	TypeLocal = "local"
	// TypeS3 表示 Amazon S3 或兼容的存储后端。
	TypeS3 = "s3"
	// TypeOSS 表示阿里云 OSS 存储。
	TypeOSS = "oss"
	// TypeCOS 表示腾讯云 COS 存储。
	TypeCOS = "cos"
	// TypeR2 表示 Cloudflare R2 存储。
	TypeR2 = "r2"
)

// ErrNotFound is returned by Open when the named object does not exist.
var ErrNotFound = errors.New("storage: object not found")

// Source opens named objects for reading. Names are slash separated and
// relative to the source root (or bucket prefix).
type Source interface {
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

// NewSource 根据 IMPORT_SOURCE 配置实例化数据源。
func NewSource(cfg config.Config) (Source, error) {
	typeName := strings.ToLower(strings.TrimSpace(cfg.ImportSource))
	switch typeName {
	case "", TypeLocal:
		return NewLocalSource(cfg.ImportLocalDir)
	case TypeS3:
		return NewS3Source(cfg)
	case TypeOSS:
		return NewOSSSource(cfg)
	case TypeCOS:
		return NewCOSSource(cfg)
	case TypeR2:
		return NewR2Source(cfg)
	default:
		return nil, fmt.Errorf("unsupported import source: %s", cfg.ImportSource)
	}
}
