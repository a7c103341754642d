package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"yamdb/internal/config"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

func TestObjectKey(t *testing.T) {
	tests := []struct {
		prefix  string
		name    string
		want    string
		wantErr bool
	}{
		{prefix: "", name: "genre.csv", want: "genre.csv"},
		{prefix: "/imports/", name: "genre.csv", want: "imports/genre.csv"},
		{prefix: "imports", name: "/nested/./titles.csv", want: "imports/nested/titles.csv"},
		{prefix: "imports", name: "..\\secret", wantErr: true},
		{prefix: "", name: "  ", wantErr: true},
		{prefix: "", name: "a/../../b", wantErr: true},
	}

	for _, tt := range tests {
		got, err := objectKey(tt.prefix, tt.name)
		if tt.wantErr {
			if err == nil {
				t.Errorf("objectKey(%q, %q) expected error, got %q", tt.prefix, tt.name, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("objectKey(%q, %q) unexpected error: %v", tt.prefix, tt.name, err)
			continue
		}
		if got != tt.want {
			t.Errorf("objectKey(%q, %q) = %q, want %q", tt.prefix, tt.name, got, tt.want)
		}
	}
}

func TestLocalSourceOpen(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "genre.csv"), []byte("id,name,slug\n"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	src, err := NewLocalSource(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rc, err := src.Open(context.Background(), "genre.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, _ := io.ReadAll(rc)
	rc.Close()
	if string(data) != "id,name,slug\n" {
		t.Fatalf("unexpected content %q", data)
	}

	if _, err := src.Open(context.Background(), "missing.csv"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := src.Open(context.Background(), "../escape.csv"); err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("expected path validation error, got %v", err)
	}
}

func TestNewLocalSourceRequiresDirectory(t *testing.T) {
	if _, err := NewLocalSource(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

type fakeS3 struct {
	objects map[string]string
	lastKey string
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.lastKey = *in.Key
	body, ok := f.objects[*in.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func TestRemoteS3SourceOpen(t *testing.T) {
	fake := &fakeS3{objects: map[string]string{"imports/genre.csv": "id,name,slug\n"}}
	src := &remoteS3Source{client: fake, bucket: "data", prefix: "imports"}

	rc, err := src.Open(context.Background(), "genre.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rc.Close()
	if fake.lastKey != "imports/genre.csv" {
		t.Fatalf("unexpected key %q", fake.lastKey)
	}

	if _, err := src.Open(context.Background(), "missing.csv"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestNewSourceValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Config
	}{
		{"unknown type", config.Config{ImportSource: "ftp"}},
		{"s3 without bucket", config.Config{ImportSource: TypeS3}},
		{"r2 without endpoint", config.Config{ImportSource: TypeR2, StorageR2Bucket: "b", StorageR2AccessKeyID: "k", StorageR2SecretAccessKey: "s"}},
		{"oss without endpoint", config.Config{ImportSource: TypeOSS}},
		{"cos without url", config.Config{ImportSource: TypeCOS}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewSource(tt.cfg); err == nil {
				t.Fatal("expected configuration error")
			}
		})
	}

	src, err := NewSource(config.Config{ImportSource: TypeS3, StorageS3Bucket: "b", StorageS3Region: "us-east-1", StorageS3AccessKeyID: "k", StorageS3SecretAccessKey: "s"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := src.(*remoteS3Source); !ok {
		t.Fatalf("expected S3 source, got %T", src)
	}
}
