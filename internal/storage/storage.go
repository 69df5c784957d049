package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/therealutkarshpriyadarshi/aiva/internal/config"
	"github.com/therealutkarshpriyadarshi/aiva/internal/metrics"
)

const (
	// Default part size for multipart uploads (16MB)
	DefaultPartSize = 16 * 1024 * 1024

	// Maximum number of concurrent parts
	MaxConcurrentParts = 4

	// DefaultURLExpiry applies when no expiry is configured
	DefaultURLExpiry = time.Hour
)

// Storage archives derived outputs in an S3 compatible bucket
type Storage struct {
	client     *minio.Client
	bucketName string
	urlExpiry  time.Duration
}

// New creates a new storage client
func New(cfg config.StorageConfig) (*Storage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	// Ensure bucket exists
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	exists, err := client.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		err = client.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{
			Region: cfg.Region,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	expiry := cfg.URLExpiry
	if expiry <= 0 {
		expiry = DefaultURLExpiry
	}
	return &Storage{
		client:     client,
		bucketName: cfg.BucketName,
		urlExpiry:  expiry,
	}, nil
}

// ObjectKey returns the archive key for a derived file produced by job
func ObjectKey(jobID, filePath string) string {
	return path.Join("derived", jobID, filepath.Base(filePath))
}

// UploadFile uploads a file from local filesystem. metadata is stored as
// user metadata on the object.
func (s *Storage) UploadFile(ctx context.Context, objectName, filePath string, metadata map[string]string) error {
	start := time.Now()
	info, err := os.Stat(filePath)
	if err != nil {
		metrics.RecordStorageOperation("upload", "error", time.Since(start).Seconds(), 0)
		return fmt.Errorf("failed to stat file: %w", err)
	}

	_, err = s.client.FPutObject(ctx, s.bucketName, objectName, filePath, minio.PutObjectOptions{
		ContentType:  getContentType(filePath),
		UserMetadata: metadata,
		PartSize:     DefaultPartSize,
		NumThreads:   MaxConcurrentParts,
	})
	if err != nil {
		metrics.RecordStorageOperation("upload", "error", time.Since(start).Seconds(), 0)
		return fmt.Errorf("failed to upload file: %w", err)
	}

	metrics.RecordStorageOperation("upload", "success", time.Since(start).Seconds(), info.Size())
	return nil
}

// GetURL returns a presigned URL for an object
func (s *Storage) GetURL(ctx context.Context, objectName string) (string, error) {
	url, err := s.client.PresignedGetObject(ctx, s.bucketName, objectName, s.urlExpiry, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate URL: %w", err)
	}

	return url.String(), nil
}

// getContentType returns the content type based on file extension
func getContentType(filePath string) string {
	ext := strings.ToLower(filepath.Ext(filePath))
	switch ext {
	case ".mp4":
		return "video/mp4"
	case ".mov":
		return "video/quicktime"
	case ".avi":
		return "video/x-msvideo"
	case ".mkv":
		return "video/x-matroska"
	case ".webm":
		return "video/webm"
	case ".wav":
		return "audio/wav"
	case ".mp3":
		return "audio/mpeg"
	case ".aac":
		return "audio/aac"
	case ".m4a":
		return "audio/mp4"
	case ".srt":
		return "application/x-subrip"
	default:
		return "application/octet-stream"
	}
}
