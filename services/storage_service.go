package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-xray-sdk-go/instrumentation/awsv2"
)

// CodeStorage holds endpoint source text outside the registry row
type CodeStorage interface {
	Save(ctx context.Context, key string, code string) error
	Load(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

// LocalCodeStorage implements CodeStorage on the local filesystem
type LocalCodeStorage struct {
	basePath string
}

func NewLocalCodeStorage(basePath string) (*LocalCodeStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, err
	}
	return &LocalCodeStorage{basePath: basePath}, nil
}

func (s *LocalCodeStorage) Save(ctx context.Context, key string, code string) error {
	fullPath := filepath.Join(s.basePath, key)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return err
	}

	return os.WriteFile(fullPath, []byte(code), 0644)
}

func (s *LocalCodeStorage) Load(ctx context.Context, key string) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.basePath, key))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (s *LocalCodeStorage) Delete(ctx context.Context, key string) error {
	return os.Remove(filepath.Join(s.basePath, key))
}

// S3CodeStorage implements CodeStorage on AWS S3
type S3CodeStorage struct {
	client *s3.Client
	bucket string
}

func NewS3CodeStorage(bucket string) (*S3CodeStorage, error) {
	cfg, err := config.LoadDefaultConfig(context.Background())
	if err != nil {
		return nil, err
	}

	// X-Ray instrumentation for S3 operation tracing
	awsv2.AWSV2Instrumentor(&cfg.APIOptions)

	return &S3CodeStorage{client: s3.NewFromConfig(cfg), bucket: bucket}, nil
}

func (s *S3CodeStorage) Save(ctx context.Context, key string, code string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        strings.NewReader(code),
		ContentType: aws.String("text/plain"),
	})
	return err
}

func (s *S3CodeStorage) Load(ctx context.Context, key string) (string, error) {
	output, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", err
	}
	defer output.Body.Close()

	data, err := io.ReadAll(output.Body)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (s *S3CodeStorage) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return err
}

// NewCodeStorage creates the storage backend selected by environment
func NewCodeStorage(storageType, pathOrBucket string) (CodeStorage, error) {
	switch storageType {
	case "s3":
		return NewS3CodeStorage(pathOrBucket)
	case "local":
		return NewLocalCodeStorage(pathOrBucket)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", storageType)
	}
}

// EndpointCodeKey is the storage key for an endpoint's source text
func EndpointCodeKey(endpointID int64) string {
	return fmt.Sprintf("code/endpoints/ep_%d.py", endpointID)
}
