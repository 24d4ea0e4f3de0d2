// Package files stores uploaded attachments in object storage. Uploads run
// outside workflow transactions; the workflow persists only the returned URL
// and asset ID.
package files

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	dErrors "lingkod/pkg/domain-errors"
)

// Upload is one blob headed for object storage.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Stored identifies a persisted blob. AssetID is the storage key and is what
// Delete takes back.
type Stored struct {
	URL     string
	AssetID string
}

type Store interface {
	Upload(ctx context.Context, folder string, up Upload) (Stored, error)
	Delete(ctx context.Context, assetID string) error
}

// S3Store persists blobs to an S3-compatible bucket (MinIO in dev).
type S3Store struct {
	client *s3.Client
	bucket string
	// baseURL prefixes returned URLs, e.g. "http://127.0.0.1:9000/lingkod".
	baseURL string
}

type S3Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
}

func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey, cfg.SecretKey, "",
		)),
	)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load s3 config")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Store{
		client:  client,
		bucket:  cfg.Bucket,
		baseURL: strings.TrimSuffix(cfg.Endpoint, "/") + "/" + cfg.Bucket,
	}, nil
}

func (s *S3Store) Upload(ctx context.Context, folder string, up Upload) (Stored, error) {
	key := path.Join(folder, uuid.NewString()+path.Ext(up.Filename))

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(up.Data),
		ContentType: aws.String(up.ContentType),
	})
	if err != nil {
		return Stored{}, dErrors.Wrap(err, dErrors.CodeInternal, fmt.Sprintf("upload %s", up.Filename))
	}

	return Stored{URL: s.baseURL + "/" + key, AssetID: key}, nil
}

func (s *S3Store) Delete(ctx context.Context, assetID string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(assetID),
	})
	return dErrors.Wrap(err, dErrors.CodeInternal, fmt.Sprintf("delete %s", assetID))
}

// MemoryStore keeps blobs in a map. Test double for workflows that attach
// files.
type MemoryStore struct {
	mu    sync.Mutex
	blobs map[string]Upload
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string]Upload)}
}

func (s *MemoryStore) Upload(ctx context.Context, folder string, up Upload) (Stored, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := path.Join(folder, uuid.NewString()+path.Ext(up.Filename))
	s.blobs[key] = up
	return Stored{URL: "memory://" + key, AssetID: key}, nil
}

func (s *MemoryStore) Delete(ctx context.Context, assetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.blobs[assetID]; !ok {
		return dErrors.New(dErrors.CodeNotFound, "asset not found")
	}
	delete(s.blobs, assetID)
	return nil
}

// Len reports how many blobs are stored. Test helper.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.blobs)
}
