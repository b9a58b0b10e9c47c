// Package uploads stores review images: each upload is recompressed, put
// into S3-compatible object storage, and returned as a raw and a rendered URL.
package uploads

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/ternarybob/arbor"

	"placefinder/src/common"
	"placefinder/src/imageurl"
	"placefinder/src/types"
)

const objectPath = "/storage/v1/object/public/"

// ObjectStore writes a single object.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
}

// MinioStore puts objects into one bucket of an S3-compatible service.
type MinioStore struct {
	client *minio.Client
	bucket string
}

// NewMinioStore returns nil, nil when no endpoint is configured.
func NewMinioStore(config common.UploadsConfig) (*MinioStore, error) {
	if config.Endpoint == "" {
		return nil, nil
	}
	if config.Bucket == "" {
		return nil, common.Configuration("uploads.bucket is required when uploads.endpoint is set")
	}

	client, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKey, config.SecretKey, ""),
		Secure: config.UseSSL,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create object storage client")
	}
	return &MinioStore{client: client, bucket: config.Bucket}, nil
}

func (s *MinioStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return errors.Wrapf(err, "failed to put object %s", key)
	}
	return nil
}

// Result is the stored image. URL is the raw object form and OptimizedURL
// its render-pipeline variant.
type Result struct {
	URL          string `json:"url"`
	OptimizedURL string `json:"optimizedUrl"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
}

type Service struct {
	store         ObjectStore
	compressor    imageurl.Compressor
	bucket        string
	publicBaseURL string
	renderWidth   int
	newID         func() string
	logger        arbor.ILogger
}

// NewService builds the upload flow. A nil store leaves uploads unconfigured.
func NewService(config common.UploadsConfig, renderWidth int, store ObjectStore, compressor imageurl.Compressor, logger arbor.ILogger) *Service {
	if compressor == nil {
		compressor = imageurl.NewJPEGCompressor(config.MaxDimension, config.Quality, config.MaxBytes)
	}
	return &Service{
		store:         store,
		compressor:    compressor,
		bucket:        config.Bucket,
		publicBaseURL: strings.TrimRight(config.PublicBaseURL, "/"),
		renderWidth:   renderWidth,
		newID:         uuid.NewString,
		logger:        logger,
	}
}

// Upload compresses r and stores it under reviews/<user>/<id>.jpg.
func (s *Service) Upload(ctx context.Context, identity *types.Identity, r io.Reader) (*Result, error) {
	if identity == nil {
		return nil, common.AuthRequired()
	}
	if s.store == nil || s.publicBaseURL == "" {
		return nil, common.Configuration("image uploads are not configured")
	}
	if !validKeySegment(identity.UserID) {
		return nil, common.ClientInput("user id %q cannot be used in an object key", identity.UserID)
	}

	compressed, err := s.compressor.Compress(ctx, r)
	if err != nil {
		return nil, common.ClientInput("unsupported image: %v", err)
	}

	key := "reviews/" + identity.UserID + "/" + s.newID() + ".jpg"
	if err := s.store.Put(ctx, key, compressed.Data, compressed.ContentType); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("Image upload failed")
		return nil, common.UpstreamUnavailable(err)
	}

	raw := s.publicBaseURL + objectPath + s.bucket + "/" + key
	s.logger.Info().
		Str("key", key).
		Int("bytes", len(compressed.Data)).
		Int("width", compressed.Width).
		Int("height", compressed.Height).
		Msg("Image uploaded")

	return &Result{
		URL:          raw,
		OptimizedURL: imageurl.OptimizeStoredImage(raw, s.renderWidth).URL,
		Width:        compressed.Width,
		Height:       compressed.Height,
	}, nil
}

// validKeySegment reports whether id stays a single path segment under reviews/.
func validKeySegment(id string) bool {
	if id == "" || id == "." || id == ".." {
		return false
	}
	return !strings.ContainsAny(id, "/\\")
}
