package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	_ "golang.org/x/image/webp"

	"blogcristao/internal/config"
	"blogcristao/internal/model"
	"blogcristao/internal/observability"
)

// ImageHost stores and removes featured images.
type ImageHost interface {
	Upload(ctx context.Context, data []byte, contentType, folder string) (*model.UploadResult, error)
	Destroy(ctx context.Context, publicID string) error
}

// R2ImageHost keeps images in a Cloudflare R2 bucket.
type R2ImageHost struct {
	s3Client  *s3.Client
	bucket    string
	publicURL string
}

// NewR2ImageHost constructs an S3-compatible client for Cloudflare R2.
func NewR2ImageHost(ctx context.Context, cfg *config.Config) (*R2ImageHost, error) {
	if cfg.R2AccountID == "" || cfg.R2AccessKeyID == "" || cfg.R2SecretAccessKey == "" || cfg.R2BucketName == "" || cfg.R2PublicURL == "" {
		return nil, fmt.Errorf("missing Cloudflare R2 configuration")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(
		ctx,
		awsconfig.WithRegion("auto"),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.R2AccessKeyID, cfg.R2SecretAccessKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config for R2: %w", err)
	}

	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.R2AccountID)
	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	return &R2ImageHost{
		s3Client:  s3Client,
		bucket:    cfg.R2BucketName,
		publicURL: strings.TrimSuffix(cfg.R2PublicURL, "/"),
	}, nil
}

// Upload stores the bytes under <folder>/<uuid><ext>. The key is the public id.
func (h *R2ImageHost) Upload(ctx context.Context, data []byte, contentType, folder string) (*model.UploadResult, error) {
	key := ObjectKey(folder, contentType)

	_, err := h.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(h.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(data),
		ContentType:  aws.String(contentType),
		CacheControl: aws.String(model.ImageCacheControl),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload to r2: %w", err)
	}

	return &model.UploadResult{
		URL:      fmt.Sprintf("%s/%s", h.publicURL, key),
		PublicID: key,
	}, nil
}

// Destroy removes an object by key. An empty key is a no-op.
func (h *R2ImageHost) Destroy(ctx context.Context, publicID string) error {
	if publicID == "" {
		return nil
	}
	_, err := h.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(h.bucket),
		Key:    aws.String(publicID),
	})
	if err != nil {
		return fmt.Errorf("failed to delete from r2: %w", err)
	}
	return nil
}

// ObjectKey builds a fresh object key for an image of the given type.
func ObjectKey(folder, contentType string) string {
	folder = strings.Trim(folder, "/ ")
	if folder == "" {
		folder = model.DefaultMediaFolder
	}
	return fmt.Sprintf("%s/%s%s", folder, uuid.NewString(), model.ImageExtension(contentType))
}

// MediaService validates uploads before handing them to the image host.
type MediaService struct {
	host   ImageHost
	folder string
}

func NewMediaService(host ImageHost, folder string) *MediaService {
	if folder == "" {
		folder = model.DefaultMediaFolder
	}
	return &MediaService{host: host, folder: folder}
}

// Upload checks size, type and decodability, then stores the original bytes.
func (s *MediaService) Upload(ctx context.Context, file io.Reader, declaredSize int64, contentType string) (*model.UploadResult, error) {
	data, contentType, err := readAndValidateImage(file, declaredSize, contentType, model.MaxImageSizeBytes)
	if err != nil {
		observability.ImageUploads.WithLabelValues("rejected").Inc()
		return nil, err
	}

	width, height, err := imageDimensions(data)
	if err != nil {
		observability.ImageUploads.WithLabelValues("rejected").Inc()
		return nil, err
	}

	result, err := s.host.Upload(ctx, data, contentType, s.folder)
	if err != nil {
		observability.ImageUploads.WithLabelValues("error").Inc()
		return nil, err
	}
	result.Width = width
	result.Height = height

	observability.ImageUploads.WithLabelValues("ok").Inc()
	log.Printf("[MediaService] Uploaded %s (%s, %d bytes, %dx%d)", result.PublicID, contentType, len(data), width, height)
	return result, nil
}

// Destroy removes a previously uploaded image.
func (s *MediaService) Destroy(ctx context.Context, publicID string) error {
	return s.host.Destroy(ctx, publicID)
}

// readAndValidateImage loads the upload into memory with size and type checks.
func readAndValidateImage(file io.Reader, declaredSize int64, contentType string, maxSize int64) ([]byte, string, error) {
	if file == nil {
		return nil, "", model.ErrFileRequired
	}
	if declaredSize > maxSize {
		return nil, "", model.ErrFileTooLarge
	}

	limitedReader := io.LimitReader(file, maxSize+1)
	data, err := io.ReadAll(limitedReader)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > maxSize {
		return nil, "", model.ErrFileTooLarge
	}
	if len(data) == 0 {
		return nil, "", model.ErrFileRequired
	}

	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data[:min(len(data), 512)])
	}
	if idx := strings.Index(contentType, ";"); idx != -1 {
		contentType = strings.TrimSpace(contentType[:idx])
	}
	if !model.IsAllowedImageType(contentType) {
		return nil, "", model.ErrInvalidImageType
	}

	return data, contentType, nil
}

// imageDimensions decodes the image, applying EXIF orientation, and returns
// its displayed size.
func imageDimensions(data []byte) (int, int, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return 0, 0, errors.Join(model.ErrInvalidImage, err)
	}
	b := img.Bounds()
	return b.Dx(), b.Dy(), nil
}
