package service

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	gonanoid "github.com/matoous/go-nanoid/v2"
	cfg "github.com/postpilothq/postpilot/configs"
)

var allowedImageTypes = map[string]struct{}{
	"jpg": {}, "jpeg": {}, "png": {}, "gif": {},
}

// MediaService stores post images in Cloudflare R2 through the S3 API.
type MediaService interface {
	UploadImage(ctx context.Context, userID int64, file []byte) (string, error)
}

type mediaService struct {
	config cfg.Config
}

func NewMediaService(config cfg.Config) MediaService {
	return &mediaService{config: config}
}

func (m *mediaService) client(ctx context.Context) (*s3.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(m.config.R2.AccessKey, m.config.R2.SecretKey, "")),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", m.config.R2.AccountID))
	}), nil
}

// UploadImage validates the bytes are a supported image, stores them under
// a generated key and returns the public URL for the post record.
func (m *mediaService) UploadImage(ctx context.Context, userID int64, file []byte) (string, error) {
	if len(file) == 0 {
		return "", fmt.Errorf("%w: empty file", ErrInvalidInput)
	}

	kind, err := filetype.Match(file)
	if err != nil || kind == types.Unknown {
		return "", fmt.Errorf("%w: unsupported file type", ErrInvalidInput)
	}
	if _, ok := allowedImageTypes[kind.Extension]; !ok {
		return "", fmt.Errorf("%w: file type %s is not allowed", ErrInvalidInput, kind.Extension)
	}

	key, err := gonanoid.New()
	if err != nil {
		return "", err
	}

	client, err := m.client(ctx)
	if err != nil {
		return "", err
	}

	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(m.config.R2.BucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(file),
		ContentType: aws.String(kind.MIME.Value),
	})
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}

	return fmt.Sprintf("%s/%s", m.config.R2.PublicURL, key), nil
}
