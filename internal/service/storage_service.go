package service

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	cfg "github.com/ismaelcompsci/postall/configs"
	"github.com/ismaelcompsci/postall/internal/transfer"
)

// signedURLTTL is the validity window for media URLs handed to platforms. The
// URLs are request-scoped and never cached past this window.
const signedURLTTL = 600 * time.Second

// MediaResolver resolves storage keys to short-lived signed URLs.
type MediaResolver interface {
	ResolveMediaURLs(ctx context.Context, fileKey, coverKey string) (*transfer.MediaURLs, error)
}

type StorageService struct {
	config  cfg.Config
	client  *s3.Client
	presign *s3.PresignClient
}

func NewStorageService(c cfg.Config) (*StorageService, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(c.R2.AccessKey, c.R2.SecretKey, "")),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", c.R2.AccountID))
	})

	return newStorageService(c, client), nil
}

func newStorageService(c cfg.Config, client *s3.Client) *StorageService {
	return &StorageService{
		config:  c,
		client:  client,
		presign: s3.NewPresignClient(client),
	}
}

// ResolveMediaURLs issues signed URLs for the media file and its optional
// cover. A missing media object fails; a cover is mandatory once requested.
func (s *StorageService) ResolveMediaURLs(ctx context.Context, fileKey, coverKey string) (*transfer.MediaURLs, error) {
	fileURL, err := s.signedGetURL(ctx, fileKey)
	if err != nil {
		slog.Info(err.Error())
		return nil, &MediaNotFoundError{Key: fileKey}
	}

	urls := &transfer.MediaURLs{FileURL: fileURL}

	if coverKey != "" {
		coverURL, err := s.signedGetURL(ctx, coverKey)
		if err != nil {
			slog.Info(err.Error())
			return nil, &MediaNotFoundError{Key: coverKey}
		}
		urls.CoverURL = coverURL
	}

	return urls, nil
}

func (s *StorageService) signedGetURL(ctx context.Context, key string) (string, error) {
	// HeadObject first so a dangling key surfaces here rather than as a
	// platform-side download failure.
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.config.R2.BucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", err
	}

	request, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.config.R2.BucketName),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(signedURLTTL))
	if err != nil {
		return "", err
	}

	return request.URL, nil
}

// Upload stores a media object under the given key.
func (s *StorageService) Upload(ctx context.Context, key string, file []byte, filetype string) error {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.config.R2.BucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(file),
		ContentType: aws.String(filetype),
	}

	_, err := s.client.PutObject(ctx, input)
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	return nil
}
