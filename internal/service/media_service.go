package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

type MediaService interface {
	SaveUpload(ctx context.Context, file *multipart.FileHeader) (string, error)
}

type mediaService struct {
	storage *StorageService
}

func NewMediaService(storage *StorageService) MediaService {
	return &mediaService{storage: storage}
}

// SaveUpload sniffs the file content, rejects anything outside the allow-list,
// and stores it under a generated key. The key is what publish requests
// reference later.
func (s *mediaService) SaveUpload(ctx context.Context, file *multipart.FileHeader) (string, error) {
	allowedTypes := map[string]struct{}{
		"mp4": {}, "mov": {}, "jpeg": {}, "png": {}, "jpg": {},
	}

	fileContent, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("error opening file: %w", err)
	}
	defer fileContent.Close()

	fileBytes, err := io.ReadAll(fileContent)
	if err != nil {
		return "", fmt.Errorf("error reading file content: %w", err)
	}

	fileType, err := filetype.Match(fileBytes)
	if err != nil || fileType == types.Unknown {
		return "", fmt.Errorf("unsupported file type")
	}
	if _, ok := allowedTypes[fileType.Extension]; !ok {
		return "", fmt.Errorf("file type %s is not allowed", fileType.Extension)
	}

	key, err := gonanoid.New()
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}

	err = s.storage.Upload(ctx, key, fileBytes, fileType.MIME.Value)
	if err != nil {
		return "", fmt.Errorf("error uploading file: %w", err)
	}

	return key, nil
}
