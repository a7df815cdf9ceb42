package services

import (
	"fmt"
	"mime/multipart"

	"github.com/bakeprint/bakeprint-api/utils"
)

// ImageService handles item file uploads (inspiration/preview images and STL
// models): validation, storage and URL generation
type ImageService interface {
	// UploadItemFile validates and stores a file of the given kind, returning
	// the storage key
	UploadItemFile(fileHeader *multipart.FileHeader, kind string) (string, error)

	// GetFileURL generates a URL for accessing a stored file
	GetFileURL(key string) (string, error)

	// DeleteFile removes a file from storage
	DeleteFile(key string) error
}

// S3ImageService implements ImageService on top of S3
type S3ImageService struct {
	s3Service S3Interface
}

var imageServiceInstance ImageService

// InitImageService initializes the image service with an S3 backend
func InitImageService(s3Service S3Interface) ImageService {
	imageServiceInstance = &S3ImageService{
		s3Service: s3Service,
	}
	return imageServiceInstance
}

// GetImageService returns the initialized image service instance
func GetImageService() ImageService {
	return imageServiceInstance
}

// SetImageService sets the image service instance (primarily for testing)
func SetImageService(service ImageService) {
	imageServiceInstance = service
}

// UploadItemFile validates and uploads a file to S3
func (s *S3ImageService) UploadItemFile(fileHeader *multipart.FileHeader, kind string) (string, error) {
	if err := utils.ValidateUploadFile(fileHeader, kind); err != nil {
		return "", err
	}

	key, err := s.s3Service.UploadFile(fileHeader)
	if err != nil {
		return "", fmt.Errorf("failed to upload file: %w", err)
	}

	return key, nil
}

// GetFileURL returns a presigned URL for a stored file
func (s *S3ImageService) GetFileURL(key string) (string, error) {
	return s.s3Service.GetPresignedURL(key)
}

// DeleteFile removes a stored file
func (s *S3ImageService) DeleteFile(key string) error {
	return s.s3Service.DeleteFile(key)
}
