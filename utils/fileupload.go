package utils

import (
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"
)

const (
	// MaxImageSize is the upload cap for inspiration and preview images (10MB)
	MaxImageSize = 10 * 1024 * 1024
	// MaxModelSize is the upload cap for STL files (50MB)
	MaxModelSize = 50 * 1024 * 1024
)

// Allowed extensions per upload kind
var (
	imageExtensions = map[string]bool{".png": true, ".jpg": true, ".jpeg": true}
	modelExtensions = map[string]bool{".stl": true}
)

// FileUploadError represents a file upload validation error
type FileUploadError struct {
	Code    string
	Message string
}

func (e *FileUploadError) Error() string {
	return e.Message
}

// ValidateUploadFile validates an uploaded file's extension and size for the
// given kind ("inspiration", "preview" or "model")
func ValidateUploadFile(fileHeader *multipart.FileHeader, kind string) error {
	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))

	if kind == "model" {
		if !modelExtensions[ext] {
			return &FileUploadError{
				Code:    "INVALID_FILE_FORMAT",
				Message: "Only STL files are allowed for models",
			}
		}
		if fileHeader.Size > MaxModelSize {
			return &FileUploadError{
				Code:    "FILE_TOO_LARGE",
				Message: fmt.Sprintf("Model size exceeds maximum allowed size of %d MB", MaxModelSize/(1024*1024)),
			}
		}
		return nil
	}

	if !imageExtensions[ext] {
		return &FileUploadError{
			Code:    "INVALID_FILE_FORMAT",
			Message: "Only PNG and JPEG files are allowed for images",
		}
	}
	if fileHeader.Size > MaxImageSize {
		return &FileUploadError{
			Code:    "FILE_TOO_LARGE",
			Message: fmt.Sprintf("File size exceeds maximum allowed size of %d MB", MaxImageSize/(1024*1024)),
		}
	}
	return nil
}
