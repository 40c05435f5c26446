// Package storage persists generated assets and reference uploads. Provider
// result URLs expire, so every asset is copied through a Storage backend
// (local disk or S3) before it is handed to clients.
package storage

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Storage is the asset persistence backend.
type Storage interface {
	// Save writes the asset and returns its public URL.
	Save(ctx context.Context, key string, data []byte, contentType string) (string, error)
	// Delete removes the asset. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// URL returns the public URL for an existing key.
	URL(key string) string
}

// AssetKey builds the storage key for a generated or uploaded asset:
// {kind}/{year}/{month}/{userID}/{fileID}{ext}.
func AssetKey(kind, userID, filename string) string {
	extension := filepath.Ext(filename)
	if extension == "" {
		extension = ".bin"
	}
	now := time.Now()
	return fmt.Sprintf("%s/%d/%02d/%s/%s%s",
		kind, now.Year(), now.Month(), userID, uuid.New().String(), extension)
}

// ExtForMIME maps a provider-reported content type to a file extension.
func ExtForMIME(contentType string) string {
	switch {
	case strings.Contains(contentType, "png"):
		return ".png"
	case strings.Contains(contentType, "jpeg"), strings.Contains(contentType, "jpg"):
		return ".jpg"
	case strings.Contains(contentType, "webp"):
		return ".webp"
	case strings.Contains(contentType, "mp4"):
		return ".mp4"
	case strings.Contains(contentType, "wav"):
		return ".wav"
	case strings.Contains(contentType, "mpeg"):
		return ".mp3"
	default:
		return ".bin"
	}
}

// ContentTypeForExt returns the MIME type for a storage key's extension.
func ContentTypeForExt(extension string) string {
	switch strings.ToLower(extension) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	case ".mp4":
		return "video/mp4"
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	default:
		return "application/octet-stream"
	}
}

// imageUploadExts is the allowlist for reference image and logo uploads.
var imageUploadExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".webp": true, ".gif": true,
}

// ValidateImageUpload checks an upload's extension, sniffed content type and
// size before it is saved.
func ValidateImageUpload(filename string, data []byte, maxSize int64) error {
	extension := strings.ToLower(filepath.Ext(filename))
	if !imageUploadExts[extension] {
		return fmt.Errorf("unsupported file type %q", extension)
	}
	if int64(len(data)) > maxSize {
		return fmt.Errorf("file too large (%d bytes, max %d)", len(data), maxSize)
	}
	sniffed := http.DetectContentType(data)
	if !strings.HasPrefix(sniffed, "image/") {
		return fmt.Errorf("file content is %s, not an image", sniffed)
	}
	return nil
}
