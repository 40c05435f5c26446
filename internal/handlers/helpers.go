package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/videobuds/backend/internal/database"
	"github.com/videobuds/backend/internal/models"
)

// getUserFromContext extracts the authenticated user set by the auth
// middleware. Responds 401 and returns false when missing.
func getUserFromContext(c *gin.Context) (*models.User, bool) {
	v, exists := c.Get("user")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return nil, false
	}
	user, ok := v.(*models.User)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "invalid user data in context"})
		return nil, false
	}
	return user, true
}

// handleDBError maps a query error to 404/500. Returns true when a
// response was written.
func handleDBError(c *gin.Context, err error, resource string) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": resource + " not found"})
		return true
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch " + resource})
	return true
}

func parseInt(s string, defaultValue int) int {
	if val, err := strconv.Atoi(s); err == nil {
		return val
	}
	return defaultValue
}

// paginationParams reads page/per_page query params with bounds.
func paginationParams(c *gin.Context, defaultPerPage, maxPerPage int) (page, perPage int) {
	page = parseInt(c.DefaultQuery("page", "1"), 1)
	if page < 1 {
		page = 1
	}
	perPage = parseInt(c.DefaultQuery("per_page", strconv.Itoa(defaultPerPage)), defaultPerPage)
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	return page, perPage
}

// loadOwnedBrand fetches a brand scoped to its owner.
func loadOwnedBrand(brandID, userID string) (*models.Brand, error) {
	var brand models.Brand
	err := database.DB.
		Where("id = ? AND user_id = ?", brandID, userID).
		First(&brand).Error
	if err != nil {
		return nil, err
	}
	return &brand, nil
}

// loadOwnedCampaign fetches a campaign whose brand belongs to the user.
func loadOwnedCampaign(campaignID, userID string) (*models.Campaign, error) {
	var campaign models.Campaign
	err := database.DB.
		Joins("JOIN brands ON brands.id = campaigns.brand_id").
		Where("campaigns.id = ? AND brands.user_id = ?", campaignID, userID).
		First(&campaign).Error
	if err != nil {
		return nil, err
	}
	return &campaign, nil
}

// loadOwnedPost fetches a post whose campaign's brand belongs to the user.
func loadOwnedPost(postID, userID string) (*models.Post, error) {
	var post models.Post
	err := database.DB.
		Joins("JOIN campaigns ON campaigns.id = posts.campaign_id").
		Joins("JOIN brands ON brands.id = campaigns.brand_id").
		Where("posts.id = ? AND brands.user_id = ?", postID, userID).
		First(&post).Error
	if err != nil {
		return nil, err
	}
	return &post, nil
}

var imageExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".webp": true, ".gif": true,
}

// readUpload validates and reads a multipart image upload: extension
// allowlist, sniffed content type agreement, and size cap.
func readUpload(file *multipart.FileHeader, maxSize int64) ([]byte, string, error) {
	if file.Size > maxSize {
		return nil, "", fmt.Errorf("file exceeds the %dMB upload limit", maxSize/(1024*1024))
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !imageExts[ext] {
		return nil, "", fmt.Errorf("unsupported file type %q", ext)
	}

	src, err := file.Open()
	if err != nil {
		return nil, "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	// Large uploads spool to disk and arrive in short reads, so a
	// single Read is not enough.
	data := make([]byte, file.Size)
	if _, err := io.ReadFull(src, data); err != nil {
		return nil, "", fmt.Errorf("read upload: %w", err)
	}

	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		return nil, "", fmt.Errorf("file content does not look like an image (%s)", contentType)
	}

	return data, contentType, nil
}

// uploadKey builds a collision-free storage key for an upload.
func uploadKey(kind, userID, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return fmt.Sprintf("%s/%s/%s%s", kind, userID, uuid.New().String(), ext)
}
