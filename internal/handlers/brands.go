package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/videobuds/backend/internal/agent"
	"github.com/videobuds/backend/internal/database"
	"github.com/videobuds/backend/internal/logger"
	"github.com/videobuds/backend/internal/models"
)

type brandRequest struct {
	Name           string   `json:"name" binding:"required,min=1,max=200"`
	Description    string   `json:"description" binding:"max=5000"`
	Industry       string   `json:"industry" binding:"max=200"`
	Website        string   `json:"website" binding:"max=500"`
	TargetAudience string   `json:"target_audience" binding:"max=5000"`
	VoiceTone      string   `json:"voice_tone" binding:"max=5000"`
	ContentPillars []string `json:"content_pillars"`
	Colors         []string `json:"colors"`
	Hashtags       []string `json:"hashtags"`
}

// CreateBrand creates a new brand
// POST /api/v1/brands
func (h *Handlers) CreateBrand(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		return
	}

	var req brandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	brand := &models.Brand{
		UserID:         user.ID,
		Name:           req.Name,
		Description:    req.Description,
		Industry:       req.Industry,
		Website:        req.Website,
		TargetAudience: req.TargetAudience,
		VoiceTone:      req.VoiceTone,
		ContentPillars: req.ContentPillars,
		Colors:         req.Colors,
		Hashtags:       req.Hashtags,
	}
	if err := database.DB.Create(brand).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create brand"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"brand": brand})
}

// GetBrands returns the user's brands
// GET /api/v1/brands
func (h *Handlers) GetBrands(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		return
	}

	var brands []models.Brand
	if err := database.DB.
		Where("user_id = ?", user.ID).
		Order("created_at DESC").
		Find(&brands).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch brands"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"brands": brands, "count": len(brands)})
}

// GetBrand returns one brand with its questionnaire and reference images
// GET /api/v1/brands/:id
func (h *Handlers) GetBrand(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		return
	}

	var brand models.Brand
	err := database.DB.
		Preload("Questionnaire").
		Preload("ReferenceImages").
		Where("id = ? AND user_id = ?", c.Param("id"), user.ID).
		First(&brand).Error
	if handleDBError(c, err, "brand") {
		return
	}

	c.JSON(http.StatusOK, gin.H{"brand": brand})
}

// UpdateBrand updates brand fields
// PUT /api/v1/brands/:id
func (h *Handlers) UpdateBrand(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		return
	}

	brand, err := loadOwnedBrand(c.Param("id"), user.ID)
	if handleDBError(c, err, "brand") {
		return
	}

	var req brandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	brand.Name = req.Name
	brand.Description = req.Description
	brand.Industry = req.Industry
	brand.Website = req.Website
	brand.TargetAudience = req.TargetAudience
	brand.VoiceTone = req.VoiceTone
	brand.ContentPillars = req.ContentPillars
	brand.Colors = req.Colors
	brand.Hashtags = req.Hashtags

	if err := database.DB.Save(brand).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update brand"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"brand": brand})
}

// DeleteBrand soft deletes a brand
// DELETE /api/v1/brands/:id
func (h *Handlers) DeleteBrand(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		return
	}

	brand, err := loadOwnedBrand(c.Param("id"), user.ID)
	if handleDBError(c, err, "brand") {
		return
	}

	if err := database.DB.Delete(brand).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete brand"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// GetQuestionnaire returns the brand's discovery questionnaire
// GET /api/v1/brands/:id/questionnaire
func (h *Handlers) GetQuestionnaire(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		return
	}

	brand, err := loadOwnedBrand(c.Param("id"), user.ID)
	if handleDBError(c, err, "brand") {
		return
	}

	var q models.BrandQuestionnaire
	if err := database.DB.Where("brand_id = ?", brand.ID).First(&q).Error; err != nil {
		// Empty questionnaire until first save
		c.JSON(http.StatusOK, gin.H{"questionnaire": models.BrandQuestionnaire{BrandID: brand.ID}})
		return
	}

	c.JSON(http.StatusOK, gin.H{"questionnaire": q})
}

type questionnaireRequest struct {
	Mission         string `json:"mission" binding:"max=5000"`
	Values          string `json:"values" binding:"max=5000"`
	Differentiators string `json:"differentiators" binding:"max=5000"`
	CustomerPains   string `json:"customer_pains" binding:"max=5000"`
	CustomerGains   string `json:"customer_gains" binding:"max=5000"`
	Competitors     string `json:"competitors" binding:"max=5000"`
	Inspirations    string `json:"inspirations" binding:"max=5000"`
	DoLanguage      string `json:"do_language" binding:"max=5000"`
	DontLanguage    string `json:"dont_language" binding:"max=5000"`
	Completed       bool   `json:"completed"`
}

// PutQuestionnaire creates or replaces the brand's questionnaire
// PUT /api/v1/brands/:id/questionnaire
func (h *Handlers) PutQuestionnaire(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		return
	}

	brand, err := loadOwnedBrand(c.Param("id"), user.ID)
	if handleDBError(c, err, "brand") {
		return
	}

	var req questionnaireRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var q models.BrandQuestionnaire
	database.DB.Where("brand_id = ?", brand.ID).First(&q)
	q.BrandID = brand.ID
	q.Mission = req.Mission
	q.Values = req.Values
	q.Differentiators = req.Differentiators
	q.CustomerPains = req.CustomerPains
	q.CustomerGains = req.CustomerGains
	q.Competitors = req.Competitors
	q.Inspirations = req.Inspirations
	q.DoLanguage = req.DoLanguage
	q.DontLanguage = req.DontLanguage
	q.Completed = req.Completed

	if err := database.DB.Save(&q).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save questionnaire"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"questionnaire": q})
}

// AnalyzeBrand runs the agent's brand research and stores the brief
// POST /api/v1/brands/:id/analyze
func (h *Handlers) AnalyzeBrand(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		return
	}
	if h.agent == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "brand analysis is not configured"})
		return
	}

	brand, err := loadOwnedBrand(c.Param("id"), user.ID)
	if handleDBError(c, err, "brand") {
		return
	}

	var input agent.BrandAnalysisInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	brief, err := h.agent.AnalyzeBrand(c.Request.Context(), brand, input)
	if err != nil {
		logger.Log.Error("brand analysis failed",
			logger.WithBrandID(brand.ID), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "brand analysis failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"brand": brand, "brief": brief})
}

// UploadLogo stores the brand logo
// POST /api/v1/brands/:id/logo
func (h *Handlers) UploadLogo(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		return
	}
	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "uploads are not configured"})
		return
	}

	brand, err := loadOwnedBrand(c.Param("id"), user.ID)
	if handleDBError(c, err, "brand") {
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no file uploaded"})
		return
	}

	data, contentType, err := readUpload(file, h.cfg.MaxUploadSize)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	key := uploadKey("logos", user.ID, file.Filename)
	url, err := h.store.Save(c.Request.Context(), key, data, contentType)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store logo"})
		return
	}

	brand.LogoPath = url
	if err := database.DB.Model(brand).Update("logo_path", url).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save logo"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"logo_path": url})
}

// UploadReferenceImage adds a reference image to a brand
// POST /api/v1/brands/:id/references
func (h *Handlers) UploadReferenceImage(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		return
	}
	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "uploads are not configured"})
		return
	}

	brand, err := loadOwnedBrand(c.Param("id"), user.ID)
	if handleDBError(c, err, "brand") {
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no file uploaded"})
		return
	}

	purpose := models.ReferenceImagePurpose(c.DefaultPostForm("purpose", string(models.ReferencePurposeMood)))
	switch purpose {
	case models.ReferencePurposeMood, models.ReferencePurposeProduct, models.ReferencePurposeStyle:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid reference purpose"})
		return
	}

	data, contentType, err := readUpload(file, h.cfg.MaxUploadSize)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	key := uploadKey("references", user.ID, file.Filename)
	url, err := h.store.Save(c.Request.Context(), key, data, contentType)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store reference image"})
		return
	}

	ref := &models.ReferenceImage{
		BrandID: brand.ID,
		Path:    key,
		URL:     url,
		Purpose: purpose,
		Caption: c.PostForm("caption"),
	}
	if err := database.DB.Create(ref).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save reference image"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"reference_image": ref})
}

// GetReferenceImages lists a brand's reference images
// GET /api/v1/brands/:id/references
func (h *Handlers) GetReferenceImages(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		return
	}

	brand, err := loadOwnedBrand(c.Param("id"), user.ID)
	if handleDBError(c, err, "brand") {
		return
	}

	var refs []models.ReferenceImage
	query := database.DB.Where("brand_id = ?", brand.ID)
	if purpose := c.Query("purpose"); purpose != "" {
		query = query.Where("purpose = ?", purpose)
	}
	if err := query.Order("created_at DESC").Find(&refs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch reference images"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"reference_images": refs, "count": len(refs)})
}

// DeleteReferenceImage removes a reference image and its stored asset
// DELETE /api/v1/brands/:id/references/:refID
func (h *Handlers) DeleteReferenceImage(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		return
	}

	brand, err := loadOwnedBrand(c.Param("id"), user.ID)
	if handleDBError(c, err, "brand") {
		return
	}

	var ref models.ReferenceImage
	err = database.DB.
		Where("id = ? AND brand_id = ?", c.Param("refID"), brand.ID).
		First(&ref).Error
	if handleDBError(c, err, "reference image") {
		return
	}

	if h.store != nil && ref.Path != "" {
		if err := h.store.Delete(c.Request.Context(), ref.Path); err != nil {
			logger.Log.Warn("failed to delete stored reference asset",
				zap.String("key", ref.Path), zap.Error(err))
		}
	}

	if err := database.DB.Delete(&ref).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete reference image"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}
