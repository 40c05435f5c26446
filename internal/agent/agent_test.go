package agent

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/videobuds/backend/internal/database"
	"github.com/videobuds/backend/internal/models"
)

// stubCompleter returns canned responses and records prompts.
type stubCompleter struct {
	response string
	err      error
	prompts  []string
}

func (s *stubCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	return s.response, s.err
}

func (s *stubCompleter) CompleteJSON(ctx context.Context, prompt string) (string, error) {
	return s.Complete(ctx, prompt)
}

type AgentServiceTestSuite struct {
	suite.Suite
	db *gorm.DB
}

func (suite *AgentServiceTestSuite) SetupSuite() {
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(suite.T(), err)

	database.DB = db
	require.NoError(suite.T(), db.AutoMigrate(
		&models.User{}, &models.Brand{}, &models.Campaign{}, &models.Post{},
		&models.AgentMemory{}, &models.ReferenceImage{},
	))
	suite.db = db
}

func (suite *AgentServiceTestSuite) SetupTest() {
	for _, table := range []string{"agent_memories", "posts", "campaigns", "reference_images", "brands", "users"} {
		suite.db.Exec("DELETE FROM " + table)
	}
}

func (suite *AgentServiceTestSuite) seedBrand() *models.Brand {
	user := models.User{Email: "owner@agency.test", Name: "Owner"}
	require.NoError(suite.T(), suite.db.Create(&user).Error)

	brand := models.Brand{
		UserID:         user.ID,
		Name:           "Glowline",
		TargetAudience: "busy professionals",
		ContentPillars: models.StringList{"education", "community"},
		Colors:         models.StringList{"#112233"},
	}
	require.NoError(suite.T(), suite.db.Create(&brand).Error)
	return &brand
}

func (suite *AgentServiceTestSuite) seedCampaign(brand *models.Brand, days int) (*models.Campaign, []models.Post) {
	campaign := models.Campaign{
		BrandID:   brand.ID,
		Name:      "Launch Week",
		Goal:      "product_launch",
		StartDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 3, days, 0, 0, 0, 0, time.UTC),
		PostCount: days,
	}
	require.NoError(suite.T(), suite.db.Create(&campaign).Error)

	posts := make([]models.Post, 0, days)
	for day := 1; day <= days; day++ {
		post := models.Post{
			CampaignID:    campaign.ID,
			DayNumber:     day,
			ContentPillar: "education",
			ImageType:     "lifestyle",
		}
		require.NoError(suite.T(), suite.db.Create(&post).Error)
		posts = append(posts, post)
	}
	return &campaign, posts
}

func (suite *AgentServiceTestSuite) TestPlanCampaignUpdatesPosts() {
	t := suite.T()
	brand := suite.seedBrand()
	campaign, _ := suite.seedCampaign(brand, 2)

	stub := &stubCompleter{response: `[
		{"day":1,"caption":"Day one caption","scene":"woman at sunlit desk","angle":"how-to"},
		{"day":2,"caption":"Day two caption","scene":"macro product shot","angle":"social proof"}
	]`}
	svc := NewServiceWithCompleter(stub)

	plan, err := svc.PlanCampaign(context.Background(), brand, campaign, nil)
	require.NoError(t, err)
	require.Len(t, plan, 2)

	var post models.Post
	require.NoError(t, suite.db.Where("campaign_id = ? AND day_number = ?", campaign.ID, 1).First(&post).Error)
	assert.Equal(t, "Day one caption", post.Caption)
	assert.Equal(t, "woman at sunlit desk", post.Prompt)

	var mem models.AgentMemory
	require.NoError(t, suite.db.Where("kind = ?", models.MemoryKindCampaignPlan).First(&mem).Error)
	assert.Contains(t, mem.Content, "Day two caption")

	// The prompt carries the per-day calendar for the model to fill.
	require.Len(t, stub.prompts, 1)
	assert.Contains(t, stub.prompts[0], "Day 1: Pillar=education, Type=lifestyle")
	assert.Contains(t, stub.prompts[0], "Product Launch")
}

func (suite *AgentServiceTestSuite) TestPlanCampaignBadJSONIsNotFatal() {
	t := suite.T()
	brand := suite.seedBrand()
	campaign, _ := suite.seedCampaign(brand, 1)

	svc := NewServiceWithCompleter(&stubCompleter{response: "sorry, I cannot do that"})
	plan, err := svc.PlanCampaign(context.Background(), brand, campaign, nil)
	require.NoError(t, err)
	assert.Empty(t, plan)
}

func (suite *AgentServiceTestSuite) TestWriteCaptionsFallsBackToLines() {
	t := suite.T()
	brand := suite.seedBrand()
	campaign, posts := suite.seedCampaign(brand, 1)

	svc := NewServiceWithCompleter(&stubCompleter{response: "1. First caption\n2. Second caption\n3. Third caption\n4. Extra"})
	captions, err := svc.WriteCaptions(context.Background(), brand, &posts[0], campaign, nil)
	require.NoError(t, err)
	require.Len(t, captions, 3)
	assert.Equal(t, "First caption", captions[0])
}

func (suite *AgentServiceTestSuite) TestWriteCaptionsParsesJSON() {
	t := suite.T()
	brand := suite.seedBrand()
	campaign, posts := suite.seedCampaign(brand, 1)

	svc := NewServiceWithCompleter(&stubCompleter{
		response: "```json\n[\"One\", \"Two\", \"Three\"]\n```",
	})
	captions, err := svc.WriteCaptions(context.Background(), brand, &posts[0], campaign, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"One", "Two", "Three"}, captions)
}

func (suite *AgentServiceTestSuite) TestLearnFromFeedbackStoresPreference() {
	t := suite.T()
	brand := suite.seedBrand()
	_, posts := suite.seedCampaign(brand, 1)
	posts[0].Caption = "Great caption"
	posts[0].Prompt = "sunny rooftop scene"

	svc := NewServiceWithCompleter(&stubCompleter{})
	require.NoError(t, svc.LearnFromFeedback(brand, &posts[0], models.PostStatusApproved))
	require.NoError(t, svc.LearnFromFeedback(brand, &posts[0], models.PostStatusRejected))

	prefs := loadPreferences(brand.ID)
	require.Len(t, prefs, 2)
	assert.Contains(t, prefs[0]+prefs[1], "LIKED:")
	assert.Contains(t, prefs[0]+prefs[1], "DISLIKED:")
	assert.Contains(t, prefs[0], "prompt=sunny rooftop scene")
}

func (suite *AgentServiceTestSuite) TestAnalyzeBrandAppliesStructuredData() {
	t := suite.T()
	brand := suite.seedBrand()

	stub := &stubCompleter{response: "```json\n" + `{
		"tagline": "Glow every day",
		"target_audience": "Commuters in their 30s who want a simple routine.",
		"visual_style": "Soft daylight, clean lines.",
		"content_pillars": ["routine", "science", "community"],
		"never_do": "No medical claims.",
		"colors": ["#445566", "#778899"],
		"voice": "Warm and direct."
	}` + "\n```\n\n---BRIEF---\n# Creative Brief\nGlowline is the ritual brand."}
	svc := NewServiceWithCompleter(stub)

	brief, err := svc.AnalyzeBrand(context.Background(), brand, BrandAnalysisInput{
		Description: "Skincare for commuters",
		Industry:    "beauty",
	})
	require.NoError(t, err)
	assert.Contains(t, brief, "Glowline is the ritual brand")
	assert.NotContains(t, brief, "---BRIEF---")

	var saved models.Brand
	require.NoError(t, suite.db.First(&saved, "id = ?", brand.ID).Error)
	assert.Equal(t, "Warm and direct.", saved.VoiceTone)
	assert.Equal(t, models.StringList{"routine", "science", "community"}, saved.ContentPillars)
	assert.Equal(t, models.StringList{"#445566", "#778899"}, saved.Colors)

	var mem models.AgentMemory
	require.NoError(t, suite.db.Where("kind = ?", models.MemoryKindBrandBrief).First(&mem).Error)
	assert.Contains(t, mem.Content, "Creative Brief")

	assert.Contains(t, stub.prompts[0], "Skincare for commuters")
}

func (suite *AgentServiceTestSuite) TestAnalyzeBrandReplacesExistingBrief() {
	t := suite.T()
	brand := suite.seedBrand()
	svc := NewServiceWithCompleter(&stubCompleter{response: "---BRIEF---\nfirst"})

	_, err := svc.AnalyzeBrand(context.Background(), brand, BrandAnalysisInput{})
	require.NoError(t, err)
	_, err = svc.AnalyzeBrand(context.Background(), brand, BrandAnalysisInput{})
	require.NoError(t, err)

	var count int64
	suite.db.Model(&models.AgentMemory{}).
		Where("kind = ?", models.MemoryKindBrandBrief).Count(&count)
	assert.EqualValues(t, 1, count)
}

func (suite *AgentServiceTestSuite) TestSelectPhotosSmallLibraryUsesAll() {
	t := suite.T()
	brand := suite.seedBrand()
	_, posts := suite.seedCampaign(brand, 1)

	for i := 0; i < 2; i++ {
		require.NoError(t, suite.db.Create(&models.ReferenceImage{
			BrandID: brand.ID,
			Path:    "/tmp/ref.png",
			Purpose: models.ReferencePurposeProduct,
		}).Error)
	}

	stub := &stubCompleter{}
	svc := NewServiceWithCompleter(stub)
	refs, err := svc.SelectPhotos(context.Background(), brand, &posts[0], nil, nil)
	require.NoError(t, err)
	assert.Len(t, refs, 2)
	assert.Empty(t, stub.prompts, "no model call for small libraries")
}

func (suite *AgentServiceTestSuite) TestSelectPhotosFiltersByModelChoice() {
	t := suite.T()
	brand := suite.seedBrand()
	_, posts := suite.seedCampaign(brand, 1)

	var ids []string
	for i := 0; i < 5; i++ {
		ref := models.ReferenceImage{BrandID: brand.ID, Path: "/tmp/ref.png"}
		require.NoError(t, suite.db.Create(&ref).Error)
		ids = append(ids, ref.ID)
	}

	svc := NewServiceWithCompleter(&stubCompleter{
		response: `["` + ids[1] + `", "` + ids[3] + `", "missing-id"]`,
	})
	refs, err := svc.SelectPhotos(context.Background(), brand, &posts[0], nil, nil)
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, ids[1], refs[0].ID)
	assert.Equal(t, ids[3], refs[1].ID)
}

func TestAgentServiceSuite(t *testing.T) {
	suite.Run(t, new(AgentServiceTestSuite))
}

func TestCleanJSON(t *testing.T) {
	assert.Equal(t, `{"a":1}`, cleanJSON("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, cleanJSON(`{"a":1}`))
}

func TestGoalTitle(t *testing.T) {
	assert.Equal(t, "Product Launch", goalTitle("product_launch"))
	assert.Equal(t, "Sales", goalTitle("sales"))
}
