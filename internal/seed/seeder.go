package seed

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/videobuds/backend/internal/logger"
	"github.com/videobuds/backend/internal/models"
	"github.com/videobuds/backend/internal/pricing"
	"github.com/videobuds/backend/internal/promptcraft"
	"github.com/videobuds/backend/internal/recipes"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Seeder handles database seeding operations
type Seeder struct {
	db *gorm.DB
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB) *Seeder {
	_ = gofakeit.Seed(time.Now().UnixNano())
	return &Seeder{db: db}
}

var industries = []string{
	"skincare", "coffee", "fitness", "home decor", "pet supplies",
	"outdoor gear", "jewelry", "snacks", "software", "stationery",
}

var pillarPool = []string{
	"educational", "promotional", "community", "behind_the_scenes",
	"user_generated", "seasonal",
}

// SeedDev seeds the development database with realistic agency data
func (s *Seeder) SeedDev() error {
	logger.Log.Info("Syncing recipe catalog...")
	if err := recipes.DefaultRegistry().SyncCatalog(); err != nil {
		return fmt.Errorf("failed to sync recipe catalog: %w", err)
	}

	logger.Log.Info("Creating users...")
	users, err := s.seedUsers(8)
	if err != nil {
		return fmt.Errorf("failed to seed users: %w", err)
	}

	logger.Log.Info("Creating brands and personas...")
	var brands []models.Brand
	for _, user := range users {
		if user.IsAdmin {
			continue
		}
		userBrands, err := s.seedBrands(user, 1+rand.Intn(2))
		if err != nil {
			return fmt.Errorf("failed to seed brands: %w", err)
		}
		brands = append(brands, userBrands...)

		if err := s.seedPersonas(user, 2); err != nil {
			return fmt.Errorf("failed to seed personas: %w", err)
		}
	}

	logger.Log.Info("Creating campaigns...")
	for _, brand := range brands {
		if err := s.seedCampaign(brand, 7+rand.Intn(8)); err != nil {
			return fmt.Errorf("failed to seed campaign for brand %s: %w", brand.Name, err)
		}
	}

	logger.Log.Info("Creating recipe run history...")
	for _, user := range users {
		if user.IsAdmin {
			continue
		}
		if err := s.seedRecipeRuns(user, 3); err != nil {
			return fmt.Errorf("failed to seed recipe runs: %w", err)
		}
	}

	return nil
}

// SeedTest seeds a minimal data set for integration tests
func (s *Seeder) SeedTest() error {
	if err := recipes.DefaultRegistry().SyncCatalog(); err != nil {
		return fmt.Errorf("failed to sync recipe catalog: %w", err)
	}

	users, err := s.seedUsers(2)
	if err != nil {
		return err
	}
	for _, user := range users {
		if user.IsAdmin {
			continue
		}
		brands, err := s.seedBrands(user, 1)
		if err != nil {
			return err
		}
		return s.seedCampaign(brands[0], 3)
	}
	return nil
}

// Clean removes all seed data in foreign key order
func (s *Seeder) Clean() error {
	tables := []interface{}{
		&models.Generation{},
		&models.RecipeRun{},
		&models.AgentMemory{},
		&models.Post{},
		&models.Campaign{},
		&models.ReferenceImage{},
		&models.BrandQuestionnaire{},
		&models.Brand{},
		&models.UserPersona{},
		&models.User{},
	}
	for _, table := range tables {
		if err := s.db.Unscoped().Where("1 = 1").Delete(table).Error; err != nil {
			return fmt.Errorf("failed to clean table %T: %w", table, err)
		}
	}
	return nil
}

func (s *Seeder) seedUsers(count int) ([]models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	hashStr := string(hash)

	users := make([]models.User, 0, count)

	admin := models.User{
		Email:        "admin@videobuds.local",
		Name:         "VideoBuds Admin",
		PasswordHash: &hashStr,
		IsAdmin:      true,
	}
	if err := s.firstOrCreateUser(&admin); err != nil {
		return nil, err
	}
	users = append(users, admin)

	demo := models.User{
		Email:        "demo@videobuds.local",
		Name:         "Demo Agency",
		PasswordHash: &hashStr,
	}
	if err := s.firstOrCreateUser(&demo); err != nil {
		return nil, err
	}
	users = append(users, demo)

	for i := len(users); i < count; i++ {
		user := models.User{
			Email:        gofakeit.Email(),
			Name:         gofakeit.Company(),
			PasswordHash: &hashStr,
		}
		if err := s.db.Create(&user).Error; err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

func (s *Seeder) firstOrCreateUser(user *models.User) error {
	var existing models.User
	err := s.db.Where("email = ?", user.Email).First(&existing).Error
	if err == nil {
		*user = existing
		return nil
	}
	if err != gorm.ErrRecordNotFound {
		return err
	}
	return s.db.Create(user).Error
}

func (s *Seeder) seedBrands(user models.User, count int) ([]models.Brand, error) {
	brands := make([]models.Brand, 0, count)
	for i := 0; i < count; i++ {
		industry := industries[rand.Intn(len(industries))]
		name := gofakeit.Company()

		pillars := pickN(pillarPool, 3)
		brand := models.Brand{
			UserID:         user.ID,
			Name:           name,
			Description:    gofakeit.Sentence(12),
			Industry:       industry,
			Website:        fmt.Sprintf("https://%s.example.com", gofakeit.DomainName()),
			TargetAudience: gofakeit.Sentence(8),
			VoiceTone:      gofakeit.RandomString([]string{"friendly and warm", "bold and direct", "playful", "premium and minimal"}),
			ContentPillars: pillars,
			Colors:         models.StringList{gofakeit.HexColor(), gofakeit.HexColor(), gofakeit.HexColor()},
			Hashtags:       models.StringList{"#" + slugify(name), "#" + slugify(industry)},
		}
		if err := s.db.Create(&brand).Error; err != nil {
			return nil, err
		}

		questionnaire := models.BrandQuestionnaire{
			BrandID:         brand.ID,
			Mission:         gofakeit.Sentence(10),
			Values:          gofakeit.Sentence(8),
			Differentiators: gofakeit.Sentence(9),
			CustomerPains:   gofakeit.Sentence(8),
			CustomerGains:   gofakeit.Sentence(8),
			Competitors:     gofakeit.Company() + ", " + gofakeit.Company(),
			DoLanguage:      "simple, benefit-led, specific",
			DontLanguage:    "jargon, hype, exclamation marks",
			Completed:       rand.Intn(2) == 0,
		}
		if err := s.db.Create(&questionnaire).Error; err != nil {
			return nil, err
		}

		brands = append(brands, brand)
	}
	return brands, nil
}

func (s *Seeder) seedPersonas(user models.User, count int) error {
	for i := 0; i < count; i++ {
		persona := models.UserPersona{
			UserID:         user.ID,
			Name:           gofakeit.Name(),
			AgeRange:       gofakeit.RandomString([]string{"18-24", "25-34", "35-44", "45-54"}),
			Occupation:     gofakeit.JobTitle(),
			Goals:          gofakeit.Sentence(8),
			PainPoints:     gofakeit.Sentence(8),
			Platforms:      models.StringList(pickN([]string{"instagram", "tiktok", "youtube", "linkedin", "pinterest"}, 2)),
			TonePreference: gofakeit.RandomString([]string{"casual", "professional", "humorous"}),
		}
		if err := s.db.Create(&persona).Error; err != nil {
			return err
		}
	}
	return nil
}

// seedCampaign creates a campaign in review with a full calendar and a
// generation ledger for most posts, so the dashboard has spend to show.
func (s *Seeder) seedCampaign(brand models.Brand, postCount int) error {
	start := gofakeit.DateRange(time.Now().AddDate(0, 0, -14), time.Now().AddDate(0, 0, 14))
	start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)

	preset := promptcraft.StylePresets[rand.Intn(len(promptcraft.StylePresets))]
	campaign := models.Campaign{
		BrandID:     brand.ID,
		Name:        fmt.Sprintf("%s %s push", brand.Name, start.Month()),
		Goal:        gofakeit.Sentence(7),
		Status:      models.CampaignStatusReview,
		StartDate:   start,
		EndDate:     start.AddDate(0, 0, postCount-1),
		PostCount:   postCount,
		AspectRatio: gofakeit.RandomString([]string{"1:1", "4:5", "9:16"}),
		StylePreset: preset.Slug,
	}
	if err := s.db.Create(&campaign).Error; err != nil {
		return err
	}

	model := pricing.DefaultImageModel
	retail := pricing.Cost(model, "google")
	actual := pricing.ActualCost(model, "google")

	var totalCost float64
	for day := 1; day <= postCount; day++ {
		post := models.Post{
			CampaignID:    campaign.ID,
			DayNumber:     day,
			ScheduledDate: start.AddDate(0, 0, day-1),
			ContentPillar: brand.ContentPillars[(day-1)%len(brand.ContentPillars)],
			ImageType:     promptcraft.ImageTypes[(day-1)%len(promptcraft.ImageTypes)],
			Caption:       gofakeit.Sentence(12),
			Hashtags:      strings.Join(brand.Hashtags, " "),
			Status:        models.PostStatusGenerated,
		}
		post.Prompt = promptcraft.PostPrompt(preset, &brand, &post, campaign.AspectRatio)
		if err := s.db.Create(&post).Error; err != nil {
			return err
		}

		// Leave a couple of posts ungenerated for review-flow testing
		if day > postCount-2 {
			s.db.Model(&post).Update("status", models.PostStatusDraft)
			continue
		}

		completed := gofakeit.DateRange(post.ScheduledDate.AddDate(0, 0, -3), time.Now())
		started := completed.Add(-time.Duration(5+rand.Intn(40)) * time.Second)
		gen := models.Generation{
			UserID:      brand.UserID,
			PostID:      &post.ID,
			Kind:        models.GenerationKindImage,
			Model:       model,
			Provider:    "google",
			Prompt:      post.Prompt,
			AspectRatio: campaign.AspectRatio,
			Status:      models.GenerationStatusSuccess,
			ResultURL:   fmt.Sprintf("https://cdn.videobuds.local/images/%s/day-%d.png", campaign.ID, day),
			Cost:        actual,
			RetailCost:  retail,
			StartedAt:   &started,
			CompletedAt: &completed,
		}
		if err := s.db.Create(&gen).Error; err != nil {
			return err
		}
		totalCost += actual

		s.db.Model(&post).Updates(map[string]interface{}{
			"status":    models.PostStatusGenerated,
			"asset_url": gen.ResultURL,
		})
	}

	return s.db.Model(&campaign).Update("total_cost", totalCost).Error
}

func (s *Seeder) seedRecipeRuns(user models.User, count int) error {
	slugs := []string{"image-creator", "video-creator", "ad-video-maker", "content-machine"}
	for i := 0; i < count; i++ {
		slug := slugs[rand.Intn(len(slugs))]
		finished := gofakeit.DateRange(time.Now().AddDate(0, 0, -21), time.Now())
		started := finished.Add(-time.Duration(30+rand.Intn(300)) * time.Second)
		run := models.RecipeRun{
			RecipeSlug:  slug,
			UserID:      user.ID,
			Status:      models.RunStatusCompleted,
			Inputs:      fmt.Sprintf(`{"prompt":%q}`, gofakeit.Sentence(8)),
			Outputs:     fmt.Sprintf(`{"asset_url":"https://cdn.videobuds.local/recipes/%s.png"}`, gofakeit.UUID()),
			CurrentStep: 3,
			TotalSteps:  3,
			ProgressPct: 100,
			Cost:        0.02,
			RetailCost:  0.08,
			StartedAt:   &started,
			FinishedAt:  &finished,
		}
		if err := s.db.Create(&run).Error; err != nil {
			return err
		}
	}
	return nil
}

func pickN(pool []string, n int) []string {
	if n > len(pool) {
		n = len(pool)
	}
	idx := rand.Perm(len(pool))[:n]
	out := make([]string, 0, n)
	for _, i := range idx {
		out = append(out, pool[i])
	}
	return out
}

func slugify(s string) string {
	s = strings.ToLower(s)
	var b strings.Builder
	for _, r := range s {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
