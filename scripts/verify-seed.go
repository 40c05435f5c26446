package main

import (
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"github.com/videobuds/backend/internal/database"
	"github.com/videobuds/backend/internal/models"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	if err := database.Initialize(); err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer database.Close()

	fmt.Println("🔍 Verifying seed data...")
	fmt.Println()

	var userCount, brandCount, personaCount, campaignCount, postCount, genCount, runCount int64

	database.DB.Model(&models.User{}).Where("deleted_at IS NULL").Count(&userCount)
	database.DB.Model(&models.Brand{}).Where("deleted_at IS NULL").Count(&brandCount)
	database.DB.Model(&models.UserPersona{}).Where("deleted_at IS NULL").Count(&personaCount)
	database.DB.Model(&models.Campaign{}).Where("deleted_at IS NULL").Count(&campaignCount)
	database.DB.Model(&models.Post{}).Count(&postCount)
	database.DB.Model(&models.Generation{}).Count(&genCount)
	database.DB.Model(&models.RecipeRun{}).Count(&runCount)

	fmt.Println("📊 Record Counts:")
	fmt.Printf("  Users:       %d\n", userCount)
	fmt.Printf("  Brands:      %d\n", brandCount)
	fmt.Printf("  Personas:    %d\n", personaCount)
	fmt.Printf("  Campaigns:   %d\n", campaignCount)
	fmt.Printf("  Posts:       %d\n", postCount)
	fmt.Printf("  Generations: %d\n", genCount)
	fmt.Printf("  Recipe Runs: %d\n", runCount)
	fmt.Println()

	var spend struct {
		Retail float64
		Actual float64
	}
	database.DB.Model(&models.Generation{}).
		Select("COALESCE(SUM(retail_cost),0) as retail, COALESCE(SUM(cost),0) as actual").
		Where("status = ?", models.GenerationStatusSuccess).
		Scan(&spend)

	fmt.Printf("💰 Spend: retail $%.2f, actual $%.2f\n", spend.Retail, spend.Actual)

	var sample models.Campaign
	if err := database.DB.Preload("Posts").First(&sample).Error; err == nil {
		fmt.Println()
		fmt.Printf("📝 Sample campaign: %s (%s), %d posts, %s → %s\n",
			sample.Name, sample.Status, len(sample.Posts),
			sample.StartDate.Format("2006-01-02"), sample.EndDate.Format("2006-01-02"))
	}

	fmt.Println()
	fmt.Println("✅ Verification complete")
}
