package database

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/videobuds/backend/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB holds the database connection
var DB *gorm.DB

// Initialize creates and configures the database connection.
// PostgreSQL is used when DATABASE_URL or DB_HOST is set; otherwise a local
// SQLite file keeps single-operator deployments dependency-free.
func Initialize() error {
	gormLogger := logger.Default
	if os.Getenv("ENVIRONMENT") == "development" {
		gormLogger = logger.Default.LogMode(logger.Info)
	}

	gormConfig := &gorm.Config{
		Logger: gormLogger,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	var db *gorm.DB
	var err error

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" && os.Getenv("DB_HOST") != "" {
		host := getEnvOrDefault("DB_HOST", "localhost")
		port := getEnvOrDefault("DB_PORT", "5432")
		user := getEnvOrDefault("DB_USER", "postgres")
		password := getEnvOrDefault("DB_PASSWORD", "")
		dbname := getEnvOrDefault("DB_NAME", "videobuds")
		sslmode := getEnvOrDefault("DB_SSLMODE", "disable")

		databaseURL = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			host, port, user, password, dbname, sslmode)
	}

	if databaseURL != "" {
		db, err = gorm.Open(postgres.Open(databaseURL), gormConfig)
	} else {
		dbPath := getEnvOrDefault("DB_PATH", "videobuds.db")
		db, err = gorm.Open(sqlite.Open(dbPath), gormConfig)
	}
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	DB = db
	log.Println("✅ Database connected successfully")

	return nil
}

// Migrate runs auto-migration for all models
func Migrate() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	err := DB.AutoMigrate(
		&models.User{},
		&models.Brand{},
		&models.BrandQuestionnaire{},
		&models.ReferenceImage{},
		&models.UserPersona{},
		&models.Campaign{},
		&models.Post{},
		&models.Generation{},
		&models.Recipe{},
		&models.RecipeRun{},
		&models.AgentMemory{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := createIndexes(); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	log.Println("✅ Database migrations completed")
	return nil
}

// createIndexes creates performance indexes
func createIndexes() error {
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_users_email_lower ON users (LOWER(email))")

	// Brand and persona listings are always owner-scoped
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_brands_user_created ON brands (user_id, created_at DESC)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_user_personas_user ON user_personas (user_id, created_at DESC)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_reference_images_brand ON reference_images (brand_id, created_at DESC)")

	// Campaign dashboards filter by brand and status
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_campaigns_brand_status ON campaigns (brand_id, status)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_posts_campaign_status ON posts (campaign_id, status)")

	// Generation status polling and spend reports
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_generations_user_created ON generations (user_id, created_at DESC)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_generations_post_status ON generations (post_id, status)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_generations_run ON generations (recipe_run_id)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_generations_model_provider ON generations (model, provider)")

	// Run history is paginated newest-first per user; the reaper scans by status
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_recipe_runs_user_created ON recipe_runs (user_id, created_at DESC)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_recipe_runs_status_started ON recipe_runs (status, started_at)")

	DB.Exec("CREATE INDEX IF NOT EXISTS idx_agent_memories_user_kind ON agent_memories (user_id, kind)")

	return nil
}

// Close closes the database connection
func Close() error {
	if DB == nil {
		return nil
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

// Health checks database connectivity
func Health() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}

	return sqlDB.Ping()
}

// getEnvOrDefault returns environment variable or default value
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
