package export

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/videobuds/backend/internal/database"
	"github.com/videobuds/backend/internal/models"
)

func setupExportDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	database.DB = db
	require.NoError(t, db.AutoMigrate(&models.Brand{}, &models.Campaign{}, &models.Post{}))
	for _, table := range []string{"posts", "campaigns", "brands"} {
		db.Exec("DELETE FROM " + table)
	}
	return db
}

func seedCampaign(t *testing.T, db *gorm.DB, assetURL string) (models.Campaign, []models.Post) {
	brand := models.Brand{UserID: "u-1", Name: "Acme"}
	require.NoError(t, db.Create(&brand).Error)

	campaign := models.Campaign{
		BrandID:   brand.ID,
		Name:      "Spring Launch 2026!",
		Status:    models.CampaignStatusReview,
		StartDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC),
		PostCount: 3,
	}
	require.NoError(t, db.Create(&campaign).Error)

	localAsset := filepath.Join(t.TempDir(), "day3.jpg")
	require.NoError(t, os.WriteFile(localAsset, []byte("jpeg-bytes"), 0o644))

	posts := []models.Post{
		{
			CampaignID: campaign.ID, DayNumber: 1,
			ScheduledDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
			ContentPillar: "educational", Caption: "Day one!", Hashtags: "#spring #launch",
			Status: models.PostStatusApproved, AssetURL: assetURL,
		},
		{
			CampaignID: campaign.ID, DayNumber: 2,
			ScheduledDate: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
			Caption: "Still drafting", Status: models.PostStatusDraft,
		},
		{
			CampaignID: campaign.ID, DayNumber: 3,
			ScheduledDate: time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC),
			Caption: "Day three", Status: models.PostStatusGenerated, AssetPath: localAsset,
		},
	}
	for i := range posts {
		require.NoError(t, db.Create(&posts[i]).Error)
	}
	return campaign, posts
}

func assetServer(t *testing.T) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		fmt.Fprint(w, "png-bytes")
	}))
	t.Cleanup(server.Close)
	return server
}

func TestPreview(t *testing.T) {
	db := setupExportDB(t)
	campaign, _ := seedCampaign(t, db, "http://assets.test/day1.png")

	summary, err := NewExporter().Preview(campaign.ID, "u-1")
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 2, summary.Exportable)
	assert.Equal(t, 1, summary.Approved)
	assert.Equal(t, 2, summary.Generated)
	require.Len(t, summary.Posts, 3)
	assert.Equal(t, 1, summary.Posts[0].DayNumber)

	_, err = NewExporter().Preview(campaign.ID, "someone-else")
	assert.ErrorIs(t, err, ErrCampaignNotFound)
}

func TestCSVExport(t *testing.T) {
	db := setupExportDB(t)
	campaign, _ := seedCampaign(t, db, "http://assets.test/day1.png")

	file, err := NewExporter().CSV(campaign.ID, "u-1")
	require.NoError(t, err)
	assert.Equal(t, "Spring_Launch_2026_schedule.csv", file.Filename)
	assert.Equal(t, "text/csv", file.ContentType)

	rows, err := csv.NewReader(bytes.NewReader(file.Data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"day", "date", "pillar", "caption", "hashtags", "filename"}, rows[0])
	assert.Equal(t, []string{"1", "2026-03-01", "educational", "Day one!", "#spring #launch", "http://assets.test/day1.png"}, rows[1])
	assert.Equal(t, "2", rows[2][0])
	assert.Empty(t, rows[2][5])

	var reloaded models.Campaign
	require.NoError(t, db.First(&reloaded, "id = ?", campaign.ID).Error)
	assert.Equal(t, models.CampaignStatusExported, reloaded.Status)
}

func TestBundle(t *testing.T) {
	db := setupExportDB(t)
	server := assetServer(t)
	campaign, _ := seedCampaign(t, db, server.URL+"/day1.png")

	file, err := NewExporter().Bundle(context.Background(), campaign.ID, "u-1")
	require.NoError(t, err)
	assert.Equal(t, "Spring_Launch_2026_export.zip", file.Filename)
	assert.Equal(t, "application/zip", file.ContentType)

	zr, err := zip.NewReader(bytes.NewReader(file.Data), int64(len(file.Data)))
	require.NoError(t, err)

	entries := map[string][]byte{}
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		entries[f.Name] = data
	}

	assert.Equal(t, []byte("png-bytes"), entries["images/day_001.png"])
	assert.Equal(t, []byte("jpeg-bytes"), entries["images/day_003.jpg"])
	_, hasDayTwo := entries["images/day_002.png"]
	assert.False(t, hasDayTwo)

	rows, err := csv.NewReader(bytes.NewReader(entries["captions.csv"])).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "day_001.png", rows[1][5])
	assert.Empty(t, rows[2][5])
	assert.Equal(t, "day_003.jpg", rows[3][5])

	var reloaded models.Campaign
	require.NoError(t, db.First(&reloaded, "id = ?", campaign.ID).Error)
	assert.Equal(t, models.CampaignStatusExported, reloaded.Status)
}

// An unreachable asset URL keeps the URL in the CSV instead of failing
// the whole export.
func TestBundleSkipsBrokenAssets(t *testing.T) {
	db := setupExportDB(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	t.Cleanup(server.Close)

	campaign, _ := seedCampaign(t, db, server.URL+"/missing.png")

	file, err := NewExporter().Bundle(context.Background(), campaign.ID, "u-1")
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(file.Data), int64(len(file.Data)))
	require.NoError(t, err)

	names := map[string]bool{}
	for _, f := range zr.File {
		names[f.Name] = true
	}
	assert.False(t, names["images/day_001.png"])
	assert.True(t, names["images/day_003.jpg"])
	assert.True(t, names["captions.csv"])

	for _, f := range zr.File {
		if f.Name != "captions.csv" {
			continue
		}
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
		require.NoError(t, err)
		assert.Equal(t, server.URL+"/missing.png", rows[1][5])
	}
}

func TestSafeName(t *testing.T) {
	assert.Equal(t, "Spring_Launch_2026", safeName("Spring Launch 2026!"))
	assert.Equal(t, "campaign", safeName("???"))
	assert.Equal(t, "a-b_c", safeName("a-b_c"))
}
