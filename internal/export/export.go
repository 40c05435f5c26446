// Package export builds downloadable campaign bundles: a captions CSV
// with the posting schedule and a ZIP that adds the generated assets.
package export

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/videobuds/backend/internal/database"
	"github.com/videobuds/backend/internal/logger"
	"github.com/videobuds/backend/internal/metrics"
	"github.com/videobuds/backend/internal/models"
	"github.com/videobuds/backend/internal/storage"
)

// ErrCampaignNotFound is returned when the campaign does not exist or
// belongs to another user.
var ErrCampaignNotFound = errors.New("campaign not found")

// maxAssetBytes caps a single downloaded asset in a bundle.
const maxAssetBytes = 200 << 20

// Summary describes how export-ready a campaign is.
type Summary struct {
	Campaign   models.Campaign `json:"campaign"`
	Posts      []models.Post   `json:"posts"`
	Total      int             `json:"total"`
	Exportable int             `json:"exportable"`
	Approved   int             `json:"approved"`
	Generated  int             `json:"generated"`
}

// File is a finished export ready to stream to the client.
type File struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Exporter loads campaigns and writes CSV/ZIP exports.
type Exporter struct {
	http *http.Client
}

func NewExporter() *Exporter {
	return &Exporter{http: &http.Client{Timeout: 60 * time.Second}}
}

// Preview returns the campaign with its posts and readiness counts.
func (e *Exporter) Preview(campaignID, userID string) (*Summary, error) {
	campaign, posts, err := e.load(campaignID, userID)
	if err != nil {
		return nil, err
	}

	s := &Summary{Campaign: *campaign, Posts: posts, Total: len(posts)}
	for _, p := range posts {
		if p.AssetURL != "" || p.AssetPath != "" {
			s.Exportable++
		}
		switch p.Status {
		case models.PostStatusApproved:
			s.Approved++
			s.Generated++
		case models.PostStatusGenerated:
			s.Generated++
		}
	}
	return s, nil
}

// CSV writes the schedule spreadsheet alone and marks the campaign
// exported.
func (e *Exporter) CSV(campaignID, userID string) (*File, error) {
	campaign, posts, err := e.load(campaignID, userID)
	if err != nil {
		return nil, err
	}

	filenames := make([]string, len(posts))
	for i, p := range posts {
		filenames[i] = p.AssetURL
	}
	data, err := buildCSV(posts, filenames)
	if err != nil {
		return nil, err
	}

	if err := e.markExported(campaign); err != nil {
		return nil, err
	}
	metrics.RecordCampaignExport("csv")

	return &File{
		Filename:    safeName(campaign.Name) + "_schedule.csv",
		ContentType: "text/csv",
		Data:        data,
	}, nil
}

// Bundle writes a ZIP with every reachable asset under images/ plus
// captions.csv, then marks the campaign exported. Posts whose asset
// cannot be fetched keep their URL in the CSV instead of a filename.
func (e *Exporter) Bundle(ctx context.Context, campaignID, userID string) (*File, error) {
	campaign, posts, err := e.load(campaignID, userID)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	filenames := make([]string, len(posts))
	for i, p := range posts {
		data, ext, fetchErr := e.assetBytes(ctx, p)
		if fetchErr != nil {
			if p.AssetURL != "" || p.AssetPath != "" {
				logger.Log.Warn("export asset skipped",
					zap.String("campaign_id", campaign.ID),
					zap.Int("day", p.DayNumber),
					zap.Error(fetchErr))
			}
			filenames[i] = p.AssetURL
			continue
		}
		name := fmt.Sprintf("day_%03d%s", p.DayNumber, ext)
		w, err := zw.Create("images/" + name)
		if err != nil {
			return nil, fmt.Errorf("zip entry: %w", err)
		}
		if _, err := w.Write(data); err != nil {
			return nil, fmt.Errorf("zip write: %w", err)
		}
		filenames[i] = name
	}

	csvData, err := buildCSV(posts, filenames)
	if err != nil {
		return nil, err
	}
	w, err := zw.Create("captions.csv")
	if err != nil {
		return nil, fmt.Errorf("zip entry: %w", err)
	}
	if _, err := w.Write(csvData); err != nil {
		return nil, fmt.Errorf("zip write: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finalize zip: %w", err)
	}

	if err := e.markExported(campaign); err != nil {
		return nil, err
	}
	metrics.RecordCampaignExport("zip")

	logger.Log.Info("campaign exported",
		zap.String("campaign_id", campaign.ID),
		zap.Int("posts", len(posts)),
		zap.Int("bytes", buf.Len()))

	return &File{
		Filename:    safeName(campaign.Name) + "_export.zip",
		ContentType: "application/zip",
		Data:        buf.Bytes(),
	}, nil
}

func (e *Exporter) load(campaignID, userID string) (*models.Campaign, []models.Post, error) {
	// Campaign ownership goes through the brand.
	var campaign models.Campaign
	err := database.DB.
		Joins("JOIN brands ON brands.id = campaigns.brand_id").
		Where("campaigns.id = ? AND brands.user_id = ?", campaignID, userID).
		First(&campaign).Error
	if err != nil {
		return nil, nil, ErrCampaignNotFound
	}

	var posts []models.Post
	err = database.DB.
		Where("campaign_id = ?", campaign.ID).
		Order("day_number ASC").
		Find(&posts).Error
	if err != nil {
		return nil, nil, fmt.Errorf("load posts: %w", err)
	}
	return &campaign, posts, nil
}

func (e *Exporter) markExported(campaign *models.Campaign) error {
	campaign.Status = models.CampaignStatusExported
	if err := database.DB.Model(campaign).Update("status", models.CampaignStatusExported).Error; err != nil {
		return fmt.Errorf("mark exported: %w", err)
	}
	return nil
}

// assetBytes resolves a post's asset to raw bytes: local path first,
// then an HTTP fetch of the asset URL.
func (e *Exporter) assetBytes(ctx context.Context, p models.Post) ([]byte, string, error) {
	if p.AssetPath != "" {
		if data, err := os.ReadFile(p.AssetPath); err == nil {
			return data, extOrDefault(filepath.Ext(p.AssetPath)), nil
		}
	}
	if p.AssetURL == "" {
		return nil, "", errors.New("no asset")
	}
	if !strings.HasPrefix(p.AssetURL, "http://") && !strings.HasPrefix(p.AssetURL, "https://") {
		// A bare path from the local storage backend.
		data, err := os.ReadFile(p.AssetURL)
		if err != nil {
			return nil, "", err
		}
		return data, extOrDefault(filepath.Ext(p.AssetURL)), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.AssetURL, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := e.http.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("fetch asset: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAssetBytes))
	if err != nil {
		return nil, "", err
	}

	ext := extOrDefault(path.Ext(strings.SplitN(path.Base(p.AssetURL), "?", 2)[0]))
	if ext == ".png" {
		if ct := resp.Header.Get("Content-Type"); ct != "" {
			ext = storage.ExtForMIME(ct)
		}
	}
	return data, ext, nil
}

func buildCSV(posts []models.Post, filenames []string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"day", "date", "pillar", "caption", "hashtags", "filename"}); err != nil {
		return nil, err
	}
	for i, p := range posts {
		date := ""
		if !p.ScheduledDate.IsZero() {
			date = p.ScheduledDate.Format("2006-01-02")
		}
		row := []string{
			strconv.Itoa(p.DayNumber),
			date,
			p.ContentPillar,
			p.Caption,
			p.Hashtags,
			filenames[i],
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func extOrDefault(ext string) string {
	if ext == "" {
		return ".png"
	}
	return strings.ToLower(ext)
}

// safeName reduces a campaign name to a filesystem-safe slug.
func safeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == ' ':
			b.WriteRune(r)
		}
	}
	cleaned := strings.ReplaceAll(strings.TrimSpace(b.String()), " ", "_")
	if cleaned == "" {
		return "campaign"
	}
	return cleaned
}
