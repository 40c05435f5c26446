package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/videobuds/backend/internal/database"
	"github.com/videobuds/backend/internal/models"
	"github.com/videobuds/backend/internal/providers"
	"github.com/videobuds/backend/internal/storage"
)

// fakeKie serves the Kie AI task lifecycle plus the finished asset.
type fakeKie struct {
	server    *httptest.Server
	failTasks bool
	submits   int
}

func newFakeKie(t *testing.T) *fakeKie {
	f := &fakeKie{}
	mux := http.NewServeMux()
	mux.HandleFunc("/jobs/createTask", func(w http.ResponseWriter, r *http.Request) {
		f.submits++
		fmt.Fprintf(w, `{"code":200,"msg":"ok","data":{"taskId":"task-%d"}}`, f.submits)
	})
	mux.HandleFunc("/jobs/recordInfo", func(w http.ResponseWriter, r *http.Request) {
		if f.failTasks {
			fmt.Fprint(w, `{"code":200,"msg":"ok","data":{"state":"fail","failMsg":"flagged content"}}`)
			return
		}
		result, _ := json.Marshal(map[string][]string{
			"resultUrls": {f.server.URL + "/assets/out.png"},
		})
		resp := map[string]interface{}{
			"code": 200, "msg": "ok",
			"data": map[string]interface{}{"state": "success", "resultJson": string(result)},
		}
		json.NewEncoder(w).Encode(resp)
	})
	mux.HandleFunc("/assets/out.png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("\x89PNG\r\n\x1a\nfake-image-data"))
	})
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

type DispatcherTestSuite struct {
	suite.Suite
	db    *gorm.DB
	kie   *fakeKie
	disp  *Dispatcher
	store *storage.LocalStorage
}

func (suite *DispatcherTestSuite) SetupSuite() {
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(suite.T(), err)
	database.DB = db
	require.NoError(suite.T(), db.AutoMigrate(&models.Generation{}, &models.Post{}, &models.Campaign{}))
	suite.db = db
}

func (suite *DispatcherTestSuite) SetupTest() {
	suite.db.Exec("DELETE FROM generations")
	suite.db.Exec("DELETE FROM posts")

	suite.kie = newFakeKie(suite.T())
	kie := providers.NewKieClient("test-key")
	kie.BaseURL = suite.kie.server.URL

	store, err := storage.NewLocalStorage(suite.T().TempDir(), "http://cdn.test")
	require.NoError(suite.T(), err)
	suite.store = store

	suite.disp = NewDispatcher(providers.NewRegistryWithClients(nil, kie, nil, nil), store)
}

func (suite *DispatcherTestSuite) TestDispatchStoresAsset() {
	t := suite.T()

	gen, err := suite.disp.Dispatch(context.Background(), Request{
		UserID:      "user-1",
		Kind:        models.GenerationKindImage,
		Model:       "nano-banana",
		Provider:    "kie",
		Prompt:      "sunlit kitchen scene",
		AspectRatio: "9:16",
	})
	require.NoError(t, err)
	require.NotNil(t, gen)

	assert.Equal(t, models.GenerationStatusSuccess, gen.Status)
	assert.Equal(t, "kie", gen.Provider)
	assert.True(t, strings.HasPrefix(gen.ResultURL, "http://cdn.test/"), gen.ResultURL)
	assert.NotNil(t, gen.StartedAt)
	assert.NotNil(t, gen.CompletedAt)
	assert.Greater(t, gen.RetailCost, 0.0)

	// The asset was copied out of the provider before success was recorded.
	key := strings.TrimPrefix(gen.ResultURL, "http://cdn.test/")
	assert.FileExists(t, suite.store.Path(key))

	var row models.Generation
	require.NoError(t, suite.db.First(&row, "id = ?", gen.ID).Error)
	assert.Equal(t, models.GenerationStatusSuccess, row.Status)
}

func (suite *DispatcherTestSuite) TestDispatchRecordsProviderFailure() {
	t := suite.T()
	suite.kie.failTasks = true

	gen, err := suite.disp.Dispatch(context.Background(), Request{
		UserID:   "user-1",
		Kind:     models.GenerationKindImage,
		Model:    "nano-banana",
		Provider: "kie",
	})
	require.Error(t, err)
	require.NotNil(t, gen)
	assert.Equal(t, models.GenerationStatusError, gen.Status)
	assert.Contains(t, gen.ErrorMessage, "flagged content")
}

func (suite *DispatcherTestSuite) TestDispatchUnknownModel() {
	t := suite.T()

	gen, err := suite.disp.Dispatch(context.Background(), Request{
		UserID: "user-1",
		Kind:   models.GenerationKindImage,
		Model:  "no-such-model",
	})
	require.Error(t, err)
	require.NotNil(t, gen)
	assert.Equal(t, models.GenerationStatusError, gen.Status)

	// The failed attempt still lands in the ledger.
	var count int64
	suite.db.Model(&models.Generation{}).Count(&count)
	assert.EqualValues(t, 1, count)
}

func (suite *DispatcherTestSuite) TestDispatchUpdatesPost() {
	t := suite.T()

	post := models.Post{CampaignID: "c-1", DayNumber: 1, Status: models.PostStatusGenerating}
	require.NoError(t, suite.db.Create(&post).Error)

	gen, err := suite.disp.Dispatch(context.Background(), Request{
		UserID:   "user-1",
		PostID:   &post.ID,
		Kind:     models.GenerationKindImage,
		Model:    "nano-banana",
		Provider: "kie",
	})
	require.NoError(t, err)

	var updated models.Post
	require.NoError(t, suite.db.First(&updated, "id = ?", post.ID).Error)
	assert.Equal(t, models.PostStatusGenerated, updated.Status)
	assert.Equal(t, gen.ResultURL, updated.AssetURL)
}

func (suite *DispatcherTestSuite) TestDispatchRevertsPostOnFailure() {
	t := suite.T()
	suite.kie.failTasks = true

	post := models.Post{CampaignID: "c-1", DayNumber: 1, Status: models.PostStatusGenerating}
	require.NoError(t, suite.db.Create(&post).Error)

	gen, err := suite.disp.Dispatch(context.Background(), Request{
		UserID:   "user-1",
		PostID:   &post.ID,
		Kind:     models.GenerationKindImage,
		Model:    "nano-banana",
		Provider: "kie",
	})
	require.Error(t, err)
	assert.Equal(t, models.GenerationStatusError, gen.Status)

	// The post goes back to draft so it can be regenerated.
	var updated models.Post
	require.NoError(t, suite.db.First(&updated, "id = ?", post.ID).Error)
	assert.Equal(t, models.PostStatusDraft, updated.Status)
	assert.Empty(t, updated.AssetURL)
}

func (suite *DispatcherTestSuite) TestDispatchBatchMixedOutcomes() {
	t := suite.T()

	results := suite.disp.DispatchBatch(context.Background(), []Request{
		{UserID: "u", Kind: models.GenerationKindImage, Model: "nano-banana", Provider: "kie"},
		{UserID: "u", Kind: models.GenerationKindImage, Model: "bogus"},
		{UserID: "u", Kind: models.GenerationKindImage, Model: "nano-banana", Provider: "kie"},
	})
	require.Len(t, results, 3)
	assert.Equal(t, 2, Succeeded(results))
	assert.Error(t, results[1].Err)
	assert.Equal(t, models.GenerationStatusError, results[1].Generation.Status)
	assert.Equal(t, 2, suite.kie.submits)
}

func TestDispatcherSuite(t *testing.T) {
	suite.Run(t, new(DispatcherTestSuite))
}
