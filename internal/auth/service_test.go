package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/videobuds/backend/internal/database"
	"github.com/videobuds/backend/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// AuthServiceTestSuite contains auth service tests
type AuthServiceTestSuite struct {
	suite.Suite
	db          *gorm.DB
	authService *Service
}

// SetupSuite initializes an in-memory test database and the auth service
func (suite *AuthServiceTestSuite) SetupSuite() {
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(suite.T(), err)

	// Set global DB for database package
	database.DB = db

	require.NoError(suite.T(), db.AutoMigrate(&models.User{}))

	suite.db = db
	suite.authService = NewService([]byte("test_jwt_secret_key"))
}

// SetupTest cleans the database before each test
func (suite *AuthServiceTestSuite) SetupTest() {
	suite.db.Exec("DELETE FROM users")
}

func (suite *AuthServiceTestSuite) TestRegister() {
	t := suite.T()

	resp, err := suite.authService.Register(RegisterRequest{
		Email:    "owner@agency.test",
		Name:     "Agency Owner",
		Password: "super-secret-1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "owner@agency.test", resp.User.Email)
	assert.NotNil(t, resp.User.PasswordHash)
	assert.NotEqual(t, "super-secret-1", *resp.User.PasswordHash)

	// Duplicate email is rejected, case-insensitively.
	_, err = suite.authService.Register(RegisterRequest{
		Email:    "OWNER@agency.test",
		Name:     "Imposter",
		Password: "another-secret",
	})
	assert.ErrorIs(t, err, ErrUserExists)
}

func (suite *AuthServiceTestSuite) TestLogin() {
	t := suite.T()

	_, err := suite.authService.Register(RegisterRequest{
		Email:    "owner@agency.test",
		Name:     "Agency Owner",
		Password: "super-secret-1",
	})
	require.NoError(t, err)

	resp, err := suite.authService.Login(LoginRequest{
		Email:    "owner@agency.test",
		Password: "super-secret-1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.NotNil(t, resp.User.LastActiveAt)

	_, err = suite.authService.Login(LoginRequest{
		Email:    "owner@agency.test",
		Password: "wrong-password",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = suite.authService.Login(LoginRequest{
		Email:    "nobody@agency.test",
		Password: "super-secret-1",
	})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func (suite *AuthServiceTestSuite) TestValidateToken() {
	t := suite.T()

	resp, err := suite.authService.Register(RegisterRequest{
		Email:    "owner@agency.test",
		Name:     "Agency Owner",
		Password: "super-secret-1",
	})
	require.NoError(t, err)

	user, err := suite.authService.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, user.ID)
	assert.Equal(t, "owner@agency.test", user.Email)

	_, err = suite.authService.ValidateToken("not-a-token")
	assert.Error(t, err)

	// Token signed with a different secret fails validation.
	other := NewService([]byte("different-secret"))
	otherResp, err := other.GenerateTokenForUser(&resp.User)
	require.NoError(t, err)
	_, err = suite.authService.ValidateToken(otherResp.Token)
	assert.Error(t, err)
}

func TestAuthServiceSuite(t *testing.T) {
	suite.Run(t, new(AuthServiceTestSuite))
}
