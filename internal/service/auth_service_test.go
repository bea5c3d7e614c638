package service

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"cardio-go/internal/dto"
	"cardio-go/internal/models"
	"cardio-go/internal/repository"
	"cardio-go/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newAuthService(t *testing.T) (*AuthService, *gorm.DB) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, models.AutoMigrate(db))

	jwtManager := utils.NewJWTManager("test-secret", "HS256", 30*time.Minute)
	return NewAuthService(repository.NewUserRepository(db), jwtManager), db
}

func registerRequest(username string) *dto.RegisterRequest {
	return &dto.RegisterRequest{
		Username: username,
		Email:    username + "@example.com",
		Password: "secret123",
	}
}

func TestRegisterAndLogin(t *testing.T) {
	authService, _ := newAuthService(t)

	user, err := authService.Register(registerRequest("alice"))
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.True(t, user.IsActive)
	assert.NotEqual(t, "secret123", user.PasswordHash)

	resp, err := authService.Login("alice", "secret123")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, "bearer", resp.TokenType)
}

func TestRegisterDuplicateUsername(t *testing.T) {
	authService, _ := newAuthService(t)

	_, err := authService.Register(registerRequest("alice"))
	require.NoError(t, err)

	req := registerRequest("alice")
	req.Email = "other@example.com"
	_, err = authService.Register(req)
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	authService, _ := newAuthService(t)

	_, err := authService.Register(registerRequest("alice"))
	require.NoError(t, err)

	req := registerRequest("bob")
	req.Email = "alice@example.com"
	_, err = authService.Register(req)
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestRegisterPasswordTooLong(t *testing.T) {
	authService, _ := newAuthService(t)

	req := registerRequest("alice")
	req.Password = strings.Repeat("a", 129)
	_, err := authService.Register(req)
	assert.ErrorIs(t, err, ErrPasswordTooLong)

	// 恰好128字符可以注册
	req = registerRequest("bob")
	req.Password = strings.Repeat("a", 128)
	_, err = authService.Register(req)
	assert.NoError(t, err)
}

func TestLoginWrongPassword(t *testing.T) {
	authService, _ := newAuthService(t)

	_, err := authService.Register(registerRequest("alice"))
	require.NoError(t, err)

	_, err = authService.Login("alice", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginUnknownUser(t *testing.T) {
	authService, _ := newAuthService(t)

	// 未知用户与口令错误返回同一错误
	_, err := authService.Login("nobody", "secret123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginDisabledUser(t *testing.T) {
	authService, db := newAuthService(t)

	user, err := authService.Register(registerRequest("alice"))
	require.NoError(t, err)
	require.NoError(t, db.Model(user).Update("is_active", false).Error)

	_, err = authService.Login("alice", "secret123")
	assert.ErrorIs(t, err, ErrUserDisabled)
}

func TestGetMe(t *testing.T) {
	authService, _ := newAuthService(t)

	user, err := authService.Register(registerRequest("alice"))
	require.NoError(t, err)

	info, err := authService.GetMe(user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, info.ID)
	assert.Equal(t, "alice", info.Username)
	assert.Equal(t, "alice@example.com", info.Email)
	assert.True(t, info.IsActive)

	_, err = authService.GetMe(9999)
	assert.Error(t, err)
}
