package repository

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"cardio-go/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, models.AutoMigrate(db))
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()

	user := &models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "hash",
		IsActive:     true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func newTabularPrediction(userID uint) (*models.Prediction, *models.TabularData) {
	id := uuid.NewString()
	prediction := &models.Prediction{
		ID:              id,
		UserID:          userID,
		Type:            models.PredictionTypeTabular,
		InputData:       models.JSONMap{"age": 18250},
		ResultData:      models.JSONMap{"risk_level": "High Risk"},
		ConfidenceScore: 0.85,
	}
	detail := &models.TabularData{
		PredictionID: id,
		Age:          18250, Gender: 2, Height: 168, Weight: 70,
		ApHi: 140, ApLo: 90, Cholesterol: 2, Gluc: 1,
	}
	return prediction, detail
}

func TestCreateWithTabular(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPredictionRepository(db)
	user := createTestUser(t, db, "alice")

	prediction, detail := newTabularPrediction(user.ID)
	require.NoError(t, repo.CreateWithTabular(prediction, detail))

	got, err := repo.GetByIDAndUserID(prediction.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PredictionTypeTabular, got.Type)
	assert.Equal(t, "High Risk", got.ResultData["risk_level"])

	var storedDetail models.TabularData
	require.NoError(t, db.First(&storedDetail, "prediction_id = ?", prediction.ID).Error)
	assert.Equal(t, 140, storedDetail.ApHi)
}

func TestCreateWithTabularRollsBackOnDetailFailure(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPredictionRepository(db)
	user := createTestUser(t, db, "alice")

	first, firstDetail := newTabularPrediction(user.ID)
	require.NoError(t, repo.CreateWithTabular(first, firstDetail))

	// 明细主键与已有记录冲突,事务必须整体回滚
	second, _ := newTabularPrediction(user.ID)
	conflicting := &models.TabularData{PredictionID: first.ID}
	require.Error(t, repo.CreateWithTabular(second, conflicting))

	_, err := repo.GetByIDAndUserID(second.ID, user.ID)
	assert.True(t, IsNotFound(err))

	var count int64
	require.NoError(t, db.Model(&models.Prediction{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCreateWithEcgRollsBackOnDetailFailure(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPredictionRepository(db)
	user := createTestUser(t, db, "alice")

	firstID := uuid.NewString()
	require.NoError(t, repo.CreateWithEcg(&models.Prediction{
		ID: firstID, UserID: user.ID, Type: models.PredictionTypeEcg,
		InputData:  models.JSONMap{"file_name": "a.dat"},
		ResultData: models.JSONMap{"classification": "afib"},
	}, &models.EcgData{PredictionID: firstID, FilePath: "/tmp/a.dat", FileName: "a.dat"}, nil))

	secondID := uuid.NewString()
	err := repo.CreateWithEcg(&models.Prediction{
		ID: secondID, UserID: user.ID, Type: models.PredictionTypeEcg,
		InputData:  models.JSONMap{"file_name": "b.dat"},
		ResultData: models.JSONMap{"classification": "afib"},
	}, &models.EcgData{PredictionID: firstID, FilePath: "/tmp/b.dat", FileName: "b.dat"}, nil)
	require.Error(t, err)

	_, err = repo.GetByIDAndUserID(secondID, user.ID)
	assert.True(t, IsNotFound(err))
}

func TestCreateWithEcgStoresVisualization(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPredictionRepository(db)
	user := createTestUser(t, db, "alice")

	id := uuid.NewString()
	viz := &models.Visualization{PredictionID: id, FilePath: "/tmp/viz.png", FileType: "png"}
	require.NoError(t, repo.CreateWithEcg(&models.Prediction{
		ID: id, UserID: user.ID, Type: models.PredictionTypeEcg,
		InputData:  models.JSONMap{"file_name": "a.dat"},
		ResultData: models.JSONMap{"classification": "afib"},
	}, &models.EcgData{PredictionID: id, FilePath: "/tmp/a.dat", FileName: "a.dat"}, viz))

	got, err := repo.GetVisualization(id)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/viz.png", got.FilePath)
	assert.Equal(t, "png", got.FileType)
}

func TestGetByIDAndUserIDOwnership(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPredictionRepository(db)
	owner := createTestUser(t, db, "owner")
	other := createTestUser(t, db, "other")

	prediction, detail := newTabularPrediction(owner.ID)
	require.NoError(t, repo.CreateWithTabular(prediction, detail))

	// 非归属用户查询返回记录不存在
	_, err := repo.GetByIDAndUserID(prediction.ID, other.ID)
	assert.True(t, IsNotFound(err))

	_, err = repo.GetByIDAndUserID(prediction.ID, owner.ID)
	assert.NoError(t, err)
}

func TestListByUserIDPaginationAndFilter(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPredictionRepository(db)
	user := createTestUser(t, db, "alice")

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 15; i++ {
		predType := models.PredictionTypeTabular
		if i%3 == 0 {
			predType = models.PredictionTypeEcg
		}
		require.NoError(t, db.Create(&models.Prediction{
			ID:         fmt.Sprintf("pred-%02d", i),
			UserID:     user.ID,
			Type:       predType,
			InputData:  models.JSONMap{"i": i},
			ResultData: models.JSONMap{"i": i},
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		}).Error)
	}

	// 默认分页,按创建时间倒序
	predictions, total, err := repo.ListByUserID(user.ID, "", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(15), total)
	require.Len(t, predictions, 10)
	assert.Equal(t, "pred-14", predictions[0].ID)

	// offset翻页
	predictions, _, err = repo.ListByUserID(user.ID, "", 10, 10)
	require.NoError(t, err)
	assert.Len(t, predictions, 5)

	// 类型过滤
	predictions, total, err = repo.ListByUserID(user.ID, models.PredictionTypeEcg, 100, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Len(t, predictions, 5)
	for _, p := range predictions {
		assert.Equal(t, models.PredictionTypeEcg, p.Type)
	}
}

func TestListByUserIDClampsLimit(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPredictionRepository(db)
	user := createTestUser(t, db, "alice")

	for i := 0; i < 120; i++ {
		require.NoError(t, db.Create(&models.Prediction{
			ID:         fmt.Sprintf("pred-%03d", i),
			UserID:     user.ID,
			Type:       models.PredictionTypeTabular,
			InputData:  models.JSONMap{"i": i},
			ResultData: models.JSONMap{"i": i},
		}).Error)
	}

	predictions, total, err := repo.ListByUserID(user.ID, "", 1000, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(120), total)
	assert.Len(t, predictions, 100)

	// 负偏移按0处理
	predictions, _, err = repo.ListByUserID(user.ID, "", 10, -5)
	require.NoError(t, err)
	assert.Len(t, predictions, 10)
}

func TestListByUserIDIsolatesUsers(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPredictionRepository(db)
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")

	prediction, detail := newTabularPrediction(alice.ID)
	require.NoError(t, repo.CreateWithTabular(prediction, detail))

	predictions, total, err := repo.ListByUserID(bob.ID, "", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
	assert.Empty(t, predictions)
}

func TestGetVisualizationNotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPredictionRepository(db)

	_, err := repo.GetVisualization("no-such-id")
	assert.True(t, IsNotFound(err))
}
