package repository

import (
	"errors"

	"cardio-go/internal/models"

	"gorm.io/gorm"
)

// 列表查询单页条数上限
const MaxPageSize = 100

// PredictionRepository 预测记录数据访问层
type PredictionRepository struct {
	db *gorm.DB
}

// NewPredictionRepository 创建预测记录Repository
func NewPredictionRepository(db *gorm.DB) *PredictionRepository {
	return &PredictionRepository{db: db}
}

// CreateWithTabular 在同一事务中写入预测记录和结构化明细,要么都写入要么都不写入
func (r *PredictionRepository) CreateWithTabular(prediction *models.Prediction, detail *models.TabularData) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(prediction).Error; err != nil {
			return err
		}
		if err := tx.Create(detail).Error; err != nil {
			return err
		}
		return nil
	})
}

// CreateWithEcg 在同一事务中写入预测记录、信号明细和可视化引用(可选)
func (r *PredictionRepository) CreateWithEcg(prediction *models.Prediction, detail *models.EcgData, viz *models.Visualization) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(prediction).Error; err != nil {
			return err
		}
		if err := tx.Create(detail).Error; err != nil {
			return err
		}
		if viz != nil {
			if err := tx.Create(viz).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// GetByIDAndUserID 按ID和归属用户获取预测记录,不泄露其他用户的记录
func (r *PredictionRepository) GetByIDAndUserID(id string, userID uint) (*models.Prediction, error) {
	var prediction models.Prediction
	err := r.db.Where("id = ? AND user_id = ?", id, userID).First(&prediction).Error
	if err != nil {
		return nil, err
	}
	return &prediction, nil
}

// IsNotFound 判断是否为记录不存在错误
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// ListByUserID 获取用户的预测记录列表,按创建时间倒序,limit上限100
func (r *PredictionRepository) ListByUserID(userID uint, typeFilter string, limit, offset int) ([]models.Prediction, int64, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	query := r.db.Model(&models.Prediction{}).Where("user_id = ?", userID)
	if typeFilter != "" {
		query = query.Where("type = ?", typeFilter)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var predictions []models.Prediction
	err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&predictions).Error
	return predictions, total, err
}

// GetVisualization 获取预测记录的可视化文件引用
func (r *PredictionRepository) GetVisualization(predictionID string) (*models.Visualization, error) {
	var viz models.Visualization
	err := r.db.Where("prediction_id = ?", predictionID).Order("created_at DESC").First(&viz).Error
	if err != nil {
		return nil, err
	}
	return &viz, nil
}
