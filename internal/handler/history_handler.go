package handler

import (
	"strconv"

	"cardio-go/internal/dto"
	"cardio-go/internal/middleware"
	"cardio-go/internal/models"
	"cardio-go/internal/repository"
	"cardio-go/internal/utils"

	"github.com/gin-gonic/gin"
)

// HistoryHandler 预测历史处理器
type HistoryHandler struct {
	predictionRepo *repository.PredictionRepository
}

// NewHistoryHandler 创建预测历史处理器
func NewHistoryHandler(predictionRepo *repository.PredictionRepository) *HistoryHandler {
	return &HistoryHandler{predictionRepo: predictionRepo}
}

// List 获取当前用户的预测历史,按创建时间倒序分页
func (h *HistoryHandler) List(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	typeFilter := c.Query("type")

	if typeFilter != "" && typeFilter != models.PredictionTypeTabular && typeFilter != models.PredictionTypeEcg {
		utils.BadRequest(c, "Invalid prediction type filter")
		return
	}

	predictions, total, err := h.predictionRepo.ListByUserID(userID, typeFilter, limit, offset)
	if err != nil {
		utils.InternalError(c, "Error retrieving prediction history")
		return
	}

	items := make([]dto.HistoryItem, 0, len(predictions))
	for _, pred := range predictions {
		items = append(items, dto.HistoryItem{
			ID:         pred.ID,
			Type:       pred.Type,
			Result:     resultSummary(pred.ResultData),
			Confidence: pred.ConfidenceScore,
			CreatedAt:  pred.CreatedAt,
		})
	}

	utils.SuccessResponse(c, dto.HistoryResponse{
		Predictions: items,
		Total:       total,
	})
}

// resultSummary 从结果载荷提取人类可读摘要,不需要重新调用模型
func resultSummary(resultData models.JSONMap) string {
	for _, key := range []string{"risk_level", "classification", "result"} {
		if v, ok := resultData[key].(string); ok && v != "" {
			return v
		}
	}
	return "Prediction result"
}

// Get 获取单条预测详情,只返回归属当前用户的记录
func (h *HistoryHandler) Get(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	predictionID := c.Param("id")

	prediction, err := h.predictionRepo.GetByIDAndUserID(predictionID, userID)
	if err != nil {
		if repository.IsNotFound(err) {
			utils.NotFound(c, "Prediction not found")
			return
		}
		utils.InternalError(c, "Error retrieving prediction details")
		return
	}

	utils.SuccessResponse(c, prediction)
}
