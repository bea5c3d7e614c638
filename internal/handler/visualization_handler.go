package handler

import (
	"os"

	"cardio-go/internal/middleware"
	"cardio-go/internal/models"
	"cardio-go/internal/repository"
	"cardio-go/internal/utils"

	"github.com/gin-gonic/gin"
)

// VisualizationHandler 可视化文件处理器
type VisualizationHandler struct {
	predictionRepo *repository.PredictionRepository
}

// NewVisualizationHandler 创建可视化处理器
func NewVisualizationHandler(predictionRepo *repository.PredictionRepository) *VisualizationHandler {
	return &VisualizationHandler{predictionRepo: predictionRepo}
}

// Get 返回心电预测的波形图PNG。记录不存在、不归属当前用户、
// 类型不是ecg或文件缺失都返回404,不泄露记录是否存在。
func (h *VisualizationHandler) Get(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	predictionID := c.Param("id")

	prediction, err := h.predictionRepo.GetByIDAndUserID(predictionID, userID)
	if err != nil {
		utils.NotFound(c, "Prediction not found")
		return
	}

	if prediction.Type != models.PredictionTypeEcg {
		utils.NotFound(c, "Visualization not found")
		return
	}

	viz, err := h.predictionRepo.GetVisualization(predictionID)
	if err != nil {
		utils.NotFound(c, "Visualization not found")
		return
	}

	if _, err := os.Stat(viz.FilePath); err != nil {
		utils.NotFound(c, "Visualization not found")
		return
	}

	c.Header("Content-Type", "image/png")
	c.File(viz.FilePath)
}
