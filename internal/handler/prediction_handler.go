package handler

import (
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"cardio-go/internal/dto"
	"cardio-go/internal/middleware"
	"cardio-go/internal/models"
	"cardio-go/internal/repository"
	"cardio-go/internal/utils"
	"cardio-go/internal/wfdb"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// TabularPredictor 结构化预测适配器契约
type TabularPredictor interface {
	Predict(input *dto.TabularInput) *dto.TabularResult
	Explain(input *dto.TabularInput) *dto.TabularExplanation
	StubMode() bool
}

// EcgPredictor 心电预测适配器契约
type EcgPredictor interface {
	Predict(filePath string) (*dto.EcgResult, error)
	DetectAbnormalities(filePath string) []dto.Abnormality
	Explain(result *dto.EcgResult, abnormalities []dto.Abnormality) *dto.EcgExplanation
	StubMode() bool
}

// Visualizer 可视化适配器契约
type Visualizer interface {
	Generate(filePath string, abnormalities []dto.Abnormality) (string, error)
}

// PredictionHandler 预测流水线处理器:认证 → 校验 → 推理 →
// 可视化(可降级) → 事务持久化 → 组装响应
type PredictionHandler struct {
	predictionRepo *repository.PredictionRepository
	tabular        TabularPredictor
	ecg            EcgPredictor
	visualizer     Visualizer
	uploadDir      string
	logger         *logrus.Logger
}

// NewPredictionHandler 创建预测处理器
func NewPredictionHandler(
	predictionRepo *repository.PredictionRepository,
	tabular TabularPredictor,
	ecg EcgPredictor,
	visualizer Visualizer,
	uploadDir string,
	logger *logrus.Logger,
) *PredictionHandler {
	return &PredictionHandler{
		predictionRepo: predictionRepo,
		tabular:        tabular,
		ecg:            ecg,
		visualizer:     visualizer,
		uploadDir:      uploadDir,
		logger:         logger,
	}
}

// PredictTabular 结构化心血管风险预测
func (h *PredictionHandler) PredictTabular(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	var req dto.TabularInput
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	result := h.tabular.Predict(&req)
	explanation := h.tabular.Explain(&req)

	predictionID := uuid.NewString()

	inputData, err := models.NewJSONMap(&req)
	if err != nil {
		h.logger.WithError(err).Error("Failed to serialize tabular input")
		utils.InternalError(c, "Error processing prediction")
		return
	}

	resultData, err := models.NewJSONMap(struct {
		*dto.TabularResult
		Explanation *dto.TabularExplanation `json:"explanation"`
	}{result, explanation})
	if err != nil {
		h.logger.WithError(err).Error("Failed to serialize tabular result")
		utils.InternalError(c, "Error processing prediction")
		return
	}

	prediction := &models.Prediction{
		ID:              predictionID,
		UserID:          userID,
		Type:            models.PredictionTypeTabular,
		InputData:       inputData,
		ResultData:      resultData,
		ConfidenceScore: result.Confidence,
	}
	detail := &models.TabularData{
		PredictionID: predictionID,
		Age:          req.Age,
		Gender:       req.Gender,
		Height:       req.Height,
		Weight:       req.Weight,
		ApHi:         req.ApHi,
		ApLo:         req.ApLo,
		Cholesterol:  req.Cholesterol,
		Gluc:         req.Gluc,
		Smoke:        req.Smoke,
		Alco:         req.Alco,
		Active:       req.Active,
	}

	if err := h.predictionRepo.CreateWithTabular(prediction, detail); err != nil {
		h.logger.WithError(err).WithFields(logrus.Fields{
			"user_id":       userID,
			"prediction_id": predictionID,
		}).Error("Failed to persist tabular prediction")
		utils.InternalError(c, "Error processing prediction")
		return
	}

	h.logger.WithFields(logrus.Fields{
		"user_id":       userID,
		"prediction_id": predictionID,
		"risk_level":    result.RiskLevel,
		"stub_mode":     h.tabular.StubMode(),
	}).Info("Tabular prediction completed")

	utils.SuccessResponse(c, dto.TabularPredictionResponse{
		PredictionID: predictionID,
		RiskLevel:    result.RiskLevel,
		Probability:  result.Probability,
		Confidence:   result.Confidence,
		Explanation:  explanation,
		CreatedAt:    prediction.CreatedAt,
	})
}

// PredictEcg 心电文件预测,multipart上传.dat/.hea文件对
func (h *PredictionHandler) PredictEcg(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	form, err := c.MultipartForm()
	if err != nil {
		utils.BadRequest(c, "Invalid multipart form: "+err.Error())
		return
	}
	files := form.File["file"]
	if len(files) == 0 {
		utils.BadRequest(c, "No file uploaded")
		return
	}

	// 所有上传文件以同一UUID为记录基名落盘,保留各自扩展名
	savedPaths, primary, err := h.saveUploads(c, files)
	if err != nil {
		h.removeFiles(savedPaths)
		utils.InternalError(c, "Failed to save uploaded file")
		return
	}

	result, err := h.ecg.Predict(primary.path)
	if err != nil {
		// 上传即失败的文件不保留
		h.removeFiles(savedPaths)
		if wfdb.IsMissingFile(err) {
			utils.BadRequest(c, err.Error())
			return
		}
		h.logger.WithError(err).WithField("user_id", userID).Error("ECG prediction failed")
		utils.InternalError(c, "Error processing ECG prediction")
		return
	}

	abnormalities := h.ecg.DetectAbnormalities(primary.path)
	explanation := h.ecg.Explain(result, abnormalities)

	predictionID := uuid.NewString()

	// 可视化失败不阻断流水线,响应中visualization_url为null
	var visualizationURL *string
	var vizRow *models.Visualization
	vizPath, err := h.visualizer.Generate(primary.path, abnormalities)
	if err != nil {
		h.logger.WithError(err).WithField("user_id", userID).
			Warn("Visualization generation failed, continuing without it")
	} else {
		url := fmt.Sprintf("/api/v1/ecg/%s/visualization", predictionID)
		visualizationURL = &url
		vizRow = &models.Visualization{
			PredictionID: predictionID,
			FilePath:     vizPath,
			FileType:     "png",
		}
	}

	resultData, err := models.NewJSONMap(struct {
		*dto.EcgResult
		Explanation      *dto.EcgExplanation `json:"explanation"`
		VisualizationURL *string             `json:"visualization_url"`
		Abnormalities    []dto.Abnormality   `json:"abnormalities"`
	}{result, explanation, visualizationURL, abnormalities})
	if err != nil {
		h.logger.WithError(err).Error("Failed to serialize ECG result")
		utils.InternalError(c, "Error processing ECG prediction")
		return
	}

	inputData, err := models.NewJSONMap(dto.EcgInputMeta{
		FileName: primary.originalName,
		FileSize: primary.size,
	})
	if err != nil {
		h.logger.WithError(err).Error("Failed to serialize ECG input metadata")
		utils.InternalError(c, "Error processing ECG prediction")
		return
	}

	abnormalityRows, err := models.NewJSONList(abnormalities)
	if err != nil {
		h.logger.WithError(err).Error("Failed to serialize abnormalities")
		utils.InternalError(c, "Error processing ECG prediction")
		return
	}

	prediction := &models.Prediction{
		ID:              predictionID,
		UserID:          userID,
		Type:            models.PredictionTypeEcg,
		InputData:       inputData,
		ResultData:      resultData,
		ConfidenceScore: result.Confidence,
	}
	detail := &models.EcgData{
		PredictionID:  predictionID,
		FilePath:      primary.path,
		FileName:      primary.originalName,
		FileSize:      primary.size,
		Abnormalities: abnormalityRows,
	}

	// 持久化失败时全部回滚;已落盘的上传文件保留,由运维清理
	if err := h.predictionRepo.CreateWithEcg(prediction, detail, vizRow); err != nil {
		h.logger.WithError(err).WithFields(logrus.Fields{
			"user_id":       userID,
			"prediction_id": predictionID,
		}).Error("Failed to persist ECG prediction")
		utils.InternalError(c, "Error processing ECG prediction")
		return
	}

	h.logger.WithFields(logrus.Fields{
		"user_id":        userID,
		"prediction_id":  predictionID,
		"classification": result.Classification,
		"stub_mode":      h.ecg.StubMode(),
	}).Info("ECG prediction completed")

	utils.SuccessResponse(c, dto.EcgPredictionResponse{
		PredictionID:     predictionID,
		Classification:   result.Classification,
		Probabilities:    result.Probabilities,
		Confidence:       result.Confidence,
		Explanation:      explanation,
		VisualizationURL: visualizationURL,
		Abnormalities:    abnormalities,
		CreatedAt:        prediction.CreatedAt,
	})
}

// savedUpload 落盘后的主文件信息
type savedUpload struct {
	path         string
	originalName string
	size         int
}

// saveUploads 保存上传文件,返回全部落盘路径和主文件(.dat优先)
func (h *PredictionHandler) saveUploads(c *gin.Context, files []*multipart.FileHeader) ([]string, *savedUpload, error) {
	if err := os.MkdirAll(h.uploadDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	recordID := uuid.NewString()
	var savedPaths []string
	var primary *savedUpload

	for _, file := range files {
		ext := strings.ToLower(filepath.Ext(file.Filename))
		dst := filepath.Join(h.uploadDir, recordID+ext)
		if err := c.SaveUploadedFile(file, dst); err != nil {
			return savedPaths, nil, fmt.Errorf("failed to save %s: %w", file.Filename, err)
		}
		savedPaths = append(savedPaths, dst)

		if primary == nil || ext == ".dat" {
			primary = &savedUpload{
				path:         dst,
				originalName: file.Filename,
				size:         int(file.Size),
			}
		}
	}

	return savedPaths, primary, nil
}

// removeFiles 清理已落盘的上传文件
func (h *PredictionHandler) removeFiles(paths []string) {
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			h.logger.WithError(err).WithField("path", p).Warn("Failed to remove uploaded file")
		}
	}
}
