package service

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"cardio-go/internal/dto"

	"github.com/dmitryikh/leaves"
	"github.com/sirupsen/logrus"
)

// 风险分级阈值,严格大于才判高风险
const riskThreshold = 0.5

// 无模型工件时的固定预测值
const (
	stubTabularProbability = 0.75
	stubTabularConfidence  = 0.85
)

// featureScaler 已拟合的标准化器参数,工件缺失时退化为恒等变换
type featureScaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// Transform 对特征向量逐维标准化
func (fs *featureScaler) Transform(features []float64) []float64 {
	if fs == nil || len(fs.Mean) != len(features) || len(fs.Scale) != len(features) {
		return features
	}
	out := make([]float64, len(features))
	for i, v := range features {
		scale := fs.Scale[i]
		if scale == 0 {
			scale = 1
		}
		out[i] = (v - fs.Mean[i]) / scale
	}
	return out
}

// TabularService 结构化心血管风险预测适配器。
// 进程启动时加载一次梯度提升树模型,之后只读,可并发调用。
type TabularService struct {
	model  *leaves.Ensemble
	scaler *featureScaler
	logger *logrus.Logger
}

// NewTabularService 创建结构化预测服务。模型工件缺失时进入stub模式,
// 返回固定预测值,可通过StubMode观察。
func NewTabularService(modelPath, scalerPath string, logger *logrus.Logger) *TabularService {
	s := &TabularService{logger: logger}

	model, err := leaves.XGEnsembleFromFile(modelPath, true)
	if err != nil {
		logger.WithError(err).WithField("model_path", modelPath).
			Warn("Tabular model not available, running in stub mode")
	} else {
		s.model = model
		logger.WithField("model_path", modelPath).Info("Tabular model loaded")
	}

	scaler, err := loadScaler(scalerPath)
	if err != nil {
		logger.WithError(err).WithField("scaler_path", scalerPath).
			Warn("Feature scaler not available, using identity scaling")
	} else {
		s.scaler = scaler
		logger.WithField("scaler_path", scalerPath).Info("Feature scaler loaded")
	}

	return s
}

// loadScaler 加载标准化器参数
func loadScaler(path string) (*featureScaler, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var scaler featureScaler
	if err := json.Unmarshal(data, &scaler); err != nil {
		return nil, fmt.Errorf("failed to parse scaler file: %w", err)
	}
	if len(scaler.Mean) != len(scaler.Scale) {
		return nil, fmt.Errorf("scaler mean/scale length mismatch: %d != %d", len(scaler.Mean), len(scaler.Scale))
	}
	return &scaler, nil
}

// StubMode 是否运行在stub模式(无模型工件)
func (s *TabularService) StubMode() bool {
	return s.model == nil
}

// Predict 对患者数据做风险预测
func (s *TabularService) Predict(input *dto.TabularInput) *dto.TabularResult {
	if s.model == nil {
		return resultFromProbability(stubTabularProbability, stubTabularConfidence)
	}

	features := s.scaler.Transform(input.Features())
	probability := s.model.PredictSingle(features, 0)

	// 置信度为到决策边界的距离,归一到[0,1]
	confidence := math.Abs(probability-riskThreshold) * 2
	return resultFromProbability(probability, confidence)
}

// resultFromProbability 按阈值生成分级结果
func resultFromProbability(probability, confidence float64) *dto.TabularResult {
	riskLevel := "Low Risk"
	if probability > riskThreshold {
		riskLevel = "High Risk"
	}
	return &dto.TabularResult{
		RiskLevel:   riskLevel,
		Probability: probability,
		Confidence:  confidence,
	}
}

// Explain 生成预测解释。当前为与输入无关的静态内容,
// 结构与真实归因输出一致,接入SHAP等归因时只需替换实现。
func (s *TabularService) Explain(input *dto.TabularInput) *dto.TabularExplanation {
	return &dto.TabularExplanation{
		Summary: "Based on the patient data, there is a high risk of cardiovascular disease.",
		FeatureImportance: []dto.FeatureImportance{
			{Feature: "Systolic Blood Pressure", Importance: 0.3},
			{Feature: "Age", Importance: 0.25},
			{Feature: "Cholesterol", Importance: 0.2},
			{Feature: "Gender", Importance: 0.15},
			{Feature: "Smoking", Importance: 0.1},
		},
		Recommendations: []string{
			"Consult with a cardiologist for comprehensive evaluation",
			"Monitor blood pressure regularly",
			"Maintain current physical activity level",
		},
	}
}
