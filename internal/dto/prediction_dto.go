package dto

import "time"

// TabularInput 11项结构化患者数据。除类型外不做取值范围校验,
// 取值域由上游分类器的训练数据决定。
type TabularInput struct {
	Age         int `json:"age" binding:"required"`
	Gender      int `json:"gender" binding:"required"`
	Height      int `json:"height" binding:"required"`
	Weight      int `json:"weight" binding:"required"`
	ApHi        int `json:"ap_hi" binding:"required"`
	ApLo        int `json:"ap_lo" binding:"required"`
	Cholesterol int `json:"cholesterol" binding:"required"`
	Gluc        int `json:"gluc" binding:"required"`
	Smoke       int `json:"smoke"`
	Alco        int `json:"alco"`
	Active      int `json:"active"`
}

// Features 按模型特征顺序展开输入
func (t *TabularInput) Features() []float64 {
	return []float64{
		float64(t.Age), float64(t.Gender), float64(t.Height), float64(t.Weight),
		float64(t.ApHi), float64(t.ApLo), float64(t.Cholesterol), float64(t.Gluc),
		float64(t.Smoke), float64(t.Alco), float64(t.Active),
	}
}

// TabularResult 结构化预测结果
type TabularResult struct {
	RiskLevel   string  `json:"risk_level"`
	Probability float64 `json:"probability"`
	Confidence  float64 `json:"confidence"`
}

// FeatureImportance 特征重要性条目
type FeatureImportance struct {
	Feature    string  `json:"feature"`
	Importance float64 `json:"importance"`
}

// TabularExplanation 结构化预测解释
type TabularExplanation struct {
	Summary           string              `json:"summary"`
	FeatureImportance []FeatureImportance `json:"feature_importance"`
	Recommendations   []string            `json:"recommendations"`
}

// TabularPredictionResponse 结构化预测响应
type TabularPredictionResponse struct {
	PredictionID string              `json:"prediction_id"`
	RiskLevel    string              `json:"risk_level"`
	Probability  float64             `json:"probability"`
	Confidence   float64             `json:"confidence"`
	Explanation  *TabularExplanation `json:"explanation"`
	CreatedAt    time.Time           `json:"created_at"`
}

// EcgResult 心电预测结果
type EcgResult struct {
	Classification string             `json:"classification"`
	Probabilities  map[string]float64 `json:"probabilities"`
	Confidence     float64            `json:"confidence"`
}

// Abnormality 信号异常片段
type Abnormality struct {
	ID          string  `json:"id"`
	Type        string  `json:"type"`
	StartTime   float64 `json:"start_time"`
	EndTime     float64 `json:"end_time"`
	Confidence  float64 `json:"confidence"`
	Description string  `json:"description"`
}

// AbnormalSegment 解释中的异常时间窗
type AbnormalSegment struct {
	StartTime   float64 `json:"start_time"`
	EndTime     float64 `json:"end_time"`
	Description string  `json:"description"`
}

// EcgExplanation 心电预测解释
type EcgExplanation struct {
	Summary          string            `json:"summary"`
	AbnormalSegments []AbnormalSegment `json:"abnormal_segments"`
	Recommendations  []string          `json:"recommendations"`
}

// EcgPredictionResponse 心电预测响应
type EcgPredictionResponse struct {
	PredictionID     string             `json:"prediction_id"`
	Classification   string             `json:"classification"`
	Probabilities    map[string]float64 `json:"probabilities"`
	Confidence       float64            `json:"confidence"`
	Explanation      *EcgExplanation    `json:"explanation"`
	VisualizationURL *string            `json:"visualization_url"`
	Abnormalities    []Abnormality      `json:"abnormalities"`
	CreatedAt        time.Time          `json:"created_at"`
}

// EcgInputMeta 心电预测存储的输入元数据
type EcgInputMeta struct {
	FileName string `json:"file_name"`
	FileSize int    `json:"file_size"`
}
