package service

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"cardio-go/internal/dto"
	"cardio-go/internal/wfdb"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/tphakala/go-tflite"
)

// 四分类标签,顺序与模型输出维度一致
var ecgClassLabels = []string{"normal", "afib", "pvc", "other"}

// 无模型工件时的固定概率分布
var stubEcgProbabilities = map[string]float64{
	"normal": 0.1,
	"afib":   0.4,
	"pvc":    0.3,
	"other":  0.2,
}

const stubEcgConfidence = 0.85

// EffectiveBasePath 计算WFDB读取用的base path:上传文件绝对路径去掉扩展名。
// 必须保留完整目录,只取文件名会让读取落到进程工作目录,
// 在那里找不到文件就会静默退化为stub行为。
func EffectiveBasePath(filePath string) (string, error) {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve file path: %w", err)
	}
	ext := filepath.Ext(absPath)
	return strings.TrimSuffix(absPath, ext), nil
}

// EcgService 心电分类适配器。TFLite解释器进程内唯一,
// Invoke未声明可重入,所有推理调用用互斥锁串行化。
type EcgService struct {
	interpreter *tflite.Interpreter
	mu          sync.Mutex
	logger      *logrus.Logger
}

// NewEcgService 创建心电预测服务。模型工件缺失时进入stub模式,
// 预处理照常执行(伴随文件缺失仍会报错),仅推理返回固定值。
func NewEcgService(modelPath string, logger *logrus.Logger) *EcgService {
	s := &EcgService{logger: logger}

	modelData, err := os.ReadFile(modelPath)
	if err != nil {
		logger.WithError(err).WithField("model_path", modelPath).
			Warn("ECG model not available, running in stub mode")
		return s
	}

	model := tflite.NewModel(modelData)
	if model == nil {
		logger.WithField("model_path", modelPath).
			Warn("Failed to load ECG model, running in stub mode")
		return s
	}

	options := tflite.NewInterpreterOptions()
	options.SetNumThread(runtime.NumCPU())

	interpreter := tflite.NewInterpreter(model, options)
	if interpreter == nil {
		logger.WithField("model_path", modelPath).
			Warn("Failed to create ECG interpreter, running in stub mode")
		return s
	}
	if status := interpreter.AllocateTensors(); status != tflite.OK {
		logger.WithField("model_path", modelPath).
			Warn("ECG tensor allocation failed, running in stub mode")
		return s
	}

	s.interpreter = interpreter
	logger.WithField("model_path", modelPath).Info("ECG model loaded")
	return s
}

// StubMode 是否运行在stub模式(无模型工件)
func (s *EcgService) StubMode() bool {
	return s.interpreter == nil
}

// Predict 对上传的信号文件做四分类预测
func (s *EcgService) Predict(filePath string) (*dto.EcgResult, error) {
	sample, err := s.preprocess(filePath)
	if err != nil {
		return nil, err
	}

	if s.interpreter == nil {
		return &dto.EcgResult{
			Classification: argMax(stubEcgProbabilities),
			Probabilities:  stubEcgProbabilities,
			Confidence:     stubEcgConfidence,
		}, nil
	}

	probs, err := s.invoke(sample)
	if err != nil {
		return nil, err
	}

	probabilities := make(map[string]float64, len(ecgClassLabels))
	bestIdx := 0
	for i, label := range ecgClassLabels {
		probabilities[label] = probs[i]
		if probs[i] > probs[bestIdx] {
			bestIdx = i
		}
	}

	return &dto.EcgResult{
		Classification: ecgClassLabels[bestIdx],
		Probabilities:  probabilities,
		Confidence:     probs[bestIdx],
	}, nil
}

// preprocess 读取记录,做全局z-score归一化,裁剪/补零到模型输入长度
func (s *EcgService) preprocess(filePath string) ([]float32, error) {
	basePath, err := EffectiveBasePath(filePath)
	if err != nil {
		return nil, err
	}

	record, err := wfdb.ReadRecord(basePath)
	if err != nil {
		return nil, err
	}

	// 全局统计量,不按通道分别归一化
	var sum, count float64
	for _, frame := range record.Signal {
		for _, v := range frame {
			sum += v
			count++
		}
	}
	mean := sum / count

	var sqSum float64
	for _, frame := range record.Signal {
		for _, v := range frame {
			d := v - mean
			sqSum += d * d
		}
	}
	std := math.Sqrt(sqSum / count)
	if std == 0 {
		std = 1
	}

	channel := record.Channel(0)
	sample := make([]float32, len(channel))
	for i, v := range channel {
		sample[i] = float32((v - mean) / std)
	}

	return sample, nil
}

// invoke 串行化执行一次推理
func (s *EcgService) invoke(sample []float32) ([]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inputTensor := s.interpreter.GetInputTensor(0)
	if inputTensor == nil {
		return nil, fmt.Errorf("cannot get input tensor")
	}

	// 单批次输入,超长裁剪,不足补零
	input := inputTensor.Float32s()
	for i := range input {
		input[i] = 0
	}
	copy(input, sample)

	if status := s.interpreter.Invoke(); status != tflite.OK {
		return nil, fmt.Errorf("tensor invoke failed: %v", status)
	}

	outputTensor := s.interpreter.GetOutputTensor(0)
	if outputTensor == nil {
		return nil, fmt.Errorf("cannot get output tensor")
	}

	outputSize := outputTensor.Dim(outputTensor.NumDims() - 1)
	if outputSize != len(ecgClassLabels) {
		return nil, fmt.Errorf("unexpected model output size %d, want %d", outputSize, len(ecgClassLabels))
	}

	output := outputTensor.Float32s()
	probs := make([]float64, outputSize)
	for i := 0; i < outputSize; i++ {
		probs[i] = float64(output[i])
	}

	return probs, nil
}

// argMax 返回概率最大的标签
func argMax(probabilities map[string]float64) string {
	best := ""
	bestProb := math.Inf(-1)
	for _, label := range ecgClassLabels {
		if p := probabilities[label]; p > bestProb {
			best = label
			bestProb = p
		}
	}
	return best
}

// DetectAbnormalities 检测异常片段。当前为固定的两个时间窗,
// 不依赖输入信号,接入真实检测器前保持此行为。
func (s *EcgService) DetectAbnormalities(filePath string) []dto.Abnormality {
	return []dto.Abnormality{
		{
			ID:          uuid.NewString(),
			Type:        "PVC",
			StartTime:   15.2,
			EndTime:     15.8,
			Confidence:  0.92,
			Description: "Premature Ventricular Contraction detected",
		},
		{
			ID:          uuid.NewString(),
			Type:        "AFIB",
			StartTime:   120.5,
			EndTime:     135.7,
			Confidence:  0.87,
			Description: "Atrial Fibrillation episode",
		},
	}
}

// Explain 根据预测结果生成解释
func (s *EcgService) Explain(result *dto.EcgResult, abnormalities []dto.Abnormality) *dto.EcgExplanation {
	segments := make([]dto.AbnormalSegment, 0, len(abnormalities))
	for _, ab := range abnormalities {
		segments = append(segments, dto.AbnormalSegment{
			StartTime:   ab.StartTime,
			EndTime:     ab.EndTime,
			Description: ab.Description,
		})
	}

	return &dto.EcgExplanation{
		Summary: fmt.Sprintf("ECG analysis shows %s with %.1f%% confidence.",
			result.Classification, result.Confidence*100),
		AbnormalSegments: segments,
		Recommendations: []string{
			"Follow up with cardiologist for detailed evaluation",
			"Consider 24-hour Holter monitoring",
			"Avoid excessive caffeine and alcohol",
		},
	}
}
