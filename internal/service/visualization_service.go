package service

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"cardio-go/internal/dto"
	"cardio-go/internal/wfdb"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// 渲染尺寸与留白
const (
	vizWidth   = 1200
	vizHeight  = 400
	vizPadding = 20
)

var (
	vizBackground = color.RGBA{255, 255, 255, 255}
	vizSignal     = color.RGBA{0, 0, 255, 255}
	// 异常时间窗底色,预先与白色混合过的浅红
	vizAbnormal = color.RGBA{255, 204, 204, 255}
)

// VisualizationService 信号可视化适配器,渲染带异常高亮的PNG波形图
type VisualizationService struct {
	outputDir string
	logger    *logrus.Logger
}

// NewVisualizationService 创建可视化服务
func NewVisualizationService(outputDir string, logger *logrus.Logger) *VisualizationService {
	return &VisualizationService{outputDir: outputDir, logger: logger}
}

// Generate 渲染信号波形图并写入PNG文件,返回文件路径。
// 多导联记录只画第一个通道。
func (s *VisualizationService) Generate(filePath string, abnormalities []dto.Abnormality) (string, error) {
	basePath, err := EffectiveBasePath(filePath)
	if err != nil {
		return "", err
	}

	record, err := readSignalForPlot(basePath)
	if err != nil {
		return "", err
	}

	img := renderSignal(record.samples, record.sampleRate, abnormalities)

	if err := os.MkdirAll(s.outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create visualization directory: %w", err)
	}

	outputPath := filepath.Join(s.outputDir, fmt.Sprintf("ecg_viz_%s.png", uuid.NewString()))
	f, err := os.Create(outputPath)
	if err != nil {
		return "", fmt.Errorf("failed to create visualization file: %w", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return "", fmt.Errorf("failed to encode visualization: %w", err)
	}

	s.logger.WithField("path", outputPath).Debug("Visualization rendered")
	return outputPath, nil
}

// plotSignal 绘图用的单通道信号
type plotSignal struct {
	samples    []float64
	sampleRate float64
}

// readSignalForPlot 读取第一个通道
func readSignalForPlot(basePath string) (*plotSignal, error) {
	record, err := wfdb.ReadRecord(basePath)
	if err != nil {
		return nil, err
	}
	return &plotSignal{
		samples:    record.Channel(0),
		sampleRate: record.SampleRate(),
	}, nil
}

// renderSignal 渲染波形:先铺底色和异常时间窗,再画振幅-时间折线。
// 每个像素列画出落入该列的采样最小值到最大值的竖线。
func renderSignal(samples []float64, sampleRate float64, abnormalities []dto.Abnormality) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, vizWidth, vizHeight))
	for y := 0; y < vizHeight; y++ {
		for x := 0; x < vizWidth; x++ {
			img.SetRGBA(x, y, vizBackground)
		}
	}

	if len(samples) == 0 {
		return img
	}

	plotWidth := vizWidth - 2*vizPadding
	plotHeight := vizHeight - 2*vizPadding
	duration := float64(len(samples)) / sampleRate

	// 异常时间窗
	for _, ab := range abnormalities {
		x0 := vizPadding + int(ab.StartTime/duration*float64(plotWidth))
		x1 := vizPadding + int(ab.EndTime/duration*float64(plotWidth))
		if x1 < vizPadding || x0 > vizWidth-vizPadding {
			continue
		}
		x0 = clampInt(x0, vizPadding, vizWidth-vizPadding)
		x1 = clampInt(x1, vizPadding, vizWidth-vizPadding)
		for x := x0; x <= x1; x++ {
			for y := vizPadding; y < vizHeight-vizPadding; y++ {
				img.SetRGBA(x, y, vizAbnormal)
			}
		}
	}

	minV, maxV := samples[0], samples[0]
	for _, v := range samples {
		minV = math.Min(minV, v)
		maxV = math.Max(maxV, v)
	}
	if maxV == minV {
		maxV = minV + 1
	}

	toY := func(v float64) int {
		frac := (v - minV) / (maxV - minV)
		return vizPadding + int((1-frac)*float64(plotHeight-1))
	}

	// 逐像素列画振幅包络
	for x := 0; x < plotWidth; x++ {
		start := x * len(samples) / plotWidth
		end := (x + 1) * len(samples) / plotWidth
		if end <= start {
			end = start + 1
		}
		if end > len(samples) {
			end = len(samples)
		}

		colMin, colMax := samples[start], samples[start]
		for _, v := range samples[start:end] {
			colMin = math.Min(colMin, v)
			colMax = math.Max(colMax, v)
		}

		yTop := toY(colMax)
		yBottom := toY(colMin)
		for y := yTop; y <= yBottom; y++ {
			img.SetRGBA(vizPadding+x, y, vizSignal)
		}
	}

	return img
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
