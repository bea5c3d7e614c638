package service

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"cardio-go/internal/dto"
	"cardio-go/internal/wfdb"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVisualizationGenerate(t *testing.T) {
	outputDir := filepath.Join(t.TempDir(), "viz")
	s := NewVisualizationService(outputDir, testLogger())

	filePath := writeEcgRecord(t, t.TempDir(), "rec", []int16{200, -200, 400, 0, 100, -100})
	abnormalities := []dto.Abnormality{
		{Type: "PVC", StartTime: 0.001, EndTime: 0.005, Confidence: 0.9},
	}

	outputPath, err := s.Generate(filePath, abnormalities)
	require.NoError(t, err)
	assert.Contains(t, filepath.Base(outputPath), "ecg_viz_")
	assert.Equal(t, ".png", filepath.Ext(outputPath))

	f, err := os.Open(outputPath)
	require.NoError(t, err)
	defer f.Close()

	img, err := png.Decode(f)
	require.NoError(t, err)
	bounds := img.Bounds()
	assert.Equal(t, 1200, bounds.Dx())
	assert.Equal(t, 400, bounds.Dy())
}

func TestVisualizationGenerateMissingRecord(t *testing.T) {
	s := NewVisualizationService(filepath.Join(t.TempDir(), "viz"), testLogger())

	_, err := s.Generate(filepath.Join(t.TempDir(), "nothing.dat"), nil)
	require.Error(t, err)
	assert.True(t, wfdb.IsMissingFile(err))
}

func TestRenderSignalEmptySamples(t *testing.T) {
	img := renderSignal(nil, 360, nil)
	require.NotNil(t, img)
	assert.Equal(t, 1200, img.Bounds().Dx())
}
