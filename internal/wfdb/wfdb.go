// Package wfdb 实现WFDB格式心电记录的读取(头文件 + 16位采样文件)。
// 伴随文件一律从base path解析,不信任头文件内声明的记录名,
// 因此重命名后的上传文件无需改写头文件即可读取。
package wfdb

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// WFDB默认采样率
const defaultSampleRate = 250.0

// MissingFileError 伴随文件缺失错误,区分头文件和信号文件
type MissingFileError struct {
	Path string
	Kind string // header, signal
}

// Error 实现error接口
func (e *MissingFileError) Error() string {
	return fmt.Sprintf("missing %s file: %s", e.Kind, filepath.Base(e.Path))
}

// IsMissingHeader 判断是否为头文件缺失错误
func IsMissingHeader(err error) bool {
	var mfe *MissingFileError
	return errors.As(err, &mfe) && mfe.Kind == "header"
}

// IsMissingFile 判断是否为伴随文件缺失错误
func IsMissingFile(err error) bool {
	var mfe *MissingFileError
	return errors.As(err, &mfe)
}

// SignalSpec 头文件中单个信号的描述
type SignalSpec struct {
	FileName    string
	Format      int
	Gain        float64
	Baseline    int
	Units       string
	Description string
}

// Header WFDB头文件内容
type Header struct {
	RecordName string
	NumSignals int
	SampleRate float64
	NumSamples int
	Signals    []SignalSpec
}

// Record 读取后的记录,信号值为物理单位
type Record struct {
	Header *Header
	// Signal[i][j] 为第j个通道的第i个采样
	Signal [][]float64
}

// Channel 返回指定通道的全部采样
func (r *Record) Channel(idx int) []float64 {
	out := make([]float64, len(r.Signal))
	for i := range r.Signal {
		out[i] = r.Signal[i][idx]
	}
	return out
}

// SampleRate 返回记录采样率
func (r *Record) SampleRate() float64 {
	return r.Header.SampleRate
}

// ReadHeader 解析头文件
func ReadHeader(path string) (*Header, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &MissingFileError{Path: path, Kind: "header"}
		}
		return nil, fmt.Errorf("failed to open header file: %w", err)
	}
	defer f.Close()

	hdr := &Header{SampleRate: defaultSampleRate}
	scanner := bufio.NewScanner(f)
	lineNo := 0

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		// 跳过空行和注释行
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if lineNo == 0 {
			if err := parseRecordLine(line, hdr); err != nil {
				return nil, err
			}
		} else if lineNo <= hdr.NumSignals {
			spec, err := parseSignalLine(line)
			if err != nil {
				return nil, err
			}
			hdr.Signals = append(hdr.Signals, spec)
		}
		lineNo++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read header file: %w", err)
	}

	if lineNo == 0 {
		return nil, fmt.Errorf("empty header file: %s", filepath.Base(path))
	}
	if len(hdr.Signals) < hdr.NumSignals {
		return nil, fmt.Errorf("header declares %d signals but describes %d", hdr.NumSignals, len(hdr.Signals))
	}

	return hdr, nil
}

// parseRecordLine 解析记录行: name nsig [fs [nsamples]]
func parseRecordLine(line string, hdr *Header) error {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return fmt.Errorf("invalid record line: %q", line)
	}

	// 记录名可携带 /每帧采样数 后缀
	hdr.RecordName = strings.SplitN(fields[0], "/", 2)[0]

	nsig, err := strconv.Atoi(fields[1])
	if err != nil || nsig <= 0 {
		return fmt.Errorf("invalid signal count: %q", fields[1])
	}
	hdr.NumSignals = nsig

	if len(fields) >= 3 {
		// 采样率可携带 /计数频率(基准) 后缀
		fsField := strings.SplitN(fields[2], "/", 2)[0]
		fs, err := strconv.ParseFloat(fsField, 64)
		if err != nil || fs <= 0 {
			return fmt.Errorf("invalid sample rate: %q", fields[2])
		}
		hdr.SampleRate = fs
	}
	if len(fields) >= 4 {
		n, err := strconv.Atoi(fields[3])
		if err != nil || n < 0 {
			return fmt.Errorf("invalid sample count: %q", fields[3])
		}
		hdr.NumSamples = n
	}

	return nil
}

// parseSignalLine 解析信号行: filename format gain(baseline)/units ...
func parseSignalLine(line string) (SignalSpec, error) {
	spec := SignalSpec{Gain: 200, Units: "mV"}

	fields := strings.Fields(line)
	if len(fields) < 2 {
		return spec, fmt.Errorf("invalid signal line: %q", line)
	}
	spec.FileName = fields[0]

	// 格式字段可携带 xN/:N/+N 修饰
	formatField := strings.FieldsFunc(fields[1], func(r rune) bool {
		return r == 'x' || r == ':' || r == '+'
	})[0]
	format, err := strconv.Atoi(formatField)
	if err != nil {
		return spec, fmt.Errorf("invalid signal format: %q", fields[1])
	}
	spec.Format = format

	if len(fields) >= 3 {
		if err := parseGainField(fields[2], &spec); err != nil {
			return spec, err
		}
	}
	if len(fields) >= 9 {
		spec.Description = strings.Join(fields[8:], " ")
	}

	return spec, nil
}

// parseGainField 解析增益字段 gain(baseline)/units
func parseGainField(field string, spec *SignalSpec) error {
	gainPart := field
	if idx := strings.Index(field, "/"); idx >= 0 {
		gainPart = field[:idx]
		spec.Units = field[idx+1:]
	}
	if idx := strings.Index(gainPart, "("); idx >= 0 {
		end := strings.Index(gainPart, ")")
		if end < idx {
			return fmt.Errorf("invalid gain field: %q", field)
		}
		baseline, err := strconv.Atoi(gainPart[idx+1 : end])
		if err != nil {
			return fmt.Errorf("invalid baseline: %q", field)
		}
		spec.Baseline = baseline
		gainPart = gainPart[:idx]
	}

	gain, err := strconv.ParseFloat(gainPart, 64)
	if err != nil {
		return fmt.Errorf("invalid gain: %q", field)
	}
	if gain != 0 {
		spec.Gain = gain
	}
	return nil
}

// ReadRecord 读取完整记录。basePath为去掉扩展名的上传文件绝对路径,
// 必须保留原始目录,头文件和信号文件都从它解析。
func ReadRecord(basePath string) (*Record, error) {
	hdr, err := ReadHeader(basePath + ".hea")
	if err != nil {
		return nil, err
	}

	signalPath := basePath + ".dat"
	f, err := os.Open(signalPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &MissingFileError{Path: signalPath, Kind: "signal"}
		}
		return nil, fmt.Errorf("failed to open signal file: %w", err)
	}
	defer f.Close()

	for _, spec := range hdr.Signals {
		if spec.Format != 16 {
			return nil, fmt.Errorf("unsupported signal format %d (only format 16 is supported)", spec.Format)
		}
	}

	samples, err := readFormat16(f, hdr.NumSignals, hdr.NumSamples)
	if err != nil {
		return nil, fmt.Errorf("failed to decode signal file %s: %w", filepath.Base(signalPath), err)
	}

	// ADC计数转物理单位
	signal := make([][]float64, len(samples))
	for i, frame := range samples {
		row := make([]float64, hdr.NumSignals)
		for ch := 0; ch < hdr.NumSignals; ch++ {
			spec := hdr.Signals[ch]
			row[ch] = (float64(frame[ch]) - float64(spec.Baseline)) / spec.Gain
		}
		signal[i] = row
	}

	return &Record{Header: hdr, Signal: signal}, nil
}

// readFormat16 读取16位小端补码采样,按通道交错存放
func readFormat16(r io.Reader, numSignals, numSamples int) ([][]int16, error) {
	br := bufio.NewReader(r)
	var frames [][]int16
	buf := make([]byte, 2*numSignals)

	for {
		if numSamples > 0 && len(frames) >= numSamples {
			break
		}
		_, err := io.ReadFull(br, buf)
		if err == io.EOF {
			break
		}
		if err == io.ErrUnexpectedEOF {
			// 尾部不完整的帧丢弃
			break
		}
		if err != nil {
			return nil, err
		}

		frame := make([]int16, numSignals)
		for ch := 0; ch < numSignals; ch++ {
			frame[ch] = int16(binary.LittleEndian.Uint16(buf[2*ch:]))
		}
		frames = append(frames, frame)
	}

	if len(frames) == 0 {
		return nil, fmt.Errorf("signal file contains no samples")
	}

	return frames, nil
}
