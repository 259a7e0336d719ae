// Package ocr wraps an ONNX text-recognition model behind a small Engine
// interface and runs it on a fixed pool of workers, each owning a private
// engine instance. Sessions are never shared between goroutines.
package ocr

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	onnxrt "github.com/yalue/onnxruntime_go"
	"golang.org/x/sys/cpu"
)

var (
	// ErrImageDecode marks inputs that could not be decoded as an image.
	ErrImageDecode = errors.New("image decode failed")

	// ErrEngine marks recognition-runtime failures.
	ErrEngine = errors.New("ocr engine failure")
)

// Engine recognizes the text in an encoded image.
type Engine interface {
	Recognize(data []byte) (string, error)
	Close() error
}

// Config holds engine settings.
type Config struct {
	ModelPath  string
	DictPath   string
	NumThreads int // intra-op threads per session, 0 for runtime default
}

var onnxInitOnce sync.Once

// initRuntime initializes the ONNX Runtime environment once per process
// and logs the CPU capability hint.
func initRuntime() error {
	var initErr error
	onnxInitOnce.Do(func() {
		if !cpu.X86.HasAVX2 {
			slog.Warn("CPU lacks AVX2, recognition throughput will be limited")
		}
		if !onnxrt.IsInitialized() {
			initErr = onnxrt.InitializeEnvironment()
		}
	})
	if initErr != nil {
		return fmt.Errorf("initialize onnx runtime: %w", initErr)
	}
	return nil
}

// ONNXEngine is an Engine backed by an ONNX Runtime session.
// It is not safe for concurrent use; the pool gives each worker its own.
type ONNXEngine struct {
	config      Config
	session     *onnxrt.DynamicAdvancedSession
	charset     *Charset
	imageHeight int
}

// NewONNXEngine loads the model and dictionary and creates a session.
func NewONNXEngine(config Config) (*ONNXEngine, error) {
	if config.ModelPath == "" {
		return nil, errors.New("model path cannot be empty")
	}
	if config.DictPath == "" {
		return nil, errors.New("dictionary path cannot be empty")
	}
	if _, err := os.Stat(config.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", config.ModelPath)
	}
	if _, err := os.Stat(config.DictPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("dictionary file not found: %s", config.DictPath)
	}

	if err := initRuntime(); err != nil {
		return nil, err
	}

	inputs, outputs, err := onnxrt.GetInputOutputInfo(config.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get model input/output info: %w", err)
	}
	if len(inputs) != 1 {
		return nil, fmt.Errorf("expected 1 input, got %d", len(inputs))
	}
	if len(outputs) != 1 {
		return nil, fmt.Errorf("expected 1 output, got %d", len(outputs))
	}
	inputInfo := inputs[0]
	if len(inputInfo.Dimensions) != 4 {
		return nil, fmt.Errorf("expected 4D input tensor, got %dD", len(inputInfo.Dimensions))
	}

	// Input is [N, C, H, W]; adopt the model's fixed height when present.
	imageHeight := 48
	if h := inputInfo.Dimensions[2]; h > 0 {
		imageHeight = int(h)
	}

	charset, err := LoadCharset(config.DictPath)
	if err != nil {
		return nil, err
	}
	slog.Debug("dictionary loaded", "charset_size", charset.Size())

	sessionOptions, err := onnxrt.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer func() {
		if err := sessionOptions.Destroy(); err != nil {
			slog.Warn("destroying session options", "error", err)
		}
	}()
	if config.NumThreads > 0 {
		if err := sessionOptions.SetIntraOpNumThreads(config.NumThreads); err != nil {
			return nil, fmt.Errorf("failed to set thread count: %w", err)
		}
	}

	session, err := onnxrt.NewDynamicAdvancedSession(
		config.ModelPath,
		[]string{inputInfo.Name},
		[]string{outputs[0].Name},
		sessionOptions,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return &ONNXEngine{
		config:      config,
		session:     session,
		charset:     charset,
		imageHeight: imageHeight,
	}, nil
}

// Recognize decodes the image, splits it into text bands, and recognizes
// each band. Bands are joined with newlines; no text yields "".
func (e *ONNXEngine) Recognize(data []byte) (string, error) {
	img, err := DecodeImage(data)
	if err != nil {
		return "", err
	}
	img = ResizeIfNeeded(img)

	bands := segmentLines(img)
	lines := make([]string, 0, len(bands))
	for _, band := range bands {
		crop := imaging.Crop(img, bandRect(img, band))
		text, err := e.recognizeBand(crop)
		if err != nil {
			return "", err
		}
		text = strings.TrimSpace(text)
		if text != "" {
			lines = append(lines, text)
		}
	}
	return strings.Join(lines, "\n"), nil
}

func (e *ONNXEngine) recognizeBand(img image.Image) (string, error) {
	data, h, w := normalizeForRecognition(img, e.imageHeight)

	inputTensor, err := onnxrt.NewTensor(onnxrt.NewShape(1, 3, h, w), data)
	if err != nil {
		return "", fmt.Errorf("%w: create input tensor: %v", ErrEngine, err)
	}
	defer func() { _ = inputTensor.Destroy() }()

	outputs := []onnxrt.Value{nil}
	if err := e.session.Run([]onnxrt.Value{inputTensor}, outputs); err != nil {
		return "", fmt.Errorf("%w: inference: %v", ErrEngine, err)
	}
	defer func() {
		for _, o := range outputs {
			if o != nil {
				_ = o.Destroy()
			}
		}
	}()

	floatTensor, ok := outputs[0].(*onnxrt.Tensor[float32])
	if !ok {
		return "", fmt.Errorf("%w: expected float32 tensor, got %T", ErrEngine, outputs[0])
	}
	return decodeCTCGreedy(floatTensor.GetData(), floatTensor.GetShape(), e.charset), nil
}

// Close releases the session.
func (e *ONNXEngine) Close() error {
	if e.session != nil {
		if err := e.session.Destroy(); err != nil {
			slog.Warn("destroying session", "error", err)
		}
		e.session = nil
	}
	return nil
}

// decodeCTCGreedy collapses the [N, T, C] output with blank index 0:
// argmax per step, drop repeats and blanks, map through the charset.
func decodeCTCGreedy(data []float32, shape []int64, charset *Charset) string {
	if len(shape) < 3 {
		return ""
	}
	timeSteps := int(shape[1])
	classes := int(shape[2])
	if timeSteps <= 0 || classes <= 0 || len(data) < timeSteps*classes {
		return ""
	}

	var sb strings.Builder
	prev := -1
	for t := 0; t < timeSteps; t++ {
		best := 0
		bestScore := data[t*classes]
		for c := 1; c < classes; c++ {
			if s := data[t*classes+c]; s > bestScore {
				bestScore = s
				best = c
			}
		}
		if best != 0 && best != prev {
			// Index 0 is the CTC blank; dictionary starts at 1.
			sb.WriteString(charset.LookupToken(best - 1))
		}
		prev = best
	}
	return sb.String()
}
