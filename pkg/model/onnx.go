package model

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

const (
	onnxInputDefault  = "float_input"
	onnxOutputDefault = "probabilities"
	onnxClassesMin    = 2
)

var ortMu sync.Mutex

// ONNXSpec points at an ONNX classifier exported next to the manifest.
type ONNXSpec struct {
	Path          string `json:"path"`
	Input         string `json:"input,omitempty"`
	Output        string `json:"output,omitempty"`
	PositiveIndex int    `json:"positive_index"`
}

// ONNXClassifier runs an exported classifier through ONNX Runtime.
// Run is safe for concurrent use on a single session.
type ONNXClassifier struct {
	session  *ort.DynamicAdvancedSession
	width    int
	classes  int
	positive int
	ownsEnv  bool
}

// NewONNXClassifier opens a session for the model at path. When libPath is
// set it is used as the ONNX Runtime shared library.
func NewONNXClassifier(path string, spec ONNXSpec, width int, libPath string) (*ONNXClassifier, error) {
	ortMu.Lock()
	defer ortMu.Unlock()

	owns := false
	if !ort.IsInitialized() {
		if libPath != "" {
			ort.SetSharedLibraryPath(libPath)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("error initializing onnx runtime: %w", err)
		}
		owns = true
	}

	c, err := openONNX(path, spec, width)
	if err != nil {
		if owns {
			if derr := ort.DestroyEnvironment(); derr != nil {
				slog.Debug("error destroying onnx environment", "error", derr)
			}
		}
		return nil, err
	}
	c.ownsEnv = owns
	return c, nil
}

func openONNX(path string, spec ONNXSpec, width int) (*ONNXClassifier, error) {
	input := spec.Input
	if input == "" {
		input = onnxInputDefault
	}
	output := spec.Output
	if output == "" {
		output = onnxOutputDefault
	}

	inputs, outputs, err := ort.GetInputOutputInfo(path)
	if err != nil {
		return nil, fmt.Errorf("error reading onnx model info %s: %w", path, err)
	}

	in, ok := findInfo(inputs, input)
	if !ok {
		return nil, fmt.Errorf("onnx model has no input %q", input)
	}
	if dims := in.Dimensions; len(dims) > 0 && dims[len(dims)-1] > 0 {
		width = int(dims[len(dims)-1])
	}
	if width < 1 {
		return nil, errors.New("onnx model input width is unknown")
	}

	out, ok := findInfo(outputs, output)
	if !ok {
		return nil, fmt.Errorf("onnx model has no output %q", output)
	}
	classes := onnxClassesMin
	if dims := out.Dimensions; len(dims) > 0 && dims[len(dims)-1] > 0 {
		classes = int(dims[len(dims)-1])
	}
	if spec.PositiveIndex < 0 || spec.PositiveIndex >= classes {
		return nil, fmt.Errorf("positive class index %d outside %d classes", spec.PositiveIndex, classes)
	}

	s, err := ort.NewDynamicAdvancedSession(path, []string{input}, []string{output}, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating onnx session: %w", err)
	}

	return &ONNXClassifier{
		session:  s,
		width:    width,
		classes:  classes,
		positive: spec.PositiveIndex,
	}, nil
}

func findInfo(list []ort.InputOutputInfo, name string) (ort.InputOutputInfo, bool) {
	for _, i := range list {
		if i.Name == name {
			return i, true
		}
	}
	return ort.InputOutputInfo{}, false
}

func (c *ONNXClassifier) InputWidth() int {
	return c.width
}

func (c *ONNXClassifier) PositiveProbability(x []float64) (float64, error) {
	if len(x) != c.width {
		return 0, fmt.Errorf("expected %d features, got %d", c.width, len(x))
	}

	data := make([]float32, len(x))
	for i, v := range x {
		data[i] = float32(v)
	}

	in, err := ort.NewTensor(ort.NewShape(1, int64(c.width)), data)
	if err != nil {
		return 0, fmt.Errorf("error creating input tensor: %w", err)
	}
	defer in.Destroy()

	out, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(c.classes)))
	if err != nil {
		return 0, fmt.Errorf("error creating output tensor: %w", err)
	}
	defer out.Destroy()

	if err := c.session.Run([]ort.Value{in}, []ort.Value{out}); err != nil {
		return 0, fmt.Errorf("error running onnx session: %w", err)
	}

	return float64(out.GetData()[c.positive]), nil
}

func (c *ONNXClassifier) Close() error {
	ortMu.Lock()
	defer ortMu.Unlock()

	var err error
	if c.session != nil {
		err = c.session.Destroy()
		c.session = nil
	}
	if c.ownsEnv {
		err = errors.Join(err, ort.DestroyEnvironment())
		c.ownsEnv = false
	}
	return err
}
