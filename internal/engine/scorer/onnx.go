package scorer

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// Model file names inside the model directory.
const (
	MagnitudeModelFile = "aftershock_magnitude.onnx"
	TimingModelFile    = "aftershock_time.onnx"
	runtimeLibFile     = "libonnxruntime.so"
)

// ortEnv manages global ONNX Runtime initialization (process-wide singleton).
var ortEnv struct {
	once sync.Once
	err  error
}

func initORT(libPath string) error {
	ortEnv.once.Do(func() {
		ort.SetSharedLibraryPath(libPath)
		ortEnv.err = ort.InitializeEnvironment()
	})
	return ortEnv.err
}

// onnxRegressor evaluates a single-output regression model.
type onnxRegressor struct {
	mu         sync.Mutex
	session    *ort.DynamicAdvancedSession
	inputName  string
	outputName string
}

// NewONNXRegressor loads a regression model whose single input is a [1,4]
// float32 tensor. The ONNX Runtime library is expected next to the model.
func NewONNXRegressor(modelPath string) (Regressor, error) {
	libPath := filepath.Join(filepath.Dir(modelPath), runtimeLibFile)
	if err := initORT(libPath); err != nil {
		return nil, fmt.Errorf("onnx: failed to initialize runtime: %w", err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to read model info: %w", err)
	}
	if len(inputs) != 1 {
		return nil, fmt.Errorf("onnx: expected 1 input, got %d", len(inputs))
	}
	if dims := inputs[0].Dimensions; len(dims) != 2 || dims[1] != 4 {
		return nil, fmt.Errorf("onnx: expected [batch, 4] input, got %v", dims)
	}
	if len(outputs) == 0 {
		return nil, fmt.Errorf("onnx: model has no outputs")
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create session options: %w", err)
	}
	defer opts.Destroy()
	opts.SetIntraOpNumThreads(1)
	opts.SetInterOpNumThreads(1)

	session, err := ort.NewDynamicAdvancedSession(
		modelPath,
		[]string{inputs[0].Name},
		[]string{outputs[0].Name},
		opts,
	)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create session: %w", err)
	}

	return &onnxRegressor{
		session:    session,
		inputName:  inputs[0].Name,
		outputName: outputs[0].Name,
	}, nil
}

// Predict runs one inference and returns the first output value.
func (r *onnxRegressor) Predict(features [4]float32) (float64, error) {
	in, err := ort.NewTensor(ort.NewShape(1, 4), features[:])
	if err != nil {
		return 0, fmt.Errorf("onnx: failed to create input tensor: %w", err)
	}
	defer in.Destroy()

	r.mu.Lock()
	defer r.mu.Unlock()

	// A nil output is allocated by the runtime.
	outputs := []ort.Value{nil}
	if err := r.session.Run([]ort.Value{in}, outputs); err != nil {
		return 0, fmt.Errorf("onnx: inference failed: %w", err)
	}
	defer outputs[0].Destroy()

	switch t := outputs[0].(type) {
	case *ort.Tensor[float32]:
		data := t.GetData()
		if len(data) == 0 {
			return 0, fmt.Errorf("onnx: empty output %q", r.outputName)
		}
		return float64(data[0]), nil
	case *ort.Tensor[float64]:
		data := t.GetData()
		if len(data) == 0 {
			return 0, fmt.Errorf("onnx: empty output %q", r.outputName)
		}
		return data[0], nil
	default:
		return 0, fmt.Errorf("onnx: unsupported output type %T", outputs[0])
	}
}

func (r *onnxRegressor) Close() error {
	return r.session.Destroy()
}

// Load opens both regressors from dir. A missing model file leaves that
// regressor unloaded, so predictions fail with MODEL_NOT_TRAINED; any other
// load failure is returned.
func Load(dir string) (*Scorer, error) {
	magnitude, err := LoadRegressor(filepath.Join(dir, MagnitudeModelFile))
	if err != nil {
		return nil, err
	}
	timing, err := LoadRegressor(filepath.Join(dir, TimingModelFile))
	if err != nil {
		if magnitude != nil {
			magnitude.Close()
		}
		return nil, err
	}
	return New(magnitude, timing), nil
}

// LoadRegressor opens the ONNX model at path. A missing file yields a nil
// Regressor and no error.
func LoadRegressor(path string) (Regressor, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	r, err := NewONNXRegressor(path)
	if err != nil {
		return nil, fmt.Errorf("scorer: loading %s: %w", filepath.Base(path), err)
	}
	return r, nil
}
