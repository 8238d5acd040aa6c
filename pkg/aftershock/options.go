package aftershock

import (
	"path/filepath"

	"github.com/hejijunhao/aftershock/internal/engine/scorer"
)

// Regressor evaluates one trained model on the feature vector
// (magnitude, depth, latitude, longitude).
type Regressor interface {
	Predict(features [4]float32) (float64, error)
	Close() error
}

type options struct {
	modelDir      string
	magnitudePath string
	timingPath    string
	magnitude     Regressor
	timing        Regressor
}

// Option configures a Predictor.
type Option func(*options)

// WithModelDir sets the directory containing the model files.
// Expects: aftershock_magnitude.onnx, aftershock_time.onnx and the ONNX
// Runtime shared library. Default: "models".
func WithModelDir(dir string) Option {
	return func(o *options) {
		o.modelDir = dir
	}
}

// WithModelPaths sets explicit paths for each model file.
// Use this when model files aren't in the default directory layout.
func WithModelPaths(magnitude, timing string) Option {
	return func(o *options) {
		o.magnitudePath = magnitude
		o.timingPath = timing
	}
}

// WithRegressors uses already constructed regressors instead of loading
// ONNX files. The Predictor takes ownership and closes them.
func WithRegressors(magnitude, timing Regressor) Option {
	return func(o *options) {
		o.magnitude = magnitude
		o.timing = timing
	}
}

// resolvePaths determines the model file paths from the configured
// options. Explicit paths take precedence over modelDir.
func resolvePaths(o options) (magnitude, timing string) {
	if o.magnitudePath != "" {
		return o.magnitudePath, o.timingPath
	}
	dir := o.modelDir
	if dir == "" {
		dir = "models"
	}
	return filepath.Join(dir, scorer.MagnitudeModelFile),
		filepath.Join(dir, scorer.TimingModelFile)
}
