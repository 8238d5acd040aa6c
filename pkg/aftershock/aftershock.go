package aftershock

import (
	"fmt"

	"github.com/hejijunhao/aftershock/internal/engine/scorer"
)

// Predictor forecasts first aftershocks. Safe for concurrent use.
type Predictor struct {
	scorer *scorer.Scorer
}

// New creates a Predictor. Model files that do not exist leave the
// Predictor unready: every Predict call then fails with
// CodeModelNotTrained. Files that exist but cannot be loaded are an error.
func New(opts ...Option) (*Predictor, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if o.magnitude != nil || o.timing != nil {
		return &Predictor{scorer: scorer.New(o.magnitude, o.timing)}, nil
	}

	magPath, timePath := resolvePaths(o)
	magnitude, err := loadRegressor(magPath)
	if err != nil {
		return nil, err
	}
	timing, err := loadRegressor(timePath)
	if err != nil {
		if magnitude != nil {
			magnitude.Close()
		}
		return nil, err
	}
	return &Predictor{scorer: scorer.New(magnitude, timing)}, nil
}

func loadRegressor(path string) (scorer.Regressor, error) {
	if path == "" {
		return nil, nil
	}
	r, err := scorer.LoadRegressor(path)
	if err != nil {
		return nil, fmt.Errorf("aftershock: %w", err)
	}
	return r, nil
}

// Predict forecasts the first aftershock of in. The returned error is a
// *PredictionError.
func (p *Predictor) Predict(in Input) (Prediction, error) {
	return fromInternal(p.scorer.Score(scorer.Input(in)))
}

// PredictBatch forecasts every input independently. One failing input
// never affects the others.
func (p *Predictor) PredictBatch(inputs []Input) []BatchResult {
	results := make([]BatchResult, len(inputs))
	for i, in := range inputs {
		results[i].Prediction, results[i].Err = p.Predict(in)
	}
	return results
}

// Status reports which models are loaded.
func (p *Predictor) Status() Status {
	st := p.scorer.Status()
	return Status{
		MagnitudeModel: st.MagnitudeModelTrained,
		TimingModel:    st.TimeModelTrained,
		Ready:          st.BothModelsReady,
	}
}

// Close releases model resources (ONNX runtime sessions).
func (p *Predictor) Close() error {
	return p.scorer.Close()
}
