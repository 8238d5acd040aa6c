// Package scorer wraps the two aftershock regressors behind a validating,
// crash-free prediction contract.
package scorer

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/hejijunhao/aftershock/internal/model"
)

const (
	algorithm      = "LightGBM"
	predictionType = "Regression"

	longTimeHours  = 24 * 30
	shortTimeHours = 0.1
)

// Warning texts attached to successful predictions.
const (
	WarnExceedsMainshock = "Predicted aftershock magnitude is higher than mainshock - this is unusual"
	WarnUnusuallyLong    = "Predicted time is unusually long (>30 days)"
	WarnVeryShort        = "Predicted time is very short (<6 minutes)"
)

// Regressor evaluates one trained model on the feature vector
// (magnitude, depth, latitude, longitude).
type Regressor interface {
	Predict(features [4]float32) (float64, error)
	Close() error
}

// Input is a mainshock to score.
type Input struct {
	Magnitude float64
	Depth     float64 // km
	Latitude  float64
	Longitude float64
}

// InputFromEvent builds the scoring input of a feed event.
func InputFromEvent(e model.Event) Input {
	return Input{
		Magnitude: e.Magnitude,
		Depth:     e.Depth,
		Latitude:  e.Coordinates.Latitude(),
		Longitude: e.Coordinates.Longitude(),
	}
}

// Scorer produces predictions. The magnitude regressor predicts the first
// aftershock magnitude; the timing regressor predicts log1p(hours) until it.
// Safe for concurrent use if the regressors are.
type Scorer struct {
	magnitude Regressor
	timing    Regressor
}

// New creates a Scorer. Either regressor may be nil, in which case every
// prediction fails with MODEL_NOT_TRAINED.
func New(magnitude, timing Regressor) *Scorer {
	return &Scorer{magnitude: magnitude, timing: timing}
}

// Ready reports whether both regressors are loaded.
func (s *Scorer) Ready() bool {
	return s.magnitude != nil && s.timing != nil
}

// Status reports which regressors are loaded.
func (s *Scorer) Status() model.ModelStatus {
	st := model.ModelStatus{
		MagnitudeModelTrained: s.magnitude != nil,
		TimeModelTrained:      s.timing != nil,
		BothModelsReady:       s.Ready(),
	}
	if s.magnitude != nil {
		t := algorithm
		st.ModelType = &t
	}
	return st
}

// Score predicts the first aftershock of a typed input.
func (s *Scorer) Score(in Input) model.Prediction {
	return s.ScoreValues(in.Magnitude, in.Depth, in.Latitude, in.Longitude)
}

// ScoreValues predicts the first aftershock from loosely typed values, as
// decoded from JSON. Checks run in a fixed order and the first failure is
// reported: model availability, numeric types, then the ranges of
// magnitude, depth, latitude and longitude.
func (s *Scorer) ScoreValues(magnitude, depth, latitude, longitude any) (p model.Prediction) {
	defer func() {
		if r := recover(); r != nil {
			p = model.Failed(model.ErrPrediction, fmt.Sprintf("An unexpected error occurred: %v", r))
		}
	}()

	if !s.Ready() {
		return model.Failed(model.ErrModelNotTrained, "Models are not trained yet. Please train the models first.")
	}

	var in Input
	var ok [4]bool
	in.Magnitude, ok[0] = toFloat(magnitude)
	in.Depth, ok[1] = toFloat(depth)
	in.Latitude, ok[2] = toFloat(latitude)
	in.Longitude, ok[3] = toFloat(longitude)
	if !(ok[0] && ok[1] && ok[2] && ok[3]) {
		return model.Failed(model.ErrInvalidInputType, "All input parameters must be numeric values.")
	}

	if failed, bad := validate(in); bad {
		return failed
	}
	return s.predict(in)
}

// validate applies the range checks. NaN fails every range.
func validate(in Input) (model.Prediction, bool) {
	switch {
	case !(in.Magnitude >= 0 && in.Magnitude <= 10):
		return model.Failed(model.ErrInvalidMagnitude, "Magnitude must be between 0 and 10."), true
	case !(in.Depth >= 0 && in.Depth <= 1000):
		return model.Failed(model.ErrInvalidDepth, "Depth must be between 0 and 1000 km."), true
	case !(in.Latitude >= -90 && in.Latitude <= 90):
		return model.Failed(model.ErrInvalidLatitude, "Latitude must be between -90 and 90 degrees."), true
	case !(in.Longitude >= -180 && in.Longitude <= 180):
		return model.Failed(model.ErrInvalidLongitude, "Longitude must be between -180 and 180 degrees."), true
	}
	return model.Prediction{}, false
}

func (s *Scorer) predict(in Input) model.Prediction {
	features := [4]float32{
		float32(in.Magnitude),
		float32(in.Depth),
		float32(in.Latitude),
		float32(in.Longitude),
	}

	predictedMag, err := s.magnitude.Predict(features)
	if err != nil {
		return unexpected(err)
	}
	timeLog, err := s.timing.Predict(features)
	if err != nil {
		return unexpected(err)
	}
	if !finite(predictedMag) || !finite(timeLog) {
		return unexpected(fmt.Errorf("regressor returned a non-finite value (magnitude=%v, time=%v)", predictedMag, timeLog))
	}

	hours := math.Max(0, math.Expm1(timeLog))
	minutes := hours * 60

	warnings := []string{}
	if predictedMag > in.Magnitude {
		warnings = append(warnings, WarnExceedsMainshock)
	}
	if hours > longTimeHours {
		warnings = append(warnings, WarnUnusuallyLong)
	}
	if hours < shortTimeHours {
		warnings = append(warnings, WarnVeryShort)
	}

	return model.Prediction{
		Success: true,
		Input: &model.PredictionInput{
			MainshockMagnitude: in.Magnitude,
			MainshockDepthKM:   in.Depth,
			MainshockLatitude:  in.Latitude,
			MainshockLongitude: in.Longitude,
		},
		Predictions: &model.PredictionValues{
			AftershockMagnitude: model.MagnitudeValue{Value: round(predictedMag, 2)},
			TimeToAftershock:    model.DurationValue{Minutes: round(minutes, 1)},
		},
		ModelInfo: &model.ModelInfo{Algorithm: algorithm, PredictionType: predictionType},
		Warnings:  warnings,
	}
}

// Close releases both regressors.
func (s *Scorer) Close() error {
	var firstErr error
	for _, r := range []Regressor{s.magnitude, s.timing} {
		if r == nil {
			continue
		}
		if err := r.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func unexpected(err error) model.Prediction {
	return model.Failed(model.ErrPrediction, "An unexpected error occurred: "+err.Error())
}

func round(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// toFloat accepts the numeric shapes produced by encoding/json and Go callers.
// Booleans and strings are not numbers.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
