package aftershock

import (
	"fmt"
	"time"

	"github.com/hejijunhao/aftershock/internal/model"
)

// Input describes a mainshock.
type Input struct {
	Magnitude float64 // 0..10
	Depth     float64 // km, 0..1000
	Latitude  float64 // degrees, -90..90
	Longitude float64 // degrees, -180..180
}

// Prediction is a successful forecast of the first aftershock.
// This is the stable public type; the internal wire shape may evolve
// independently.
type Prediction struct {
	Magnitude        float64       `json:"magnitude"`          // 2 decimals
	Minutes          float64       `json:"minutes"`            // 1 decimal
	TimeToAftershock time.Duration `json:"time_to_aftershock"` // Minutes as a duration
	Warnings         []string      `json:"warnings,omitempty"`
}

// Error codes reported by PredictionError.
const (
	CodeModelNotTrained  = string(model.ErrModelNotTrained)
	CodeInvalidMagnitude = string(model.ErrInvalidMagnitude)
	CodeInvalidDepth     = string(model.ErrInvalidDepth)
	CodeInvalidLatitude  = string(model.ErrInvalidLatitude)
	CodeInvalidLongitude = string(model.ErrInvalidLongitude)
	CodePrediction       = string(model.ErrPrediction)
)

// PredictionError is returned when a prediction could not be made.
type PredictionError struct {
	Code    string
	Message string
}

func (e *PredictionError) Error() string {
	return fmt.Sprintf("aftershock: %s: %s", e.Code, e.Message)
}

// Status reports which models are loaded.
type Status struct {
	MagnitudeModel bool `json:"magnitude_model"`
	TimingModel    bool `json:"timing_model"`
	Ready          bool `json:"ready"`
}

// BatchResult is one entry of PredictBatch. Exactly one of Prediction and
// Err is meaningful.
type BatchResult struct {
	Prediction Prediction
	Err        error
}

func fromInternal(p model.Prediction) (Prediction, error) {
	if !p.Success {
		return Prediction{}, &PredictionError{Code: string(p.ErrorCode), Message: p.Error}
	}
	out := Prediction{Warnings: p.Warnings}
	if p.Predictions != nil {
		out.Magnitude = p.Predictions.AftershockMagnitude.Value
		out.Minutes = p.Predictions.TimeToAftershock.Minutes
		out.TimeToAftershock = time.Duration(out.Minutes * float64(time.Minute))
	}
	return out, nil
}
