package model

import "encoding/json"

// ErrorCode identifies why a prediction could not be produced.
type ErrorCode string

const (
	ErrModelNotTrained    ErrorCode = "MODEL_NOT_TRAINED"
	ErrInvalidInputType   ErrorCode = "INVALID_INPUT_TYPE"
	ErrInvalidMagnitude   ErrorCode = "INVALID_MAGNITUDE"
	ErrInvalidDepth       ErrorCode = "INVALID_DEPTH"
	ErrInvalidLatitude    ErrorCode = "INVALID_LATITUDE"
	ErrInvalidLongitude   ErrorCode = "INVALID_LONGITUDE"
	ErrPrediction         ErrorCode = "PREDICTION_ERROR"
	ErrBatchPrediction    ErrorCode = "BATCH_PREDICTION_ERROR"
	ErrInvalidInputFormat ErrorCode = "INVALID_INPUT_FORMAT"
)

// Prediction is the result of scoring one mainshock. On success Input,
// Predictions, ModelInfo and Warnings are set; on failure ErrorCode and
// Error are. EventID and EventTimestamp are only set once the prediction
// is attached to a feed event.
type Prediction struct {
	Success     bool              `json:"success"`
	Input       *PredictionInput  `json:"input,omitempty"`
	Predictions *PredictionValues `json:"predictions,omitempty"`
	ModelInfo   *ModelInfo        `json:"model_info,omitempty"`
	Warnings    []string          `json:"warnings,omitempty"`
	ErrorCode   ErrorCode         `json:"error_code,omitempty"`
	Error       string            `json:"error,omitempty"`

	EventID        string `json:"id,omitempty"`
	EventTimestamp string `json:"timestamp,omitempty"`
}

// PredictionInput echoes the mainshock parameters that were scored.
type PredictionInput struct {
	MainshockMagnitude float64 `json:"mainshock_magnitude"`
	MainshockDepthKM   float64 `json:"mainshock_depth_km"`
	MainshockLatitude  float64 `json:"mainshock_latitude"`
	MainshockLongitude float64 `json:"mainshock_longitude"`
}

// PredictionValues holds the rounded model outputs.
type PredictionValues struct {
	AftershockMagnitude MagnitudeValue `json:"aftershock_magnitude"`
	TimeToAftershock    DurationValue  `json:"time_to_aftershock"`
}

// MagnitudeValue is the predicted aftershock magnitude, 2 decimals.
type MagnitudeValue struct {
	Value float64 `json:"value"`
}

// DurationValue is the predicted time to the first aftershock, 1 decimal.
type DurationValue struct {
	Minutes float64 `json:"minutes"`
}

// ModelInfo describes the models behind a prediction.
type ModelInfo struct {
	Algorithm      string `json:"algorithm"`
	PredictionType string `json:"prediction_type"`
}

// Failed builds an unsuccessful prediction.
func Failed(code ErrorCode, msg string) Prediction {
	return Prediction{Success: false, ErrorCode: code, Error: msg}
}

// PredictedMagnitude returns the aftershock magnitude of a successful prediction.
func (p Prediction) PredictedMagnitude() (float64, bool) {
	if !p.Success || p.Predictions == nil {
		return 0, false
	}
	return p.Predictions.AftershockMagnitude.Value, true
}

// AttachTo returns a copy of p that references the given event.
func (p Prediction) AttachTo(e Event) Prediction {
	p.EventID = e.ID
	p.EventTimestamp = e.DateTime
	if p.Warnings != nil {
		p.Warnings = append([]string(nil), p.Warnings...)
	}
	return p
}

// MarshalJSON always emits a warnings array on success, and omits it on failure.
func (p Prediction) MarshalJSON() ([]byte, error) {
	type alias Prediction
	if !p.Success {
		return json.Marshal(alias(p))
	}
	warnings := p.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	return json.Marshal(struct {
		alias
		Warnings []string `json:"warnings"`
	}{alias: alias(p), Warnings: warnings})
}
