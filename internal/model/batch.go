package model

import "encoding/json"

// BatchItem is one entry of a batch prediction.
type BatchItem struct {
	Prediction
	Index        int
	EarthquakeID any // echoed "id" of the input item, if present
}

// MarshalJSON flattens the prediction and appends index and earthquake_id.
func (b BatchItem) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(b.Prediction)
	if err != nil {
		return nil, err
	}
	fields := map[string]any{}
	if err := json.Unmarshal(base, &fields); err != nil {
		return nil, err
	}
	fields["index"] = b.Index
	if b.EarthquakeID != nil {
		fields["earthquake_id"] = b.EarthquakeID
	}
	return json.Marshal(fields)
}

// BatchResult is the response of a batch prediction.
type BatchResult struct {
	Success          bool        `json:"success"`
	TotalPredictions int         `json:"total_predictions,omitempty"`
	Predictions      []BatchItem `json:"predictions,omitempty"`
	ErrorCode        ErrorCode   `json:"error_code,omitempty"`
	Error            string      `json:"error,omitempty"`
}

// MarshalJSON always emits total_predictions and a predictions array on
// success, even for an empty batch, and omits both on failure.
func (r BatchResult) MarshalJSON() ([]byte, error) {
	type alias BatchResult
	if !r.Success {
		return json.Marshal(alias(r))
	}
	items := r.Predictions
	if items == nil {
		items = []BatchItem{}
	}
	return json.Marshal(struct {
		alias
		TotalPredictions int         `json:"total_predictions"`
		Predictions      []BatchItem `json:"predictions"`
	}{alias: alias(r), TotalPredictions: r.TotalPredictions, Predictions: items})
}

// ModelStatus reports which regressors are loaded.
type ModelStatus struct {
	MagnitudeModelTrained bool    `json:"magnitude_model_trained"`
	TimeModelTrained      bool    `json:"time_model_trained"`
	BothModelsReady       bool    `json:"both_models_ready"`
	ModelType             *string `json:"model_type"`
}
