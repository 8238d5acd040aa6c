package scorer

import (
	"fmt"

	"github.com/hejijunhao/aftershock/internal/model"
)

var requiredFields = []string{"magnitude", "depth", "latitude", "longitude"}

// ScoreBatch scores a list of mainshocks decoded from JSON. Item shape
// problems are reported per item; only a non-list input fails the batch.
func (s *Scorer) ScoreBatch(data any) (res model.BatchResult) {
	defer func() {
		if r := recover(); r != nil {
			res = model.BatchResult{
				Success:   false,
				ErrorCode: model.ErrBatchPrediction,
				Error:     fmt.Sprintf("Batch prediction failed: %v", r),
			}
		}
	}()

	items, ok := data.([]any)
	if !ok {
		return model.BatchResult{
			Success:   false,
			ErrorCode: model.ErrInvalidInputFormat,
			Error:     "earthquake_data must be a list of dictionaries",
		}
	}

	res = model.BatchResult{
		Success:          true,
		TotalPredictions: len(items),
		Predictions:      make([]model.BatchItem, 0, len(items)),
	}
	for i, raw := range items {
		fields, ok := raw.(map[string]any)
		if !ok {
			res.Predictions = append(res.Predictions, model.BatchItem{
				Prediction: model.Prediction{Error: "Each earthquake must be a dictionary"},
				Index:      i,
			})
			continue
		}
		if !hasAll(fields, requiredFields) {
			res.Predictions = append(res.Predictions, model.BatchItem{
				Prediction: model.Prediction{Error: fmt.Sprintf("Missing required fields. Required: %v", requiredFields)},
				Index:      i,
			})
			continue
		}

		p := s.ScoreValues(fields["magnitude"], fields["depth"], fields["latitude"], fields["longitude"])
		item := model.BatchItem{Prediction: p, Index: i}
		if id, ok := fields["id"]; ok {
			item.EarthquakeID = id
		}
		res.Predictions = append(res.Predictions, item)
	}
	return res
}

func hasAll(m map[string]any, keys []string) bool {
	for _, k := range keys {
		if _, ok := m[k]; !ok {
			return false
		}
	}
	return true
}
