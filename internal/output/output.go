package output

import (
	"context"
	"time"
)

// Broadcast event names.
const (
	EventInitialEarthquakes = "initial_earthquakes"
	EventInitialPredictions = "initial_predictions"
	EventEarthquakeUpdate   = "earthquake_update"
	EventPredictionResult   = "prediction_result"
)

// Message is one broadcast. Data is any JSON-encodable payload.
type Message struct {
	Event string
	Data  any
	Time  time.Time
}

// NewMessage stamps a broadcast with the current time.
func NewMessage(event string, data any) Message {
	return Message{Event: event, Data: data, Time: time.Now().UTC()}
}

// Output defines the interface for broadcast destinations.
type Output interface {
	Write(ctx context.Context, msg Message) error
	Close() error
}
