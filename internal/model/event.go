package model

// Event is the normalized representation of one seismic report. Events are
// values: once stored in history they are only ever replaced, never mutated.
type Event struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Date        string      `json:"date"`
	DateTime    string      `json:"datetime"` // upstream timestamp, verbatim
	Magnitude   float64     `json:"magnitude"`
	Depth       float64     `json:"depth"` // km
	Coordinates Coordinates `json:"coordinates"`
	ClosestCity string      `json:"closest_city"`
	Airports    []Airport   `json:"airports"`
}

// Coordinates is a GeoJSON position: longitude first, then latitude.
type Coordinates [2]float64

// Longitude returns the first component.
func (c Coordinates) Longitude() float64 { return c[0] }

// Latitude returns the second component.
func (c Coordinates) Latitude() float64 { return c[1] }

// Airport is a nearby airport with its distance already converted to km.
type Airport struct {
	Name       string  `json:"name"`
	Code       string  `json:"code"`
	DistanceKM float64 `json:"distance_km"`
}

// EventUpdate is the earthquake_update payload: the event plus the
// prediction made for it, or null when none was made.
type EventUpdate struct {
	Event
	Prediction *Prediction `json:"prediction"`
}
