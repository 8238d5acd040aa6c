package model

// Snapshot is the upstream feed envelope. Result is ordered newest first.
type Snapshot struct {
	Status bool     `json:"status"`
	Result []Record `json:"result"`
}

// Record is one raw upstream entry, as served by the Kandilli live feed.
type Record struct {
	ID       string             `json:"_id"`
	Title    string             `json:"title"`
	Date     string             `json:"date"`
	DateTime string             `json:"date_time"`
	Mag      float64            `json:"mag"`
	Depth    float64            `json:"depth"`
	GeoJSON  GeoJSON            `json:"geojson"`
	Location LocationProperties `json:"location_properties"`
}

// GeoJSON holds the point geometry of a record.
type GeoJSON struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"` // [lon, lat]
}

// LocationProperties carries the derived place information of a record.
type LocationProperties struct {
	ClosestCity Place        `json:"closestCity"`
	Airports    []RawAirport `json:"airports"`
}

// Place is a named location.
type Place struct {
	Name string `json:"name"`
}

// RawAirport is an upstream airport entry; Distance is in meters.
type RawAirport struct {
	Name     string  `json:"name"`
	Code     string  `json:"code"`
	Distance float64 `json:"distance"`
}
