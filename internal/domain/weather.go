package domain

import "time"

// Coordinates is a WGS84 point
type Coordinates struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

// WeatherReading is the normalized current weather for one coordinate
type WeatherReading struct {
	Temperature      float64     `json:"temperature"`
	Humidity         float64     `json:"humidity"`
	RainfallLastHour float64     `json:"rainfall"`
	Place            string      `json:"place,omitempty"`
	Position         Coordinates `json:"position"`
	Timestamp        time.Time   `json:"timestamp"`
}

// WeatherResponse wraps a weather reading with metadata
type WeatherResponse struct {
	Data    WeatherReading `json:"data"`
	Success bool           `json:"success"`
	Message string         `json:"message,omitempty"`
}
