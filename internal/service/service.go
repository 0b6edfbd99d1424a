package service

import (
	"context"

	"github.com/farmbud/backend/internal/domain"
)

// DataRepository is re-exported from domain for convenience
type DataRepository = domain.DataRepository

// WeatherFetcher returns the current weather at a coordinate
type WeatherFetcher interface {
	FetchWeather(ctx context.Context, lat, lon float64) (domain.WeatherReading, error)
}

// PlaceSuggester answers debounced autocomplete queries for a session
type PlaceSuggester interface {
	Suggest(ctx context.Context, sessionID, query string) ([]domain.GeoSuggestion, error)
}

// SoilClassifier analyzes a soil image
type SoilClassifier interface {
	ClassifySoil(ctx context.Context, upload domain.ImageUpload) (domain.SoilClassification, error)
}

// DiseaseClassifier analyzes a leaf image
type DiseaseClassifier interface {
	ClassifyDisease(ctx context.Context, upload domain.ImageUpload) (domain.DiseaseDiagnosis, error)
}

// CropRecommender maps the seven features to a crop label
type CropRecommender interface {
	Recommend(ctx context.Context, features domain.CropFeatures) (string, error)
}
