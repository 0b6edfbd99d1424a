package domain

import (
	"context"
)

// DataRepository defines the interface for result persistence
// This follows the Dependency Inversion Principle - domain defines the interface
type DataRepository interface {
	// SavePredictionLog persists a crop recommendation and its inputs
	SavePredictionLog(ctx context.Context, features CropFeatures, crop string) error

	// SaveSoilClassification persists a soil analysis
	SaveSoilClassification(ctx context.Context, sessionID string, result SoilClassification) error

	// SaveDiseaseDiagnosis persists a disease analysis
	SaveDiseaseDiagnosis(ctx context.Context, sessionID string, result DiseaseDiagnosis) error

	// GetRecentPredictions returns the newest recommendations first
	GetRecentPredictions(ctx context.Context, limit int) ([]PredictionLog, error)

	// Health checks database connectivity
	Health(ctx context.Context) error
}

// ImageArchive keeps a copy of uploaded images
type ImageArchive interface {
	// Store saves the upload under key
	Store(ctx context.Context, key string, upload ImageUpload) error
}
