package postgres

import (
	"context"
	"sync"
	"time"

	"github.com/farmbud/backend/internal/domain"
)

// mockHistorySize bounds the in-memory prediction history
const mockHistorySize = 100

// MockRepository implements domain.DataRepository for demo mode.
// Classifications are dropped; recommendations are kept in memory so the
// history endpoint still answers.
type MockRepository struct {
	mu          sync.Mutex
	predictions []domain.PredictionLog
}

// NewMockRepository creates a new mock repository
func NewMockRepository() *MockRepository {
	return &MockRepository{}
}

// SavePredictionLog keeps the recommendation in memory
func (r *MockRepository) SavePredictionLog(ctx context.Context, features domain.CropFeatures, crop string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.predictions = append(r.predictions, domain.PredictionLog{
		Features:  features,
		Crop:      crop,
		CreatedAt: time.Now(),
	})
	if len(r.predictions) > mockHistorySize {
		r.predictions = r.predictions[len(r.predictions)-mockHistorySize:]
	}
	return nil
}

// SaveSoilClassification is a no-op in mock mode
func (r *MockRepository) SaveSoilClassification(ctx context.Context, sessionID string, result domain.SoilClassification) error {
	return nil
}

// SaveDiseaseDiagnosis is a no-op in mock mode
func (r *MockRepository) SaveDiseaseDiagnosis(ctx context.Context, sessionID string, result domain.DiseaseDiagnosis) error {
	return nil
}

// GetRecentPredictions returns the newest in-memory recommendations first
func (r *MockRepository) GetRecentPredictions(ctx context.Context, limit int) ([]domain.PredictionLog, error) {
	if limit <= 0 {
		return []domain.PredictionLog{}, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.PredictionLog, 0, limit)
	for i := len(r.predictions) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.predictions[i])
	}
	return out, nil
}

// Health always returns nil in mock mode
func (r *MockRepository) Health(ctx context.Context) error {
	return nil
}
