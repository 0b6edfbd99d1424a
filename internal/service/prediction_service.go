package service

import (
	"context"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/farmbud/backend/internal/domain"
)

// SoilEstimateNotice accompanies a prefill that used default soil values
const SoilEstimateNotice = "The Nitrogen, Phosphorus, Potassium, and pH values have been pre-filled with common averages. For the most accurate results, please replace them with data from your own soil test kit."

// PredictionService backs the crop recommendation form
type PredictionService struct {
	recommender CropRecommender
	slot        domain.PrefillSlot
	repo        DataRepository
	log         *zap.Logger

	wgBg sync.WaitGroup // tracks background goroutines for graceful shutdown
}

// NewPredictionService creates a new prediction service
func NewPredictionService(recommender CropRecommender, slot domain.PrefillSlot, repo DataRepository, log *zap.Logger) *PredictionService {
	return &PredictionService{
		recommender: recommender,
		slot:        slot,
		repo:        repo,
		log:         log,
	}
}

// WaitBackground blocks until all background save goroutines complete.
func (s *PredictionService) WaitBackground() {
	s.wgBg.Wait()
}

// Prefill consumes the session's pending prefill, if any, and returns the
// initial form. Defaults sit beneath the pending values. Without a pending
// prefill every field is empty.
func (s *PredictionService) Prefill(ctx context.Context, sessionID string) (domain.PrefillResponse, error) {
	pending, err := s.slot.Take(ctx, sessionID)
	if err != nil {
		return domain.PrefillResponse{}, err
	}
	if pending == nil {
		return domain.PrefillResponse{}, nil
	}

	layered := domain.LayerPrefills(domain.DefaultSoilPrefill(), *pending)
	return domain.PrefillResponse{
		Form:    domain.PredictionForm{}.Apply(layered),
		Applied: true,
		Notice:  SoilEstimateNotice,
	}, nil
}

// ParseForm checks that every field is filled, numeric and in range
func ParseForm(form domain.PredictionForm) (domain.CropFeatures, error) {
	var verr domain.ValidationError
	values := make(map[string]float64, 7)

	for _, f := range form.Fields() {
		if f.Value == "" {
			verr.Missing = append(verr.Missing, f.Name)
		}
	}
	if len(verr.Missing) > 0 {
		return domain.CropFeatures{}, &verr
	}

	for _, f := range form.Fields() {
		v, err := strconv.ParseFloat(strings.TrimSpace(string(f.Value)), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			verr.Invalid = append(verr.Invalid, f.Name)
			continue
		}
		if b, ok := domain.FieldBounds[f.Name]; ok && (v < b.Min || v > b.Max) {
			verr.OutOfRange = append(verr.OutOfRange, f.Name)
			continue
		}
		values[f.Name] = v
	}
	if len(verr.Invalid) > 0 || len(verr.OutOfRange) > 0 {
		return domain.CropFeatures{}, &verr
	}

	return domain.CropFeatures{
		Nitrogen:    values[domain.FieldNitrogen],
		Phosphorus:  values[domain.FieldPhosphorus],
		Potassium:   values[domain.FieldPotassium],
		Temperature: values[domain.FieldTemperature],
		Humidity:    values[domain.FieldHumidity],
		PH:          values[domain.FieldPH],
		Rainfall:    values[domain.FieldRainfall],
	}, nil
}

// Submit validates the form and asks the backend for a crop. Invalid forms
// never reach the network.
func (s *PredictionService) Submit(ctx context.Context, form domain.PredictionForm) (domain.Recommendation, error) {
	features, err := ParseForm(form)
	if err != nil {
		return domain.Recommendation{}, err
	}

	crop, err := s.recommender.Recommend(ctx, features)
	if err != nil {
		s.log.Warn("crop recommendation failed", zap.Error(err))
		return domain.Recommendation{}, err
	}

	// Log prediction to database asynchronously
	s.wgBg.Add(1)
	go func() {
		defer s.wgBg.Done()
		bgCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if saveErr := s.repo.SavePredictionLog(bgCtx, features, crop); saveErr != nil {
			s.log.Warn("failed to save prediction log", zap.Error(saveErr))
		}
	}()

	return domain.Recommendation{
		Crop:  crop,
		Emoji: domain.CropEmoji(crop),
	}, nil
}

// History returns recent recommendations
func (s *PredictionService) History(ctx context.Context, limit int) ([]domain.PredictionLog, error) {
	return s.repo.GetRecentPredictions(ctx, limit)
}
