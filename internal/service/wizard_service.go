package service

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/farmbud/backend/internal/domain"
)

// PredictPath is where the browser goes after "Use All Data"
const PredictPath = "/predict"

// WizardService runs the two-step soil map wizard:
// Step 1 analyzes a soil image, Step 2 picks a location and fetches weather.
type WizardService struct {
	store       domain.WizardStore
	classifiers *ClassificationService
	location    *LocationService
	slot        domain.PrefillSlot
	log         *zap.Logger

	// per-session serialization of load-modify-save cycles
	locks [64]sync.Mutex
}

// NewWizardService creates a new wizard service
func NewWizardService(
	store domain.WizardStore,
	classifiers *ClassificationService,
	location *LocationService,
	slot domain.PrefillSlot,
	log *zap.Logger,
) *WizardService {
	return &WizardService{
		store:       store,
		classifiers: classifiers,
		location:    location,
		slot:        slot,
		log:         log,
	}
}

func (s *WizardService) lock(sessionID string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(sessionID))
	mu := &s.locks[h.Sum32()%uint32(len(s.locks))]
	mu.Lock()
	return mu.Unlock
}

// load returns the session's wizard, starting a new one if none exists
func (s *WizardService) load(ctx context.Context, sessionID string) (*domain.WizardState, error) {
	state, err := s.store.Load(ctx, sessionID)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return domain.NewWizardState(sessionID), nil
	}
	if err != nil {
		return nil, err
	}
	return state, nil
}

func (s *WizardService) save(ctx context.Context, state *domain.WizardState) error {
	state.UpdatedAt = time.Now()
	return s.store.Save(ctx, state)
}

// Get returns the current wizard state
func (s *WizardService) Get(ctx context.Context, sessionID string) (*domain.WizardState, error) {
	return s.load(ctx, sessionID)
}

// Reset discards the session's wizard
func (s *WizardService) Reset(ctx context.Context, sessionID string) error {
	unlock := s.lock(sessionID)
	defer unlock()
	return s.store.Delete(ctx, sessionID)
}

// UploadSoil runs Step 1. A successful classification replaces any earlier
// one and moves the wizard to Step 2; a failure keeps it on Step 1 with the
// error recorded.
func (s *WizardService) UploadSoil(ctx context.Context, sessionID string, upload domain.ImageUpload) (*domain.WizardState, error) {
	unlock := s.lock(sessionID)
	defer unlock()

	state, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if state.Step != domain.StepSoilUpload {
		return state, domain.ErrWrongStep
	}
	if upload.Empty() {
		return state, domain.ErrNoImage
	}

	result, err := s.classifiers.Soil(ctx, sessionID, upload)
	if err != nil {
		s.log.Warn("soil classification failed", zap.String("session", sessionID), zap.Error(err))
		state.SoilError = domain.UserMessage(err)
		if saveErr := s.save(ctx, state); saveErr != nil {
			return nil, saveErr
		}
		return state, err
	}

	state.Soil = &result
	state.SoilError = ""
	state.Step = domain.StepLocation
	if err := s.save(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}

// Next moves Step 1 to Step 2 when a soil result is already present
func (s *WizardService) Next(ctx context.Context, sessionID string) (*domain.WizardState, error) {
	unlock := s.lock(sessionID)
	defer unlock()

	state, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if state.Soil == nil {
		return state, domain.ErrSoilRequired
	}
	state.Step = domain.StepLocation
	if err := s.save(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}

// Back returns to Step 1 keeping the soil result
func (s *WizardService) Back(ctx context.Context, sessionID string) (*domain.WizardState, error) {
	unlock := s.lock(sessionID)
	defer unlock()

	state, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	state.Step = domain.StepSoilUpload
	if err := s.save(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}

// Search records the query on the location step and returns debounced
// suggestions. The lock is released before the debounce wait so a location
// choice is never blocked behind a search.
func (s *WizardService) Search(ctx context.Context, sessionID, query string) ([]domain.GeoSuggestion, error) {
	unlock := s.lock(sessionID)
	state, err := s.load(ctx, sessionID)
	if err == nil && state.Step != domain.StepLocation {
		err = domain.ErrWrongStep
	}
	if err == nil {
		s.location.BeginSearch(&state.Location, query)
		err = s.save(ctx, state)
	}
	unlock()
	if err != nil {
		return nil, err
	}

	return s.location.Suggest(ctx, sessionID, query)
}

// ChooseLocation runs the location step for a suggestion, map click or
// device position. Each success overwrites the previous weather reading.
func (s *WizardService) ChooseLocation(ctx context.Context, sessionID string, in domain.LocationInput) (*domain.WizardState, error) {
	unlock := s.lock(sessionID)
	defer unlock()

	state, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if state.Step != domain.StepLocation {
		return state, domain.ErrWrongStep
	}

	_, chooseErr := s.location.Choose(ctx, &state.Location, in)
	if errors.Is(chooseErr, domain.ErrInvalidCoordinates) {
		return state, chooseErr
	}
	if err := s.save(ctx, state); err != nil {
		return nil, err
	}
	return state, chooseErr
}

// Apply is "Use All Data": it merges soil nutrients and weather into one
// prefill and hands it to the prediction form through the slot.
func (s *WizardService) Apply(ctx context.Context, sessionID string) (domain.ApplyResult, error) {
	unlock := s.lock(sessionID)
	defer unlock()

	state, err := s.load(ctx, sessionID)
	if err != nil {
		return domain.ApplyResult{}, err
	}
	if !state.CanApply() {
		return domain.ApplyResult{}, domain.ErrWizardIncomplete
	}

	merged := MergeWizardData(*state.Soil, *state.Location.Weather)
	if err := s.slot.Put(ctx, sessionID, merged); err != nil {
		return domain.ApplyResult{}, err
	}

	s.log.Info("wizard data applied", zap.String("session", sessionID))
	return domain.ApplyResult{Prefill: merged, Redirect: PredictPath}, nil
}

// MergeWizardData flattens soil nutrients then weather into one prefill
func MergeWizardData(soil domain.SoilClassification, weather domain.WeatherReading) domain.Prefill {
	return domain.LayerPrefills(
		domain.NutrientPrefill(soil.Nutrients),
		domain.WeatherPrefill(weather),
	)
}
