package service

import (
	"context"
	"sync"

	"github.com/farmbud/backend/internal/domain"
)

type fakeSoilClassifier struct {
	mu     sync.Mutex
	calls  int
	result domain.SoilClassification
	err    error
}

func (f *fakeSoilClassifier) ClassifySoil(ctx context.Context, upload domain.ImageUpload) (domain.SoilClassification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if upload.Empty() {
		return domain.SoilClassification{}, domain.ErrNoImage
	}
	return f.result, f.err
}

type fakeDiseaseClassifier struct {
	result domain.DiseaseDiagnosis
	err    error
}

func (f *fakeDiseaseClassifier) ClassifyDisease(ctx context.Context, upload domain.ImageUpload) (domain.DiseaseDiagnosis, error) {
	return f.result, f.err
}

type fakeWeather struct {
	mu       sync.Mutex
	calls    int
	readings []domain.WeatherReading
	err      error
}

func (f *fakeWeather) FetchWeather(ctx context.Context, lat, lon float64) (domain.WeatherReading, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return domain.WeatherReading{}, f.err
	}
	r := f.readings[0]
	if len(f.readings) > 1 {
		f.readings = f.readings[1:]
	}
	r.Position = domain.Coordinates{Latitude: lat, Longitude: lon}
	return r, nil
}

type fakePlaces struct {
	suggestions []domain.GeoSuggestion
	err         error
}

func (f *fakePlaces) Suggest(ctx context.Context, sessionID, query string) ([]domain.GeoSuggestion, error) {
	return f.suggestions, f.err
}

type fakeRecommender struct {
	mu       sync.Mutex
	calls    int
	features domain.CropFeatures
	crop     string
	err      error
}

func (f *fakeRecommender) Recommend(ctx context.Context, features domain.CropFeatures) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.features = features
	return f.crop, f.err
}

func (f *fakeRecommender) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type recordingArchive struct {
	mu   sync.Mutex
	keys []string
}

func (a *recordingArchive) Store(ctx context.Context, key string, upload domain.ImageUpload) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.keys = append(a.keys, key)
	return nil
}
