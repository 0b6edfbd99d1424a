package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/farmbud/backend/internal/domain"
	"github.com/farmbud/backend/pkg/utils"
)

// LocationService drives a LocationStep: search, choose a point, fetch weather
type LocationService struct {
	weather WeatherFetcher
	places  PlaceSuggester
	log     *zap.Logger
}

// NewLocationService creates a new location service
func NewLocationService(weather WeatherFetcher, places PlaceSuggester, log *zap.Logger) *LocationService {
	return &LocationService{
		weather: weather,
		places:  places,
		log:     log,
	}
}

// BeginSearch moves the step into Searching for query
func (s *LocationService) BeginSearch(step *domain.LocationStep, query string) {
	step.State = domain.LocationSearching
	step.Query = query
	step.Error = ""
}

// Suggest runs the debounced autocomplete for a session
func (s *LocationService) Suggest(ctx context.Context, sessionID, query string) ([]domain.GeoSuggestion, error) {
	return s.places.Suggest(ctx, sessionID, query)
}

// Choose resolves a location from a suggestion, a map click or the device,
// then fetches its weather. Suggestion, map and successful device input are
// handled identically. On success the returned reading replaces any earlier
// one on the step.
func (s *LocationService) Choose(ctx context.Context, step *domain.LocationStep, in domain.LocationInput) (*domain.WeatherReading, error) {
	switch in.Source {
	case domain.SourceSuggestion, domain.SourceMap:
	case domain.SourceDevice:
		if in.DeviceError != "" {
			s.log.Info("device geolocation failed", zap.String("reason", in.DeviceError))
			step.State = domain.LocationDenied
			step.Message = ""
			step.Error = domain.UserMessage(domain.ErrGeolocationDenied)
			return nil, domain.ErrGeolocationDenied
		}
	default:
		return nil, fmt.Errorf("%w: unknown location source %q", domain.ErrInvalidCoordinates, in.Source)
	}

	if !utils.ValidCoordinates(in.Lat, in.Lon) {
		return nil, fmt.Errorf("%w: lat=%v lon=%v", domain.ErrInvalidCoordinates, in.Lat, in.Lon)
	}

	return s.fetchLocationData(ctx, step, in.Lat, in.Lon, in.Label)
}

func (s *LocationService) fetchLocationData(ctx context.Context, step *domain.LocationStep, lat, lon float64, label string) (*domain.WeatherReading, error) {
	step.State = domain.LocationChosen
	step.Error = ""
	step.Message = ""
	step.Weather = nil
	step.Marker = &domain.Coordinates{Latitude: lat, Longitude: lon}
	step.Label = label

	reading, err := s.weather.FetchWeather(ctx, lat, lon)
	if err != nil {
		s.log.Warn("weather fetch failed",
			zap.Float64("lat", lat),
			zap.Float64("lon", lon),
			zap.Error(err))
		step.State = domain.WeatherFailed
		step.Error = domain.UserMessage(err)
		return nil, err
	}

	step.State = domain.WeatherFetched
	step.Weather = &reading
	step.View = *step.Marker
	if step.Label == "" {
		step.Label = reading.Place
	}
	place := reading.Place
	if place == "" {
		place = "the selected location"
	}
	step.Message = fmt.Sprintf("Successfully fetched weather data for %s!", place)
	return &reading, nil
}
