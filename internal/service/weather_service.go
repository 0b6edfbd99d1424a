package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/farmbud/backend/internal/domain"
	"github.com/farmbud/backend/pkg/utils"
)

// DefaultOpenWeatherURL is the public OpenWeatherMap API root
const DefaultOpenWeatherURL = "https://api.openweathermap.org"

// WeatherService handles weather data fetching
type WeatherService struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	log        *zap.Logger
}

// NewWeatherService creates a new weather service
func NewWeatherService(apiKey, baseURL string, log *zap.Logger) *WeatherService {
	if baseURL == "" {
		baseURL = DefaultOpenWeatherURL
	}
	return &WeatherService{
		apiKey:  apiKey,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log,
	}
}

// OpenWeatherResponse represents the OpenWeatherMap API response
type OpenWeatherResponse struct {
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity float64 `json:"humidity"`
	} `json:"main"`
	Rain *struct {
		OneHour *float64 `json:"1h"`
	} `json:"rain"`
	Name string `json:"name"`
}

type openWeatherError struct {
	Message string `json:"message"`
}

// FetchWeather fetches the current weather at a coordinate.
// Missing precipitation is reported as 0.
func (s *WeatherService) FetchWeather(ctx context.Context, lat, lon float64) (domain.WeatherReading, error) {
	if s.apiKey == "" {
		return domain.WeatherReading{}, &domain.ServerRejectedError{
			Service:    "weather",
			StatusCode: http.StatusUnauthorized,
			Reason:     "API key not configured",
			Kind:       domain.ErrWeatherUnavailable,
		}
	}

	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("appid", s.apiKey)
	q.Set("units", "metric")
	endpoint := fmt.Sprintf("%s/data/2.5/weather?%s", s.baseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.WeatherReading{}, fmt.Errorf("weather: failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return domain.WeatherReading{}, fmt.Errorf("weather: %w: %v", domain.ErrNetworkUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var owErr openWeatherError
		_ = json.Unmarshal(body, &owErr)
		s.log.Warn("weather API returned non-200 status",
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(body)))
		return domain.WeatherReading{}, &domain.ServerRejectedError{
			Service:    "weather",
			StatusCode: resp.StatusCode,
			Reason:     owErr.Message,
			Kind:       domain.ErrWeatherUnavailable,
		}
	}

	var owResp OpenWeatherResponse
	if err := json.NewDecoder(resp.Body).Decode(&owResp); err != nil {
		return domain.WeatherReading{}, fmt.Errorf("weather: failed to decode response: %w", err)
	}

	reading := domain.WeatherReading{
		Temperature: utils.RoundTo(owResp.Main.Temp, 2),
		Humidity:    utils.RoundTo(owResp.Main.Humidity, 2),
		Place:       owResp.Name,
		Position:    domain.Coordinates{Latitude: lat, Longitude: lon},
		Timestamp:   time.Now(),
	}
	if owResp.Rain != nil && owResp.Rain.OneHour != nil {
		reading.RainfallLastHour = utils.RoundTo(*owResp.Rain.OneHour, 2)
	}

	return reading, nil
}
