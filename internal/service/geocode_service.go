package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/farmbud/backend/internal/domain"
)

// DefaultGeoapifyURL is the public Geoapify API root
const DefaultGeoapifyURL = "https://api.geoapify.com"

const (
	DefaultDebounce    = 300 * time.Millisecond
	DefaultMinQueryLen = 3
)

// GeocodeService answers place autocomplete queries.
//
// Every call for a session takes a new generation number. A call waits out
// the debounce window, then only queries upstream if it is still the newest
// call for its session, and drops the reply if a newer call arrived while
// the request was in flight.
type GeocodeService struct {
	apiKey      string
	baseURL     string
	debounce    time.Duration
	minQueryLen int
	httpClient  *http.Client
	log         *zap.Logger

	mu       sync.Mutex
	sessions map[string]*searchGeneration
}

type searchGeneration struct {
	latest   uint64
	inflight int
}

// GeocodeOption tunes a GeocodeService
type GeocodeOption func(*GeocodeService)

// WithDebounce sets the quiet period before a query is issued
func WithDebounce(d time.Duration) GeocodeOption {
	return func(s *GeocodeService) { s.debounce = d }
}

// WithMinQueryLen sets the shortest query that reaches upstream
func WithMinQueryLen(n int) GeocodeOption {
	return func(s *GeocodeService) { s.minQueryLen = n }
}

// NewGeocodeService creates a new geocode service
func NewGeocodeService(apiKey, baseURL string, log *zap.Logger, opts ...GeocodeOption) *GeocodeService {
	if baseURL == "" {
		baseURL = DefaultGeoapifyURL
	}
	s := &GeocodeService{
		apiKey:      apiKey,
		baseURL:     baseURL,
		debounce:    DefaultDebounce,
		minQueryLen: DefaultMinQueryLen,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		log:      log,
		sessions: make(map[string]*searchGeneration),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// geoapifyResponse is the subset of the GeoJSON autocomplete answer we read
type geoapifyResponse struct {
	Features []struct {
		Properties struct {
			PlaceID   string  `json:"place_id"`
			Formatted string  `json:"formatted"`
			Lat       float64 `json:"lat"`
			Lon       float64 `json:"lon"`
		} `json:"properties"`
	} `json:"features"`
}

// Suggest returns place candidates for query. Short queries return an empty
// list without a network call. Transport and upstream failures also return
// an empty list. ErrSuperseded is returned when a newer call for the same
// session replaced this one.
func (s *GeocodeService) Suggest(ctx context.Context, sessionID, query string) ([]domain.GeoSuggestion, error) {
	gen := s.begin(sessionID)
	defer s.end(sessionID)

	if utf8.RuneCountInString(query) < s.minQueryLen {
		return []domain.GeoSuggestion{}, nil
	}

	if s.debounce > 0 {
		timer := time.NewTimer(s.debounce)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	if !s.isLatest(sessionID, gen) {
		return nil, domain.ErrSuperseded
	}

	suggestions, err := s.autocomplete(ctx, query)
	if !s.isLatest(sessionID, gen) {
		return nil, domain.ErrSuperseded
	}
	if err != nil {
		s.log.Warn("geocode autocomplete failed",
			zap.String("query", query),
			zap.Error(err))
		return []domain.GeoSuggestion{}, nil
	}
	return suggestions, nil
}

func (s *GeocodeService) begin(sessionID string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.sessions[sessionID]
	if !ok {
		g = &searchGeneration{}
		s.sessions[sessionID] = g
	}
	g.latest++
	g.inflight++
	return g.latest
}

// end forgets a session once nothing is in flight for it; a later call
// cannot race anything older, so restarting the counter is safe.
func (s *GeocodeService) end(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.sessions[sessionID]
	if !ok {
		return
	}
	g.inflight--
	if g.inflight <= 0 {
		delete(s.sessions, sessionID)
	}
}

func (s *GeocodeService) isLatest(sessionID string, gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.sessions[sessionID]
	return ok && g.latest == gen
}

func (s *GeocodeService) autocomplete(ctx context.Context, query string) ([]domain.GeoSuggestion, error) {
	q := url.Values{}
	q.Set("text", query)
	q.Set("apiKey", s.apiKey)
	endpoint := fmt.Sprintf("%s/v1/geocode/autocomplete?%s", s.baseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("geocode: failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocode: %w: %v", domain.ErrNetworkUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &domain.ServerRejectedError{Service: "geocode", StatusCode: resp.StatusCode}
	}

	var gr geoapifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return nil, fmt.Errorf("geocode: failed to decode response: %w", err)
	}

	out := make([]domain.GeoSuggestion, 0, len(gr.Features))
	for _, f := range gr.Features {
		out = append(out, domain.GeoSuggestion{
			ID:    f.Properties.PlaceID,
			Label: f.Properties.Formatted,
			Lat:   f.Properties.Lat,
			Lon:   f.Properties.Lon,
		})
	}
	return out, nil
}
