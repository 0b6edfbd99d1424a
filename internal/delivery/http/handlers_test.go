package http

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/farmbud/backend/internal/domain"
	"github.com/farmbud/backend/internal/repository/memory"
	"github.com/farmbud/backend/internal/repository/postgres"
	"github.com/farmbud/backend/internal/service"
)

const testSession = "6f1c2a9e-4b7d-4e0a-9a53-2d4f1f0c8b11"

// fakeBackends serves the model backend and OpenWeatherMap
type fakeBackends struct {
	ml          *httptest.Server
	weather     *httptest.Server
	predictHits atomic.Int32
	predictCode atomic.Int32
}

func newFakeBackends(t *testing.T) *fakeBackends {
	t.Helper()
	b := &fakeBackends{}
	b.predictCode.Store(nethttp.StatusOK)

	ml := nethttp.NewServeMux()
	ml.HandleFunc("/predict", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		b.predictHits.Add(1)
		code := int(b.predictCode.Load())
		if code != nethttp.StatusOK {
			w.WriteHeader(code)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"crop": "rice"})
	})
	ml.HandleFunc("/predict_soil", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"soil_type":  "Alluvial",
			"confidence": "93.1%",
			"nutrients":  map[string]float64{"Nitrogen": 80, "Phosphorus": 40, "Potassium": 40, "ph": 6.2},
		})
	})
	ml.HandleFunc("/predict_disease", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"disease": "Tomato___healthy", "confidence": "99%"})
	})
	b.ml = httptest.NewServer(ml)
	t.Cleanup(b.ml.Close)

	b.weather = httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		_, _ = io.WriteString(w, `{"main":{"temp":25,"humidity":60},"name":"Pune"}`)
	}))
	t.Cleanup(b.weather.Close)

	return b
}

func newTestApp(t *testing.T, b *fakeBackends) *fiber.App {
	t.Helper()
	log := zap.NewNop()

	bridge := service.NewMLBridge(b.ml.URL)
	weather := service.NewWeatherService("test-key", b.weather.URL, log)
	geocode := service.NewGeocodeService("test-key", "http://127.0.0.1:1", log, service.WithDebounce(time.Millisecond))
	repo := postgres.NewMockRepository()
	slot := memory.NewPrefillSlot()

	classifications := service.NewClassificationService(bridge, bridge, nil, repo, log)
	location := service.NewLocationService(weather, geocode, log)
	prediction := service.NewPredictionService(bridge, slot, repo, log)
	status := service.NewStatusService(log)
	status.Register("ml_service", bridge)

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Use(SessionMiddleware(time.Hour))
	SetupRoutes(app, NewHandler(Services{
		Weather:         weather,
		Geocode:         geocode,
		Classifications: classifications,
		Wizard:          service.NewWizardService(memory.NewWizardStore(), classifications, location, slot, log),
		Prediction:      prediction,
		Status:          status,
	}))
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, target string, body any) *nethttp.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, r)
	req.Header.Set(SessionHeader, testSession)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	resp, err := app.Test(req, 5000)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *nethttp.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func validFormBody() map[string]any {
	return map[string]any{
		"Nitrogen":    "90",
		"Phosphorus":  "42",
		"Potassium":   "43",
		"temperature": 25,
		"humidity":    "80",
		"ph":          "6.5",
		"rainfall":    "200",
	}
}

func TestPredict_ReturnsCropWithEmoji(t *testing.T) {
	b := newFakeBackends(t)
	app := newTestApp(t, b)

	resp := doJSON(t, app, fiber.MethodPost, "/api/v1/predict", validFormBody())
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Success bool                  `json:"success"`
		Data    domain.Recommendation `json:"data"`
	}
	decode(t, resp, &body)
	assert.True(t, body.Success)
	assert.Equal(t, domain.Recommendation{Crop: "rice", Emoji: "🌾"}, body.Data)
	assert.Equal(t, int32(1), b.predictHits.Load())
}

func TestPredict_BackendErrorShowsNoResult(t *testing.T) {
	b := newFakeBackends(t)
	b.predictCode.Store(nethttp.StatusInternalServerError)
	app := newTestApp(t, b)

	resp := doJSON(t, app, fiber.MethodPost, "/api/v1/predict", validFormBody())
	assert.Equal(t, fiber.StatusBadGateway, resp.StatusCode)

	var body map[string]any
	decode(t, resp, &body)
	assert.Equal(t, true, body["error"])
	assert.Contains(t, body["message"], "500")
	assert.NotContains(t, body, "data")
}

func TestPredict_MissingFieldNeverReachesBackend(t *testing.T) {
	b := newFakeBackends(t)
	app := newTestApp(t, b)

	form := validFormBody()
	delete(form, "ph")

	resp := doJSON(t, app, fiber.MethodPost, "/api/v1/predict", form)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	var body map[string]any
	decode(t, resp, &body)
	assert.Equal(t, "Please fill in all fields.", body["message"])
	assert.Equal(t, int32(0), b.predictHits.Load())
}

func TestPredict_OutOfRangeIsUnprocessable(t *testing.T) {
	b := newFakeBackends(t)
	app := newTestApp(t, b)

	form := validFormBody()
	form["humidity"] = "250"

	resp := doJSON(t, app, fiber.MethodPost, "/api/v1/predict", form)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, int32(0), b.predictHits.Load())
}

func TestWizard_ApplyPrefillsFormOnce(t *testing.T) {
	b := newFakeBackends(t)
	app := newTestApp(t, b)

	// Step 1: soil image
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "soil.jpg")
	require.NoError(t, err)
	_, _ = part.Write([]byte{0xff, 0xd8, 0xff, 0xe0})
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(fiber.MethodPost, "/api/v1/wizard/soil", &buf)
	req.Header.Set(fiber.HeaderContentType, mw.FormDataContentType())
	req.Header.Set(SessionHeader, testSession)
	resp, err := app.Test(req, 5000)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var wizard struct {
		Data domain.WizardView `json:"data"`
	}
	decode(t, resp, &wizard)
	assert.Equal(t, domain.StepLocation, wizard.Data.Step)
	require.NotNil(t, wizard.Data.Soil)
	assert.Equal(t, "Alluvial", wizard.Data.Soil.SoilType)
	assert.False(t, wizard.Data.CanApply)

	// Step 2: pick a suggestion
	resp = doJSON(t, app, fiber.MethodPost, "/api/v1/wizard/location", domain.LocationInput{
		Source: domain.SourceSuggestion, Lat: 18.52, Lon: 73.85, Label: "Pune, Maharashtra",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	decode(t, resp, &wizard)
	assert.Equal(t, domain.WeatherFetched, wizard.Data.Location.State)
	assert.True(t, wizard.Data.CanApply)

	// Use All Data
	resp = doJSON(t, app, fiber.MethodPost, "/api/v1/wizard/apply", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var applied struct {
		Data domain.ApplyResult `json:"data"`
	}
	decode(t, resp, &applied)
	assert.Equal(t, service.PredictPath, applied.Data.Redirect)

	// The form consumes the prefill on its first read only
	var prefill struct {
		Data domain.PrefillResponse `json:"data"`
	}
	resp = doJSON(t, app, fiber.MethodGet, "/api/v1/prediction/prefill", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	decode(t, resp, &prefill)
	assert.True(t, prefill.Data.Applied)
	assert.Equal(t, domain.PredictionForm{
		Nitrogen:    "80",
		Phosphorus:  "40",
		Potassium:   "40",
		Temperature: "25",
		Humidity:    "60",
		PH:          "6.2",
		Rainfall:    "0",
	}, prefill.Data.Form)

	resp = doJSON(t, app, fiber.MethodGet, "/api/v1/prediction/prefill", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	prefill.Data = domain.PrefillResponse{}
	decode(t, resp, &prefill)
	assert.False(t, prefill.Data.Applied)
	assert.Equal(t, domain.PredictionForm{}, prefill.Data.Form)
}

func TestWizard_ErrorsKeepState(t *testing.T) {
	b := newFakeBackends(t)
	app := newTestApp(t, b)

	resp := doJSON(t, app, fiber.MethodPost, "/api/v1/wizard/next", nil)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	var body struct {
		Error bool              `json:"error"`
		Data  domain.WizardView `json:"data"`
	}
	decode(t, resp, &body)
	assert.True(t, body.Error)
	require.NotNil(t, body.Data.WizardState)
	assert.Equal(t, domain.StepSoilUpload, body.Data.Step)
}

func TestWizard_UploadWithoutFile(t *testing.T) {
	b := newFakeBackends(t)
	app := newTestApp(t, b)

	resp := doJSON(t, app, fiber.MethodPost, "/api/v1/wizard/soil", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestSuggest_ShortQuery(t *testing.T) {
	b := newFakeBackends(t)
	app := newTestApp(t, b)

	resp := doJSON(t, app, fiber.MethodGet, "/api/v1/geocode/suggest?q=ab", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body domain.SuggestionResponse
	decode(t, resp, &body)
	assert.True(t, body.Success)
	assert.False(t, body.Stale)
	assert.Empty(t, body.Data)
}

func TestGetWeather(t *testing.T) {
	b := newFakeBackends(t)
	app := newTestApp(t, b)

	resp := doJSON(t, app, fiber.MethodGet, "/api/v1/weather?lat=18.52&lon=73.85", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body domain.WeatherResponse
	decode(t, resp, &body)
	assert.Equal(t, 25.0, body.Data.Temperature)
	assert.Equal(t, 0.0, body.Data.RainfallLastHour)
	assert.Equal(t, "Pune", body.Data.Place)

	resp = doJSON(t, app, fiber.MethodGet, "/api/v1/weather?lat=91&lon=0", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestSessionMiddleware_IssuesCookie(t *testing.T) {
	b := newFakeBackends(t)
	app := newTestApp(t, b)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/api/v1/wizard/", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	id := resp.Header.Get(SessionHeader)
	assert.Len(t, id, 36)
	assert.True(t, strings.Contains(resp.Header.Get("Set-Cookie"), SessionCookie+"="+id))

	resp = doJSON(t, app, fiber.MethodGet, "/api/v1/wizard/", nil)
	assert.Equal(t, testSession, resp.Header.Get(SessionHeader))
}

func TestHealthCheck(t *testing.T) {
	b := newFakeBackends(t)
	app := newTestApp(t, b)

	resp := doJSON(t, app, fiber.MethodGet, "/health", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body map[string]any
	decode(t, resp, &body)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, true, body["healthy"])
	deps, ok := body["dependencies"].([]any)
	require.True(t, ok)
	require.Len(t, deps, 1)
	assert.Equal(t, true, deps[0].(map[string]any)["healthy"])
}
