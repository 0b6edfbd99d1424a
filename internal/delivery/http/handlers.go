package http

import (
	"errors"
	"io"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/farmbud/backend/internal/domain"
	"github.com/farmbud/backend/internal/service"
	"github.com/farmbud/backend/pkg/utils"
)

// maxUploadBytes bounds one image upload
const maxUploadBytes = 10 << 20

// Handler contains all HTTP handlers
type Handler struct {
	weather         service.WeatherFetcher
	geocode         service.PlaceSuggester
	classifications *service.ClassificationService
	wizard          *service.WizardService
	prediction      *service.PredictionService
	status          *service.StatusService
}

// Services groups the dependencies of Handler
type Services struct {
	Weather         service.WeatherFetcher
	Geocode         service.PlaceSuggester
	Classifications *service.ClassificationService
	Wizard          *service.WizardService
	Prediction      *service.PredictionService
	Status          *service.StatusService
}

// NewHandler creates a new handler
func NewHandler(s Services) *Handler {
	return &Handler{
		weather:         s.Weather,
		geocode:         s.Geocode,
		classifications: s.Classifications,
		wizard:          s.Wizard,
		prediction:      s.Prediction,
		status:          s.Status,
	}
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(c *fiber.Ctx) error {
	st := h.status.Check(c.Context())
	return c.JSON(fiber.Map{
		"status":       "ok",
		"service":      "farmbud-backend",
		"version":      "1.0.0",
		"dependencies": st.Dependencies,
		"healthy":      st.Healthy,
	})
}

// Suggest returns debounced place suggestions
func (h *Handler) Suggest(c *fiber.Ctx) error {
	suggestions, err := h.geocode.Suggest(c.Context(), sessionID(c), c.Query("q"))
	return suggestionReply(c, suggestions, err)
}

// GetWeather returns current weather at lat/lon
func (h *Handler) GetWeather(c *fiber.Ctx) error {
	lat, lon, err := coordinates(c)
	if err != nil {
		return err
	}

	reading, err := h.weather.FetchWeather(c.Context(), lat, lon)
	if err != nil {
		return toFiberError(err)
	}

	return c.JSON(domain.WeatherResponse{
		Data:    reading,
		Success: true,
	})
}

// ClassifySoil analyzes a soil image outside the wizard
func (h *Handler) ClassifySoil(c *fiber.Ctx) error {
	upload, err := readUpload(c)
	if err != nil {
		return err
	}

	result, err := h.classifications.Soil(c.Context(), sessionID(c), upload)
	if err != nil {
		return toFiberError(err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    result,
	})
}

// ClassifyDisease analyzes a leaf image
func (h *Handler) ClassifyDisease(c *fiber.Ctx) error {
	upload, err := readUpload(c)
	if err != nil {
		return err
	}

	result, err := h.classifications.Disease(c.Context(), sessionID(c), upload)
	if err != nil {
		return toFiberError(err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    result,
	})
}

// GetWizard returns the session's wizard
func (h *Handler) GetWizard(c *fiber.Ctx) error {
	state, err := h.wizard.Get(c.Context(), sessionID(c))
	return wizardReply(c, state, err)
}

// ResetWizard discards the session's wizard
func (h *Handler) ResetWizard(c *fiber.Ctx) error {
	if err := h.wizard.Reset(c.Context(), sessionID(c)); err != nil {
		return toFiberError(err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// WizardUploadSoil runs wizard step 1
func (h *Handler) WizardUploadSoil(c *fiber.Ctx) error {
	upload, err := readUpload(c)
	if err != nil {
		return err
	}
	state, err := h.wizard.UploadSoil(c.Context(), sessionID(c), upload)
	return wizardReply(c, state, err)
}

// WizardNext moves to step 2
func (h *Handler) WizardNext(c *fiber.Ctx) error {
	state, err := h.wizard.Next(c.Context(), sessionID(c))
	return wizardReply(c, state, err)
}

// WizardBack returns to step 1
func (h *Handler) WizardBack(c *fiber.Ctx) error {
	state, err := h.wizard.Back(c.Context(), sessionID(c))
	return wizardReply(c, state, err)
}

// WizardSearch runs the location step autocomplete
func (h *Handler) WizardSearch(c *fiber.Ctx) error {
	suggestions, err := h.wizard.Search(c.Context(), sessionID(c), c.Query("q"))
	return suggestionReply(c, suggestions, err)
}

// WizardLocation picks a location and fetches its weather
func (h *Handler) WizardLocation(c *fiber.Ctx) error {
	var in domain.LocationInput
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	state, err := h.wizard.ChooseLocation(c.Context(), sessionID(c), in)
	return wizardReply(c, state, err)
}

// WizardApply hands the merged data to the prediction form
func (h *Handler) WizardApply(c *fiber.Ctx) error {
	result, err := h.wizard.Apply(c.Context(), sessionID(c))
	if err != nil {
		return toFiberError(err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    result,
	})
}

// GetPrefill consumes the pending prefill for the prediction form
func (h *Handler) GetPrefill(c *fiber.Ctx) error {
	resp, err := h.prediction.Prefill(c.Context(), sessionID(c))
	if err != nil {
		return toFiberError(err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    resp,
	})
}

// Predict submits the crop recommendation form
func (h *Handler) Predict(c *fiber.Ctx) error {
	var form domain.PredictionForm
	if err := c.BodyParser(&form); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	rec, err := h.prediction.Submit(c.Context(), form)
	if err != nil {
		return toFiberError(err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    rec,
	})
}

// GetPredictionHistory returns recent recommendations
func (h *Handler) GetPredictionHistory(c *fiber.Ctx) error {
	limit := int(utils.Clamp(float64(c.QueryInt("limit", 20)), 1, 100))

	data, err := h.prediction.History(c.Context(), limit)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to fetch prediction history")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    data,
		"count":   len(data),
	})
}

func suggestionReply(c *fiber.Ctx, suggestions []domain.GeoSuggestion, err error) error {
	if errors.Is(err, domain.ErrSuperseded) {
		return c.JSON(domain.SuggestionResponse{Data: []domain.GeoSuggestion{}, Stale: true, Success: true})
	}
	if err != nil {
		return toFiberError(err)
	}
	return c.JSON(domain.SuggestionResponse{Data: suggestions, Success: true})
}

// wizardReply always includes the wizard state so the error renders inline
// next to the step that failed
func wizardReply(c *fiber.Ctx, state *domain.WizardState, err error) error {
	if state == nil {
		if err == nil {
			err = domain.ErrSessionNotFound
		}
		return toFiberError(err)
	}
	if err != nil {
		fe := toFiberError(err)
		return c.Status(fe.Code).JSON(fiber.Map{
			"error":   true,
			"message": fe.Message,
			"data":    state.View(),
		})
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    state.View(),
	})
}

func coordinates(c *fiber.Ctx) (float64, float64, error) {
	lat, err := strconv.ParseFloat(c.Query("lat"), 64)
	if err != nil {
		return 0, 0, fiber.NewError(fiber.StatusBadRequest, "lat must be a number")
	}
	lon, err := strconv.ParseFloat(c.Query("lon"), 64)
	if err != nil {
		return 0, 0, fiber.NewError(fiber.StatusBadRequest, "lon must be a number")
	}
	if !utils.ValidCoordinates(lat, lon) {
		return 0, 0, toFiberError(domain.ErrInvalidCoordinates)
	}
	return lat, lon, nil
}

// readUpload reads multipart field "file"; a missing file is ErrNoImage
func readUpload(c *fiber.Ctx) (domain.ImageUpload, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		return domain.ImageUpload{}, toFiberError(domain.ErrNoImage)
	}
	if fh.Size > maxUploadBytes {
		return domain.ImageUpload{}, fiber.NewError(fiber.StatusRequestEntityTooLarge, "Image is too large")
	}

	f, err := fh.Open()
	if err != nil {
		return domain.ImageUpload{}, fiber.NewError(fiber.StatusBadRequest, "Could not read image")
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes))
	if err != nil {
		return domain.ImageUpload{}, fiber.NewError(fiber.StatusBadRequest, "Could not read image")
	}

	return domain.ImageUpload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}
