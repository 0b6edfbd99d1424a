package http

import (
	"github.com/gofiber/fiber/v2"
)

// SetupRoutes configures all HTTP routes
func SetupRoutes(app *fiber.App, handler *Handler) {
	// Health check
	app.Get("/health", handler.HealthCheck)

	// API v1 routes
	api := app.Group("/api/v1")
	{
		// Location lookups
		api.Get("/geocode/suggest", handler.Suggest)
		api.Get("/weather", handler.GetWeather)

		// Image analysis (proxies to Python ML service)
		api.Post("/soil/classify", handler.ClassifySoil)
		api.Post("/disease/classify", handler.ClassifyDisease)

		// Soil map wizard
		wizard := api.Group("/wizard")
		wizard.Get("/", handler.GetWizard)
		wizard.Delete("/", handler.ResetWizard)
		wizard.Post("/soil", handler.WizardUploadSoil)
		wizard.Post("/next", handler.WizardNext)
		wizard.Post("/back", handler.WizardBack)
		wizard.Get("/search", handler.WizardSearch)
		wizard.Post("/location", handler.WizardLocation)
		wizard.Post("/apply", handler.WizardApply)

		// Crop recommendation form
		api.Get("/prediction/prefill", handler.GetPrefill)
		api.Post("/predict", handler.Predict)
		api.Get("/predictions/history", handler.GetPredictionHistory)
	}
}
