package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLayerPrefills_LaterLayerWins(t *testing.T) {
	fetched := Prefill{Nitrogen: floatPtr(80), Temperature: floatPtr(25)}

	got := LayerPrefills(DefaultSoilPrefill(), fetched)

	assert.Equal(t, map[string]float64{
		FieldNitrogen:    80,
		FieldPhosphorus:  DefaultPhosphorus,
		FieldPotassium:   DefaultPotassium,
		FieldPH:          DefaultPH,
		FieldTemperature: 25,
	}, got.Values())
}

func TestLayerPrefills_UnsetFieldsDoNotClear(t *testing.T) {
	got := LayerPrefills(Prefill{Rainfall: floatPtr(2)}, Prefill{})

	assert.Equal(t, map[string]float64{FieldRainfall: 2}, got.Values())
}

func TestLayerPrefills_DoesNotAliasInputs(t *testing.T) {
	src := Prefill{Humidity: floatPtr(60)}
	got := LayerPrefills(src)

	*src.Humidity = 10

	assert.Equal(t, 60.0, *got.Humidity)
}

func TestWizardLayers_UnionOfSoilAndWeather(t *testing.T) {
	soil := NutrientPrefill(Nutrients{Nitrogen: 80, Phosphorus: 40, Potassium: 40, PH: 6.2})
	weather := WeatherPrefill(WeatherReading{Temperature: 25, Humidity: 60, RainfallLastHour: 2})

	got := LayerPrefills(soil, weather)

	assert.Equal(t, map[string]float64{
		"Nitrogen":    80,
		"Phosphorus":  40,
		"Potassium":   40,
		"ph":          6.2,
		"temperature": 25,
		"humidity":    60,
		"rainfall":    2,
	}, got.Values())
}
