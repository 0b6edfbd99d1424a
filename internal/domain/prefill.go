package domain

import "context"

// Prefill is a partial set of prediction form values handed from the wizard
// to the prediction form. Unset fields are nil.
type Prefill struct {
	Nitrogen    *float64 `json:"Nitrogen,omitempty"`
	Phosphorus  *float64 `json:"Phosphorus,omitempty"`
	Potassium   *float64 `json:"Potassium,omitempty"`
	PH          *float64 `json:"ph,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	Humidity    *float64 `json:"humidity,omitempty"`
	Rainfall    *float64 `json:"rainfall,omitempty"`
}

// PrefillSlot is the single-slot handoff between the wizard and the
// prediction form. Take returns the pending prefill and clears the slot in
// one step; it returns nil when nothing is pending.
type PrefillSlot interface {
	Put(ctx context.Context, sessionID string, p Prefill) error
	Take(ctx context.Context, sessionID string) (*Prefill, error)
}

// Default soil values used beneath whatever the wizard supplied
const (
	DefaultNitrogen   = 90.0
	DefaultPhosphorus = 42.0
	DefaultPotassium  = 43.0
	DefaultPH         = 6.5
)

func floatPtr(v float64) *float64 {
	return &v
}

// DefaultSoilPrefill is the lowest precedence layer
func DefaultSoilPrefill() Prefill {
	return Prefill{
		Nitrogen:   floatPtr(DefaultNitrogen),
		Phosphorus: floatPtr(DefaultPhosphorus),
		Potassium:  floatPtr(DefaultPotassium),
		PH:         floatPtr(DefaultPH),
	}
}

// NutrientPrefill converts classifier nutrients into a prefill layer
func NutrientPrefill(n Nutrients) Prefill {
	return Prefill{
		Nitrogen:   floatPtr(n.Nitrogen),
		Phosphorus: floatPtr(n.Phosphorus),
		Potassium:  floatPtr(n.Potassium),
		PH:         floatPtr(n.PH),
	}
}

// WeatherPrefill converts a weather reading into a prefill layer
func WeatherPrefill(w WeatherReading) Prefill {
	return Prefill{
		Temperature: floatPtr(w.Temperature),
		Humidity:    floatPtr(w.Humidity),
		Rainfall:    floatPtr(w.RainfallLastHour),
	}
}

// LayerPrefills merges layers left to right; a set field in a later layer
// replaces the same field from any earlier layer.
func LayerPrefills(layers ...Prefill) Prefill {
	var out Prefill
	for _, l := range layers {
		overlay(&out.Nitrogen, l.Nitrogen)
		overlay(&out.Phosphorus, l.Phosphorus)
		overlay(&out.Potassium, l.Potassium)
		overlay(&out.PH, l.PH)
		overlay(&out.Temperature, l.Temperature)
		overlay(&out.Humidity, l.Humidity)
		overlay(&out.Rainfall, l.Rainfall)
	}
	return out
}

func overlay(dst **float64, src *float64) {
	if src != nil {
		v := *src
		*dst = &v
	}
}

// Values returns the set fields keyed by their form field name
func (p Prefill) Values() map[string]float64 {
	out := make(map[string]float64, 7)
	for _, f := range []struct {
		name string
		v    *float64
	}{
		{FieldNitrogen, p.Nitrogen},
		{FieldPhosphorus, p.Phosphorus},
		{FieldPotassium, p.Potassium},
		{FieldTemperature, p.Temperature},
		{FieldHumidity, p.Humidity},
		{FieldPH, p.PH},
		{FieldRainfall, p.Rainfall},
	} {
		if f.v != nil {
			out[f.name] = *f.v
		}
	}
	return out
}
