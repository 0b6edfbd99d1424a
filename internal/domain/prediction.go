package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Prediction form field names, shared with the recommendation backend
const (
	FieldNitrogen    = "Nitrogen"
	FieldPhosphorus  = "Phosphorus"
	FieldPotassium   = "Potassium"
	FieldTemperature = "temperature"
	FieldHumidity    = "humidity"
	FieldPH          = "ph"
	FieldRainfall    = "rainfall"
)

// FieldValue is the raw text of one form input. It accepts JSON strings and
// numbers so both typed and untyped clients can submit the form.
type FieldValue string

// UnmarshalJSON accepts a string, a number or null (empty)
func (v *FieldValue) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*v = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*v = FieldValue(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("field value must be a string or number: %w", err)
	}
	*v = FieldValue(n.String())
	return nil
}

// PredictionForm holds the seven inputs of the crop recommendation form.
// All fields start as empty strings.
type PredictionForm struct {
	Nitrogen    FieldValue `json:"Nitrogen"`
	Phosphorus  FieldValue `json:"Phosphorus"`
	Potassium   FieldValue `json:"Potassium"`
	Temperature FieldValue `json:"temperature"`
	Humidity    FieldValue `json:"humidity"`
	PH          FieldValue `json:"ph"`
	Rainfall    FieldValue `json:"rainfall"`
}

// FormField is one named form input
type FormField struct {
	Name  string
	Value FieldValue
}

// Fields lists the inputs in display order
func (f PredictionForm) Fields() []FormField {
	return []FormField{
		{FieldNitrogen, f.Nitrogen},
		{FieldPhosphorus, f.Phosphorus},
		{FieldPotassium, f.Potassium},
		{FieldTemperature, f.Temperature},
		{FieldHumidity, f.Humidity},
		{FieldPH, f.PH},
		{FieldRainfall, f.Rainfall},
	}
}

// Apply writes every set prefill value over the form
func (f PredictionForm) Apply(p Prefill) PredictionForm {
	set := func(dst *FieldValue, v *float64) {
		if v != nil {
			*dst = FieldValue(strconv.FormatFloat(*v, 'f', -1, 64))
		}
	}
	set(&f.Nitrogen, p.Nitrogen)
	set(&f.Phosphorus, p.Phosphorus)
	set(&f.Potassium, p.Potassium)
	set(&f.Temperature, p.Temperature)
	set(&f.Humidity, p.Humidity)
	set(&f.PH, p.PH)
	set(&f.Rainfall, p.Rainfall)
	return f
}

// Bounds is an inclusive accepted range for one field
type Bounds struct {
	Min float64
	Max float64
}

// FieldBounds are physical limits; anything outside is a typo, not a reading.
var FieldBounds = map[string]Bounds{
	FieldNitrogen:    {0, 500},
	FieldPhosphorus:  {0, 500},
	FieldPotassium:   {0, 500},
	FieldTemperature: {-60, 60},
	FieldHumidity:    {0, 100},
	FieldPH:          {0, 14},
	FieldRainfall:    {0, 5000},
}

// CropFeatures is the request body of the recommendation backend
type CropFeatures struct {
	Nitrogen    float64 `json:"Nitrogen"`
	Phosphorus  float64 `json:"Phosphorus"`
	Potassium   float64 `json:"Potassium"`
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	PH          float64 `json:"ph"`
	Rainfall    float64 `json:"rainfall"`
}

// Recommendation is the crop returned for one form submission
type Recommendation struct {
	Crop  string `json:"crop"`
	Emoji string `json:"emoji"`
}

// PredictionLog is one stored recommendation
type PredictionLog struct {
	Features  CropFeatures `json:"features"`
	Crop      string       `json:"crop"`
	CreatedAt time.Time    `json:"created_at"`
}

// PrefillResponse is the form state returned after consuming the slot
type PrefillResponse struct {
	Form PredictionForm `json:"form"`
	// Applied is true when a pending prefill was consumed by this read
	Applied bool   `json:"applied"`
	Notice  string `json:"notice,omitempty"`
}

var cropEmojis = map[string]string{
	"rice": "🌾", "maize": "🌽", "jute": "🌿", "cotton": "☁️", "coconut": "🥥", "papaya": "🥭",
	"orange": "🍊", "apple": "🍎", "muskmelon": "🍈", "watermelon": "🍉", "grapes": "🍇",
	"mango": "🥭", "banana": "🍌", "pomegranate": "🍎", "lentil": "🫘", "blackgram": "🫘",
	"mungbean": "🫘", "mothbeans": "🫘", "pigeonpeas": "🫘", "kidneybeans": "🫘",
	"chickpea": "🫘", "coffee": "☕",
}

// DefaultCropEmoji is shown for crops without a dedicated glyph
const DefaultCropEmoji = "🌱"

// CropEmoji never fails; unknown crops get the generic plant
func CropEmoji(crop string) string {
	if e, ok := cropEmojis[strings.ToLower(strings.TrimSpace(crop))]; ok {
		return e
	}
	return DefaultCropEmoji
}
