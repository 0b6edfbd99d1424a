package domain

import (
	"strings"
	"time"
)

// ImageUpload is one image file received from the browser
type ImageUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Empty reports whether no image was selected
func (u ImageUpload) Empty() bool {
	return len(u.Data) == 0
}

// Nutrients are the estimated soil values returned by the classifier
type Nutrients struct {
	Nitrogen   float64 `json:"Nitrogen"`
	Phosphorus float64 `json:"Phosphorus"`
	Potassium  float64 `json:"Potassium"`
	PH         float64 `json:"ph"`
}

// SoilClassification is the result of one soil image analysis
type SoilClassification struct {
	SoilType   string    `json:"soil_type"`
	Confidence string    `json:"confidence"`
	Nutrients  Nutrients `json:"nutrients"`
	ImageKey   string    `json:"image_key,omitempty"`
	AnalyzedAt time.Time `json:"analyzed_at"`
}

// DiseaseRecommendation is the treatment advice for a diagnosis
type DiseaseRecommendation struct {
	Fertilizers string `json:"fertilizers"`
	Notes       string `json:"notes,omitempty"`
}

// DiseaseDiagnosis is the result of one leaf image analysis
type DiseaseDiagnosis struct {
	Disease        string                `json:"disease"`
	Confidence     string                `json:"confidence"`
	Recommendation DiseaseRecommendation `json:"recommendation"`
	Healthy        bool                  `json:"healthy"`
	ImageKey       string                `json:"image_key,omitempty"`
	AnalyzedAt     time.Time             `json:"analyzed_at"`
}

// IsHealthyLabel matches the classifier's "healthy" class names
func IsHealthyLabel(disease string) bool {
	return strings.Contains(strings.ToLower(disease), "healthy")
}
