package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"

	"github.com/farmbud/backend/internal/domain"
)

// MLBridge handles communication with the Python model-serving backend
type MLBridge struct {
	serviceURL string
	httpClient *http.Client
}

// NewMLBridge creates a new ML bridge
func NewMLBridge(serviceURL string) *MLBridge {
	return &MLBridge{
		serviceURL: serviceURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type soilResponse struct {
	SoilType   string           `json:"soil_type"`
	Confidence string           `json:"confidence"`
	Nutrients  domain.Nutrients `json:"nutrients"`
}

type diseaseResponse struct {
	Disease        string                       `json:"disease"`
	Confidence     string                       `json:"confidence"`
	Recommendation domain.DiseaseRecommendation `json:"recommendation"`
}

type cropResponse struct {
	Crop string `json:"crop"`
}

// ClassifySoil uploads a soil image to /predict_soil
func (b *MLBridge) ClassifySoil(ctx context.Context, upload domain.ImageUpload) (domain.SoilClassification, error) {
	if upload.Empty() {
		return domain.SoilClassification{}, domain.ErrNoImage
	}

	var out soilResponse
	if err := b.postImage(ctx, "/predict_soil", upload, &out); err != nil {
		return domain.SoilClassification{}, err
	}

	return domain.SoilClassification{
		SoilType:   out.SoilType,
		Confidence: out.Confidence,
		Nutrients:  out.Nutrients,
		AnalyzedAt: time.Now(),
	}, nil
}

// ClassifyDisease uploads a leaf image to /predict_disease
func (b *MLBridge) ClassifyDisease(ctx context.Context, upload domain.ImageUpload) (domain.DiseaseDiagnosis, error) {
	if upload.Empty() {
		return domain.DiseaseDiagnosis{}, domain.ErrNoImage
	}

	var out diseaseResponse
	if err := b.postImage(ctx, "/predict_disease", upload, &out); err != nil {
		return domain.DiseaseDiagnosis{}, err
	}

	return domain.DiseaseDiagnosis{
		Disease:        out.Disease,
		Confidence:     out.Confidence,
		Recommendation: out.Recommendation,
		Healthy:        domain.IsHealthyLabel(out.Disease),
		AnalyzedAt:     time.Now(),
	}, nil
}

// Recommend calls /predict and returns the crop label
func (b *MLBridge) Recommend(ctx context.Context, features domain.CropFeatures) (string, error) {
	body, err := json.Marshal(features)
	if err != nil {
		return "", fmt.Errorf("ml_bridge: failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/predict", b.serviceURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("ml_bridge: failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("ml_bridge: %w: %v", domain.ErrNetworkUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &domain.ServerRejectedError{
			Service:    "prediction",
			StatusCode: resp.StatusCode,
			Kind:       domain.ErrPredictionServer,
		}
	}

	var out cropResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("ml_bridge: failed to decode response: %w", err)
	}

	return out.Crop, nil
}

// Health checks that the ML service answers HTTP. The backend has no health
// route, so any reply below 500 (including 404) counts as up.
func (b *MLBridge) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.serviceURL+"/", nil)
	if err != nil {
		return fmt.Errorf("ml_bridge: failed to create health request: %w", err)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ml_bridge: health check failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("ml_bridge: health check returned status %d", resp.StatusCode)
	}

	return nil
}

// postImage sends upload as multipart field "file" and decodes the JSON answer into out
func (b *MLBridge) postImage(ctx context.Context, path string, upload domain.ImageUpload, out any) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	filename := upload.Filename
	if filename == "" {
		filename = "upload"
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	contentType := upload.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)

	part, err := mw.CreatePart(header)
	if err != nil {
		return fmt.Errorf("ml_bridge: failed to create form part: %w", err)
	}
	if _, err := part.Write(upload.Data); err != nil {
		return fmt.Errorf("ml_bridge: failed to write image: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("ml_bridge: failed to close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.serviceURL+path, &buf)
	if err != nil {
		return fmt.Errorf("ml_bridge: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ml_bridge: %w: %v", domain.ErrNetworkUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &domain.ServerRejectedError{
			Service:    "classification",
			StatusCode: resp.StatusCode,
			Kind:       domain.ErrClassificationServer,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("ml_bridge: failed to decode response: %w", err)
	}
	return nil
}
