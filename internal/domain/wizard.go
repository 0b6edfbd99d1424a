package domain

import (
	"context"
	"time"
)

// WizardStep is the position in the soil map wizard
type WizardStep int

const (
	StepSoilUpload WizardStep = 1
	StepLocation   WizardStep = 2
)

// WizardState is the per-session state of the soil map wizard
type WizardState struct {
	SessionID string              `json:"session_id"`
	Step      WizardStep          `json:"step"`
	Soil      *SoilClassification `json:"soil,omitempty"`
	SoilError string              `json:"soil_error,omitempty"`
	Location  LocationStep        `json:"location"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// NewWizardState starts a wizard at the upload step
func NewWizardState(sessionID string) *WizardState {
	return &WizardState{
		SessionID: sessionID,
		Step:      StepSoilUpload,
		Location:  LocationStep{State: LocationIdle, View: Center},
		UpdatedAt: time.Now(),
	}
}

// CanApply reports whether "Use All Data" is enabled
func (w *WizardState) CanApply() bool {
	return w.Soil != nil && w.Location.Weather != nil
}

// WizardView is the wizard state plus derived flags for rendering
type WizardView struct {
	*WizardState
	CanApply bool `json:"can_apply"`
}

// View derives the render flags
func (w *WizardState) View() WizardView {
	return WizardView{WizardState: w, CanApply: w.CanApply()}
}

// ApplyResult is returned by the "Use All Data" action
type ApplyResult struct {
	Prefill  Prefill `json:"prefill"`
	Redirect string  `json:"redirect"`
}

// WizardStore persists wizard state for the lifetime of a session
type WizardStore interface {
	Load(ctx context.Context, sessionID string) (*WizardState, error)
	Save(ctx context.Context, state *WizardState) error
	Delete(ctx context.Context, sessionID string) error
}
