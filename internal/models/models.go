package models

import (
	"github.com/heirloom-app/heirloom/internal/crop"
	"github.com/heirloom-app/heirloom/internal/wizard"
)

// CreateCropRequest opens a crop session for an image URL or data URI
type CreateCropRequest struct {
	ImageURL string `json:"image_url"`
}

type ZoomRequest struct {
	Zoom float64 `json:"zoom"`
}

// PanRequest carries either a pointer gesture (phase start/move/end with
// x, y) or, without a phase, a relative dx, dy
type PanRequest struct {
	Phase string  `json:"phase,omitempty"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	DX    float64 `json:"dx"`
	DY    float64 `json:"dy"`
}

// CommitRequest optionally attaches the cropped avatar to a family member
type CommitRequest struct {
	PersonID string `json:"person_id,omitempty"`
}

// CommitResponse describes a stored avatar
type CommitResponse struct {
	URL            string `json:"url"`
	Filename       string `json:"filename"`
	MIMEType       string `json:"mime_type"`
	PreviewDataURL string `json:"preview_data_url"`
	Width          int    `json:"width"`
	Height         int    `json:"height"`
	PersonID       string `json:"person_id,omitempty"`
}

// CropResponse wraps a session snapshot
type CropResponse struct {
	Session crop.Snapshot `json:"session"`
}

// StartWizardRequest carries the deep-link values; Prompt is URL-encoded
type StartWizardRequest struct {
	PersonID string  `json:"person_id,omitempty"`
	Prompt   *string `json:"prompt,omitempty"`
}

type SelectPersonRequest struct {
	PersonID string `json:"person_id"`
}

type SelectTypeRequest struct {
	Type string `json:"type"`
}

// SelectPromptRequest selects a prompt; an empty text means "write my own"
type SelectPromptRequest struct {
	PromptText string `json:"prompt_text"`
}

type WizardResponse struct {
	Session wizard.Snapshot `json:"session"`
}

// FinishResponse is the navigation intent for the host router
type FinishResponse struct {
	Intent wizard.Intent `json:"intent"`
	URL    string        `json:"url"`
}

// ErrorResponse is the JSON body of every error reply
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}
