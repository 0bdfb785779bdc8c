package models

import (
	"encoding/json"
	"time"
)

type UploadResponse struct {
	CVID           string `json:"cvId"`
	Filename       string `json:"filename"`
	FileType       string `json:"fileType"`
	FileSize       int64  `json:"fileSize"`
	ContentPreview string `json:"contentPreview"`
}

type ProcessRequest struct {
	CVID  string `json:"cvId" validate:"required"`
	Model string `json:"model" validate:"required"`
}

type ProcessResponse struct {
	DocumentID string           `json:"documentId"`
	Status     ProcessingStatus `json:"status"`
}

// StatusResponse is the polling projection of a CV record. Artifacts are only
// set for completed records and the error only for failed ones.
type StatusResponse struct {
	DocumentID             string           `json:"documentId"`
	Status                 ProcessingStatus `json:"status"`
	ProcessingError        *string          `json:"processingError,omitempty"`
	ProcessedAt            *time.Time       `json:"processedAt,omitempty"`
	ModelUsed              *string          `json:"modelUsed,omitempty"`
	StructuredCV           json.RawMessage  `json:"structuredCv,omitempty"`
	StructuredRegistration json.RawMessage  `json:"structuredRegistration,omitempty"`
	PreviewMarkup          *string          `json:"previewMarkup,omitempty"`
}

type UpdateCVRequest struct {
	StructuredCV           json.RawMessage `json:"structuredCv,omitempty"`
	StructuredRegistration json.RawMessage `json:"structuredRegistration,omitempty"`
}

type SearchResponse struct {
	Query string      `json:"query"`
	Hits  []SearchHit `json:"hits"`
}

type SearchHit struct {
	CVID    string  `json:"cvId"`
	Score   float32 `json:"score"`
	Snippet string  `json:"snippet"`
}
