package services

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"alfredoptarigan/cv-formatter/internal/models"
	"alfredoptarigan/cv-formatter/internal/repositories"
)

type StatusService interface {
	GetStatus(ctx context.Context, documentID string, ownerID string) (*models.StatusResponse, error)
}

type statusService struct {
	cvRepo repositories.CVRepository
}

func NewStatusService(cvRepo repositories.CVRepository) StatusService {
	return &statusService{cvRepo: cvRepo}
}

func (s *statusService) GetStatus(ctx context.Context, documentID string, ownerID string) (*models.StatusResponse, error) {
	id, err := uuid.Parse(documentID)
	if err != nil {
		return nil, newValidationError("Invalid CV ID format")
	}

	cv, err := s.cvRepo.FindByID(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	return StatusFromCV(cv), nil
}

// StatusFromCV projects a record onto the polling payload.
func StatusFromCV(cv *models.CV) *models.StatusResponse {
	resp := &models.StatusResponse{
		DocumentID:  cv.ID.String(),
		Status:      cv.Status,
		ProcessedAt: cv.ProcessedAt,
		ModelUsed:   cv.ModelUsed,
	}

	switch cv.Status {
	case models.StatusCompleted:
		resp.StructuredCV = json.RawMessage(cv.StructuredCV)
		resp.StructuredRegistration = json.RawMessage(cv.StructuredRegistration)
		resp.PreviewMarkup = cv.PreviewMarkup
	case models.StatusFailed:
		resp.ProcessingError = cv.ProcessingError
	}

	return resp
}
