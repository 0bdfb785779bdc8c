package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"alfredoptarigan/cv-formatter/internal/models"
)

var (
	// ErrCVNotFound is returned both for missing records and records owned by
	// another user.
	ErrCVNotFound          = errors.New("CV not found")
	ErrCVAlreadyProcessing = errors.New("CV is already being processed")
	// ErrAttemptSuperseded means the record is no longer processing the given
	// attempt: it was reaped, resubmitted or already finished.
	ErrAttemptSuperseded = errors.New("processing attempt superseded")
)

// editableColumns are the only columns Update accepts.
var editableColumns = map[string]struct{}{
	"original_filename":       {},
	"structured_cv":           {},
	"structured_registration": {},
	"headshot_key":            {},
	"headshot_type":           {},
}

type CVRepository interface {
	Create(ctx context.Context, cv *models.CV) error
	FindByID(ctx context.Context, id uuid.UUID, ownerID string) (*models.CV, error)
	List(ctx context.Context, ownerID string) ([]models.CV, error)
	Update(ctx context.Context, id uuid.UUID, ownerID string, fields map[string]interface{}) error
	Delete(ctx context.Context, id uuid.UUID, ownerID string) error

	MarkProcessing(ctx context.Context, id uuid.UUID, ownerID string) (uuid.UUID, error)
	StartAttempt(ctx context.Context, id uuid.UUID, attempt uuid.UUID) error
	UpdateResult(ctx context.Context, id uuid.UUID, attempt uuid.UUID, data *ResultData) error
	UpdateError(ctx context.Context, id uuid.UUID, attempt uuid.UUID, model string, errorMsg string) error

	FindStaleProcessing(ctx context.Context, startedBefore time.Time, limit int) ([]models.CV, error)
	FailStale(ctx context.Context, id uuid.UUID, startedBefore time.Time, errorMsg string) (bool, error)
	ListCompleted(ctx context.Context, after uuid.UUID, limit int) ([]models.CV, error)
}

type ResultData struct {
	Model                  string
	StructuredCV           []byte
	StructuredRegistration []byte
	PreviewMarkup          string
}

type cvRepository struct {
	db *gorm.DB
}

func NewCVRepository(db *gorm.DB) CVRepository {
	return &cvRepository{db: db}
}

func (r *cvRepository) Create(ctx context.Context, cv *models.CV) error {
	if cv.ID == uuid.Nil {
		cv.ID = uuid.New()
	}
	cv.Status = models.StatusPending

	if err := r.db.WithContext(ctx).Create(cv).Error; err != nil {
		return fmt.Errorf("failed to create cv: %w", err)
	}
	return nil
}

func (r *cvRepository) FindByID(ctx context.Context, id uuid.UUID, ownerID string) (*models.CV, error) {
	var cv models.CV
	err := r.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		First(&cv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCVNotFound
		}
		return nil, fmt.Errorf("failed to find cv: %w", err)
	}
	return &cv, nil
}

func (r *cvRepository) List(ctx context.Context, ownerID string) ([]models.CV, error) {
	var cvs []models.CV
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&cvs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list cvs: %w", err)
	}
	return cvs, nil
}

func (r *cvRepository) Update(ctx context.Context, id uuid.UUID, ownerID string, fields map[string]interface{}) error {
	updates := make(map[string]interface{}, len(fields)+1)
	for col, v := range fields {
		if _, ok := editableColumns[col]; !ok {
			return fmt.Errorf("column %q is not editable", col)
		}
		updates[col] = v
	}
	updates["updated_at"] = time.Now()

	return r.updateOwned(ctx, id, ownerID, updates, "update cv")
}

func (r *cvRepository) Delete(ctx context.Context, id uuid.UUID, ownerID string) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Delete(&models.CV{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete cv: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrCVNotFound
	}
	return nil
}

// MarkProcessing moves a record into processing with a single conditional
// write, so two concurrent requests cannot both start a run. The returned
// attempt token guards every later write of this run.
func (r *cvRepository) MarkProcessing(ctx context.Context, id uuid.UUID, ownerID string) (uuid.UUID, error) {
	now := time.Now()
	attempt := uuid.New()
	result := r.db.WithContext(ctx).Model(&models.CV{}).
		Where("id = ? AND owner_id = ? AND status <> ?", id, ownerID, models.StatusProcessing).
		Updates(map[string]interface{}{
			"status":                models.StatusProcessing,
			"processing_error":      nil,
			"processing_attempt":    attempt,
			"processing_started_at": now,
			"updated_at":            now,
		})
	if result.Error != nil {
		return uuid.Nil, fmt.Errorf("failed to mark processing: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		return attempt, nil
	}

	var count int64
	err := r.db.WithContext(ctx).Model(&models.CV{}).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Count(&count).Error
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to mark processing: %w", err)
	}
	if count == 0 {
		return uuid.Nil, ErrCVNotFound
	}
	return uuid.Nil, ErrCVAlreadyProcessing
}

// StartAttempt restamps processing_started_at when a queued run actually
// begins, so queue time does not count towards the stale threshold.
func (r *cvRepository) StartAttempt(ctx context.Context, id uuid.UUID, attempt uuid.UUID) error {
	now := time.Now()
	return r.updateAttempt(ctx, id, attempt, map[string]interface{}{
		"processing_started_at": now,
		"updated_at":            now,
	}, "start attempt")
}

func (r *cvRepository) UpdateResult(ctx context.Context, id uuid.UUID, attempt uuid.UUID, data *ResultData) error {
	now := time.Now()
	updates := map[string]interface{}{
		"status":                  models.StatusCompleted,
		"model_used":              data.Model,
		"structured_cv":           datatypes.JSON(data.StructuredCV),
		"structured_registration": datatypes.JSON(data.StructuredRegistration),
		"preview_markup":          data.PreviewMarkup,
		"processing_error":        nil,
		"processed_at":            now,
		"updated_at":              now,
	}

	return r.updateAttempt(ctx, id, attempt, updates, "update result")
}

// UpdateError records a failed attempt. Structured artifacts from earlier
// attempts are left as they are.
func (r *cvRepository) UpdateError(ctx context.Context, id uuid.UUID, attempt uuid.UUID, model string, errorMsg string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"status":           models.StatusFailed,
		"processing_error": errorMsg,
		"processed_at":     now,
		"updated_at":       now,
	}
	if model != "" {
		updates["model_used"] = model
	}

	return r.updateAttempt(ctx, id, attempt, updates, "update error")
}

func (r *cvRepository) FindStaleProcessing(ctx context.Context, startedBefore time.Time, limit int) ([]models.CV, error) {
	var cvs []models.CV
	err := r.db.WithContext(ctx).
		Where("status = ? AND processing_started_at < ?", models.StatusProcessing, startedBefore).
		Order("processing_started_at ASC").
		Limit(limit).
		Find(&cvs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find stale jobs: %w", err)
	}
	return cvs, nil
}

// FailStale fails a record only if it is still the same stale run; a fresh
// submit that restarted processing in the meantime is left alone.
func (r *cvRepository) FailStale(ctx context.Context, id uuid.UUID, startedBefore time.Time, errorMsg string) (bool, error) {
	now := time.Now()
	result := r.db.WithContext(ctx).Model(&models.CV{}).
		Where("id = ? AND status = ? AND processing_started_at < ?", id, models.StatusProcessing, startedBefore).
		Updates(map[string]interface{}{
			"status":           models.StatusFailed,
			"processing_error": errorMsg,
			"processed_at":     now,
			"updated_at":       now,
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to fail stale job: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *cvRepository) ListCompleted(ctx context.Context, after uuid.UUID, limit int) ([]models.CV, error) {
	var cvs []models.CV
	err := r.db.WithContext(ctx).
		Where("status = ? AND id > ?", models.StatusCompleted, after).
		Order("id ASC").
		Limit(limit).
		Find(&cvs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list completed cvs: %w", err)
	}
	return cvs, nil
}

func (r *cvRepository) updateOwned(ctx context.Context, id uuid.UUID, ownerID string, updates map[string]interface{}, op string) error {
	result := r.db.WithContext(ctx).Model(&models.CV{}).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to %s: %w", op, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrCVNotFound
	}
	return nil
}

// updateAttempt writes only while the record is still processing the given
// attempt. A missing record and a finished or replaced attempt both report
// ErrAttemptSuperseded.
func (r *cvRepository) updateAttempt(ctx context.Context, id uuid.UUID, attempt uuid.UUID, updates map[string]interface{}, op string) error {
	result := r.db.WithContext(ctx).Model(&models.CV{}).
		Where("id = ? AND status = ? AND processing_attempt = ?", id, models.StatusProcessing, attempt).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to %s: %w", op, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrAttemptSuperseded
	}
	return nil
}
