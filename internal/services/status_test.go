package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alfredoptarigan/cv-formatter/internal/models"
	"alfredoptarigan/cv-formatter/internal/repositories"
	"alfredoptarigan/cv-formatter/internal/testutil"
)

func TestStatusService_GetStatus(t *testing.T) {
	repo := repositories.NewCVRepository(testutil.NewDB(t))
	svc := NewStatusService(repo)
	ctx := context.Background()

	cv := &models.CV{OwnerID: owner, RawText: "Jane Doe"}
	require.NoError(t, repo.Create(ctx, cv))

	st, err := svc.GetStatus(ctx, cv.ID.String(), owner)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, st.Status)
	assert.Nil(t, st.StructuredCV)
	assert.Nil(t, st.ProcessingError)

	attempt, err := repo.MarkProcessing(ctx, cv.ID, owner)
	require.NoError(t, err)
	require.NoError(t, repo.UpdateResult(ctx, cv.ID, attempt, &repositories.ResultData{
		Model:                  "gemini",
		StructuredCV:           []byte(validCVJSON),
		StructuredRegistration: []byte(validRegistrationJSON),
		PreviewMarkup:          validPreview,
	}))

	st, err = svc.GetStatus(ctx, cv.ID.String(), owner)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, st.Status)
	assert.JSONEq(t, validCVJSON, string(st.StructuredCV))
	require.NotNil(t, st.ProcessedAt)
	assert.Equal(t, "gemini", *st.ModelUsed)
}

func TestStatusService_Errors(t *testing.T) {
	repo := repositories.NewCVRepository(testutil.NewDB(t))
	svc := NewStatusService(repo)
	ctx := context.Background()

	_, err := svc.GetStatus(ctx, "not-a-uuid", owner)
	var vErr *ValidationError
	assert.True(t, errors.As(err, &vErr))

	_, err = svc.GetStatus(ctx, uuid.NewString(), owner)
	assert.ErrorIs(t, err, repositories.ErrCVNotFound)

	cv := &models.CV{OwnerID: owner, RawText: "Jane Doe"}
	require.NoError(t, repo.Create(ctx, cv))
	_, err = svc.GetStatus(ctx, cv.ID.String(), "owner-2")
	assert.ErrorIs(t, err, repositories.ErrCVNotFound)
}
