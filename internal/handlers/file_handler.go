package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"alfredoptarigan/cv-formatter/internal/docx"
	"alfredoptarigan/cv-formatter/internal/models"
	"alfredoptarigan/cv-formatter/internal/repositories"
	"alfredoptarigan/cv-formatter/internal/services"
)

const (
	maxHeadshotSize = 5 * 1024 * 1024
	previewLength   = 500

	docxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

var headshotTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/jpg":  true,
	"image/webp": true,
}

type FileHandler struct {
	cvRepo      repositories.CVRepository
	storage     services.StorageService
	extractor   services.TextExtractor
	schemas     *services.SchemaValidator
	index       services.TalentIndex
	maxFileSize int64
	log         *zap.SugaredLogger
}

func NewFileHandler(
	cvRepo repositories.CVRepository,
	storage services.StorageService,
	extractor services.TextExtractor,
	schemas *services.SchemaValidator,
	index services.TalentIndex,
	maxFileSize int64,
) *FileHandler {
	if index == nil {
		index = services.NoopTalentIndex{}
	}
	return &FileHandler{
		cvRepo:      cvRepo,
		storage:     storage,
		extractor:   extractor,
		schemas:     schemas,
		index:       index,
		maxFileSize: maxFileSize,
		log:         zap.S().Named("files"),
	}
}

func parseID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "Invalid CV ID format")
	}
	return id, nil
}

func readFormFile(fh *multipart.FileHeader) ([]byte, error) {
	src, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	return io.ReadAll(src)
}

// HandleUpload handles POST /files
func (h *FileHandler) HandleUpload(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "No file uploaded")
	}

	if fh.Size > h.maxFileSize {
		return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("File too large. Max size: %d bytes", h.maxFileSize))
	}

	fileType, err := h.extractor.DetectType(fh.Filename, fh.Header.Get(fiber.HeaderContentType))
	if err != nil {
		return toHTTPError(err, "")
	}

	data, err := readFormFile(fh)
	if err != nil {
		return toHTTPError(err, "Internal server error during file upload")
	}

	content, err := h.extractor.Extract(fileType, data)
	if err != nil {
		if errors.Is(err, services.ErrEmptyContent) {
			return toHTTPError(err, "")
		}
		h.log.Warnw("Failed to extract text", "filename", fh.Filename, "error", err)
		return fiber.NewError(fiber.StatusBadRequest, services.ErrEmptyContent.Error())
	}

	ctx := c.UserContext()
	key := services.NewObjectKey("cv", fh.Filename)
	if err := h.storage.Put(ctx, key, data, fileType); err != nil {
		return toHTTPError(err, "Internal server error during file upload")
	}

	cv := &models.CV{
		OwnerID:          ownerFrom(c),
		OriginalFilename: fh.Filename,
		FileType:         fileType,
		FileSize:         fh.Size,
		StorageKey:       key,
		RawText:          content,
	}
	if err := h.cvRepo.Create(ctx, cv); err != nil {
		// Cleanup uploaded file if database insert fails
		if delErr := h.storage.Delete(ctx, key); delErr != nil {
			h.log.Warnw("Failed to clean up stored upload", "key", key, "error", delErr)
		}
		return toHTTPError(err, "Internal server error during file upload")
	}

	h.log.Infow("📄 CV uploaded", "cv_id", cv.ID, "file_type", fileType, "size", fh.Size)

	return c.Status(fiber.StatusCreated).JSON(models.UploadResponse{
		CVID:           cv.ID.String(),
		Filename:       cv.OriginalFilename,
		FileType:       fileType,
		FileSize:       fh.Size,
		ContentPreview: truncateRunes(content, previewLength),
	})
}

// HandleList handles GET /files
func (h *FileHandler) HandleList(c *fiber.Ctx) error {
	cvs, err := h.cvRepo.List(c.UserContext(), ownerFrom(c))
	if err != nil {
		return toHTTPError(err, "Failed to fetch files")
	}
	return c.JSON(fiber.Map{"data": cvs})
}

// HandleGet handles GET /files/:id
func (h *FileHandler) HandleGet(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	cv, err := h.cvRepo.FindByID(c.UserContext(), id, ownerFrom(c))
	if err != nil {
		return toHTTPError(err, "Failed to fetch file")
	}
	return c.JSON(fiber.Map{"data": cv})
}

// HandleUpdate handles PATCH /files/:id. Only the structured artifacts are
// editable and both must still match their schemas.
func (h *FileHandler) HandleUpdate(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	var req models.UpdateCVRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request payload")
	}

	fields := map[string]interface{}{}
	if len(req.StructuredCV) > 0 {
		if err := h.schemas.ValidateCV(req.StructuredCV); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("Invalid structuredCv: %v", err))
		}
		fields["structured_cv"] = datatypes.JSON(req.StructuredCV)
	}
	if len(req.StructuredRegistration) > 0 {
		if err := h.schemas.ValidateRegistration(req.StructuredRegistration); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("Invalid structuredRegistration: %v", err))
		}
		fields["structured_registration"] = datatypes.JSON(req.StructuredRegistration)
	}
	if len(fields) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "Nothing to update")
	}

	ctx := c.UserContext()
	owner := ownerFrom(c)
	if err := h.cvRepo.Update(ctx, id, owner, fields); err != nil {
		return toHTTPError(err, "Failed to update file")
	}

	cv, err := h.cvRepo.FindByID(ctx, id, owner)
	if err != nil {
		return toHTTPError(err, "Failed to update file")
	}

	if len(req.StructuredCV) > 0 && h.index.Enabled() {
		if err := h.index.IndexCV(ctx, id, owner, req.StructuredCV); err != nil {
			h.log.Warnw("⚠️  Failed to re-index edited CV", "cv_id", id, "error", err)
		}
	}

	return c.JSON(fiber.Map{"data": cv})
}

// HandleDelete handles DELETE /files/:id
func (h *FileHandler) HandleDelete(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	ctx := c.UserContext()
	owner := ownerFrom(c)

	cv, err := h.cvRepo.FindByID(ctx, id, owner)
	if err != nil {
		return toHTTPError(err, "Failed to delete CV")
	}

	if err := h.cvRepo.Delete(ctx, id, owner); err != nil {
		return toHTTPError(err, "Failed to delete CV")
	}

	// The record is gone; leftovers in storage or the index are only logged.
	keys := []string{cv.StorageKey}
	if cv.HasHeadshot() {
		keys = append(keys, *cv.HeadshotKey)
	}
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := h.storage.Delete(ctx, key); err != nil {
			h.log.Warnw("Failed to delete stored object", "cv_id", id, "key", key, "error", err)
		}
	}
	if err := h.index.Remove(ctx, id); err != nil {
		h.log.Warnw("Failed to remove CV from index", "cv_id", id, "error", err)
	}

	return c.JSON(fiber.Map{"message": "CV deleted successfully"})
}

// HandleHeadshot handles POST /files/:id/headshot
func (h *FileHandler) HandleHeadshot(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	fh, err := c.FormFile("photo")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "No photo uploaded")
	}
	if fh.Size > maxHeadshotSize {
		return fiber.NewError(fiber.StatusBadRequest, "Photo too large. Max size: 5MB")
	}
	contentType := strings.ToLower(fh.Header.Get(fiber.HeaderContentType))
	if !headshotTypes[contentType] {
		return fiber.NewError(fiber.StatusBadRequest, "Only PNG/JPG/WEBP images allowed")
	}

	ctx := c.UserContext()
	owner := ownerFrom(c)

	cv, err := h.cvRepo.FindByID(ctx, id, owner)
	if err != nil {
		return toHTTPError(err, "Failed to upload headshot")
	}

	data, err := readFormFile(fh)
	if err != nil {
		return toHTTPError(err, "Failed to upload headshot")
	}

	key := services.NewObjectKey("headshot", fh.Filename)
	if err := h.storage.Put(ctx, key, data, contentType); err != nil {
		return toHTTPError(err, "Failed to upload headshot")
	}

	err = h.cvRepo.Update(ctx, id, owner, map[string]interface{}{
		"headshot_key":  key,
		"headshot_type": contentType,
	})
	if err != nil {
		if delErr := h.storage.Delete(ctx, key); delErr != nil {
			h.log.Warnw("Failed to clean up stored headshot", "key", key, "error", delErr)
		}
		return toHTTPError(err, "Failed to upload headshot")
	}

	if cv.HasHeadshot() {
		if err := h.storage.Delete(ctx, *cv.HeadshotKey); err != nil {
			h.log.Warnw("Failed to delete previous headshot", "cv_id", id, "error", err)
		}
	}

	return c.JSON(fiber.Map{"message": "Headshot uploaded successfully"})
}

// HandleExportCV handles GET /files/:id/export/cv
func (h *FileHandler) HandleExportCV(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	ctx := c.UserContext()
	cv, err := h.cvRepo.FindByID(ctx, id, ownerFrom(c))
	if err != nil {
		return toHTTPError(err, "Failed to export CV")
	}

	if len(cv.StructuredCV) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "CV not processed yet")
	}

	var structured models.StructuredCV
	if err := json.Unmarshal(cv.StructuredCV, &structured); err != nil {
		return toHTTPError(err, "Failed to export CV")
	}

	var headshot *docx.Image
	if cv.HasHeadshot() {
		data, err := h.storage.Get(ctx, *cv.HeadshotKey)
		if err != nil {
			h.log.Warnw("Headshot unavailable, exporting with placeholder", "cv_id", id, "error", err)
		} else {
			headshot = &docx.Image{Data: data}
			if cv.HeadshotType != nil {
				headshot.ContentType = *cv.HeadshotType
			}
		}
	}

	out, err := docx.RenderCV(&structured, headshot)
	if err != nil {
		return toHTTPError(err, "Failed to export CV")
	}

	return sendDocx(c, docx.ExportFilename(cv.OriginalFilename, "Client_CV"), out)
}

// HandleExportRegistration handles GET /files/:id/export/registration
func (h *FileHandler) HandleExportRegistration(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	cv, err := h.cvRepo.FindByID(c.UserContext(), id, ownerFrom(c))
	if err != nil {
		return toHTTPError(err, "Failed to export registration form")
	}

	if len(cv.StructuredRegistration) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "Registration data not processed yet")
	}

	var reg models.Registration
	if err := json.Unmarshal(cv.StructuredRegistration, &reg); err != nil {
		return toHTTPError(err, "Failed to export registration form")
	}

	out, err := docx.RenderRegistration(&reg)
	if err != nil {
		return toHTTPError(err, "Failed to export registration form")
	}

	return sendDocx(c, docx.ExportFilename(cv.OriginalFilename, "Registration_Form"), out)
}

func sendDocx(c *fiber.Ctx, filename string, data []byte) error {
	c.Set(fiber.HeaderContentType, docxContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, filename))
	return c.Send(data)
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
