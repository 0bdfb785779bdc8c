package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"alfredoptarigan/cv-formatter/internal/models"
	"alfredoptarigan/cv-formatter/internal/services"
)

const maxSearchLimit = 50

type SearchHandler struct {
	index services.TalentIndex
}

func NewSearchHandler(index services.TalentIndex) *SearchHandler {
	return &SearchHandler{index: index}
}

// HandleSearch handles GET /cvs/search?q=&limit=
func (h *SearchHandler) HandleSearch(c *fiber.Ctx) error {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Query parameter q is required")
	}

	limit := c.QueryInt("limit", 10)
	if limit <= 0 || limit > maxSearchLimit {
		limit = 10
	}

	if !h.index.Enabled() {
		return toHTTPError(services.ErrIndexDisabled, "")
	}

	hits, err := h.index.Search(c.UserContext(), ownerFrom(c), query, limit)
	if err != nil {
		return toHTTPError(err, "Failed to search CVs")
	}

	return c.JSON(models.SearchResponse{Query: query, Hits: hits})
}
