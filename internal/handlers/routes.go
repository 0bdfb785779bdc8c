package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Files   *FileHandler
	Process *ProcessHandler
	Status  *StatusHandler
	Search  *SearchHandler
}

// RegisterRoutes mounts the public health check and the authenticated API
// under /api/v1.
func RegisterRoutes(app *fiber.App, auth *Authenticator, h Handlers) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now(),
		})
	})

	api := app.Group("/api/v1", auth.Middleware())

	files := api.Group("/files")
	files.Post("/", h.Files.HandleUpload)
	files.Get("/", h.Files.HandleList)
	files.Get("/:id", h.Files.HandleGet)
	files.Patch("/:id", h.Files.HandleUpdate)
	files.Delete("/:id", h.Files.HandleDelete)
	files.Post("/:id/headshot", h.Files.HandleHeadshot)
	files.Get("/:id/export/cv", h.Files.HandleExportCV)
	files.Get("/:id/export/registration", h.Files.HandleExportRegistration)

	ai := api.Group("/ai")
	ai.Post("/process", h.Process.HandleProcess)
	ai.Get("/status/:id", h.Status.HandleGetStatus)

	api.Get("/cvs/search", h.Search.HandleSearch)
}
