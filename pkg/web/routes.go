package web

import "github.com/gofiber/fiber/v3"

// Routes mounts every API endpoint on router.
func (h *APIHandlers) Routes(router fiber.Router) {
	router.Get("/health", h.HealthCheck)
	router.Get("/actions", h.GetAvailableActions)
	router.Post("/events", h.PostEvent)

	w := router.Group("/workflows")
	w.Get("/", h.GetWorkflows)
	w.Post("/", h.CreateWorkflow)
	w.Get("/:id", h.GetWorkflow)
	w.Patch("/:id", h.UpdateWorkflow)
	w.Delete("/:id", h.DeleteWorkflow)
	w.Post("/:id/publish", h.PublishWorkflow)
	w.Post("/:id/pause", h.PauseWorkflow)

	e := router.Group("/enrollments")
	e.Get("/", h.GetEnrollments)
	e.Get("/:id", h.GetEnrollment)
	e.Get("/:id/executions", h.GetEnrollmentExecutions)
	e.Post("/:id/exit", h.ExitEnrollment)

	m := router.Group("/merge-tags")
	m.Post("/validate", h.ValidateMergeTags)
	m.Post("/preview", h.PreviewMergeTags)
}
