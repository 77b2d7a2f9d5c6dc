package handlers

import (
	"warranty/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// SurveyHandler handles the public customer survey.
type SurveyHandler struct {
	service  *services.SurveyService
	validate *validator.Validate
}

// NewSurveyHandler creates a new SurveyHandler.
func NewSurveyHandler(service *services.SurveyService) *SurveyHandler {
	return &SurveyHandler{
		service:  service,
		validate: newValidator(),
	}
}

// RegisterRoutes registers the survey route with the Fiber app.
func (h *SurveyHandler) RegisterRoutes(router fiber.Router, g Guards) {
	router.Post("/customers", g.RateLimit, h.HandleSubmitSurvey)
}

// HandleSubmitSurvey stores a survey submission.
func (h *SurveyHandler) HandleSubmitSurvey(c *fiber.Ctx) error {
	var req services.SurveyRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := h.validate.Struct(req); err != nil {
		return validationError(err, "Customer name and location are required.")
	}

	id, err := h.service.Submit(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message": "Customer inserted successfully",
		"id":      id,
	})
}
