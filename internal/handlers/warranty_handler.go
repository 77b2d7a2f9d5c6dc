package handlers

import (
	"warranty/internal/middleware"
	"warranty/internal/models"
	"warranty/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// WarrantyHandler handles HTTP requests for warranty claims.
type WarrantyHandler struct {
	service  *services.WarrantyService
	validate *validator.Validate
}

// NewWarrantyHandler creates a new WarrantyHandler.
func NewWarrantyHandler(service *services.WarrantyService) *WarrantyHandler {
	return &WarrantyHandler{
		service:  service,
		validate: newValidator(),
	}
}

// RegisterRoutes registers the warranty routes with the Fiber app.
func (h *WarrantyHandler) RegisterRoutes(router fiber.Router, g Guards) {
	router.Post("/warranty", g.Auth, h.HandleFileClaim)
	router.Get("/get_warranty/:serial_number", g.Auth, h.HandleGetClaim)
	router.Post("/warranty_status", g.Auth, g.Admin, h.HandleUpdateClaimStatus)
	router.Get("/registered_warranty_claims", g.Auth, g.Admin, h.HandleGetClaims)
	router.Get("/warranty_status_history/:serial_number", g.Auth, g.Admin, h.HandleGetClaimHistory)
}

// ClaimRequest represents the request body for filing a claim.
type ClaimRequest struct {
	Email           string `json:"email"`
	SerialNumber    string `json:"serial_number" validate:"required"`
	CustomerRemarks string `json:"customer_remarks"`
}

// HandleFileClaim files a warranty claim. The email defaults to the caller's.
func (h *WarrantyHandler) HandleFileClaim(c *fiber.Ctx) error {
	var req ClaimRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := h.validate.Struct(req); err != nil {
		return validationError(err, "Serial number is required.")
	}
	if req.Email == "" {
		if identity := middleware.CurrentIdentity(c); identity != nil {
			req.Email = identity.Email
		}
	}

	claim, err := h.service.FileClaim(c.UserContext(), req.Email, req.SerialNumber, req.CustomerRemarks)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Warranty record inserted",
		"id":      claim.ID,
	})
}

// ClaimStatusRequest represents the request body for an admin status change.
type ClaimStatusRequest struct {
	SerialNumber string `json:"serial_number" validate:"required"`
	ClaimStatus  string `json:"claim_status" validate:"required,oneof=Pending Approved Rejected"`
}

// HandleUpdateClaimStatus overwrites a claim's status.
func (h *WarrantyHandler) HandleUpdateClaimStatus(c *fiber.Ctx) error {
	var req ClaimStatusRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := h.validate.Struct(req); err != nil {
		if req.SerialNumber == "" || req.ClaimStatus == "" {
			return validationError(err, "Serial number and claim status are required.")
		}
		return validationError(err, "Invalid claim status. Must be one of: Pending, Approved, Rejected")
	}

	changedBy := ""
	if identity := middleware.CurrentIdentity(c); identity != nil {
		changedBy = identity.Email
	}
	if _, err := h.service.UpdateClaimStatus(c.UserContext(), req.SerialNumber, req.ClaimStatus, changedBy); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Claim status updated successfully."})
}

// HandleGetClaim returns the claim for a serial number as a one-element list.
func (h *WarrantyHandler) HandleGetClaim(c *fiber.Ctx) error {
	claim, err := h.service.GetClaim(c.UserContext(), pathParam(c, "serial_number"))
	if err != nil {
		return err
	}
	return c.JSON([]models.WarrantyClaim{*claim})
}

// HandleGetClaims lists every claim.
func (h *WarrantyHandler) HandleGetClaims(c *fiber.Ctx) error {
	claims, err := h.service.ListClaims(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"registrations": claims})
}

// HandleGetClaimHistory lists the audited status changes of a claim.
func (h *WarrantyHandler) HandleGetClaimHistory(c *fiber.Ctx) error {
	history, err := h.service.ClaimHistory(c.UserContext(), pathParam(c, "serial_number"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"history": history})
}
