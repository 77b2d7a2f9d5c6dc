package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/url"
	"strings"
	"unicode/utf8"

	"warranty/internal/apperror"
	"warranty/internal/middleware"
	"warranty/internal/services"

	"github.com/gofiber/fiber/v2"
)

const invoiceField = "invoice_receipt"

// RegistrationHandler handles HTTP requests for product registrations.
type RegistrationHandler struct {
	service *services.RegistrationService
}

// NewRegistrationHandler creates a new RegistrationHandler.
func NewRegistrationHandler(service *services.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{service: service}
}

// RegisterRoutes registers the registration routes with the Fiber app.
func (h *RegistrationHandler) RegisterRoutes(router fiber.Router, g Guards) {
	router.Post("/product_registration", g.RateLimit, h.HandleRegisterProducts)
	router.Get("/user_registrations/:email", g.Auth, h.HandleGetUserRegistrations)
	router.Get("/registered_users", g.Auth, g.Admin, h.HandleGetRegisteredUsers)
	router.Get("/download/invoice/:serial_number", g.Auth, h.HandleDownloadInvoice)
}

// StringList decodes either a single JSON string or an array of strings.
type StringList []string

// UnmarshalJSON implements json.Unmarshaler.
func (l *StringList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var list []string
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		*l = list
		return nil
	}
	if bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err != nil {
		return err
	}
	*l = StringList{single}
	return nil
}

// RegistrationRequest is the JSON form of a product registration.
type RegistrationRequest struct {
	InvoiceID    string     `json:"invoice_id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	MobileNumber string     `json:"mobile_number"`
	ProductName  StringList `json:"product_name"`
	SerialNumber StringList `json:"serial_number"`
}

// HandleRegisterProducts registers one or more products. Accepts multipart
// (with an optional invoice_receipt file), urlencoded or JSON bodies.
func (h *RegistrationHandler) HandleRegisterProducts(c *fiber.Ctx) error {
	req, invoice, cleanup, err := parseRegistration(c)
	if err != nil {
		return err
	}
	defer cleanup()

	result, err := h.service.RegisterProducts(c.UserContext(), req, invoice)
	if err != nil {
		return err
	}

	resp := fiber.Map{
		"message":  "Product(s) registered successfully",
		"inserted": result.Inserted,
	}
	if result.TempPassword != "" {
		resp["temp_password"] = result.TempPassword
	}
	return c.JSON(resp)
}

func parseRegistration(c *fiber.Ctx) (services.RegistrationRequest, *services.InvoiceUpload, func(), error) {
	noop := func() {}
	contentType := c.Get(fiber.HeaderContentType)

	switch {
	case strings.HasPrefix(contentType, fiber.MIMEMultipartForm):
		form, err := c.MultipartForm()
		if err != nil {
			return services.RegistrationRequest{}, nil, noop, apperror.Wrap(apperror.BadRequest("Invalid multipart form"), err)
		}
		req := registrationFromValues(func(key string) []string { return form.Value[key] })

		files := form.File[invoiceField]
		if len(files) == 0 {
			return req, nil, noop, nil
		}
		invoice, closer, err := openInvoice(files[0])
		if err != nil {
			return req, nil, noop, err
		}
		return req, invoice, closer, nil

	case strings.HasPrefix(contentType, fiber.MIMEApplicationForm):
		args := c.Request().PostArgs()
		req := registrationFromValues(func(key string) []string {
			raw := args.PeekMulti(key)
			values := make([]string, 0, len(raw))
			for _, v := range raw {
				values = append(values, string(v))
			}
			return values
		})
		return req, nil, noop, nil

	default:
		var body RegistrationRequest
		if err := parseBody(c, &body); err != nil {
			return services.RegistrationRequest{}, nil, noop, err
		}
		return services.RegistrationRequest{
			InvoiceID:     body.InvoiceID,
			Name:          body.Name,
			Email:         body.Email,
			MobileNumber:  body.MobileNumber,
			ProductNames:  body.ProductName,
			SerialNumbers: body.SerialNumber,
		}, nil, noop, nil
	}
}

// registrationFromValues builds a request from form values. Repeated
// product_name / serial_number keys (optionally suffixed with []) form the
// parallel lists.
func registrationFromValues(values func(key string) []string) services.RegistrationRequest {
	first := func(key string) string {
		if v := values(key); len(v) > 0 {
			return v[0]
		}
		return ""
	}
	list := func(key string) []string {
		if v := values(key); len(v) > 0 {
			return v
		}
		return values(key + "[]")
	}
	return services.RegistrationRequest{
		InvoiceID:     first("invoice_id"),
		Name:          first("name"),
		Email:         first("email"),
		MobileNumber:  first("mobile_number"),
		ProductNames:  list("product_name"),
		SerialNumbers: list("serial_number"),
	}
}

func openInvoice(fh *multipart.FileHeader) (*services.InvoiceUpload, func(), error) {
	f, err := fh.Open()
	if err != nil {
		return nil, nil, apperror.Wrap(apperror.BadRequest("Could not read invoice file"), err)
	}
	return &services.InvoiceUpload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get(fiber.HeaderContentType),
		Size:        fh.Size,
		Body:        f,
	}, func() { f.Close() }, nil
}

// HandleGetUserRegistrations lists registrations for an email. Customers
// may only list their own.
func (h *RegistrationHandler) HandleGetUserRegistrations(c *fiber.Ctx) error {
	email := pathParam(c, "email")
	if err := middleware.RequireSelfOrAdmin(c, email); err != nil {
		return err
	}

	regs, err := h.service.ListByEmail(c.UserContext(), email)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"registrations": regs})
}

// HandleGetRegisteredUsers lists every registration.
func (h *RegistrationHandler) HandleGetRegisteredUsers(c *fiber.Ctx) error {
	regs, err := h.service.ListAll(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"registrations": regs})
}

// HandleDownloadInvoice streams the archived invoice as an attachment.
func (h *RegistrationHandler) HandleDownloadInvoice(c *fiber.Ctx) error {
	invoice, err := h.service.OpenInvoice(c.UserContext(), pathParam(c, "serial_number"), middleware.CurrentIdentity(c))
	if err != nil {
		return err
	}

	c.Set(fiber.HeaderContentDisposition, ContentDisposition(invoice.Filename))
	c.Set(fiber.HeaderContentType, invoice.ContentType)
	if invoice.Size > 0 {
		return c.SendStream(invoice.Body, int(invoice.Size))
	}
	return c.SendStream(invoice.Body)
}

// ContentDisposition builds an attachment header that keeps filename as-is.
// Non-ASCII names also get an RFC 5987 filename* parameter.
func ContentDisposition(filename string) string {
	header := fmt.Sprintf("attachment; filename=%q", filename)
	for _, r := range filename {
		if r >= utf8.RuneSelf {
			return header + "; filename*=UTF-8''" + url.PathEscape(filename)
		}
	}
	return header
}
