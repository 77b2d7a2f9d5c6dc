// Package handlers maps HTTP requests onto the warranty services.
package handlers

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strings"

	"warranty/internal/apperror"
	"warranty/pkg/logger"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Guards are the middleware chains routes are mounted behind.
type Guards struct {
	Auth      fiber.Handler // bearer token required
	Admin     fiber.Handler // admin role required; runs after Auth
	RateLimit fiber.Handler
}

// ErrorHandler writes every error returned by a handler or middleware as
// {"error": message}. Classified errors keep their status.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		body := fiber.Map{"error": appErr.Message}
		if len(appErr.Details) > 0 {
			body["errors"] = appErr.Details
		}
		if appErr.Kind == apperror.KindInternal {
			logger.FromCtx(c).Error("Request failed", zap.Error(err))
		}
		return c.Status(appErr.Status()).JSON(body)
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(fiber.Map{"error": fiberErr.Message})
	}

	logger.FromCtx(c).Error("Request failed", zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// validationError converts validator output into a BadRequest with message
// and per-field details.
func validationError(err error, message string) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return apperror.Wrap(apperror.Validation(message, nil), err)
	}
	details := make(map[string]string, len(validationErrors))
	for _, e := range validationErrors {
		details[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
	}
	return apperror.Validation(message, details)
}

func parseBody(c *fiber.Ctx, out interface{}) error {
	if err := c.BodyParser(out); err != nil {
		logger.FromCtx(c).Info("Error parsing request body", zap.Error(err))
		return apperror.Wrap(apperror.BadRequest("Invalid request body"), err)
	}
	return nil
}

// pathParam returns a path parameter with percent-encoding removed.
func pathParam(c *fiber.Ctx, name string) string {
	raw := c.Params(name)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}
