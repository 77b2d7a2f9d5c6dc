package handlers

import (
	"strings"

	"warranty/internal/apperror"
	"warranty/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// CatalogHandler handles HTTP requests for the product catalog.
type CatalogHandler struct {
	service  *services.CatalogService
	validate *validator.Validate
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(service *services.CatalogService) *CatalogHandler {
	return &CatalogHandler{
		service:  service,
		validate: newValidator(),
	}
}

// RegisterRoutes registers the catalog routes with the Fiber app. Every
// catalog route is admin only.
func (h *CatalogHandler) RegisterRoutes(router fiber.Router, g Guards) {
	router.Get("/products", g.Auth, g.Admin, h.HandleGetProducts)
	router.Post("/products", g.Auth, g.Admin, h.HandleAddProduct)
	router.Post("/products/bulk", g.Auth, g.Admin, h.HandleBulkAddProducts)
	router.Delete("/products/:serial_number", g.Auth, g.Admin, h.HandleDeleteProduct)
	router.Get("/shipped_products", g.Auth, g.Admin, h.HandleGetShippedProducts)
}

// ProductRequest represents the request body for a new catalog entry.
type ProductRequest struct {
	ProductName  string `json:"product_name" form:"product_name" validate:"required"`
	SerialNumber string `json:"serial_number" form:"serial_number" validate:"required"`
}

// HandleGetProducts lists the whole catalog.
func (h *CatalogHandler) HandleGetProducts(c *fiber.Ctx) error {
	products, err := h.service.ListProducts(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(products)
}

// HandleGetShippedProducts lists the catalog for the shipped-products view.
func (h *CatalogHandler) HandleGetShippedProducts(c *fiber.Ctx) error {
	products, err := h.service.ListShipped(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"registrations": products})
}

// HandleAddProduct provisions one catalog entry.
func (h *CatalogHandler) HandleAddProduct(c *fiber.Ctx) error {
	var req ProductRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := h.validate.Struct(req); err != nil {
		return validationError(err, "Both product_name and serial_number are required.")
	}

	if _, err := h.service.AddProduct(c.UserContext(), req.ProductName, req.SerialNumber); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Product inserted successfully."})
}

// BulkProductsRequest is the JSON form of a bulk upload.
type BulkProductsRequest struct {
	Products []services.ProductRow `json:"products"`
}

// HandleBulkAddProducts accepts either a JSON list or a CSV file in the
// "file" multipart field.
func (h *CatalogHandler) HandleBulkAddProducts(c *fiber.Ctx) error {
	var rows []services.ProductRow

	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		fh, err := c.FormFile("file")
		if err != nil {
			return apperror.Wrap(apperror.BadRequest("A CSV file is required in the \"file\" field."), err)
		}
		f, err := fh.Open()
		if err != nil {
			return apperror.Wrap(apperror.BadRequest("Could not read uploaded file."), err)
		}
		defer f.Close()

		if rows, err = services.ParseProductCSV(f); err != nil {
			return err
		}
	} else {
		var req BulkProductsRequest
		if err := parseBody(c, &req); err != nil {
			return err
		}
		rows = req.Products
	}

	result, err := h.service.BulkAddProducts(c.UserContext(), rows)
	if err != nil {
		return err
	}
	return c.JSON(result)
}

// HandleDeleteProduct removes a catalog entry by serial number.
func (h *CatalogHandler) HandleDeleteProduct(c *fiber.Ctx) error {
	product, err := h.service.DeleteProduct(c.UserContext(), pathParam(c, "serial_number"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message":         "Product deleted successfully",
		"deleted_product": product,
	})
}
