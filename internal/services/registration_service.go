package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"warranty/internal/apperror"
	"warranty/internal/models"
	"warranty/internal/repositories"
	"warranty/pkg/rabbitmq"
	"warranty/pkg/storage"

	"go.uber.org/zap"
)

// RegistrationRequest is a customer's ownership claim over one or more
// catalog entries. ProductNames and SerialNumbers are parallel lists.
type RegistrationRequest struct {
	InvoiceID     string
	Name          string
	Email         string
	MobileNumber  string
	ProductNames  []string
	SerialNumbers []string
}

// InvoiceUpload is the optional proof of purchase sent with a registration.
type InvoiceUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// RegistrationResult reports what a registration created. TempPassword is
// set only when a new account was provisioned.
type RegistrationResult struct {
	Inserted     int
	TempPassword string
}

// Invoice is an archived invoice opened for download. Callers must close Body.
type Invoice struct {
	Body        io.ReadCloser
	ContentType string
	Filename    string
	Size        int64
}

// RegistrationService handles business logic for product registrations.
type RegistrationService struct {
	regRepo     repositories.RegistrationRepository
	productRepo repositories.ProductRepository
	userRepo    repositories.UserRepository
	archive     storage.Archive
	publisher   EventPublisher
	log         *zap.Logger
	now         func() time.Time
}

// NewRegistrationService creates a new RegistrationService. publisher may be nil.
func NewRegistrationService(
	regRepo repositories.RegistrationRepository,
	productRepo repositories.ProductRepository,
	userRepo repositories.UserRepository,
	archive storage.Archive,
	publisher EventPublisher,
	log *zap.Logger,
) *RegistrationService {
	return &RegistrationService{
		regRepo:     regRepo,
		productRepo: productRepo,
		userRepo:    userRepo,
		archive:     archive,
		publisher:   publisher,
		log:         log,
		now:         time.Now,
	}
}

// RegisterProducts validates every pair against the catalog, archives the
// invoice and commits the account, registrations and catalog flips in one
// transaction. A failed commit removes the archived invoice.
func (s *RegistrationService) RegisterProducts(ctx context.Context, req RegistrationRequest, invoice *InvoiceUpload) (*RegistrationResult, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if req.Name == "" || req.Email == "" {
		return nil, apperror.BadRequest("Name and email are required.")
	}
	if len(req.ProductNames) != len(req.SerialNumbers) {
		return nil, apperror.BadRequest("Mismatched product and serial number counts.")
	}
	if len(req.SerialNumbers) == 0 {
		return nil, apperror.BadRequest("At least one product and serial number are required.")
	}

	seen := make(map[string]bool, len(req.SerialNumbers))
	for i := range req.SerialNumbers {
		name := strings.TrimSpace(req.ProductNames[i])
		serial := strings.TrimSpace(req.SerialNumbers[i])
		if name == "" || serial == "" {
			return nil, apperror.BadRequest("Product name and serial number are required for every product.")
		}
		if seen[serial] {
			return nil, apperror.BadRequest("Duplicate serial number %q in request.", serial)
		}
		seen[serial] = true
		req.ProductNames[i], req.SerialNumbers[i] = name, serial

		product, err := s.productRepo.FindByNameAndSerial(ctx, name, serial)
		if err != nil {
			if apperror.Is(err, apperror.KindNotFound) {
				return nil, apperror.BadRequest("Product not found: %q - %q", name, serial)
			}
			return nil, err
		}
		if product.Registered() {
			return nil, apperror.BadRequest("Warranty claim already submitted for %q - %q", name, serial)
		}
	}

	var newUser *models.User
	var tempPassword string
	if _, err := s.userRepo.GetByEmail(ctx, req.Email); err != nil {
		if !apperror.Is(err, apperror.KindNotFound) {
			return nil, err
		}
		plain, err := GenerateTemporaryPassword()
		if err != nil {
			return nil, err
		}
		hashed, err := HashPassword(plain)
		if err != nil {
			return nil, err
		}
		tempPassword = plain
		newUser = &models.User{
			Name:         req.Name,
			Email:        req.Email,
			MobileNumber: req.MobileNumber,
			PasswordHash: hashed,
			Role:         models.RoleCustomer,
		}
	}

	var invoiceKey *string
	if invoice != nil && invoice.Body != nil {
		key := storage.InvoiceKey(s.now(), invoice.Filename)
		contentType := invoice.ContentType
		if contentType == "" {
			contentType = storage.DefaultContentType
		}
		if err := s.archive.Store(ctx, key, invoice.Body, invoice.Size, contentType); err != nil {
			return nil, fmt.Errorf("failed to archive invoice: %w", err)
		}
		invoiceKey = &key
	}

	regs := make([]models.Registration, 0, len(req.SerialNumbers))
	for i := range req.SerialNumbers {
		regs = append(regs, models.Registration{
			InvoiceID:      req.InvoiceID,
			Name:           req.Name,
			Email:          req.Email,
			MobileNumber:   req.MobileNumber,
			ProductName:    req.ProductNames[i],
			SerialNumber:   req.SerialNumbers[i],
			InvoiceReceipt: invoiceKey,
		})
	}

	if err := s.regRepo.RegisterProducts(ctx, newUser, regs); err != nil {
		if invoiceKey != nil {
			if delErr := s.archive.Delete(ctx, *invoiceKey); delErr != nil {
				s.log.Error("Failed to remove orphaned invoice", zap.String("key", *invoiceKey), zap.Error(delErr))
			}
		}
		return nil, err
	}

	s.log.Info("Products registered",
		zap.String("email", req.Email),
		zap.Int("count", len(regs)),
		zap.Bool("new_account", newUser != nil))

	event := RegistrationEvent{Email: req.Email, SerialNumbers: req.SerialNumbers, NewAccount: newUser != nil}
	if invoiceKey != nil {
		event.InvoiceReceipt = *invoiceKey
	}
	publish(s.log, s.publisher, rabbitmq.RegistrationCreated, event)

	return &RegistrationResult{Inserted: len(regs), TempPassword: tempPassword}, nil
}

// ListByEmail returns the caller's registrations joined with their account.
func (s *RegistrationService) ListByEmail(ctx context.Context, email string) ([]models.UserRegistration, error) {
	regs, err := s.regRepo.ListByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if len(regs) == 0 {
		return nil, apperror.NotFound("No registrations found for this email.")
	}
	return regs, nil
}

// ListAll returns every registration for the admin dashboard.
func (s *RegistrationService) ListAll(ctx context.Context) ([]models.Registration, error) {
	regs, err := s.regRepo.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	if len(regs) == 0 {
		return nil, apperror.NotFound("No Products registered for warranty")
	}
	return regs, nil
}

// OpenInvoice opens the archived invoice for a registered serial number.
// Customers may only open invoices registered under their own email.
func (s *RegistrationService) OpenInvoice(ctx context.Context, serialNumber string, caller *Identity) (*Invoice, error) {
	reg, err := s.regRepo.GetBySerial(ctx, serialNumber)
	if err != nil {
		if apperror.Is(err, apperror.KindNotFound) {
			return nil, apperror.NotFound("Invoice not found")
		}
		return nil, err
	}
	if !caller.CanActFor(reg.Email) {
		return nil, apperror.Forbidden("Access denied")
	}
	if reg.InvoiceReceipt == nil || *reg.InvoiceReceipt == "" {
		return nil, apperror.NotFound("Invoice not found")
	}

	obj, err := s.archive.Retrieve(ctx, *reg.InvoiceReceipt)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.log.Warn("Invoice key missing from archive", zap.String("key", *reg.InvoiceReceipt))
			return nil, apperror.NotFound("Invoice not found")
		}
		return nil, fmt.Errorf("failed to retrieve invoice %s: %w", *reg.InvoiceReceipt, err)
	}

	contentType := obj.ContentType
	if contentType == "" {
		contentType = storage.DefaultContentType
	}
	return &Invoice{
		Body:        obj.Body,
		ContentType: contentType,
		Filename:    storage.InvoiceFilename(reg.ProductName),
		Size:        obj.Size,
	}, nil
}
