package repositories

import (
	"context"

	"warranty/internal/models"
)

// UserRepository defines the interface for account data access.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id uint) (*models.User, error)
	UpdatePassword(ctx context.Context, email, passwordHash string) error
}

// ProductRepository defines the interface for catalog data access.
type ProductRepository interface {
	GetAll(ctx context.Context) ([]models.Product, error)
	GetBySerial(ctx context.Context, serialNumber string) (*models.Product, error)
	FindByNameAndSerial(ctx context.Context, productName, serialNumber string) (*models.Product, error)
	Create(ctx context.Context, product *models.Product) error
	// CreateBatch inserts all products or none.
	CreateBatch(ctx context.Context, products []models.Product) error
	DeleteBySerial(ctx context.Context, serialNumber string) (*models.Product, error)
}

// RegistrationRepository defines the interface for product registration data access.
type RegistrationRepository interface {
	// RegisterProducts creates newUser (when non-nil), inserts every
	// registration and flips the matching catalog entries to registered,
	// all in one transaction.
	RegisterProducts(ctx context.Context, newUser *models.User, registrations []models.Registration) error
	GetBySerial(ctx context.Context, serialNumber string) (*models.Registration, error)
	GetAll(ctx context.Context) ([]models.Registration, error)
	ListByEmail(ctx context.Context, email string) ([]models.UserRegistration, error)
}

// ClaimRepository defines the interface for warranty claim data access.
type ClaimRepository interface {
	Create(ctx context.Context, claim *models.WarrantyClaim) error
	GetBySerial(ctx context.Context, serialNumber string) (*models.WarrantyClaim, error)
	GetAll(ctx context.Context) ([]models.WarrantyClaim, error)
	// UpdateStatus overwrites the claim status and records the change in
	// the audit trail in one transaction.
	UpdateStatus(ctx context.Context, serialNumber string, status models.ClaimStatus, changedBy string) (*models.ClaimStatusChange, error)
	History(ctx context.Context, serialNumber string) ([]models.ClaimStatusChange, error)
}

// SurveyRepository defines the interface for survey intake.
type SurveyRepository interface {
	Create(ctx context.Context, survey *models.CustomerSurvey) error
}
