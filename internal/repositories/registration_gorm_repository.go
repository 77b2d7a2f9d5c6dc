package repositories

import (
	"context"
	"errors"
	"fmt"

	"warranty/internal/apperror"
	"warranty/internal/models"

	"gorm.io/gorm"
)

// GORMRegistrationRepository is a GORM implementation of RegistrationRepository.
type GORMRegistrationRepository struct {
	db *gorm.DB
}

// NewGORMRegistrationRepository creates a new instance of GORMRegistrationRepository.
func NewGORMRegistrationRepository(db *gorm.DB) *GORMRegistrationRepository {
	return &GORMRegistrationRepository{
		db: db,
	}
}

// RegisterProducts commits the account, the registrations and the catalog
// flips as one unit. The flip only matches unregistered rows, so a
// concurrent registration of the same serial rolls this one back.
func (r *GORMRegistrationRepository) RegisterProducts(ctx context.Context, newUser *models.User, registrations []models.Registration) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if newUser != nil {
			if err := tx.Create(newUser).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return apperror.Wrap(apperror.Conflict("user with email %s already exists", newUser.Email), err)
				}
				return fmt.Errorf("failed to create user: %w", err)
			}
		}

		if err := tx.Create(&registrations).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperror.Wrap(apperror.Conflict("Warranty claim already submitted for one of the serial numbers"), err)
			}
			return fmt.Errorf("failed to insert registrations: %w", err)
		}

		for _, reg := range registrations {
			res := tx.Model(&models.Product{}).
				Where("product_name = ? AND serial_number = ? AND registered_status = ?",
					reg.ProductName, reg.SerialNumber, models.StatusUnregistered).
				Update("registered_status", models.StatusRegistered)
			if res.Error != nil {
				return fmt.Errorf("failed to mark %s as registered: %w", reg.SerialNumber, res.Error)
			}
			if res.RowsAffected == 0 {
				return apperror.Conflict("Warranty claim already submitted for %q - %q", reg.ProductName, reg.SerialNumber)
			}
		}
		return nil
	})
}

// GetBySerial retrieves the registration for a serial number.
func (r *GORMRegistrationRepository) GetBySerial(ctx context.Context, serialNumber string) (*models.Registration, error) {
	var reg models.Registration
	if err := r.db.WithContext(ctx).First(&reg, "serial_number = ?", serialNumber).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("registration for %s not found", serialNumber)
		}
		return nil, fmt.Errorf("failed to get registration %s: %w", serialNumber, err)
	}
	return &reg, nil
}

// GetAll retrieves every registration.
func (r *GORMRegistrationRepository) GetAll(ctx context.Context) ([]models.Registration, error) {
	var regs []models.Registration
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&regs).Error; err != nil {
		return nil, fmt.Errorf("failed to get registrations: %w", err)
	}
	return regs, nil
}

// ListByEmail joins the account with each of its registrations.
func (r *GORMRegistrationRepository) ListByEmail(ctx context.Context, email string) ([]models.UserRegistration, error) {
	var rows []models.UserRegistration
	err := r.db.WithContext(ctx).
		Table("users AS u").
		Select(`u.name AS user_name, u.email, u.mobile_number, pr.invoice_id,
			pr.product_name, pr.serial_number, pr.invoice_receipt, pr.registered_at`).
		Joins("JOIN product_registration pr ON u.email = pr.email").
		Where("u.email = ?", email).
		Order("pr.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations for %s: %w", email, err)
	}
	return rows, nil
}
