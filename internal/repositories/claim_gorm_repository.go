package repositories

import (
	"context"
	"errors"
	"fmt"

	"warranty/internal/apperror"
	"warranty/internal/models"

	"gorm.io/gorm"
)

// GORMClaimRepository is a GORM implementation of ClaimRepository.
type GORMClaimRepository struct {
	db *gorm.DB
}

// NewGORMClaimRepository creates a new instance of GORMClaimRepository.
func NewGORMClaimRepository(db *gorm.DB) *GORMClaimRepository {
	return &GORMClaimRepository{
		db: db,
	}
}

// Create inserts a claim; the unique serial constraint rejects a second one.
func (r *GORMClaimRepository) Create(ctx context.Context, claim *models.WarrantyClaim) error {
	if claim.ClaimStatus == "" {
		claim.ClaimStatus = models.ClaimPending
	}
	if err := r.db.WithContext(ctx).Create(claim).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperror.Wrap(apperror.Conflict("Warranty already claimed for this serial number."), err)
		}
		return fmt.Errorf("failed to insert warranty claim: %w", err)
	}
	return nil
}

// GetBySerial retrieves the claim for a serial number.
func (r *GORMClaimRepository) GetBySerial(ctx context.Context, serialNumber string) (*models.WarrantyClaim, error) {
	var claim models.WarrantyClaim
	if err := r.db.WithContext(ctx).First(&claim, "serial_number = ?", serialNumber).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("Warranty record not found.")
		}
		return nil, fmt.Errorf("failed to get warranty claim %s: %w", serialNumber, err)
	}
	return &claim, nil
}

// GetAll retrieves every claim.
func (r *GORMClaimRepository) GetAll(ctx context.Context) ([]models.WarrantyClaim, error) {
	var claims []models.WarrantyClaim
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&claims).Error; err != nil {
		return nil, fmt.Errorf("failed to get warranty claims: %w", err)
	}
	return claims, nil
}

// UpdateStatus overwrites the claim status unconditionally and appends an
// audit entry for the change.
func (r *GORMClaimRepository) UpdateStatus(ctx context.Context, serialNumber string, status models.ClaimStatus, changedBy string) (*models.ClaimStatusChange, error) {
	var change models.ClaimStatusChange
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var claim models.WarrantyClaim
		if err := tx.First(&claim, "serial_number = ?", serialNumber).Error; err != nil {
			return err
		}
		change = models.ClaimStatusChange{
			SerialNumber: serialNumber,
			FromStatus:   claim.ClaimStatus,
			ToStatus:     status,
			ChangedBy:    changedBy,
		}
		if err := tx.Model(&claim).Update("claim_status", status).Error; err != nil {
			return err
		}
		return tx.Create(&change).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("Warranty record not found.")
		}
		return nil, fmt.Errorf("failed to update claim status for %s: %w", serialNumber, err)
	}
	return &change, nil
}

// History lists the audited status changes for a serial number, oldest first.
func (r *GORMClaimRepository) History(ctx context.Context, serialNumber string) ([]models.ClaimStatusChange, error) {
	var changes []models.ClaimStatusChange
	err := r.db.WithContext(ctx).
		Where("serial_number = ?", serialNumber).
		Order("id ASC").
		Find(&changes).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get status history for %s: %w", serialNumber, err)
	}
	return changes, nil
}
