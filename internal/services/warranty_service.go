package services

import (
	"context"
	"strings"

	"warranty/internal/apperror"
	"warranty/internal/models"
	"warranty/internal/repositories"
	"warranty/pkg/rabbitmq"

	"go.uber.org/zap"
)

// WarrantyService handles business logic for warranty claims.
type WarrantyService struct {
	repo      repositories.ClaimRepository
	publisher EventPublisher
	log       *zap.Logger
}

// NewWarrantyService creates a new WarrantyService. publisher may be nil.
func NewWarrantyService(repo repositories.ClaimRepository, publisher EventPublisher, log *zap.Logger) *WarrantyService {
	return &WarrantyService{repo: repo, publisher: publisher, log: log}
}

// FileClaim opens a Pending claim for a serial number. Only one claim may
// ever exist per serial number.
func (s *WarrantyService) FileClaim(ctx context.Context, email, serialNumber, remarks string) (*models.WarrantyClaim, error) {
	serialNumber = strings.TrimSpace(serialNumber)
	if serialNumber == "" {
		return nil, apperror.BadRequest("Serial number is required.")
	}

	claim := &models.WarrantyClaim{
		Email:           strings.TrimSpace(email),
		SerialNumber:    serialNumber,
		CustomerRemarks: remarks,
		ClaimStatus:     models.ClaimPending,
	}
	if err := s.repo.Create(ctx, claim); err != nil {
		return nil, err
	}

	s.log.Info("Warranty claim filed", zap.String("serial_number", serialNumber), zap.Uint("id", claim.ID))
	publish(s.log, s.publisher, rabbitmq.ClaimFiled, ClaimEvent{
		SerialNumber: serialNumber,
		Email:        claim.Email,
		ClaimStatus:  string(claim.ClaimStatus),
	})
	return claim, nil
}

// UpdateClaimStatus overwrites a claim's status. Any transition between the
// three statuses is allowed and each one is audited.
func (s *WarrantyService) UpdateClaimStatus(ctx context.Context, serialNumber, status, changedBy string) (*models.ClaimStatusChange, error) {
	serialNumber = strings.TrimSpace(serialNumber)
	if serialNumber == "" || status == "" {
		return nil, apperror.BadRequest("Serial number and claim status are required.")
	}
	next := models.ClaimStatus(status)
	if !next.Valid() {
		return nil, apperror.BadRequest("Invalid claim status %q. Must be one of: %s, %s, %s",
			status, models.ClaimPending, models.ClaimApproved, models.ClaimRejected)
	}

	change, err := s.repo.UpdateStatus(ctx, serialNumber, next, changedBy)
	if err != nil {
		return nil, err
	}

	s.log.Info("Warranty claim status changed",
		zap.String("serial_number", serialNumber),
		zap.String("from", string(change.FromStatus)),
		zap.String("to", string(change.ToStatus)),
		zap.String("changed_by", changedBy))
	publish(s.log, s.publisher, rabbitmq.ClaimStatusChanged, ClaimEvent{
		SerialNumber: serialNumber,
		FromStatus:   string(change.FromStatus),
		ClaimStatus:  string(change.ToStatus),
		ChangedBy:    changedBy,
	})
	return change, nil
}

// GetClaim returns the claim for a serial number.
func (s *WarrantyService) GetClaim(ctx context.Context, serialNumber string) (*models.WarrantyClaim, error) {
	return s.repo.GetBySerial(ctx, serialNumber)
}

// ListClaims returns every claim for the admin dashboard.
func (s *WarrantyService) ListClaims(ctx context.Context) ([]models.WarrantyClaim, error) {
	claims, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	if len(claims) == 0 {
		return nil, apperror.NotFound("No Warranty Claims Available")
	}
	return claims, nil
}

// ClaimHistory returns the audited status changes of a claim, oldest first.
func (s *WarrantyService) ClaimHistory(ctx context.Context, serialNumber string) ([]models.ClaimStatusChange, error) {
	if _, err := s.repo.GetBySerial(ctx, serialNumber); err != nil {
		return nil, err
	}
	history, err := s.repo.History(ctx, serialNumber)
	if err != nil {
		return nil, err
	}
	if history == nil {
		history = []models.ClaimStatusChange{}
	}
	return history, nil
}
