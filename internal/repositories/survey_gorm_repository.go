package repositories

import (
	"context"
	"fmt"

	"warranty/internal/models"

	"gorm.io/gorm"
)

// GORMSurveyRepository is a GORM implementation of SurveyRepository.
type GORMSurveyRepository struct {
	db *gorm.DB
}

// NewGORMSurveyRepository creates a new instance of GORMSurveyRepository.
func NewGORMSurveyRepository(db *gorm.DB) *GORMSurveyRepository {
	return &GORMSurveyRepository{db: db}
}

// Create stores a survey submission.
func (r *GORMSurveyRepository) Create(ctx context.Context, survey *models.CustomerSurvey) error {
	if err := r.db.WithContext(ctx).Create(survey).Error; err != nil {
		return fmt.Errorf("failed to insert survey: %w", err)
	}
	return nil
}
