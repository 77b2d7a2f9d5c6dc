package repositories

import (
	"context"
	"errors"
	"fmt"

	"warranty/internal/apperror"
	"warranty/internal/models"

	"gorm.io/gorm"
)

const productBatchSize = 500

// GORMProductRepository is a GORM implementation of ProductRepository.
type GORMProductRepository struct {
	db *gorm.DB
}

// NewGORMProductRepository creates a new instance of GORMProductRepository.
func NewGORMProductRepository(db *gorm.DB) *GORMProductRepository {
	return &GORMProductRepository{
		db: db,
	}
}

// GetAll retrieves all catalog entries in creation order.
func (r *GORMProductRepository) GetAll(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to get all products: %w", err)
	}
	return products, nil
}

// GetBySerial retrieves a single catalog entry by serial number.
func (r *GORMProductRepository) GetBySerial(ctx context.Context, serialNumber string) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "serial_number = ?", serialNumber).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("Product not found")
		}
		return nil, fmt.Errorf("failed to get product %s: %w", serialNumber, err)
	}
	return &product, nil
}

// FindByNameAndSerial retrieves the catalog entry matching both fields.
func (r *GORMProductRepository) FindByNameAndSerial(ctx context.Context, productName, serialNumber string) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Where("product_name = ? AND serial_number = ?", productName, serialNumber).
		First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("Product not found: %q - %q", productName, serialNumber)
		}
		return nil, fmt.Errorf("failed to look up product %s/%s: %w", productName, serialNumber, err)
	}
	return &product, nil
}

// Create creates a new catalog entry.
func (r *GORMProductRepository) Create(ctx context.Context, product *models.Product) error {
	if product.RegisteredStatus == "" {
		product.RegisteredStatus = models.StatusUnregistered
	}
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperror.Wrap(apperror.Conflict("Duplicate Entry"), err)
		}
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

// CreateBatch inserts products with multi-row statements inside a single
// transaction; a failure on any row leaves the catalog untouched.
func (r *GORMProductRepository) CreateBatch(ctx context.Context, products []models.Product) error {
	if len(products) == 0 {
		return nil
	}
	for i := range products {
		if products[i].RegisteredStatus == "" {
			products[i].RegisteredStatus = models.StatusUnregistered
		}
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(&products, productBatchSize).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperror.Wrap(apperror.Conflict("Duplicate Entry"), err)
		}
		return fmt.Errorf("failed to create product batch: %w", err)
	}
	return nil
}

// DeleteBySerial removes a catalog entry and returns the removed record.
func (r *GORMProductRepository) DeleteBySerial(ctx context.Context, serialNumber string) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&product, "serial_number = ?", serialNumber).Error; err != nil {
			return err
		}
		return tx.Delete(&product).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("Product not found")
		}
		return nil, fmt.Errorf("failed to delete product %s: %w", serialNumber, err)
	}
	return &product, nil
}
