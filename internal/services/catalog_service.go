package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"warranty/internal/apperror"
	"warranty/internal/models"
	"warranty/internal/repositories"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Bulk insert modes reported in BulkResult.
const (
	BulkModeBatch  = "batch"
	BulkModePerRow = "per_row"
)

// ProductRow is one catalog entry submitted for insertion.
type ProductRow struct {
	ProductName  string `json:"product_name"`
	SerialNumber string `json:"serial_number"`
}

// BulkFailure describes a row that could not be inserted. Row is 1-based.
type BulkFailure struct {
	Row          int    `json:"row"`
	ProductName  string `json:"product_name"`
	SerialNumber string `json:"serial_number"`
	Error        string `json:"error"`
}

// BulkResult summarises a bulk catalog upload.
type BulkResult struct {
	Total        int           `json:"total"`
	SuccessCount int           `json:"success_count"`
	FailureCount int           `json:"failure_count"`
	Mode         string        `json:"mode"`
	Failures     []BulkFailure `json:"failures"`
}

// CatalogService handles business logic for the shippable product catalog.
type CatalogService struct {
	repo            repositories.ProductRepository
	bulkConcurrency int
	log             *zap.Logger
}

// NewCatalogService creates a new CatalogService.
func NewCatalogService(repo repositories.ProductRepository, bulkConcurrency int, log *zap.Logger) *CatalogService {
	if bulkConcurrency < 1 {
		bulkConcurrency = 1
	}
	return &CatalogService{repo: repo, bulkConcurrency: bulkConcurrency, log: log}
}

// AddProduct provisions one unregistered catalog entry.
func (s *CatalogService) AddProduct(ctx context.Context, productName, serialNumber string) (*models.Product, error) {
	productName = strings.TrimSpace(productName)
	serialNumber = strings.TrimSpace(serialNumber)
	if productName == "" || serialNumber == "" {
		return nil, apperror.BadRequest("Both product_name and serial_number are required.")
	}

	product := &models.Product{
		ProductName:      productName,
		SerialNumber:     serialNumber,
		RegisteredStatus: models.StatusUnregistered,
	}
	if err := s.repo.Create(ctx, product); err != nil {
		return nil, err
	}
	s.log.Info("Product added", zap.String("serial_number", serialNumber))
	return product, nil
}

// BulkAddProducts inserts rows as a single batch. When the batch is
// rejected every row is retried on its own so valid rows still land and
// each failure is reported against its row number.
func (s *CatalogService) BulkAddProducts(ctx context.Context, rows []ProductRow) (*BulkResult, error) {
	if len(rows) == 0 {
		return nil, apperror.BadRequest("No products provided.")
	}

	result := &BulkResult{Total: len(rows), Mode: BulkModeBatch, Failures: []BulkFailure{}}
	seen := make(map[string]int, len(rows))
	valid := make([]int, 0, len(rows))

	for i, row := range rows {
		row.ProductName = strings.TrimSpace(row.ProductName)
		row.SerialNumber = strings.TrimSpace(row.SerialNumber)
		rows[i] = row

		switch {
		case row.ProductName == "" || row.SerialNumber == "":
			result.Failures = append(result.Failures, failureFor(i, row, "Both product_name and serial_number are required."))
		case seen[row.SerialNumber] > 0:
			result.Failures = append(result.Failures, failureFor(i, row,
				fmt.Sprintf("Duplicate serial number in upload (first seen on row %d)", seen[row.SerialNumber])))
		default:
			seen[row.SerialNumber] = i + 1
			valid = append(valid, i)
		}
	}

	if len(valid) > 0 {
		batch := make([]models.Product, 0, len(valid))
		for _, i := range valid {
			batch = append(batch, models.Product{ProductName: rows[i].ProductName, SerialNumber: rows[i].SerialNumber})
		}

		if err := s.repo.CreateBatch(ctx, batch); err == nil {
			result.SuccessCount = len(valid)
		} else {
			s.log.Warn("Batch insert rejected, retrying row by row", zap.Int("rows", len(valid)), zap.Error(err))
			result.Mode = BulkModePerRow
			failed, err := s.insertEach(ctx, rows, valid)
			if err != nil {
				return nil, err
			}
			result.SuccessCount = len(valid) - len(failed)
			result.Failures = append(result.Failures, failed...)
		}
	}

	result.FailureCount = len(result.Failures)
	sortFailures(result.Failures)
	s.log.Info("Bulk product upload finished",
		zap.Int("total", result.Total),
		zap.Int("success", result.SuccessCount),
		zap.Int("failed", result.FailureCount),
		zap.String("mode", result.Mode))
	return result, nil
}

func (s *CatalogService) insertEach(ctx context.Context, rows []ProductRow, indexes []int) ([]BulkFailure, error) {
	errs := make([]error, len(indexes))

	var g errgroup.Group
	g.SetLimit(s.bulkConcurrency)
	for slot, i := range indexes {
		slot, row := slot, rows[i]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			errs[slot] = s.repo.Create(ctx, &models.Product{ProductName: row.ProductName, SerialNumber: row.SerialNumber})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var failures []BulkFailure
	for slot, err := range errs {
		if err != nil {
			failures = append(failures, failureFor(indexes[slot], rows[indexes[slot]], errorMessage(err)))
		}
	}
	return failures, nil
}

// ListProducts returns the whole catalog in insertion order.
func (s *CatalogService) ListProducts(ctx context.Context) ([]models.Product, error) {
	products, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	if products == nil {
		products = []models.Product{}
	}
	return products, nil
}

// ListShipped returns the catalog for the admin shipped-products view.
func (s *CatalogService) ListShipped(ctx context.Context) ([]models.Product, error) {
	products, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, apperror.NotFound("No Products Available")
	}
	return products, nil
}

// DeleteProduct removes a catalog entry and returns it.
func (s *CatalogService) DeleteProduct(ctx context.Context, serialNumber string) (*models.Product, error) {
	serialNumber = strings.TrimSpace(serialNumber)
	if serialNumber == "" {
		return nil, apperror.BadRequest("Serial number is required.")
	}
	product, err := s.repo.DeleteBySerial(ctx, serialNumber)
	if err != nil {
		return nil, err
	}
	s.log.Info("Product deleted", zap.String("serial_number", serialNumber))
	return product, nil
}

// ParseProductCSV reads product rows from CSV. A header row naming
// product_name and serial_number selects the columns; without one the first
// two columns are used and the first line is treated as data.
func ParseProductCSV(r io.Reader) ([]ProductRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, apperror.Wrap(apperror.BadRequest("Invalid CSV file."), err)
	}
	if len(records) == 0 {
		return nil, apperror.BadRequest("CSV file is empty.")
	}

	nameCol, serialCol := 0, 1
	start := 0
	if n, s, ok := headerColumns(records[0]); ok {
		nameCol, serialCol = n, s
		start = 1
	}

	rows := make([]ProductRow, 0, len(records)-start)
	for _, rec := range records[start:] {
		if isBlankRecord(rec) {
			continue
		}
		rows = append(rows, ProductRow{ProductName: field(rec, nameCol), SerialNumber: field(rec, serialCol)})
	}
	return rows, nil
}

func headerColumns(rec []string) (nameCol, serialCol int, ok bool) {
	nameCol, serialCol = -1, -1
	for i, col := range rec {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(col, "\ufeff"))) {
		case "product_name", "product name", "name":
			nameCol = i
		case "serial_number", "serial number", "serial":
			serialCol = i
		}
	}
	return nameCol, serialCol, nameCol >= 0 && serialCol >= 0
}

func field(rec []string, i int) string {
	if i < len(rec) {
		return strings.TrimSpace(rec[i])
	}
	return ""
}

func isBlankRecord(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func failureFor(i int, row ProductRow, msg string) BulkFailure {
	return BulkFailure{Row: i + 1, ProductName: row.ProductName, SerialNumber: row.SerialNumber, Error: msg}
}

func sortFailures(failures []BulkFailure) {
	sort.SliceStable(failures, func(i, j int) bool { return failures[i].Row < failures[j].Row })
}

func errorMessage(err error) string {
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}
