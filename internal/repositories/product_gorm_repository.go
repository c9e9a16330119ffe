package repositories

import (
	"errors"

	"gorm.io/gorm"

	"catalog/internal/models"
	"catalog/pkg/apperrors"
)

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

// GetAll retrieves all products in ascending id order.
func (r *GORMProductRepository) GetAll() ([]models.Product, error) {
	var products []models.Product
	if err := r.db.Order("id").Find(&products).Error; err != nil {
		return nil, apperrors.Persistence("failed to get all products", err)
	}
	return products, nil
}

// GetByID retrieves a single product by its ID.
func (r *GORMProductRepository) GetByID(id uint) (*models.Product, error) {
	var product models.Product
	if err := r.db.First(&product, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFoundf("product with id %d was not found", id)
		}
		return nil, apperrors.Persistence("failed to get product", err)
	}
	return &product, nil
}

// Create persists a new product. The database assigns the next id; ids are
// monotonically increasing and never reused.
func (r *GORMProductRepository) Create(product *models.Product) error {
	product.ID = 0 // the store owns id assignment
	if err := r.db.Create(product).Error; err != nil {
		return apperrors.Persistence("failed to create product", err)
	}
	return nil
}

// Update replaces all mutable fields of an existing product. A column map
// is used so zero values (false, empty string) are written too; the
// replacement is total and the id column is never touched.
func (r *GORMProductRepository) Update(product *models.Product) error {
	res := r.db.Model(&models.Product{}).Where("id = ?", product.ID).
		Updates(map[string]interface{}{
			"name":        product.Name,
			"description": product.Description,
			"price":       product.Price,
			"available":   product.Available,
		})
	if res.Error != nil {
		return apperrors.Persistence("failed to update product", res.Error)
	}
	if res.RowsAffected == 0 {
		// The update matched no row: either the product is gone or every
		// column already held the supplied value. Distinguish with a read.
		if _, err := r.GetByID(product.ID); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a product by its ID. Deleting an absent id is not an
// error; delete is idempotent.
func (r *GORMProductRepository) Delete(id uint) error {
	if err := r.db.Delete(&models.Product{}, "id = ?", id).Error; err != nil {
		return apperrors.Persistence("failed to delete product", err)
	}
	return nil
}

// Purchase flips available from true to false for the given id. The
// conditional update makes the transition atomic: with concurrent
// purchasers exactly one sees RowsAffected == 1, the rest observe the
// product already unavailable.
func (r *GORMProductRepository) Purchase(id uint) (*models.Product, error) {
	res := r.db.Model(&models.Product{}).
		Where("id = ? AND available = ?", id, true).
		Update("available", false)
	if res.Error != nil {
		return nil, apperrors.Persistence("failed to purchase product", res.Error)
	}
	if res.RowsAffected == 0 {
		// Lost the race or never available; GetByID settles which.
		if _, err := r.GetByID(id); err != nil {
			return nil, err
		}
		return nil, apperrors.Conflict("product not available")
	}
	return r.GetByID(id)
}

// Find returns the products matching every non-nil filter field, in the
// same order as GetAll.
func (r *GORMProductRepository) Find(filter ProductFilter) ([]models.Product, error) {
	query := r.db.Model(&models.Product{})
	if filter.Name != nil {
		query = query.Where("name = ?", *filter.Name)
	}
	if filter.Description != nil {
		query = query.Where("description = ?", *filter.Description)
	}
	if filter.Available != nil {
		query = query.Where("available = ?", *filter.Available)
	}
	if filter.Price != nil {
		query = query.Where("price = ?", *filter.Price)
	}

	var products []models.Product
	if err := query.Order("id").Find(&products).Error; err != nil {
		return nil, apperrors.Persistence("failed to find products", err)
	}
	return products, nil
}
