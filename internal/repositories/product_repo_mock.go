package repositories

import (
	"sort"
	"sync"

	"catalog/internal/models"
	"catalog/pkg/apperrors"
)

// MemoryProductRepository is an in-memory implementation of
// ProductRepository. It backs unit tests and broker-less local runs.
type MemoryProductRepository struct {
	mu       sync.RWMutex
	products map[uint]models.Product
	nextID   uint
}

// NewMemoryProductRepository creates a new instance of MemoryProductRepository.
func NewMemoryProductRepository() *MemoryProductRepository {
	return &MemoryProductRepository{
		products: make(map[uint]models.Product),
	}
}

// GetAll returns all products in ascending id order.
func (r *MemoryProductRepository) GetAll() ([]models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.collect(func(models.Product) bool { return true }), nil
}

// GetByID returns a product by its ID.
func (r *MemoryProductRepository) GetByID(id uint) (*models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	product, ok := r.products[id]
	if !ok {
		return nil, apperrors.NotFoundf("product with id %d was not found", id)
	}
	return &product, nil
}

// Create adds a new product, assigning the next id. The counter only moves
// forward, so ids are never reused after a delete.
func (r *MemoryProductRepository) Create(product *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	product.ID = r.nextID
	r.products[product.ID] = *product
	return nil
}

// Update replaces all mutable fields of an existing product.
func (r *MemoryProductRepository) Update(product *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.products[product.ID]; !ok {
		return apperrors.NotFoundf("product with id %d was not found", product.ID)
	}
	r.products[product.ID] = *product
	return nil
}

// Delete removes a product by its ID. Absent ids are not an error.
func (r *MemoryProductRepository) Delete(id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.products, id)
	return nil
}

// Purchase flips available from true to false under the write lock, so at
// most one concurrent purchaser observes the transition.
func (r *MemoryProductRepository) Purchase(id uint) (*models.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	product, ok := r.products[id]
	if !ok {
		return nil, apperrors.NotFoundf("product with id %d was not found", id)
	}
	if !product.Available {
		return nil, apperrors.Conflict("product not available")
	}
	product.Available = false
	r.products[id] = product
	return &product, nil
}

// Find returns products matching every non-nil filter field, in the same
// order as GetAll.
func (r *MemoryProductRepository) Find(filter ProductFilter) ([]models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.collect(func(p models.Product) bool {
		if filter.Name != nil && p.Name != *filter.Name {
			return false
		}
		if filter.Description != nil && p.Description != *filter.Description {
			return false
		}
		if filter.Available != nil && p.Available != *filter.Available {
			return false
		}
		if filter.Price != nil && !p.Price.Equal(*filter.Price) {
			return false
		}
		return true
	}), nil
}

// collect gathers matching products sorted by id. Callers hold the lock.
func (r *MemoryProductRepository) collect(match func(models.Product) bool) []models.Product {
	products := make([]models.Product, 0, len(r.products))
	for _, p := range r.products {
		if match(p) {
			products = append(products, p)
		}
	}
	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })
	return products
}
