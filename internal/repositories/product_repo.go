package repositories

import (
	"github.com/shopspring/decimal"

	"catalog/internal/models"
)

// ProductFilter holds typed search constraints. Nil fields are
// unconstrained; non-nil fields are AND-combined with exact, case-sensitive
// equality against the stored values. An empty filter matches everything.
type ProductFilter struct {
	Name        *string
	Description *string
	Available   *bool
	Price       *decimal.Decimal
}

// Empty reports whether the filter carries no constraints.
func (f ProductFilter) Empty() bool {
	return f.Name == nil && f.Description == nil && f.Available == nil && f.Price == nil
}

// ProductRepository defines the interface for product data access.
//
// Implementations return the typed errors from pkg/apperrors: NotFound for
// missing ids, Conflict when a purchase hits an already-unavailable product,
// and Persistence for storage failures. Delete is idempotent. GetAll and
// Find return records in ascending id order, which is insertion order.
type ProductRepository interface {
	GetAll() ([]models.Product, error)
	GetByID(id uint) (*models.Product, error)
	Create(product *models.Product) error
	Update(product *models.Product) error
	Delete(id uint) error
	Purchase(id uint) (*models.Product, error)
	Find(filter ProductFilter) ([]models.Product, error)
}
