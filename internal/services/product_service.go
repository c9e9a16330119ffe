package services

import (
	"log"
	"strings"

	"github.com/go-playground/validator/v10"

	"catalog/internal/models"
	"catalog/internal/repositories"
	"catalog/pkg/apperrors"
)

// EventPublisher publishes catalog lifecycle events. Publishing is
// best-effort: the service logs failures but never fails a request over
// them. A nil publisher disables eventing.
type EventPublisher interface {
	PublishCatalogEvent(eventType string, payload map[string]interface{}) error
}

// Catalog event types emitted after successful mutations.
const (
	EventProductCreated   = "product.created"
	EventProductUpdated   = "product.updated"
	EventProductDeleted   = "product.deleted"
	EventProductPurchased = "product.purchased"
)

// ProductService owns the catalog's business operations: payload
// validation, the query-filter coercion boundary, and persistence through
// the repository.
type ProductService struct {
	repo     repositories.ProductRepository
	events   EventPublisher
	validate *validator.Validate
}

// NewProductService creates a new ProductService. events may be nil.
func NewProductService(repo repositories.ProductRepository, events EventPublisher) *ProductService {
	return &ProductService{
		repo:     repo,
		events:   events,
		validate: validator.New(),
	}
}

// GetAllProducts retrieves all products in stable order.
func (s *ProductService) GetAllProducts() ([]models.Product, error) {
	return s.repo.GetAll()
}

// GetProductByID retrieves a single product by its ID.
func (s *ProductService) GetProductByID(id uint) (*models.Product, error) {
	return s.repo.GetByID(id)
}

// CreateProduct deserializes and validates the payload, persists the new
// record, and returns it with the store-assigned id populated.
func (s *ProductService) CreateProduct(payload map[string]interface{}) (*models.Product, error) {
	var product models.Product
	if err := product.Deserialize(payload); err != nil {
		return nil, err
	}
	if err := s.validate.Struct(&product); err != nil {
		return nil, apperrors.Validationf("invalid product: %v", err)
	}
	if err := s.repo.Create(&product); err != nil {
		return nil, err
	}
	s.publish(EventProductCreated, &product)
	return &product, nil
}

// UpdateProduct replaces all mutable fields of an existing product. The id
// comes from the caller's reference, never from the payload.
func (s *ProductService) UpdateProduct(id uint, payload map[string]interface{}) (*models.Product, error) {
	existing, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}

	product := *existing
	if err := product.Deserialize(payload); err != nil {
		return nil, err
	}
	if err := s.validate.Struct(&product); err != nil {
		return nil, apperrors.Validationf("invalid product: %v", err)
	}
	product.ID = id
	if err := s.repo.Update(&product); err != nil {
		return nil, err
	}
	s.publish(EventProductUpdated, &product)
	return &product, nil
}

// DeleteProduct removes a product by its ID. Deleting an absent id
// succeeds; delete is idempotent.
func (s *ProductService) DeleteProduct(id uint) error {
	if err := s.repo.Delete(id); err != nil {
		return err
	}
	if s.events != nil {
		if err := s.events.PublishCatalogEvent(EventProductDeleted, map[string]interface{}{"id": id}); err != nil {
			log.Printf("Warning: failed to publish %s event for product %d: %v", EventProductDeleted, id, err)
		}
	}
	return nil
}

// PurchaseProduct marks an available product unavailable. An
// already-unavailable product is a conflict; there is no restock operation.
func (s *ProductService) PurchaseProduct(id uint) (*models.Product, error) {
	product, err := s.repo.Purchase(id)
	if err != nil {
		return nil, err
	}
	s.publish(EventProductPurchased, product)
	return product, nil
}

// FindProducts coerces the raw query parameters into a typed filter and
// returns the AND-combined matching subset. With no parameters it is
// equivalent to GetAllProducts.
func (s *ProductService) FindProducts(params map[string]string) ([]models.Product, error) {
	filter, err := ParseProductFilter(params)
	if err != nil {
		return nil, err
	}
	if filter.Empty() {
		return s.repo.GetAll()
	}
	return s.repo.Find(filter)
}

// ParseProductFilter is the single coercion step between wire strings and
// the typed filter: the matching logic itself never sees raw strings. An
// unrecognized boolean or malformed price is a validation failure.
func ParseProductFilter(params map[string]string) (repositories.ProductFilter, error) {
	var filter repositories.ProductFilter

	if name, ok := params["name"]; ok && name != "" {
		filter.Name = &name
	}
	if description, ok := params["description"]; ok && description != "" {
		filter.Description = &description
	}
	if available, ok := params["available"]; ok && available != "" {
		switch strings.ToLower(available) {
		case "true":
			v := true
			filter.Available = &v
		case "false":
			v := false
			filter.Available = &v
		default:
			return repositories.ProductFilter{}, apperrors.Validation(
				"invalid value for 'available': must be 'true' or 'false'")
		}
	}
	if price, ok := params["price"]; ok && price != "" {
		parsed, err := models.ParsePrice(price)
		if err != nil {
			return repositories.ProductFilter{}, err
		}
		filter.Price = &parsed
	}
	return filter, nil
}

// publish sends a best-effort lifecycle event carrying the serialized record.
func (s *ProductService) publish(eventType string, product *models.Product) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishCatalogEvent(eventType, product.Serialize()); err != nil {
		log.Printf("Warning: failed to publish %s event for product %d: %v", eventType, product.ID, err)
	}
}
