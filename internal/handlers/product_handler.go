package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"catalog/internal/services"
	"catalog/pkg/apperrors"
)

// ProductHandler handles HTTP requests for products.
type ProductHandler struct {
	service *services.ProductService
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(service *services.ProductService) *ProductHandler {
	return &ProductHandler{
		service: service,
	}
}

// RegisterRoutes registers the product routes with the Fiber app.
func (h *ProductHandler) RegisterRoutes(router fiber.Router) {
	productRoutes := router.Group("/products")
	productRoutes.Get("/", h.HandleListProducts)
	productRoutes.Post("/", h.HandleCreateProduct)
	productRoutes.Get("/:id", h.HandleGetProductByID)
	productRoutes.Put("/:id", h.HandleUpdateProduct)
	productRoutes.Delete("/:id", h.HandleDeleteProduct)
	productRoutes.Put("/:id/purchase", h.HandlePurchaseProduct)
}

// HandleListProducts lists products, applying AND-combined filters when any
// of the name/description/available/price query parameters are present.
func (h *ProductHandler) HandleListProducts(c *fiber.Ctx) error {
	params := map[string]string{
		"name":        c.Query("name"),
		"description": c.Query("description"),
		"available":   c.Query("available"),
		"price":       c.Query("price"),
	}

	products, err := h.service.FindProducts(params)
	if err != nil {
		return respondError(c, err)
	}

	results := make([]map[string]interface{}, 0, len(products))
	for i := range products {
		results = append(results, products[i].Serialize())
	}
	return c.JSON(results)
}

// HandleGetProductByID retrieves a single product by its ID.
func (h *ProductHandler) HandleGetProductByID(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return respondError(c, err)
	}

	product, err := h.service.GetProductByID(id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(product.Serialize())
}

// HandleCreateProduct creates a new product from a JSON payload.
func (h *ProductHandler) HandleCreateProduct(c *fiber.Ctx) error {
	payload, err := decodePayload(c)
	if err != nil {
		return respondError(c, err)
	}

	product, err := h.service.CreateProduct(payload)
	if err != nil {
		return respondError(c, err)
	}

	c.Set(fiber.HeaderLocation, fmt.Sprintf("%s/%d", c.Path(), product.ID))
	return c.Status(fiber.StatusCreated).JSON(product.Serialize())
}

// HandleUpdateProduct replaces all mutable fields of an existing product.
// The id in the path wins; any id in the payload is ignored.
func (h *ProductHandler) HandleUpdateProduct(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return respondError(c, err)
	}

	payload, err := decodePayload(c)
	if err != nil {
		return respondError(c, err)
	}

	product, err := h.service.UpdateProduct(id, payload)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(product.Serialize())
}

// HandleDeleteProduct deletes a product by its ID. Always 204: deleting an
// absent product is not an error.
func (h *ProductHandler) HandleDeleteProduct(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return respondError(c, err)
	}

	if err := h.service.DeleteProduct(id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HandlePurchaseProduct marks a product unavailable. Takes no body.
func (h *ProductHandler) HandlePurchaseProduct(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return respondError(c, err)
	}

	product, err := h.service.PurchaseProduct(id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(product.Serialize())
}

// parseID reads the numeric id path parameter. A non-numeric id addresses
// no resource, so it is reported as not found.
func parseID(c *fiber.Ctx) (uint, error) {
	raw := c.Params("id")
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, apperrors.NotFoundf("product with id %q was not found", raw)
	}
	return uint(id), nil
}

// errUnsupportedMediaType is raised before the store is ever reached when a
// create/update body is not JSON.
var errUnsupportedMediaType = fmt.Errorf("Content-Type must be application/json")

// decodePayload rejects non-JSON bodies, then decodes into the wire
// mapping. UseNumber keeps numeric values exact so prices are never
// round-tripped through float64.
func decodePayload(c *fiber.Ctx) (map[string]interface{}, error) {
	if !c.Is("json") {
		return nil, errUnsupportedMediaType
	}

	var payload map[string]interface{}
	dec := json.NewDecoder(bytes.NewReader(c.Body()))
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		return nil, apperrors.Validation("invalid request body: expected a JSON object")
	}
	return payload, nil
}

// respondError translates the typed error taxonomy into HTTP status codes.
// This is the only place transport codes are chosen.
func respondError(c *fiber.Ctx, err error) error {
	if err == errUnsupportedMediaType {
		return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{
			"message": err.Error(),
		})
	}

	var status int
	switch apperrors.CodeOf(err) {
	case apperrors.CodeValidation:
		status = fiber.StatusBadRequest
	case apperrors.CodeNotFound:
		status = fiber.StatusNotFound
	case apperrors.CodeConflict:
		status = fiber.StatusConflict
	default:
		log.Printf("Error handling %s %s: %v", c.Method(), c.Path(), err)
		status = fiber.StatusInternalServerError
	}
	return c.Status(status).JSON(fiber.Map{
		"message": err.Error(),
	})
}
