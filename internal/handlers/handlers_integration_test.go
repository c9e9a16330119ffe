package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"catalog/internal/handlers"
	"catalog/internal/models"
	"catalog/internal/repositories"
	"catalog/internal/services"
)

var dbCounter int64

// setupApp sets up a Fiber app for testing with an isolated in-memory
// SQLite database and the product handler wired through the real service
// and GORM repository.
func setupApp(t *testing.T) *fiber.App {
	t.Helper()

	// A unique shared-cache DSN per test keeps tests isolated while letting
	// GORM's connection pool see the same in-memory database.
	dsn := fmt.Sprintf("file:handlers_test_%d?mode=memory&cache=shared", atomic.AddInt64(&dbCounter, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err, "failed to connect to in-memory database")

	require.NoError(t, db.AutoMigrate(&models.Product{}), "failed to auto-migrate database")

	productRepo := repositories.NewGORMProductRepository(db)
	productService := services.NewProductService(productRepo, nil) // nil for RabbitMQ client
	productHandler := handlers.NewProductHandler(productService)

	app := fiber.New()
	apiV1 := app.Group("/api/v1")
	productHandler.RegisterRoutes(apiV1)

	return app
}

// TestMain runs setup and teardown for all tests
func TestMain(m *testing.M) {
	// Suppress logging during tests for cleaner output
	log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

// doJSON performs a request with a JSON body and decodes the JSON response,
// keeping numbers exact.
func doJSON(t *testing.T, app *fiber.App, method, target string, payload interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, body)
	if payload != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	var decoded map[string]interface{}
	if resp.StatusCode != fiber.StatusNoContent {
		dec := json.NewDecoder(resp.Body)
		dec.UseNumber()
		_ = dec.Decode(&decoded)
	}
	resp.Body.Close()
	return resp, decoded
}

// createProduct creates a product over HTTP and returns its wire mapping.
func createProduct(t *testing.T, app *fiber.App, payload map[string]interface{}) map[string]interface{} {
	t.Helper()
	resp, body := doJSON(t, app, http.MethodPost, "/api/v1/products", payload)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, "failed to create product: %v", body)
	return body
}

func TestCreateAndGetProduct(t *testing.T) {
	app := setupApp(t)

	created := createProduct(t, app, map[string]interface{}{
		"name":        "toothbrush",
		"description": "soft bristles",
		"price":       json.Number("5.43"),
		"available":   true,
	})

	id := created["id"]
	assert.NotNil(t, id)
	assert.Equal(t, "toothbrush", created["name"])
	assert.Equal(t, json.Number("5.43"), created["price"])
	assert.Equal(t, true, created["available"])

	resp, fetched := doJSON(t, app, http.MethodGet, fmt.Sprintf("/api/v1/products/%v", id), nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, created, fetched)
}

func TestCreateProductSetsLocation(t *testing.T) {
	app := setupApp(t)

	raw, _ := json.Marshal(map[string]interface{}{"name": "gum", "price": "1.25"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/products", bytes.NewReader(raw))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.Contains(t, resp.Header.Get(fiber.HeaderLocation), "/api/v1/products/")
}

func TestCreateProductValidation(t *testing.T) {
	app := setupApp(t)

	// Missing name.
	resp, _ := doJSON(t, app, http.MethodPost, "/api/v1/products", map[string]interface{}{
		"description": "no name",
		"price":       json.Number("1.00"),
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	// Non-boolean available.
	resp, _ = doJSON(t, app, http.MethodPost, "/api/v1/products", map[string]interface{}{
		"name":      "x",
		"price":     json.Number("1.00"),
		"available": "yes",
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	// Malformed price.
	resp, _ = doJSON(t, app, http.MethodPost, "/api/v1/products", map[string]interface{}{
		"name":  "x",
		"price": "cheap",
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	// Empty object.
	resp, _ = doJSON(t, app, http.MethodPost, "/api/v1/products", map[string]interface{}{})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestCreateProductRejectsNonJSON(t *testing.T) {
	app := setupApp(t)

	// Wrong content type.
	req := httptest.NewRequest(http.MethodPost, "/api/v1/products", bytes.NewReader([]byte("hello")))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMETextHTML)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, fiber.StatusUnsupportedMediaType, resp.StatusCode)

	// No content type at all.
	req = httptest.NewRequest(http.MethodPost, "/api/v1/products", nil)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, fiber.StatusUnsupportedMediaType, resp.StatusCode)
}

func TestGetProductNotFound(t *testing.T) {
	app := setupApp(t)

	resp, body := doJSON(t, app, http.MethodGet, "/api/v1/products/0", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Contains(t, body["message"], "was not found")

	// A non-numeric id addresses no resource.
	resp, _ = doJSON(t, app, http.MethodGet, "/api/v1/products/not-a-number", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestUpdateProduct(t *testing.T) {
	app := setupApp(t)

	created := createProduct(t, app, map[string]interface{}{
		"name":      "toothbrush",
		"price":     json.Number("5.43"),
		"available": true,
	})
	id := created["id"]

	resp, updated := doJSON(t, app, http.MethodPut, fmt.Sprintf("/api/v1/products/%v", id), map[string]interface{}{
		"id":          json.Number("9999"), // must be ignored
		"name":        "electric toothbrush",
		"description": "rechargeable",
		"price":       json.Number("25.00"),
		"available":   false,
	})

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, id, updated["id"], "update never changes the record's id")
	assert.Equal(t, "electric toothbrush", updated["name"])
	assert.Equal(t, "rechargeable", updated["description"])
	assert.Equal(t, json.Number("25.00"), updated["price"])
	assert.Equal(t, false, updated["available"])

	// The replacement is visible on a subsequent read.
	_, fetched := doJSON(t, app, http.MethodGet, fmt.Sprintf("/api/v1/products/%v", id), nil)
	assert.Equal(t, updated, fetched)
}

func TestUpdateProductNotFound(t *testing.T) {
	app := setupApp(t)

	resp, _ := doJSON(t, app, http.MethodPut, "/api/v1/products/424242", map[string]interface{}{
		"name":  "ghost",
		"price": json.Number("1.00"),
	})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestDeleteProductIsIdempotent(t *testing.T) {
	app := setupApp(t)

	created := createProduct(t, app, map[string]interface{}{
		"name":  "gum",
		"price": json.Number("1.25"),
	})
	target := fmt.Sprintf("/api/v1/products/%v", created["id"])

	resp, _ := doJSON(t, app, http.MethodDelete, target, nil)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	// Deleting again is not an error.
	resp, _ = doJSON(t, app, http.MethodDelete, target, nil)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodGet, target, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestPurchaseProduct(t *testing.T) {
	app := setupApp(t)

	created := createProduct(t, app, map[string]interface{}{
		"name":      "toothbrush",
		"price":     json.Number("5.43"),
		"available": true,
	})
	target := fmt.Sprintf("/api/v1/products/%v/purchase", created["id"])

	resp, purchased := doJSON(t, app, http.MethodPut, target, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, false, purchased["available"])
	assert.Equal(t, created["id"], purchased["id"])

	// A second purchase without a restock conflicts.
	resp, body := doJSON(t, app, http.MethodPut, target, nil)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	assert.Contains(t, body["message"], "not available")
}

func TestPurchaseProductNotFound(t *testing.T) {
	app := setupApp(t)

	resp, body := doJSON(t, app, http.MethodPut, "/api/v1/products/0/purchase", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Contains(t, body["message"], "was not found")
}

// listProducts fetches a product list and decodes it keeping numbers exact.
func listProducts(t *testing.T, app *fiber.App, target string) (*http.Response, []map[string]interface{}) {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, target, nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var products []map[string]interface{}
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	_ = dec.Decode(&products)
	return resp, products
}

func TestListAndFilterProducts(t *testing.T) {
	app := setupApp(t)

	createProduct(t, app, map[string]interface{}{
		"name":        "toothbrush",
		"description": "oral care",
		"price":       json.Number("5.43"),
		"available":   true,
	})
	createProduct(t, app, map[string]interface{}{
		"name":        "laptop",
		"description": "electronics",
		"price":       json.Number("253.72"),
		"available":   true,
	})

	// No filters: everything, in creation order.
	resp, products := listProducts(t, app, "/api/v1/products")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Len(t, products, 2)
	assert.Equal(t, "toothbrush", products[0]["name"])
	assert.Equal(t, "laptop", products[1]["name"])

	// One filter matching both.
	resp, products = listProducts(t, app, "/api/v1/products?available=true")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, products, 2)

	// Filters are AND-combined.
	resp, products = listProducts(t, app, "/api/v1/products?available=true&price=5.43")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Len(t, products, 1)
	assert.Equal(t, "toothbrush", products[0]["name"])

	// Exact name match with no hits returns an empty sequence.
	resp, products = listProducts(t, app, "/api/v1/products?name=gum")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Empty(t, products)

	// Description filter.
	resp, products = listProducts(t, app, "/api/v1/products?description=electronics")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Len(t, products, 1)
	assert.Equal(t, "laptop", products[0]["name"])
}

func TestFilterProductsBadValues(t *testing.T) {
	app := setupApp(t)

	resp, body := doJSON(t, app, http.MethodGet, "/api/v1/products?available=maybe", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["message"], "available")

	resp, _ = doJSON(t, app, http.MethodGet, "/api/v1/products?price=cheap", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestCollectionMethodNotAllowed(t *testing.T) {
	app := setupApp(t)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/products", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, fiber.StatusMethodNotAllowed, resp.StatusCode)
}
