package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"storefront/internal/clock"
	"storefront/internal/handler"
	"storefront/internal/model"
	"storefront/internal/pricing"
	"storefront/internal/promo"
	"storefront/internal/repository"
	"storefront/internal/router"
	"storefront/internal/service"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

const testAPIKey = "test-api-key"

func checkoutConfig() service.CheckoutConfig {
	return service.CheckoutConfig{
		Shipping:        pricing.FlatRateShipping(decimal.RequireFromString("4.99"), decimal.RequireFromString("50.00")),
		Tax:             pricing.PercentageTax(decimal.NewFromInt(8)),
		RollbackTimeout: 5 * time.Second,
	}
}

func setupTestServer(t *testing.T, testDB *TestDB) http.Handler {
	t.Helper()

	logger := zerolog.Nop()

	// Initialize repositories
	productRepo := repository.NewProductRepository(testDB.Pool, logger)
	orderRepo := repository.NewOrderRepository(testDB.Pool, logger)
	promoRepo := repository.NewPromoRepository(testDB.Pool, repository.DefaultRedeemConfig(), logger)

	clk := clock.New()

	// Initialize services; TTL 0 disables the estimate cache so reads are fresh
	promoService := service.NewPromoService(promo.NewCache(promoRepo, 0, clk), clk, logger)
	checkoutService := service.NewCheckoutService(orderRepo, productRepo, promoRepo, clk, checkoutConfig(), logger)

	// Create router
	return router.New(
		handler.NewOrderHandler(checkoutService, logger),
		handler.NewPromoHandler(promoService, logger),
		testDB.Pool,
		testAPIKey,
		logger,
	)
}

func orderBody(t *testing.T, code string, expectedTotal string) []byte {
	t.Helper()

	req := map[string]any{
		"items": []map[string]any{
			{"productId": "P001", "unitPrice": "25.00", "quantity": 2},
			{"productId": "P002", "unitPrice": "50.00", "quantity": 1},
		},
		"shippingAddress": map[string]any{
			"name":       "Ada Lovelace",
			"line1":      "12 Analytical Way",
			"city":       "London",
			"postalCode": "N1 9GU",
			"country":    "GB",
		},
	}
	if code != "" {
		req["promoCode"] = code
	}
	if expectedTotal != "" {
		req["expectedTotal"] = expectedTotal
	}

	body, err := json.Marshal(req)
	require.NoError(t, err)
	return body
}

func doRequest(server http.Handler, method, path string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", testAPIKey)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)
	return w
}

func TestPromoAPI_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	testDB := SetupTestDB(t)
	server := setupTestServer(t, testDB)

	t.Run("GET /api/promos/{code} returns status and estimate", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)
		SeedPromo(t, testDB.Pool, "WELCOME10", 10, "0", nil)

		w := doRequest(server, http.MethodGet, "/api/promos/welcome10?subtotal=100", nil)

		assert.Equal(t, http.StatusOK, w.Code)

		var resp model.PromoResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, "WELCOME10", resp.Code)
		assert.Equal(t, model.PromoStatusActive, resp.Status)
		require.NotNil(t, resp.Eligible)
		assert.True(t, *resp.Eligible)
		require.NotNil(t, resp.Discount)
		assert.Equal(t, "10.00", *resp.Discount)
	})

	t.Run("Scenario: below minimum is ineligible with reason", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)
		SeedPromo(t, testDB.Pool, "SAVE20", 20, "50.00", nil)

		w := doRequest(server, http.MethodGet, "/api/promos/SAVE20?subtotal=40", nil)

		assert.Equal(t, http.StatusOK, w.Code)

		var resp model.PromoResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		require.NotNil(t, resp.Eligible)
		assert.False(t, *resp.Eligible)
		assert.Equal(t, "0.00", *resp.Discount)
		assert.Equal(t, promo.ReasonBelowMinimum, resp.Reason)
	})

	t.Run("GET /api/promos/{code} returns 404 for unknown code", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)

		w := doRequest(server, http.MethodGet, "/api/promos/NOPE", nil)

		assert.Equal(t, http.StatusNotFound, w.Code)

		var errResp model.ErrorResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&errResp))
		assert.Equal(t, model.ErrCodePromoNotFound, errResp.Error)
		assert.NotEmpty(t, errResp.CorrelationID)
	})

	t.Run("GET /health pings the database without API key", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		w := httptest.NewRecorder()

		server.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestOrderAPI_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	testDB := SetupTestDB(t)
	server := setupTestServer(t, testDB)

	t.Run("Scenario: WELCOME10 checkout persists server totals", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)
		SeedProducts(t, testDB.Pool)
		SeedPromo(t, testDB.Pool, "WELCOME10", 10, "0", nil)

		w := doRequest(server, http.MethodPost, "/api/orders", orderBody(t, "welcome10", "97.20"))

		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		var created model.OrderResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&created))
		assert.Equal(t, "100.00", created.Subtotal)
		assert.Equal(t, "10.00", created.Discount)
		assert.Equal(t, "0.00", created.Shipping)
		assert.Equal(t, "7.20", created.Tax)
		assert.Equal(t, "97.20", created.Total)
		assert.Equal(t, model.OrderStatusPending, created.Status)
		assert.Equal(t, 1, UsedCount(t, testDB.Pool, "WELCOME10"))

		w = doRequest(server, http.MethodGet, "/api/orders/"+created.ID.String(), nil)

		require.Equal(t, http.StatusOK, w.Code)

		var fetched model.OrderResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&fetched))
		assert.Equal(t, created.ID, fetched.ID)
		assert.Equal(t, "97.20", fetched.Total)
		assert.Equal(t, "London", fetched.ShippingAddress.City)
		require.NotNil(t, fetched.PromoCode)
		assert.Equal(t, "WELCOME10", *fetched.PromoCode)
		assert.Len(t, fetched.Items, 2)
	})

	t.Run("Total mismatch creates nothing and consumes nothing", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)
		SeedProducts(t, testDB.Pool)
		SeedPromo(t, testDB.Pool, "WELCOME10", 10, "0", nil)

		w := doRequest(server, http.MethodPost, "/api/orders", orderBody(t, "WELCOME10", "90.00"))

		assert.Equal(t, http.StatusConflict, w.Code)

		var errResp model.ErrorResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&errResp))
		assert.Equal(t, model.ErrCodeOrderTotalMismatch, errResp.Error)
		assert.Equal(t, 0, UsedCount(t, testDB.Pool, "WELCOME10"))
		assert.Equal(t, 0, CountRows(t, testDB.Pool, "orders"))
	})

	t.Run("Exhausted promo is invalid at checkout", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)
		SeedProducts(t, testDB.Pool)
		limit := 1
		SeedPromo(t, testDB.Pool, "ONCE", 10, "0", &limit)

		first := doRequest(server, http.MethodPost, "/api/orders", orderBody(t, "ONCE", ""))
		second := doRequest(server, http.MethodPost, "/api/orders", orderBody(t, "ONCE", ""))

		assert.Equal(t, http.StatusCreated, first.Code)
		assert.Equal(t, http.StatusConflict, second.Code)

		var errResp model.ErrorResponse
		require.NoError(t, json.NewDecoder(second.Body).Decode(&errResp))
		assert.Equal(t, model.ErrCodePromoInvalidAtCheckout, errResp.Error)
		assert.Equal(t, 1, CountRows(t, testDB.Pool, "orders"))
	})

	t.Run("Unknown product is rejected before redemption", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)
		SeedPromo(t, testDB.Pool, "WELCOME10", 10, "0", nil)

		w := doRequest(server, http.MethodPost, "/api/orders", orderBody(t, "WELCOME10", ""))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, 0, UsedCount(t, testDB.Pool, "WELCOME10"))
	})

	t.Run("GET /api/orders/{id} returns 404 for unknown order", func(t *testing.T) {
		w := doRequest(server, http.MethodGet, "/api/orders/7d5f3c1e-0f7a-4c35-9f38-3c2b9b7f1a10", nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("POST /api/orders without API key returns 401", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewBuffer(orderBody(t, "", "")))
		w := httptest.NewRecorder()

		server.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestCheckoutConcurrency_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	testDB := SetupTestDB(t)
	server := setupTestServer(t, testDB)

	CleanupDB(t, testDB.Pool)
	SeedProducts(t, testDB.Pool)
	limit := 5
	SeedPromo(t, testDB.Pool, "FLASH", 10, "0", &limit)

	const attempts = 40

	var mu sync.Mutex
	statuses := make(map[int]int)

	body := orderBody(t, "FLASH", "")

	var g errgroup.Group
	for i := 0; i < attempts; i++ {
		g.Go(func() error {
			w := doRequest(server, http.MethodPost, "/api/orders", body)
			mu.Lock()
			statuses[w.Code]++
			mu.Unlock()
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, limit, statuses[http.StatusCreated])
	assert.Equal(t, attempts, statuses[http.StatusCreated]+statuses[http.StatusConflict]+statuses[http.StatusServiceUnavailable])
	assert.Equal(t, limit, UsedCount(t, testDB.Pool, "FLASH"))
	assert.Equal(t, limit, CountRows(t, testDB.Pool, "orders"))
}

// failingOrderRepository fails the order insert after a promo has been
// redeemed.
type failingOrderRepository struct {
	repository.OrderRepository
}

func (failingOrderRepository) CreateOrder(context.Context, pgx.Tx, *model.Order) error {
	return errors.New("order insert failed")
}

func TestCheckoutCompensation_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	testDB := SetupTestDB(t)
	logger := zerolog.Nop()
	ctx := context.Background()

	CleanupDB(t, testDB.Pool)
	SeedProducts(t, testDB.Pool)
	limit := 1
	SeedPromo(t, testDB.Pool, "LASTONE", 10, "0", &limit)

	promoRepo := repository.NewPromoRepository(testDB.Pool, repository.DefaultRedeemConfig(), logger)
	productRepo := repository.NewProductRepository(testDB.Pool, logger)
	orderRepo := repository.NewOrderRepository(testDB.Pool, logger)

	code := "LASTONE"
	req := &model.OrderRequest{
		Items: []model.CartLineItem{
			{ProductID: "P001", UnitPrice: decimal.RequireFromString("25.00"), Quantity: 2},
		},
		PromoCode: &code,
		ShippingAddress: model.Address{
			Name: "Ada Lovelace", Line1: "12 Analytical Way", City: "London", PostalCode: "N1 9GU", Country: "GB",
		},
	}

	failing := service.NewCheckoutService(failingOrderRepository{orderRepo}, productRepo, promoRepo, nil, checkoutConfig(), logger)

	_, err := failing.Checkout(ctx, req)
	require.Error(t, err)

	assert.Equal(t, 0, UsedCount(t, testDB.Pool, "LASTONE"))
	assert.Equal(t, 0, CountRows(t, testDB.Pool, "orders"))

	var status string
	require.NoError(t, testDB.Pool.QueryRow(ctx, "SELECT status FROM promo_redemptions").Scan(&status))
	assert.Equal(t, string(model.RedemptionRolledBack), status)

	// The released slot is available to the next checkout.
	ok := service.NewCheckoutService(orderRepo, productRepo, promoRepo, nil, checkoutConfig(), logger)
	resp, err := ok.Checkout(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "53.59", resp.Total)
	assert.Equal(t, 1, UsedCount(t, testDB.Pool, "LASTONE"))
}
