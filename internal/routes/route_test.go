package routes

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/joshua-takyi/slotbook/internal/config"
	"github.com/joshua-takyi/slotbook/internal/container"
	"github.com/joshua-takyi/slotbook/internal/helpers"
	"github.com/joshua-takyi/slotbook/internal/payment"
	"github.com/joshua-takyi/slotbook/internal/services"
)

func testContainer(env string) *container.Container {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	catalog := services.NewCatalogService(nil, nil, nil, logger)
	return &container.Container{
		Config: &config.Config{
			Environment: env,
			CORSOrigins: []string{"http://localhost:3000"},
		},
		Logger:           logger,
		Tokens:           helpers.NewTokenValidator("http://127.0.0.1:1", false),
		Gateway:          payment.NewMockGateway(1),
		CatalogService:   catalog,
		BookingService:   services.NewBookingService(catalog, nil, nil, payment.NewMockGateway(1), nil, services.BookingServiceConfig{}, logger),
		DashboardService: services.NewDashboardService(nil, nil, nil, logger),
	}
}

func serve(r http.Handler, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestHealth(t *testing.T) {
	r := SetupRoutes(testContainer("development"))

	w := serve(r, http.MethodGet, "/api/v1/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"gateway":"mock"`)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	r := SetupRoutes(testContainer("development"))

	for _, path := range []string{"/api/v1/profile", "/api/v1/organizers/me/entities"} {
		w := serve(r, http.MethodGet, path)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
	w := serve(r, http.MethodPost, "/api/v1/entities")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMockSettleOnlyOutsideProduction(t *testing.T) {
	dev := SetupRoutes(testContainer("development"))
	w := serve(dev, http.MethodPost, "/api/v1/payments/mock/unknown/settle")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	prod := SetupRoutes(testContainer("production"))
	w = serve(prod, http.MethodPost, "/api/v1/payments/mock/unknown/settle")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
