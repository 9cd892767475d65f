package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retailinventory/forecast-engine/internal/api"
	"github.com/retailinventory/forecast-engine/internal/config"
	"github.com/retailinventory/forecast-engine/internal/domain"
	"github.com/retailinventory/forecast-engine/internal/repository/memory"
	"github.com/retailinventory/forecast-engine/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var handlerTestStart = time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

// newTestRouter wires the full router against in-memory repositories with
// one trainable pair seeded.
func newTestRouter() *gin.Engine {
	history := memory.NewHistoryRepository()
	for d := 0; d < 120; d++ {
		history.Append(domain.DemandObservation{
			StoreID:      "s1",
			ProductID:    "p1",
			Date:         handlerTestStart.AddDate(0, 0, d),
			QuantitySold: 10,
		})
	}

	inventory := memory.NewInventoryRepository()
	inventory.Put(domain.InventoryPosition{
		StoreID:        "s1",
		ProductID:      "p1",
		QuantityOnHand: 20,
		LeadTimeDays:   7,
	})

	suppliers := memory.NewSupplierRepository()
	suppliers.Put(domain.SupplierConstraints{
		ProductID:    "p1",
		CasePackSize: 24,
		OrderingCost: 50,
		HoldingCost:  2,
		UnitCost:     decimal.NewFromFloat(1.5),
	})

	forecasts := memory.NewForecastRepository()
	repos := service.Repositories{
		History:   history,
		Stats:     memory.NewStatisticsRepository(),
		Models:    memory.NewModelRepository(),
		Forecasts: forecasts,
		Inventory: inventory,
		Suppliers: suppliers,
		Triggers:  memory.NewTriggerRepository(),
	}
	engine := service.NewEngine(config.DefaultEngineConfig(), repos, nil, nil, nil).
		WithClock(func() time.Time { return handlerTestStart.AddDate(0, 0, 120) })
	return api.NewRouter(engine, forecasts, nil)
}

func doJSON(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHealthEndpoint(t *testing.T) {
	w := doJSON(newTestRouter(), http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestTrainEndpoint(t *testing.T) {
	router := newTestRouter()

	w := doJSON(router, http.MethodPost, "/api/v1/forecast/train", gin.H{
		"store_id": "s1", "product_id": "p1",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	body := decodeBody(t, w)
	assert.Equal(t, float64(1), body["model_version"])
	assert.Equal(t, "s1", body["store_id"])
}

func TestTrainEndpointRejectsMissingFields(t *testing.T) {
	w := doJSON(newTestRouter(), http.MethodPost, "/api/v1/forecast/train", gin.H{
		"store_id": "s1",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTrainEndpointInsufficientHistory(t *testing.T) {
	w := doJSON(newTestRouter(), http.MethodPost, "/api/v1/forecast/train", gin.H{
		"store_id": "s1", "product_id": "unknown",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestGenerateAndListPoints(t *testing.T) {
	router := newTestRouter()

	w := doJSON(router, http.MethodPost, "/api/v1/forecast/train", gin.H{
		"store_id": "s1", "product_id": "p1",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(router, http.MethodPost, "/api/v1/forecast/generate", gin.H{
		"store_id": "s1", "product_id": "p1", "horizon_days": 14,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, decodeBody(t, w)["points"], 14)

	from := handlerTestStart.AddDate(0, 0, 120).Format("2006-01-02")
	to := handlerTestStart.AddDate(0, 0, 135).Format("2006-01-02")
	w = doJSON(router, http.MethodGet,
		fmt.Sprintf("/api/v1/forecast/points?store_id=s1&product_id=p1&from=%s&to=%s", from, to), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeBody(t, w)["points"], 14)
}

func TestGenerateEndpointWithoutModel(t *testing.T) {
	w := doJSON(newTestRouter(), http.MethodPost, "/api/v1/forecast/generate", gin.H{
		"store_id": "s1", "product_id": "p1", "horizon_days": 14,
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEvaluateEndpoint(t *testing.T) {
	router := newTestRouter()

	w := doJSON(router, http.MethodPost, "/api/v1/forecast/train", gin.H{
		"store_id": "s1", "product_id": "p1",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(router, http.MethodPost, "/api/v1/reorder/evaluate", gin.H{
		"store_id": "s1", "product_id": "p1",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decodeBody(t, w)
	assert.Greater(t, body["reorder_point"], float64(0))
	assert.Equal(t, 0.95, body["service_level"])
}

func TestEvaluateEndpointInvalidServiceLevel(t *testing.T) {
	w := doJSON(newTestRouter(), http.MethodPost, "/api/v1/reorder/evaluate", gin.H{
		"store_id": "s1", "product_id": "p1", "service_level": 1.5,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEvaluateEndpointUnknownPair(t *testing.T) {
	w := doJSON(newTestRouter(), http.MethodPost, "/api/v1/reorder/evaluate", gin.H{
		"store_id": "s9", "product_id": "p9",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMarkReceivedEndpoint(t *testing.T) {
	router := newTestRouter()

	w := doJSON(router, http.MethodPost, "/api/v1/forecast/train", gin.H{
		"store_id": "s1", "product_id": "p1",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(router, http.MethodPost, "/api/v1/reorder/evaluate", gin.H{
		"store_id": "s1", "product_id": "p1",
	})
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	trigger, ok := body["trigger"].(map[string]any)
	require.True(t, ok, "low stock position must carry a trigger")
	id := int64(trigger["id"].(float64))

	w = doJSON(router, http.MethodPost, fmt.Sprintf("/api/v1/triggers/%d/received", id), nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMarkReceivedRejectsBadID(t *testing.T) {
	w := doJSON(newTestRouter(), http.MethodPost, "/api/v1/triggers/abc/received", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
