package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/retailinventory/forecast-engine/internal/domain"
	"github.com/retailinventory/forecast-engine/internal/repository"
	"github.com/retailinventory/forecast-engine/internal/service"
)

type EngineHandler struct {
	engine    *service.Engine
	forecasts repository.ForecastRepository
}

func NewEngineHandler(engine *service.Engine, forecasts repository.ForecastRepository) *EngineHandler {
	return &EngineHandler{engine: engine, forecasts: forecasts}
}

type trainRequest struct {
	StoreID   string `json:"store_id" binding:"required"`
	ProductID string `json:"product_id" binding:"required"`
}

// Train fits a new model version for one pair.
func (h *EngineHandler) Train(c *gin.Context) {
	var req trainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	model, err := h.engine.TrainPair(c.Request.Context(), req.StoreID, req.ProductID)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, model)
}

type generateRequest struct {
	StoreID      string               `json:"store_id" binding:"required"`
	ProductID    string               `json:"product_id" binding:"required"`
	HorizonDays  int                  `json:"horizon_days" binding:"required"`
	ModelVersion int                  `json:"model_version"`
	Shocks       []domain.DemandShock `json:"shocks"`
}

// Generate produces and persists a quantile forecast.
func (h *EngineHandler) Generate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	points, err := h.engine.GenerateForecast(c.Request.Context(), req.StoreID, req.ProductID, req.ModelVersion, req.HorizonDays, req.Shocks)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"points": points})
}

// ListPoints returns previously persisted forecast points for a range.
func (h *EngineHandler) ListPoints(c *gin.Context) {
	storeID := c.Query("store_id")
	productID := c.Query("product_id")
	if storeID == "" || productID == "" {
		errorResponse(c, http.StatusBadRequest, "store_id and product_id are required")
		return
	}

	from, err := time.Parse("2006-01-02", c.DefaultQuery("from", time.Now().Format("2006-01-02")))
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid from date")
		return
	}
	to, err := time.Parse("2006-01-02", c.DefaultQuery("to", from.AddDate(0, 0, 30).Format("2006-01-02")))
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid to date")
		return
	}

	points, err := h.forecasts.ListRange(c.Request.Context(), storeID, productID, from, to)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"points": points})
}

type evaluateRequest struct {
	StoreID      string  `json:"store_id" binding:"required"`
	ProductID    string  `json:"product_id" binding:"required"`
	ServiceLevel float64 `json:"service_level"`
}

// Evaluate recomputes the reorder recommendation and steps the trigger
// state machine.
func (h *EngineHandler) Evaluate(c *gin.Context) {
	var req evaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := h.engine.EvaluateReorder(c.Request.Context(), req.StoreID, req.ProductID, req.ServiceLevel)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// MarkReceived resolves a trigger after its purchase order arrives.
func (h *EngineHandler) MarkReceived(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid trigger id")
		return
	}

	if err := h.engine.MarkTriggerReceived(c.Request.Context(), id); err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "resolved"})
}

// respondDomainError maps domain errors to HTTP status codes.
func respondDomainError(c *gin.Context, err error) {
	var (
		notFound      *domain.NotFoundError
		insufficient  *domain.InsufficientHistoryError
		training      *domain.ModelTrainingError
		stale         *domain.StaleModelError
		badLevel      *domain.InvalidServiceLevelError
		badConstraint *domain.InvalidSupplierConstraintsError
	)
	switch {
	case errors.As(err, &notFound):
		errorResponse(c, http.StatusNotFound, err.Error())
	case errors.As(err, &insufficient), errors.As(err, &training):
		errorResponse(c, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &stale):
		errorResponse(c, http.StatusConflict, err.Error())
	case errors.As(err, &badLevel), errors.As(err, &badConstraint):
		errorResponse(c, http.StatusBadRequest, err.Error())
	default:
		errorResponse(c, http.StatusInternalServerError, err.Error())
	}
}

func errorResponse(c *gin.Context, statusCode int, message string) {
	log.Error().Int("status", statusCode).Msg(message)
	c.JSON(statusCode, gin.H{"error": message})
}
