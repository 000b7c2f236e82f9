package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/example/wardrobe-dedup/internal/engine"
	"github.com/example/wardrobe-dedup/internal/usecase"
)

// CleanupService is the use case surface the HTTP layer depends on.
type CleanupService interface {
	Detect(ctx context.Context, collection string, threshold float64) (*usecase.DetectionSummary, error)
	Cleanup(ctx context.Context, collection string, threshold float64, policy string, confirm bool) (*usecase.CleanupSummary, error)
	Metrics(ctx context.Context, collection string, threshold float64) (*usecase.MetricsSummary, error)
}

type cleanupRequest struct {
	Threshold float64 `json:"threshold"`
	Policy    string  `json:"policy"`
	Confirm   bool    `json:"confirm"`
}

// RegisterRoutes wires the HTTP handlers to the Gin router. Detection and
// metrics are read-only; cleanup mutates the store and requires auth.
func RegisterRoutes(router *gin.Engine, svc CleanupService, authMiddleware gin.HandlerFunc) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/collections/:collection/duplicates", func(c *gin.Context) {
		threshold, ok := thresholdQuery(c)
		if !ok {
			return
		}

		summary, err := svc.Detect(c.Request.Context(), c.Param("collection"), threshold)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, summary)
	})

	router.GET("/collections/:collection/metrics", func(c *gin.Context) {
		threshold, ok := thresholdQuery(c)
		if !ok {
			return
		}

		metrics, err := svc.Metrics(c.Request.Context(), c.Param("collection"), threshold)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, metrics)
	})

	router.POST("/collections/:collection/cleanup", authMiddleware, func(c *gin.Context) {
		var req cleanupRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if req.Threshold == 0 {
			req.Threshold = engine.DefaultThreshold
		}

		summary, err := svc.Cleanup(c.Request.Context(), c.Param("collection"), req.Threshold, req.Policy, req.Confirm)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, summary)
	})
}

// thresholdQuery parses the optional threshold query parameter, writing the
// 400 response itself when the value is not a number.
func thresholdQuery(c *gin.Context) (float64, bool) {
	raw := c.Query("threshold")
	if raw == "" {
		return engine.DefaultThreshold, true
	}
	threshold, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "threshold must be a number"})
		return 0, false
	}
	return threshold, true
}

// respondError maps configuration mistakes to 400 and everything else to 500.
func respondError(c *gin.Context, err error) {
	var policyErr *engine.UnknownPolicyError
	if errors.As(err, &policyErr) || errors.Is(err, engine.ErrInvalidThreshold) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
