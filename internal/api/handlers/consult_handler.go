package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/rentguard/backend/internal/analysis"
	"github.com/rentguard/backend/internal/cache/redis"
	"github.com/rentguard/backend/internal/metrics"
	"github.com/rentguard/backend/pkg/logger"
	"github.com/rentguard/backend/pkg/utils"
)

// ClauseExplainer is the slice of the analyzer the consult endpoint needs.
type ClauseExplainer interface {
	ExplainClause(ctx context.Context, clauseText string) (string, error)
}

type ConsultHandler struct {
	explainer ClauseExplainer
	cache     *redis.Client
}

func NewConsultHandler(explainer ClauseExplainer, cache *redis.Client) *ConsultHandler {
	return &ConsultHandler{
		explainer: explainer,
		cache:     cache,
	}
}

// ExplainClause returns a plain-language explanation for a single clause.
// Explanations are cached by clause text hash since the same boilerplate
// clause shows up across many contracts.
func (h *ConsultHandler) ExplainClause(c *fiber.Ctx) error {
	var req struct {
		ClauseText string `json:"clauseText"`
	}

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.ClauseText == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "clauseText is required",
		})
	}

	key := utils.HashString(req.ClauseText)

	if h.cache != nil {
		explanation, hit, err := h.cache.GetExplanation(c.Context(), key)
		if err != nil {
			logger.Warn("Explanation cache read failed", zap.Error(err))
		}
		if hit {
			metrics.ReportCacheHits.WithLabelValues("explanation").Inc()
			return c.JSON(fiber.Map{
				"explanation": explanation,
				"cached":      true,
			})
		}
		metrics.ReportCacheMisses.WithLabelValues("explanation").Inc()
	}

	explanation, err := h.explainer.ExplainClause(c.Context(), req.ClauseText)
	if err != nil {
		logger.Error("Clause explanation failed", zap.Error(err))
		if errors.Is(err, analysis.ErrAnalysisUnavailable) {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "Explanation service temporarily unavailable",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to explain clause",
		})
	}

	if h.cache != nil {
		if err := h.cache.SetExplanation(c.Context(), key, explanation); err != nil {
			logger.Warn("Explanation cache write failed", zap.Error(err))
		}
	}

	return c.JSON(fiber.Map{
		"explanation": explanation,
		"cached":      false,
	})
}
