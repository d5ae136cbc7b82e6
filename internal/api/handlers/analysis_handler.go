package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/rentguard/backend/internal/cache/redis"
	"github.com/rentguard/backend/internal/metrics"
	"github.com/rentguard/backend/internal/pipeline"
	"github.com/rentguard/backend/internal/storage/models"
	"github.com/rentguard/backend/internal/storage/sqlite"
	"github.com/rentguard/backend/pkg/logger"
)

type AnalysisHandler struct {
	orchestrator *pipeline.Orchestrator
	store        *sqlite.Client
	cache        *redis.Client
}

func NewAnalysisHandler(orchestrator *pipeline.Orchestrator, store *sqlite.Client, cache *redis.Client) *AnalysisHandler {
	return &AnalysisHandler{
		orchestrator: orchestrator,
		store:        store,
		cache:        cache,
	}
}

// StartAnalysis triggers a pipeline run for an uploaded document blob.
// The response is immediate; progress is observed by polling GetReport.
func (h *AnalysisHandler) StartAnalysis(c *fiber.Ctx) error {
	var req struct {
		DocumentID      string `json:"documentId"`
		OwnerID         string `json:"ownerId"`
		StorageLocation string `json:"storageLocation"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.DocumentID == "" || req.OwnerID == "" || req.StorageLocation == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "documentId, ownerId and storageLocation are required",
		})
	}

	err := h.orchestrator.Start(pipeline.Trigger{
		DocumentID:      req.DocumentID,
		OwnerID:         req.OwnerID,
		StorageLocation: req.StorageLocation,
	})
	if err == pipeline.ErrRunInProgress {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Analysis already running for this document",
		})
	}
	if err != nil {
		logger.Error("Failed to start pipeline", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to start analysis",
		})
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"documentId": req.DocumentID,
		"status":     string(models.StatusUploaded),
	})
}

// GetReport is the polling contract for the display layer: the finished
// report, a not-ready-yet status, or the recorded failure. Not-ready is a
// normal condition, never an error.
func (h *AnalysisHandler) GetReport(c *fiber.Ctx) error {
	documentID := c.Params("documentId")
	if documentID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Missing documentId",
		})
	}

	doc, err := h.store.GetDocument(documentID)
	if err != nil {
		logger.Error("Failed to load document", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load document",
		})
	}
	if doc == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Document not found",
		})
	}

	// Documents are isolated per owner.
	callerID := c.Get("X-User-ID")
	if callerID != "" && doc.OwnerID != "" && callerID != doc.OwnerID {
		logger.Warn("Report access denied",
			zap.String("document_id", documentID),
			zap.String("caller", callerID),
		)
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Access denied - document belongs to another user",
		})
	}

	switch doc.Status {
	case models.StatusFailed:
		return c.JSON(fiber.Map{
			"documentId":  documentID,
			"status":      string(models.StatusFailed),
			"failedStage": doc.FailedStage,
			"errorDetail": doc.ErrorDetail,
		})
	case models.StatusStored:
		return h.respondWithReport(c, documentID)
	default:
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"documentId": documentID,
			"status":     string(doc.Status),
		})
	}
}

func (h *AnalysisHandler) respondWithReport(c *fiber.Ctx, documentID string) error {
	if h.cache != nil {
		report, hit, err := h.cache.GetReport(c.Context(), documentID)
		if err != nil {
			logger.Warn("Report cache read failed", zap.Error(err))
		}
		if hit {
			metrics.ReportCacheHits.WithLabelValues("report").Inc()
			return c.JSON(report)
		}
		metrics.ReportCacheMisses.WithLabelValues("report").Inc()
	}

	report, err := h.store.GetReport(documentID)
	if err != nil {
		logger.Error("Failed to load report", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load report",
		})
	}
	if report == nil {
		// Status says stored but the row is gone; report it as still
		// processing rather than failing the poll.
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"documentId": documentID,
			"status":     string(models.StatusScoring),
		})
	}

	if h.cache != nil {
		if err := h.cache.SetReport(c.Context(), report); err != nil {
			logger.Warn("Report cache write failed", zap.Error(err))
		}
	}

	return c.JSON(report)
}

// ListDocuments backs the external dashboard collaborator.
func (h *AnalysisHandler) ListDocuments(c *fiber.Ctx) error {
	ownerID := c.Query("ownerId")
	if ownerID == "" {
		ownerID = c.Get("X-User-ID")
	}
	if ownerID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "ownerId is required",
		})
	}

	docs, err := h.store.ListDocumentsByOwner(ownerID)
	if err != nil {
		logger.Error("Failed to list documents", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list documents",
		})
	}

	items := make([]fiber.Map, 0, len(docs))
	for _, doc := range docs {
		item := fiber.Map{
			"documentId": doc.ID,
			"status":     string(doc.Status),
			"uploadedAt": doc.UploadedAt,
		}
		if doc.Status == models.StatusFailed {
			item["failedStage"] = doc.FailedStage
			item["errorDetail"] = doc.ErrorDetail
		}
		items = append(items, item)
	}

	return c.JSON(fiber.Map{"documents": items})
}
