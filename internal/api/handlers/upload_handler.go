package handlers

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rentguard/backend/internal/storage/minio"
	"github.com/rentguard/backend/pkg/logger"
)

const presignExpiry = 15 * time.Minute

var allowedExtensions = map[string]bool{
	".pdf":  true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

type UploadHandler struct {
	blobs *minio.Client
}

func NewUploadHandler(blobs *minio.Client) *UploadHandler {
	return &UploadHandler{blobs: blobs}
}

// CreateUploadURL hands the client a short-lived presigned PUT URL so
// document bytes go straight to the object store. The generated storage
// key doubles as the storageLocation for the analysis trigger.
func (h *UploadHandler) CreateUploadURL(c *fiber.Ctx) error {
	ownerID := c.Get("X-User-ID")
	if ownerID == "" {
		ownerID = c.Query("ownerId")
	}
	if ownerID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "ownerId is required",
		})
	}

	ext := strings.ToLower(c.Query("extension", ".pdf"))
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	if !allowedExtensions[ext] {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unsupported file extension",
		})
	}

	documentID := uuid.New().String()
	storageKey := fmt.Sprintf("uploads/%s/contract-%s%s", ownerID, documentID, ext)

	url, err := h.blobs.PresignedPutURL(c.Context(), storageKey, presignExpiry)
	if err != nil {
		logger.Error("Failed to presign upload url", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create upload URL",
		})
	}

	return c.JSON(fiber.Map{
		"documentId":      documentID,
		"storageLocation": storageKey,
		"uploadUrl":       url,
		"expiresIn":       int(presignExpiry.Seconds()),
	})
}
