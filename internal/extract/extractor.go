package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rentguard/backend/internal/storage/models"
	"github.com/rentguard/backend/pkg/config"
	"github.com/rentguard/backend/pkg/logger"
)

// ErrExtractionFailed marks a blob that is not a parseable document or
// yielded zero extractable characters. Fatal to the run; never retried here.
var ErrExtractionFailed = errors.New("text extraction failed")

// BlobStore is the slice of the object store the extractor needs.
type BlobStore interface {
	FetchObject(ctx context.Context, key string) ([]byte, error)
}

// Extractor turns a stored document blob into raw text via the Azure
// Document Intelligence prebuilt-read model. Pages are requested in small
// batches and each analyze operation is polled to completion.
type Extractor struct {
	blobs           BlobStore
	httpClient      *http.Client
	endpoint        string
	apiKey          string
	maxPages        int
	pagesPerRequest int
	pollInterval    time.Duration
	pollMaxAttempts int
}

type analyzeResult struct {
	Status        string `json:"status"`
	AnalyzeResult struct {
		Content string `json:"content"`
		Pages   []struct {
			PageNumber int `json:"pageNumber"`
		} `json:"pages"`
	} `json:"analyzeResult"`
}

func NewExtractor(blobs BlobStore, cfg config.OCRConfig) *Extractor {
	return &Extractor{
		blobs:           blobs,
		httpClient:      &http.Client{Timeout: 60 * time.Second},
		endpoint:        strings.TrimRight(cfg.Endpoint, "/"),
		apiKey:          cfg.APIKey,
		maxPages:        cfg.MaxPages,
		pagesPerRequest: cfg.PagesPerRequest,
		pollInterval:    time.Duration(cfg.PollIntervalSec) * time.Second,
		pollMaxAttempts: cfg.PollMaxAttempts,
	}
}

// Extract downloads the blob and runs OCR over it page batch by page batch.
func (e *Extractor) Extract(ctx context.Context, storageKey string) (*models.ExtractedText, error) {
	// Blob fetch errors are left unwrapped: they may be transient and the
	// orchestrator is allowed one retry for them, unlike ErrExtractionFailed.
	data, err := e.blobs.FetchObject(ctx, storageKey)
	if err != nil {
		return nil, fmt.Errorf("fetch blob: %w", err)
	}

	contentType := detectContentType(storageKey)

	var allText strings.Builder
	totalPages := 0

	for startPage := 1; startPage <= e.maxPages; startPage += e.pagesPerRequest {
		endPage := startPage + e.pagesPerRequest - 1

		operationURL, err := e.submitBatch(ctx, data, contentType, startPage, endPage)
		if err != nil {
			if totalPages == 0 {
				return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
			}
			logger.Warn("OCR batch rejected, stopping",
				zap.Int("start_page", startPage),
				zap.Error(err),
			)
			break
		}

		result, err := e.pollOperation(ctx, operationURL)
		if err != nil {
			if totalPages == 0 {
				return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
			}
			break
		}

		pagesReturned := len(result.AnalyzeResult.Pages)
		if pagesReturned == 0 {
			break
		}

		allText.WriteString(result.AnalyzeResult.Content)
		allText.WriteString("\n")
		totalPages += pagesReturned

		logger.Debug("OCR batch extracted",
			zap.Int("pages", pagesReturned),
			zap.Int("total_pages", totalPages),
		)

		if pagesReturned < e.pagesPerRequest {
			break
		}
	}

	text := allText.String()
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: no extractable characters", ErrExtractionFailed)
	}

	logger.Info("Text extracted",
		zap.String("storage_key", storageKey),
		zap.Int("pages", totalPages),
		zap.Int("chars", len(text)),
	)

	return &models.ExtractedText{Text: text, PageCount: totalPages}, nil
}

func (e *Extractor) submitBatch(ctx context.Context, data []byte, contentType string, startPage, endPage int) (string, error) {
	analyzeURL := fmt.Sprintf(
		"%s/formrecognizer/documentModels/prebuilt-read:analyze?api-version=2023-07-31&pages=%d-%d",
		e.endpoint, startPage, endPage,
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, analyzeURL, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to create analyze request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", e.apiKey)
	req.Header.Set("Content-Type", contentType)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("analyze request failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusAccepted {
		return "", fmt.Errorf("analyze request returned status %d", resp.StatusCode)
	}

	operationURL := resp.Header.Get("Operation-Location")
	if operationURL == "" {
		return "", fmt.Errorf("analyze response missing Operation-Location header")
	}

	return operationURL, nil
}

func (e *Extractor) pollOperation(ctx context.Context, operationURL string) (*analyzeResult, error) {
	for attempt := 0; attempt < e.pollMaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(e.pollInterval):
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, operationURL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create poll request: %w", err)
		}
		req.Header.Set("Ocp-Apim-Subscription-Key", e.apiKey)

		resp, err := e.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("poll request failed: %w", err)
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read poll response: %w", err)
		}

		var result analyzeResult
		if err := json.Unmarshal(body, &result); err != nil {
			return nil, fmt.Errorf("failed to parse poll response: %w", err)
		}

		switch result.Status {
		case "succeeded":
			return &result, nil
		case "running", "notStarted":
			continue
		default:
			return nil, fmt.Errorf("ocr operation failed with status %q", result.Status)
		}
	}

	return nil, fmt.Errorf("timed out waiting for ocr operation")
}

func detectContentType(key string) string {
	lower := strings.ToLower(key)
	switch {
	case strings.HasSuffix(lower, ".pdf"):
		return "application/pdf"
	case strings.HasSuffix(lower, ".png"):
		return "image/png"
	default:
		return "image/jpeg"
	}
}
