package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rentguard/backend/internal/analysis"
	"github.com/rentguard/backend/internal/clause"
	"github.com/rentguard/backend/internal/extract"
	"github.com/rentguard/backend/internal/metrics"
	"github.com/rentguard/backend/internal/privacy"
	"github.com/rentguard/backend/internal/scoring"
	"github.com/rentguard/backend/internal/storage/models"
	"github.com/rentguard/backend/pkg/logger"
)

// Stage names recorded on the document when a run fails.
const (
	StageExtracting = "Extracting"
	StageRedacting  = "Redacting"
	StageAnalyzing  = "Analyzing"
	StageScoring    = "Scoring"
	StageStoring    = "Storing"
)

// ErrRunInProgress rejects a second trigger for a document whose run has
// not reached a terminal state yet.
var ErrRunInProgress = errors.New("pipeline run already in progress for document")

type Trigger struct {
	DocumentID      string
	OwnerID         string
	StorageLocation string
}

type Extractor interface {
	Extract(ctx context.Context, storageKey string) (*models.ExtractedText, error)
}

type Analyzer interface {
	Analyze(ctx context.Context, sanitizedText string) (*analysis.Result, error)
}

type Store interface {
	UpsertDocument(doc *models.Document) error
	UpdateDocumentStatus(id string, status models.DocumentStatus) error
	MarkDocumentFailed(id, stage, detail string) error
	SaveReport(report *models.Report) error
}

type ReportCache interface {
	SetReport(ctx context.Context, report *models.Report) error
	InvalidateReport(ctx context.Context, documentID string) error
}

// Orchestrator drives one document through
// Extracting -> Redacting -> Analyzing -> Scoring -> Stored.
// Failed is reachable from every stage and is terminal; recovery means a
// fresh run from Extracting, never a resume-in-place. All run state is
// local to Run — nothing ambient is shared between documents.
type Orchestrator struct {
	extractor Extractor
	analyzer  Analyzer
	store     Store
	cache     ReportCache
	now       func() time.Time

	inFlight sync.Map
}

func NewOrchestrator(extractor Extractor, analyzer Analyzer, store Store, cache ReportCache) *Orchestrator {
	return &Orchestrator{
		extractor: extractor,
		analyzer:  analyzer,
		store:     store,
		cache:     cache,
		now:       time.Now,
	}
}

// Start launches a pipeline run in the background. Callers observe
// progress by polling the document status; there is no cancellation hook.
func (o *Orchestrator) Start(trigger Trigger) error {
	if _, loaded := o.inFlight.LoadOrStore(trigger.DocumentID, struct{}{}); loaded {
		return ErrRunInProgress
	}

	go func() {
		defer o.inFlight.Delete(trigger.DocumentID)

		if err := o.Run(context.Background(), trigger); err != nil {
			logger.Error("Pipeline run failed",
				zap.String("document_id", trigger.DocumentID),
				zap.Error(err),
			)
		}
	}()

	return nil
}

// Run executes the full pipeline synchronously. Re-running for the same
// document overwrites the prior report deterministically.
func (o *Orchestrator) Run(ctx context.Context, trigger Trigger) error {
	doc := &models.Document{
		ID:         trigger.DocumentID,
		OwnerID:    trigger.OwnerID,
		StorageKey: trigger.StorageLocation,
		Status:     models.StatusUploaded,
		UploadedAt: o.now(),
	}

	if err := o.store.UpsertDocument(doc); err != nil {
		return fmt.Errorf("failed to register document: %w", err)
	}

	if o.cache != nil {
		if err := o.cache.InvalidateReport(ctx, trigger.DocumentID); err != nil {
			logger.Warn("Failed to invalidate report cache", zap.Error(err))
		}
	}

	extracted, err := o.runExtracting(ctx, trigger)
	if err != nil {
		return o.fail(trigger.DocumentID, StageExtracting, err)
	}

	sanitized, err := o.runRedacting(trigger, extracted)
	if err != nil {
		return o.fail(trigger.DocumentID, StageRedacting, err)
	}
	// Raw text is discarded here; only sanitized text flows downstream.
	extracted.Text = ""

	analyzed, err := o.runAnalyzing(ctx, trigger, sanitized)
	if err != nil {
		return o.fail(trigger.DocumentID, StageAnalyzing, err)
	}

	report, err := o.runScoring(trigger, extracted.PageCount, sanitized, analyzed)
	if err != nil {
		return o.fail(trigger.DocumentID, StageScoring, err)
	}

	if err := o.runStoring(ctx, report); err != nil {
		return o.fail(trigger.DocumentID, StageStoring, err)
	}

	metrics.PipelineRunsTotal.WithLabelValues("stored").Inc()
	metrics.DocumentsProcessed.Inc()
	metrics.OverallScore.Observe(float64(report.OverallScore))

	logger.Info("Pipeline run completed",
		zap.String("document_id", trigger.DocumentID),
		zap.Int("overall_score", report.OverallScore),
		zap.Bool("is_contract", report.IsContract),
	)

	return nil
}

func (o *Orchestrator) runExtracting(ctx context.Context, trigger Trigger) (*models.ExtractedText, error) {
	if err := o.store.UpdateDocumentStatus(trigger.DocumentID, models.StatusExtracting); err != nil {
		return nil, err
	}

	defer o.observeStage(StageExtracting)()

	extracted, err := o.extractor.Extract(ctx, trigger.StorageLocation)
	if err != nil && retryableStageError(err) {
		logger.Warn("Extraction failed, retrying once",
			zap.String("document_id", trigger.DocumentID),
			zap.Error(err),
		)
		extracted, err = o.extractor.Extract(ctx, trigger.StorageLocation)
	}
	return extracted, err
}

func (o *Orchestrator) runRedacting(trigger Trigger, extracted *models.ExtractedText) (*models.SanitizedText, error) {
	if err := o.store.UpdateDocumentStatus(trigger.DocumentID, models.StatusRedacting); err != nil {
		return nil, err
	}

	defer o.observeStage(StageRedacting)()

	sanitized := privacy.Sanitize(extracted.Text)
	metrics.RedactionsTotal.Add(float64(sanitized.RedactionCount))
	return sanitized, nil
}

func (o *Orchestrator) runAnalyzing(ctx context.Context, trigger Trigger, sanitized *models.SanitizedText) (*analysis.Result, error) {
	if err := o.store.UpdateDocumentStatus(trigger.DocumentID, models.StatusAnalyzing); err != nil {
		return nil, err
	}

	defer o.observeStage(StageAnalyzing)()

	// Retry and backoff for this stage live inside the analyzer; the
	// orchestrator never adds attempts of its own on top.
	return o.analyzer.Analyze(ctx, sanitized.Text)
}

func (o *Orchestrator) runScoring(trigger Trigger, pageCount int, sanitized *models.SanitizedText, analyzed *analysis.Result) (*models.Report, error) {
	if err := o.store.UpdateDocumentStatus(trigger.DocumentID, models.StatusScoring); err != nil {
		return nil, err
	}

	defer o.observeStage(StageScoring)()

	scored := scoring.Compute(analyzed.IsContract, analyzed.Issues)
	clauses := clause.Segment(sanitized.Text, analyzed.Clauses)

	return &models.Report{
		DocumentID:     trigger.DocumentID,
		OwnerID:        trigger.OwnerID,
		OverallScore:   scored.Overall,
		Breakdown:      scored.Breakdown,
		Issues:         scored.Issues,
		Clauses:        clauses,
		Summary:        analyzed.Summary,
		IsContract:     analyzed.IsContract,
		RedactionCount: sanitized.RedactionCount,
		Confidence:     sanitized.Confidence,
		PageCount:      pageCount,
		GeneratedAt:    o.now().UTC().Truncate(time.Second),
	}, nil
}

func (o *Orchestrator) runStoring(ctx context.Context, report *models.Report) error {
	defer o.observeStage(StageStoring)()

	err := o.store.SaveReport(report)
	if err != nil {
		logger.Warn("Report write failed, retrying once",
			zap.String("document_id", report.DocumentID),
			zap.Error(err),
		)
		err = o.store.SaveReport(report)
	}
	if err != nil {
		return err
	}

	if o.cache != nil {
		if cacheErr := o.cache.SetReport(ctx, report); cacheErr != nil {
			logger.Warn("Failed to cache report", zap.Error(cacheErr))
		}
	}

	return nil
}

// fail records the failing stage on the document exactly once and moves
// it to the terminal failed state. No report is written on this path.
func (o *Orchestrator) fail(documentID, stage string, cause error) error {
	metrics.PipelineRunsTotal.WithLabelValues("failed").Inc()
	metrics.StageFailures.WithLabelValues(stage).Inc()

	if err := o.store.MarkDocumentFailed(documentID, stage, cause.Error()); err != nil {
		logger.Error("Failed to record pipeline failure",
			zap.String("document_id", documentID),
			zap.Error(err),
		)
	}

	logger.Error("Pipeline stage failed",
		zap.String("document_id", documentID),
		zap.String("stage", stage),
		zap.Error(cause),
	)

	return fmt.Errorf("stage %s: %w", stage, cause)
}

func (o *Orchestrator) observeStage(stage string) func() {
	start := o.now()
	return func() {
		metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	}
}

// retryableStageError: deterministic extraction failures are pointless to
// repeat; anything else (blob fetch hiccups, OCR backend blips) gets the
// single orchestration-level retry.
func retryableStageError(err error) bool {
	return !errors.Is(err, extract.ErrExtractionFailed)
}
