package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentguard/backend/internal/analysis"
	"github.com/rentguard/backend/internal/extract"
	"github.com/rentguard/backend/internal/storage/models"
)

type fakeExtractor struct {
	calls  int
	result *models.ExtractedText
	errs   []error
}

func (f *fakeExtractor) Extract(ctx context.Context, storageKey string) (*models.ExtractedText, error) {
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return f.result, nil
}

type fakeAnalyzer struct {
	calls  int
	result *analysis.Result
	err    error
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, sanitizedText string) (*analysis.Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeStore struct {
	statuses    []models.DocumentStatus
	failedStage string
	errorDetail string
	failCalls   int
	reports     []*models.Report
	saveErrs    []error
}

func (f *fakeStore) UpsertDocument(doc *models.Document) error {
	f.statuses = append(f.statuses, doc.Status)
	return nil
}

func (f *fakeStore) UpdateDocumentStatus(id string, status models.DocumentStatus) error {
	f.statuses = append(f.statuses, status)
	return nil
}

func (f *fakeStore) MarkDocumentFailed(id, stage, detail string) error {
	f.failCalls++
	f.failedStage = stage
	f.errorDetail = detail
	f.statuses = append(f.statuses, models.StatusFailed)
	return nil
}

func (f *fakeStore) SaveReport(report *models.Report) error {
	if len(f.saveErrs) > 0 {
		err := f.saveErrs[0]
		f.saveErrs = f.saveErrs[1:]
		if err != nil {
			return err
		}
	}
	f.reports = append(f.reports, report)
	f.statuses = append(f.statuses, models.StatusStored)
	return nil
}

type fakeCache struct {
	setCalls        int
	invalidateCalls int
}

func (f *fakeCache) SetReport(ctx context.Context, report *models.Report) error {
	f.setCalls++
	return nil
}

func (f *fakeCache) InvalidateReport(ctx context.Context, documentID string) error {
	f.invalidateCalls++
	return nil
}

var contractText = "1. השוכר ישלם דמי שכירות חודשיים למשכיר\n2. תקופת השכירות היא שנה אחת"

func happyExtractor() *fakeExtractor {
	return &fakeExtractor{
		result: &models.ExtractedText{Text: contractText, PageCount: 2},
	}
}

func happyAnalyzer() *fakeAnalyzer {
	return &fakeAnalyzer{
		result: &analysis.Result{
			IsContract: true,
			Summary:    "נמצא ממצא אחד",
			Issues: []models.Issue{
				{RuleID: "F1", Category: models.CategoryFinancialTerms, RiskLevel: models.RiskHigh, PenaltyPoints: 10},
			},
		},
	}
}

func fixedClock() func() time.Time {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return at }
}

func testTrigger() Trigger {
	return Trigger{
		DocumentID:      "doc-1",
		OwnerID:         "user-1",
		StorageLocation: "uploads/user-1/contract-doc-1.pdf",
	}
}

func TestRunHappyPathStoresReport(t *testing.T) {
	store := &fakeStore{}
	cache := &fakeCache{}
	o := NewOrchestrator(happyExtractor(), happyAnalyzer(), store, cache)
	o.now = fixedClock()

	err := o.Run(context.Background(), testTrigger())

	require.NoError(t, err)
	require.Len(t, store.reports, 1)

	report := store.reports[0]
	assert.Equal(t, "doc-1", report.DocumentID)
	assert.Equal(t, "user-1", report.OwnerID)
	assert.Equal(t, 90, report.OverallScore)
	assert.Equal(t, 2, report.PageCount)
	assert.True(t, report.IsContract)
	// "השוכר", "דמי שכירות" and "תקופת השכירות" in the extracted text.
	assert.Equal(t, 35, report.Confidence)
	assert.NotEmpty(t, report.Clauses)

	assert.Equal(t, []models.DocumentStatus{
		models.StatusUploaded,
		models.StatusExtracting,
		models.StatusRedacting,
		models.StatusAnalyzing,
		models.StatusScoring,
		models.StatusStored,
	}, store.statuses)

	assert.Equal(t, 1, cache.invalidateCalls)
	assert.Equal(t, 1, cache.setCalls)
}

func TestRunIsDeterministicAcrossReruns(t *testing.T) {
	store := &fakeStore{}
	o := NewOrchestrator(happyExtractor(), happyAnalyzer(), store, &fakeCache{})
	o.now = fixedClock()

	require.NoError(t, o.Run(context.Background(), testTrigger()))
	require.NoError(t, o.Run(context.Background(), testTrigger()))
	require.Len(t, store.reports, 2)

	first, err := json.Marshal(store.reports[0])
	require.NoError(t, err)
	second, err := json.Marshal(store.reports[1])
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestRunAnalyzerFailureMarksAnalyzingStage(t *testing.T) {
	store := &fakeStore{}
	analyzer := &fakeAnalyzer{err: fmt.Errorf("%w: three timeouts", analysis.ErrAnalysisUnavailable)}
	o := NewOrchestrator(happyExtractor(), analyzer, store, &fakeCache{})

	err := o.Run(context.Background(), testTrigger())

	require.Error(t, err)
	assert.Equal(t, StageAnalyzing, store.failedStage)
	assert.Contains(t, store.errorDetail, "three timeouts")
	assert.Equal(t, 1, store.failCalls)
	assert.Empty(t, store.reports)
	// The analyzer owns its retry budget; the orchestrator calls it once.
	assert.Equal(t, 1, analyzer.calls)
}

func TestRunDeterministicExtractionFailureNotRetried(t *testing.T) {
	store := &fakeStore{}
	extractor := &fakeExtractor{
		errs: []error{fmt.Errorf("%w: no extractable characters", extract.ErrExtractionFailed)},
	}
	o := NewOrchestrator(extractor, happyAnalyzer(), store, &fakeCache{})

	err := o.Run(context.Background(), testTrigger())

	require.Error(t, err)
	assert.Equal(t, 1, extractor.calls)
	assert.Equal(t, StageExtracting, store.failedStage)
	assert.Empty(t, store.reports)
}

func TestRunTransientExtractionFailureRetriedOnce(t *testing.T) {
	store := &fakeStore{}
	extractor := happyExtractor()
	extractor.errs = []error{errors.New("fetch blob: connection reset")}
	o := NewOrchestrator(extractor, happyAnalyzer(), store, &fakeCache{})
	o.now = fixedClock()

	err := o.Run(context.Background(), testTrigger())

	require.NoError(t, err)
	assert.Equal(t, 2, extractor.calls)
	require.Len(t, store.reports, 1)
}

func TestRunNonContractStoresZeroScoreReport(t *testing.T) {
	store := &fakeStore{}
	analyzer := &fakeAnalyzer{
		result: &analysis.Result{IsContract: false, Summary: "זה לא חוזה שכירות"},
	}
	o := NewOrchestrator(happyExtractor(), analyzer, store, &fakeCache{})
	o.now = fixedClock()

	err := o.Run(context.Background(), testTrigger())

	require.NoError(t, err)
	require.Len(t, store.reports, 1)

	report := store.reports[0]
	assert.False(t, report.IsContract)
	assert.Equal(t, 0, report.OverallScore)
	assert.Empty(t, report.Issues)
	for _, cat := range models.Categories {
		assert.Equal(t, 0, report.Breakdown[cat].Score)
	}
}

func TestRunStoringRetriedOnce(t *testing.T) {
	store := &fakeStore{saveErrs: []error{errors.New("database is locked")}}
	o := NewOrchestrator(happyExtractor(), happyAnalyzer(), store, &fakeCache{})
	o.now = fixedClock()

	err := o.Run(context.Background(), testTrigger())

	require.NoError(t, err)
	require.Len(t, store.reports, 1)
}

func TestStartRejectsConcurrentRun(t *testing.T) {
	o := NewOrchestrator(happyExtractor(), happyAnalyzer(), &fakeStore{}, &fakeCache{})
	o.inFlight.Store("doc-1", struct{}{})

	err := o.Start(testTrigger())

	assert.ErrorIs(t, err, ErrRunInProgress)
}
