package sqlite

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentguard/backend/internal/storage/models"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()

	client, err := NewClient(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	require.NoError(t, client.InitSchema())
	return client
}

func testDocument(id string) *models.Document {
	return &models.Document{
		ID:         id,
		OwnerID:    "user-1",
		StorageKey: "uploads/user-1/contract-" + id + ".pdf",
		Status:     models.StatusUploaded,
		UploadedAt: time.Now(),
	}
}

func testReport(documentID string) *models.Report {
	breakdown := make(models.ScoreBreakdown)
	for _, cat := range models.Categories {
		breakdown[cat] = models.CategoryScore{Score: 20, Penalties: 0, Max: 20}
	}
	breakdown[models.CategoryFinancialTerms] = models.CategoryScore{Score: 10, Penalties: 10, Max: 20}

	return &models.Report{
		DocumentID:   documentID,
		OwnerID:      "user-1",
		OverallScore: 90,
		Breakdown:    breakdown,
		Issues: []models.Issue{
			{RuleID: "F1", Category: models.CategoryFinancialTerms, RiskLevel: models.RiskHigh, PenaltyPoints: 10},
		},
		Clauses: []models.Clause{
			{Index: 0, Number: "1", Text: "1. דמי השכירות ישולמו מראש"},
		},
		Summary:        "נמצא ממצא אחד",
		IsContract:     true,
		RedactionCount: 2,
		Confidence:     55,
		PageCount:      3,
		GeneratedAt:    time.Now().UTC().Truncate(time.Second),
	}
}

func TestGetDocumentMissing(t *testing.T) {
	client := newTestClient(t)

	doc, err := client.GetDocument("nope")

	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestUpsertAndGetDocument(t *testing.T) {
	client := newTestClient(t)

	require.NoError(t, client.UpsertDocument(testDocument("doc-1")))

	doc, err := client.GetDocument("doc-1")
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, "user-1", doc.OwnerID)
	assert.Equal(t, models.StatusUploaded, doc.Status)
}

func TestUpsertResetsFailedLifecycle(t *testing.T) {
	client := newTestClient(t)

	require.NoError(t, client.UpsertDocument(testDocument("doc-1")))
	require.NoError(t, client.MarkDocumentFailed("doc-1", "Analyzing", "backend unavailable"))

	failed, err := client.GetDocument("doc-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, failed.Status)
	assert.Equal(t, "Analyzing", failed.FailedStage)

	// Re-trigger: same id starts a fresh lifecycle.
	require.NoError(t, client.UpsertDocument(testDocument("doc-1")))

	doc, err := client.GetDocument("doc-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusUploaded, doc.Status)
	assert.Empty(t, doc.FailedStage)
	assert.Empty(t, doc.ErrorDetail)
}

func TestUpdateDocumentStatus(t *testing.T) {
	client := newTestClient(t)

	require.NoError(t, client.UpsertDocument(testDocument("doc-1")))
	require.NoError(t, client.UpdateDocumentStatus("doc-1", models.StatusExtracting))

	doc, err := client.GetDocument("doc-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusExtracting, doc.Status)
}

func TestUpdateDocumentStatusMissing(t *testing.T) {
	client := newTestClient(t)

	err := client.UpdateDocumentStatus("nope", models.StatusExtracting)

	assert.Error(t, err)
}

func TestSaveReportAdvancesDocumentToStored(t *testing.T) {
	client := newTestClient(t)

	require.NoError(t, client.UpsertDocument(testDocument("doc-1")))
	require.NoError(t, client.SaveReport(testReport("doc-1")))

	doc, err := client.GetDocument("doc-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusStored, doc.Status)

	report, err := client.GetReport("doc-1")
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.Equal(t, 90, report.OverallScore)
	assert.True(t, report.IsContract)
	assert.Equal(t, 55, report.Confidence)
	assert.Equal(t, 10, report.Breakdown[models.CategoryFinancialTerms].Score)
	require.Len(t, report.Issues, 1)
	assert.Equal(t, "F1", report.Issues[0].RuleID)
	require.Len(t, report.Clauses, 1)
	assert.Equal(t, "1", report.Clauses[0].Number)
}

func TestSaveReportOverwritesPrevious(t *testing.T) {
	client := newTestClient(t)

	require.NoError(t, client.UpsertDocument(testDocument("doc-1")))
	require.NoError(t, client.SaveReport(testReport("doc-1")))

	updated := testReport("doc-1")
	updated.OverallScore = 70
	updated.Issues = nil
	require.NoError(t, client.SaveReport(updated))

	report, err := client.GetReport("doc-1")
	require.NoError(t, err)
	assert.Equal(t, 70, report.OverallScore)
	assert.Empty(t, report.Issues)
}

func TestGetReportMissing(t *testing.T) {
	client := newTestClient(t)

	report, err := client.GetReport("nope")

	require.NoError(t, err)
	assert.Nil(t, report)
}

func TestListDocumentsByOwner(t *testing.T) {
	client := newTestClient(t)

	require.NoError(t, client.UpsertDocument(testDocument("doc-1")))
	require.NoError(t, client.UpsertDocument(testDocument("doc-2")))

	other := testDocument("doc-3")
	other.OwnerID = "user-2"
	require.NoError(t, client.UpsertDocument(other))

	docs, err := client.ListDocumentsByOwner("user-1")
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	docs, err = client.ListDocumentsByOwner("user-2")
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}
