package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/rentguard/backend/internal/storage/models"
	"github.com/rentguard/backend/pkg/logger"
)

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec("PRAGMA foreign_keys = ON")
	if err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	_, err = db.Exec("PRAGMA journal_mode = WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		storage_key TEXT NOT NULL,
		status TEXT NOT NULL,
		failed_stage TEXT,
		error_detail TEXT,
		uploaded_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_documents_owner ON documents(owner_id);
	CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(status);

	CREATE TABLE IF NOT EXISTS reports (
		document_id TEXT PRIMARY KEY,
		owner_id TEXT,
		overall_score INTEGER NOT NULL,
		score_breakdown TEXT NOT NULL,
		issues TEXT NOT NULL,
		clauses TEXT NOT NULL,
		summary TEXT,
		is_contract INTEGER NOT NULL,
		redaction_count INTEGER DEFAULT 0,
		confidence INTEGER DEFAULT 0,
		page_count INTEGER DEFAULT 0,
		generated_at INTEGER NOT NULL,
		FOREIGN KEY (document_id) REFERENCES documents(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_reports_owner ON reports(owner_id);
	`

	_, err := c.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

// UpsertDocument registers an uploaded document. Re-triggering analysis for
// a known id resets the lifecycle back to uploaded.
func (c *Client) UpsertDocument(doc *models.Document) error {
	query := `
		INSERT INTO documents (id, owner_id, storage_key, status, uploaded_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			storage_key = excluded.storage_key,
			status = excluded.status,
			failed_stage = NULL,
			error_detail = NULL,
			updated_at = excluded.updated_at
	`

	now := time.Now()
	_, err := c.db.Exec(
		query,
		doc.ID,
		doc.OwnerID,
		doc.StorageKey,
		string(doc.Status),
		doc.UploadedAt.Unix(),
		now.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert document: %w", err)
	}

	return nil
}

func (c *Client) GetDocument(id string) (*models.Document, error) {
	query := `
		SELECT id, owner_id, storage_key, status,
		       COALESCE(failed_stage, ''), COALESCE(error_detail, ''),
		       uploaded_at, updated_at
		FROM documents WHERE id = ?
	`

	var doc models.Document
	var status string
	var uploadedAt, updatedAt int64

	err := c.db.QueryRow(query, id).Scan(
		&doc.ID,
		&doc.OwnerID,
		&doc.StorageKey,
		&status,
		&doc.FailedStage,
		&doc.ErrorDetail,
		&uploadedAt,
		&updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	doc.Status = models.DocumentStatus(status)
	doc.UploadedAt = time.Unix(uploadedAt, 0)
	doc.UpdatedAt = time.Unix(updatedAt, 0)

	return &doc, nil
}

func (c *Client) UpdateDocumentStatus(id string, status models.DocumentStatus) error {
	query := `UPDATE documents SET status = ?, updated_at = ? WHERE id = ?`

	res, err := c.db.Exec(query, string(status), time.Now().Unix(), id)
	if err != nil {
		return fmt.Errorf("failed to update document status: %w", err)
	}

	rows, err := res.RowsAffected()
	if err == nil && rows == 0 {
		return fmt.Errorf("document %s not found", id)
	}

	return nil
}

// MarkDocumentFailed records the failing stage and error detail and moves
// the document to the failed terminal state.
func (c *Client) MarkDocumentFailed(id, stage, detail string) error {
	query := `
		UPDATE documents
		SET status = ?, failed_stage = ?, error_detail = ?, updated_at = ?
		WHERE id = ?
	`

	_, err := c.db.Exec(query, string(models.StatusFailed), stage, detail, time.Now().Unix(), id)
	if err != nil {
		return fmt.Errorf("failed to mark document failed: %w", err)
	}

	return nil
}

// SaveReport writes the report and advances the document to stored in one
// transaction. Re-analysis overwrites the previous report row.
func (c *Client) SaveReport(report *models.Report) error {
	breakdown, err := json.Marshal(report.Breakdown)
	if err != nil {
		return fmt.Errorf("failed to marshal score breakdown: %w", err)
	}

	issues, err := json.Marshal(report.Issues)
	if err != nil {
		return fmt.Errorf("failed to marshal issues: %w", err)
	}

	clauses, err := json.Marshal(report.Clauses)
	if err != nil {
		return fmt.Errorf("failed to marshal clauses: %w", err)
	}

	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO reports (document_id, owner_id, overall_score, score_breakdown,
			issues, clauses, summary, is_contract, redaction_count, confidence, page_count, generated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(document_id) DO UPDATE SET
			owner_id = excluded.owner_id,
			overall_score = excluded.overall_score,
			score_breakdown = excluded.score_breakdown,
			issues = excluded.issues,
			clauses = excluded.clauses,
			summary = excluded.summary,
			is_contract = excluded.is_contract,
			redaction_count = excluded.redaction_count,
			confidence = excluded.confidence,
			page_count = excluded.page_count,
			generated_at = excluded.generated_at
	`,
		report.DocumentID,
		report.OwnerID,
		report.OverallScore,
		string(breakdown),
		string(issues),
		string(clauses),
		report.Summary,
		boolToInt(report.IsContract),
		report.RedactionCount,
		report.Confidence,
		report.PageCount,
		report.GeneratedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert report: %w", err)
	}

	_, err = tx.Exec(
		`UPDATE documents SET status = ?, failed_stage = NULL, error_detail = NULL, updated_at = ? WHERE id = ?`,
		string(models.StatusStored), time.Now().Unix(), report.DocumentID,
	)
	if err != nil {
		return fmt.Errorf("failed to advance document to stored: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit report: %w", err)
	}

	logger.Info("Report saved",
		zap.String("document_id", report.DocumentID),
		zap.Int("overall_score", report.OverallScore),
		zap.Int("issues", len(report.Issues)),
	)

	return nil
}

func (c *Client) GetReport(documentID string) (*models.Report, error) {
	query := `
		SELECT document_id, COALESCE(owner_id, ''), overall_score, score_breakdown,
		       issues, clauses, COALESCE(summary, ''), is_contract,
		       redaction_count, confidence, page_count, generated_at
		FROM reports WHERE document_id = ?
	`

	var report models.Report
	var breakdown, issues, clauses string
	var isContract int
	var generatedAt int64

	err := c.db.QueryRow(query, documentID).Scan(
		&report.DocumentID,
		&report.OwnerID,
		&report.OverallScore,
		&breakdown,
		&issues,
		&clauses,
		&report.Summary,
		&isContract,
		&report.RedactionCount,
		&report.Confidence,
		&report.PageCount,
		&generatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	if err := json.Unmarshal([]byte(breakdown), &report.Breakdown); err != nil {
		return nil, fmt.Errorf("failed to unmarshal score breakdown: %w", err)
	}
	if err := json.Unmarshal([]byte(issues), &report.Issues); err != nil {
		return nil, fmt.Errorf("failed to unmarshal issues: %w", err)
	}
	if err := json.Unmarshal([]byte(clauses), &report.Clauses); err != nil {
		return nil, fmt.Errorf("failed to unmarshal clauses: %w", err)
	}

	report.IsContract = isContract != 0
	report.GeneratedAt = time.Unix(generatedAt, 0)

	return &report, nil
}

// ListDocumentsByOwner backs the external dashboard collaborator.
func (c *Client) ListDocumentsByOwner(ownerID string) ([]*models.Document, error) {
	query := `
		SELECT id, owner_id, storage_key, status,
		       COALESCE(failed_stage, ''), COALESCE(error_detail, ''),
		       uploaded_at, updated_at
		FROM documents WHERE owner_id = ?
		ORDER BY uploaded_at DESC
	`

	rows, err := c.db.Query(query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []*models.Document
	for rows.Next() {
		var doc models.Document
		var status string
		var uploadedAt, updatedAt int64

		err := rows.Scan(
			&doc.ID,
			&doc.OwnerID,
			&doc.StorageKey,
			&status,
			&doc.FailedStage,
			&doc.ErrorDetail,
			&uploadedAt,
			&updatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}

		doc.Status = models.DocumentStatus(status)
		doc.UploadedAt = time.Unix(uploadedAt, 0)
		doc.UpdatedAt = time.Unix(updatedAt, 0)
		docs = append(docs, &doc)
	}

	return docs, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
