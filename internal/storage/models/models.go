package models

import "time"

type DocumentStatus string

const (
	StatusUploaded   DocumentStatus = "uploaded"
	StatusExtracting DocumentStatus = "extracting"
	StatusRedacting  DocumentStatus = "redacting"
	StatusAnalyzing  DocumentStatus = "analyzing"
	StatusScoring    DocumentStatus = "scoring"
	StatusStored     DocumentStatus = "stored"
	StatusFailed     DocumentStatus = "failed"
)

// Document tracks one uploaded lease through the pipeline lifecycle.
// Only the orchestrator mutates status after upload.
type Document struct {
	ID          string
	OwnerID     string
	StorageKey  string
	Status      DocumentStatus
	FailedStage string
	ErrorDetail string
	UploadedAt  time.Time
	UpdatedAt   time.Time
}

// ExtractedText is the raw OCR output. It lives only inside a pipeline
// run and is discarded once redaction has produced SanitizedText.
type ExtractedText struct {
	Text      string
	PageCount int
}

// SanitizedText is the only text allowed to cross the model boundary.
type SanitizedText struct {
	Text           string
	RedactionCount int
	Confidence     int
}

// Clause is one display unit of contract text. Ordering is significant;
// Number is cosmetic and may be empty for unnumbered free text.
type Clause struct {
	Index  int    `json:"index"`
	Number string `json:"number,omitempty"`
	Text   string `json:"text"`
}

type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

type Category string

const (
	CategoryFinancialTerms     Category = "financial_terms"
	CategoryTenantRights       Category = "tenant_rights"
	CategoryTerminationClauses Category = "termination_clauses"
	CategoryLiabilityRepairs   Category = "liability_repairs"
	CategoryLegalCompliance    Category = "legal_compliance"
)

// Categories lists the five scoring buckets in presentation order.
var Categories = []Category{
	CategoryFinancialTerms,
	CategoryTenantRights,
	CategoryTerminationClauses,
	CategoryLiabilityRepairs,
	CategoryLegalCompliance,
}

type Issue struct {
	RuleID        string    `json:"rule_id,omitempty"`
	ClauseTopic   string    `json:"clause_topic"`
	RiskLevel     RiskLevel `json:"risk_level"`
	OriginalText  string    `json:"original_text"`
	LegalBasis    string    `json:"legal_basis"`
	Explanation   string    `json:"explanation"`
	SuggestedFix  string    `json:"suggested_fix"`
	PenaltyPoints int       `json:"penalty_points"`
	Category      Category  `json:"category"`
}

type CategoryScore struct {
	Score     int `json:"score"`
	Penalties int `json:"penalties"`
	Max       int `json:"max"`
}

// ScoreBreakdown maps each of the five categories to its current score
// in [0,20]. The sum of the five Score values is the overall score.
type ScoreBreakdown map[Category]CategoryScore

// Report is the terminal artifact of a successful pipeline run,
// overwritten in place on re-analysis.
type Report struct {
	DocumentID     string         `json:"documentId"`
	OwnerID        string         `json:"ownerId,omitempty"`
	OverallScore   int            `json:"overall_score"`
	Breakdown      ScoreBreakdown `json:"score_breakdown"`
	Issues         []Issue        `json:"issues"`
	Clauses        []Clause       `json:"clauses"`
	Summary        string         `json:"summary"`
	IsContract     bool           `json:"is_contract"`
	RedactionCount int            `json:"redaction_count"`
	Confidence     int            `json:"confidence"`
	PageCount      int            `json:"page_count"`
	GeneratedAt    time.Time      `json:"generated_at"`
}
