package analysis

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/rentguard/backend/internal/storage/models"
)

var (
	jsonObject   = regexp.MustCompile(`(?s)\{.*\}`)
	controlChars = regexp.MustCompile("[\x00-\x08\x0b\x0c\x0e-\x1f]")
)

type rawBreakdownEntry struct {
	Score *int `json:"score"`
}

type rawIssue struct {
	RuleID        string      `json:"rule_id"`
	Category      string      `json:"category"`
	ClauseTopic   string      `json:"clause_topic"`
	OriginalText  string      `json:"original_text"`
	RiskLevel     string      `json:"risk_level"`
	PenaltyPoints json.Number `json:"penalty_points"`
	LegalBasis    string      `json:"legal_basis"`
	Explanation   string      `json:"explanation"`
	SuggestedFix  string      `json:"suggested_fix"`
}

type rawAnalysis struct {
	IsContract     *bool                        `json:"is_contract"`
	Summary        string                       `json:"summary"`
	ScoreBreakdown map[string]rawBreakdownEntry `json:"score_breakdown"`
	Issues         []rawIssue                   `json:"issues"`
	Clauses        []string                     `json:"clauses"`
}

// Result is the typed analyzer output handed to the scoring engine. The
// model's own score numbers are validated for shape but never trusted.
type Result struct {
	IsContract bool
	Summary    string
	Issues     []models.Issue
	Clauses    []string
}

// parseResponse treats model output as untrusted structured data: strip
// code fences, cut out the outer JSON object, drop control characters,
// then decode and validate against the fixed schema.
func parseResponse(output string) (*Result, error) {
	clean := strings.ReplaceAll(output, "```json", "")
	clean = strings.ReplaceAll(clean, "```", "")
	clean = strings.TrimSpace(clean)

	match := jsonObject.FindString(clean)
	if match == "" {
		return nil, fmt.Errorf("no JSON object in model output")
	}

	match = controlChars.ReplaceAllString(match, "")
	match = strings.ReplaceAll(match, "\r\n", "\\n")
	match = strings.ReplaceAll(match, "\r", "\\n")

	var raw rawAnalysis
	if err := json.Unmarshal([]byte(match), &raw); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	if err := validate(&raw); err != nil {
		return nil, err
	}

	isContract := true
	if raw.IsContract != nil {
		isContract = *raw.IsContract
	}

	summary := raw.Summary
	if summary == "" {
		summary = "הניתוח הושלם."
	}

	issues := make([]models.Issue, 0, len(raw.Issues))
	for _, ri := range raw.Issues {
		penalty, _ := ri.PenaltyPoints.Int64()
		issues = append(issues, models.Issue{
			RuleID:        ri.RuleID,
			Category:      models.Category(ri.Category),
			ClauseTopic:   ri.ClauseTopic,
			OriginalText:  ri.OriginalText,
			RiskLevel:     models.RiskLevel(ri.RiskLevel),
			PenaltyPoints: int(penalty),
			LegalBasis:    ri.LegalBasis,
			Explanation:   ri.Explanation,
			SuggestedFix:  ri.SuggestedFix,
		})
	}

	// Not a rental contract is a valid terminal state, never paired with
	// issues.
	if !isContract {
		issues = issues[:0]
	}

	return &Result{
		IsContract: isContract,
		Summary:    summary,
		Issues:     issues,
		Clauses:    raw.Clauses,
	}, nil
}

// validate enforces the fixed schema: when a breakdown is present it must
// carry exactly the five category keys, each scored 0-20, and every issue
// must name a risk level.
func validate(raw *rawAnalysis) error {
	if raw.ScoreBreakdown != nil {
		if len(raw.ScoreBreakdown) != len(models.Categories) {
			return fmt.Errorf("score_breakdown has %d keys, want %d", len(raw.ScoreBreakdown), len(models.Categories))
		}
		for _, cat := range models.Categories {
			entry, ok := raw.ScoreBreakdown[string(cat)]
			if !ok {
				return fmt.Errorf("score_breakdown missing category %q", cat)
			}
			if entry.Score == nil {
				return fmt.Errorf("score_breakdown category %q missing score", cat)
			}
			if *entry.Score < 0 || *entry.Score > 20 {
				return fmt.Errorf("score_breakdown category %q score %d out of range", cat, *entry.Score)
			}
		}
	}

	for i, issue := range raw.Issues {
		if issue.RiskLevel == "" {
			return fmt.Errorf("issue %d missing risk_level", i)
		}
	}

	return nil
}
