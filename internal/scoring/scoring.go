package scoring

import (
	"strings"

	"go.uber.org/zap"

	"github.com/rentguard/backend/internal/storage/models"
	"github.com/rentguard/backend/pkg/logger"
)

const categoryMax = 20

// Penalty bands per risk level. Model-emitted penalty points are clamped
// into the band of the declared level rather than trusted as-is.
var penaltyBands = map[models.RiskLevel][2]int{
	models.RiskHigh:   {8, 10},
	models.RiskMedium: {4, 6},
	models.RiskLow:    {2, 3},
}

// Rule identifiers from the legal knowledge base are prefixed by their
// category letter. Used to recover a category when the model omits one.
var rulePrefixCategories = map[byte]models.Category{
	'F': models.CategoryFinancialTerms,
	'T': models.CategoryTenantRights,
	'E': models.CategoryTerminationClauses,
	'L': models.CategoryLiabilityRepairs,
	'C': models.CategoryLegalCompliance,
}

type Result struct {
	Breakdown models.ScoreBreakdown
	Overall   int
	Issues    []models.Issue
}

// Compute is the single source of truth for the final numbers. Whatever
// breakdown the model returned is discarded: each category starts at 20,
// every matching issue subtracts its penalty, and the category floors at
// 0 — penalties past the floor are absorbed, never carried over. The
// overall score is the sum of the five floored categories.
func Compute(isContract bool, issues []models.Issue) *Result {
	if !isContract {
		return &Result{
			Breakdown: zeroBreakdown(),
			Overall:   0,
			Issues:    []models.Issue{},
		}
	}

	scores := make(map[models.Category]int, len(models.Categories))
	penalties := make(map[models.Category]int, len(models.Categories))
	for _, cat := range models.Categories {
		scores[cat] = categoryMax
	}

	kept := make([]models.Issue, 0, len(issues))
	for _, issue := range issues {
		issue, ok := normalizeIssue(issue)
		if !ok {
			continue
		}

		scores[issue.Category] -= issue.PenaltyPoints
		if scores[issue.Category] < 0 {
			scores[issue.Category] = 0
		}
		penalties[issue.Category] += issue.PenaltyPoints

		kept = append(kept, issue)
	}

	breakdown := make(models.ScoreBreakdown, len(models.Categories))
	overall := 0
	for _, cat := range models.Categories {
		breakdown[cat] = models.CategoryScore{
			Score:     scores[cat],
			Penalties: penalties[cat],
			Max:       categoryMax,
		}
		overall += scores[cat]
	}

	logger.Debug("Scores recalculated",
		zap.Int("overall", overall),
		zap.Int("issues", len(kept)),
	)

	return &Result{
		Breakdown: breakdown,
		Overall:   overall,
		Issues:    kept,
	}
}

// normalizeIssue resolves the issue's category and clamps its penalty.
// Issues with no resolvable category or a non-positive penalty are dropped,
// mirroring how malformed entries are filtered out of the final report.
func normalizeIssue(issue models.Issue) (models.Issue, bool) {
	if issue.PenaltyPoints <= 0 {
		return issue, false
	}

	if !validCategory(issue.Category) {
		issue.Category = categoryFromRule(issue.RuleID)
		if issue.Category == "" {
			return issue, false
		}
	}

	issue.RiskLevel = normalizeRiskLevel(issue.RiskLevel, issue.PenaltyPoints)

	band := penaltyBands[issue.RiskLevel]
	if issue.PenaltyPoints < band[0] {
		issue.PenaltyPoints = band[0]
	}
	if issue.PenaltyPoints > band[1] {
		issue.PenaltyPoints = band[1]
	}

	return issue, true
}

func validCategory(cat models.Category) bool {
	for _, c := range models.Categories {
		if c == cat {
			return true
		}
	}
	return false
}

func categoryFromRule(ruleID string) models.Category {
	if ruleID == "" {
		return ""
	}
	return rulePrefixCategories[strings.ToUpper(ruleID)[0]]
}

func normalizeRiskLevel(level models.RiskLevel, penalty int) models.RiskLevel {
	switch strings.ToLower(string(level)) {
	case "high":
		return models.RiskHigh
	case "medium":
		return models.RiskMedium
	case "low":
		return models.RiskLow
	}

	// Unrecognized level: infer from the emitted penalty.
	switch {
	case penalty >= 8:
		return models.RiskHigh
	case penalty >= 4:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}

func zeroBreakdown() models.ScoreBreakdown {
	breakdown := make(models.ScoreBreakdown, len(models.Categories))
	for _, cat := range models.Categories {
		breakdown[cat] = models.CategoryScore{Score: 0, Penalties: 0, Max: categoryMax}
	}
	return breakdown
}
