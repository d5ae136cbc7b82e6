package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentguard/backend/internal/storage/models"
)

func TestComputeNoIssuesScoresFull(t *testing.T) {
	res := Compute(true, nil)

	assert.Equal(t, 100, res.Overall)
	for _, cat := range models.Categories {
		assert.Equal(t, 20, res.Breakdown[cat].Score)
		assert.Equal(t, 0, res.Breakdown[cat].Penalties)
	}
	assert.Empty(t, res.Issues)
}

func TestComputeCategoryFloorsAtZero(t *testing.T) {
	issues := []models.Issue{
		{RuleID: "F1", Category: models.CategoryFinancialTerms, RiskLevel: models.RiskHigh, PenaltyPoints: 10},
		{RuleID: "F2", Category: models.CategoryFinancialTerms, RiskLevel: models.RiskHigh, PenaltyPoints: 10},
		{RuleID: "F3", Category: models.CategoryFinancialTerms, RiskLevel: models.RiskHigh, PenaltyPoints: 10},
	}

	res := Compute(true, issues)

	// 30 penalty points in one category still floor it at 0; the excess is
	// absorbed, not carried into other categories.
	assert.Equal(t, 0, res.Breakdown[models.CategoryFinancialTerms].Score)
	assert.Equal(t, 30, res.Breakdown[models.CategoryFinancialTerms].Penalties)
	assert.Equal(t, 80, res.Overall)
	assert.Equal(t, 20, res.Breakdown[models.CategoryTenantRights].Score)
}

func TestComputeNonContractZeroesEverything(t *testing.T) {
	issues := []models.Issue{
		{RuleID: "F1", Category: models.CategoryFinancialTerms, RiskLevel: models.RiskHigh, PenaltyPoints: 10},
	}

	res := Compute(false, issues)

	assert.Equal(t, 0, res.Overall)
	assert.Empty(t, res.Issues)
	for _, cat := range models.Categories {
		assert.Equal(t, 0, res.Breakdown[cat].Score)
	}
}

func TestComputeClampsPenaltyToRiskBand(t *testing.T) {
	issues := []models.Issue{
		{RuleID: "T1", Category: models.CategoryTenantRights, RiskLevel: models.RiskHigh, PenaltyPoints: 25},
	}

	res := Compute(true, issues)

	require.Len(t, res.Issues, 1)
	assert.Equal(t, 10, res.Issues[0].PenaltyPoints)
	assert.Equal(t, 10, res.Breakdown[models.CategoryTenantRights].Score)
	assert.Equal(t, 90, res.Overall)
}

func TestComputeRaisesPenaltyToBandMinimum(t *testing.T) {
	issues := []models.Issue{
		{RuleID: "L1", Category: models.CategoryLiabilityRepairs, RiskLevel: models.RiskLow, PenaltyPoints: 1},
	}

	res := Compute(true, issues)

	require.Len(t, res.Issues, 1)
	assert.Equal(t, 2, res.Issues[0].PenaltyPoints)
}

func TestComputeDropsZeroPenaltyIssues(t *testing.T) {
	issues := []models.Issue{
		{RuleID: "F1", Category: models.CategoryFinancialTerms, RiskLevel: models.RiskHigh, PenaltyPoints: 0},
		{RuleID: "F2", Category: models.CategoryFinancialTerms, RiskLevel: models.RiskMedium, PenaltyPoints: 5},
	}

	res := Compute(true, issues)

	require.Len(t, res.Issues, 1)
	assert.Equal(t, "F2", res.Issues[0].RuleID)
	assert.Equal(t, 95, res.Overall)
}

func TestComputeDerivesCategoryFromRulePrefix(t *testing.T) {
	issues := []models.Issue{
		{RuleID: "T3", RiskLevel: models.RiskMedium, PenaltyPoints: 5},
		{RuleID: "E2", RiskLevel: models.RiskHigh, PenaltyPoints: 9},
	}

	res := Compute(true, issues)

	require.Len(t, res.Issues, 2)
	assert.Equal(t, models.CategoryTenantRights, res.Issues[0].Category)
	assert.Equal(t, models.CategoryTerminationClauses, res.Issues[1].Category)
	assert.Equal(t, 15, res.Breakdown[models.CategoryTenantRights].Score)
	assert.Equal(t, 11, res.Breakdown[models.CategoryTerminationClauses].Score)
}

func TestComputeDropsIssueWithNoResolvableCategory(t *testing.T) {
	issues := []models.Issue{
		{RiskLevel: models.RiskHigh, PenaltyPoints: 10},
		{RuleID: "X9", RiskLevel: models.RiskHigh, PenaltyPoints: 10},
	}

	res := Compute(true, issues)

	assert.Empty(t, res.Issues)
	assert.Equal(t, 100, res.Overall)
}

func TestComputeInfersRiskLevelFromPenalty(t *testing.T) {
	issues := []models.Issue{
		{RuleID: "C1", Category: models.CategoryLegalCompliance, RiskLevel: "critical", PenaltyPoints: 9},
		{RuleID: "C2", Category: models.CategoryLegalCompliance, RiskLevel: "", PenaltyPoints: 5},
	}

	res := Compute(true, issues)

	require.Len(t, res.Issues, 2)
	assert.Equal(t, models.RiskHigh, res.Issues[0].RiskLevel)
	assert.Equal(t, models.RiskMedium, res.Issues[1].RiskLevel)
}

func TestComputeNormalizesRiskLevelCase(t *testing.T) {
	issues := []models.Issue{
		{RuleID: "F5", Category: models.CategoryFinancialTerms, RiskLevel: "HIGH", PenaltyPoints: 8},
	}

	res := Compute(true, issues)

	require.Len(t, res.Issues, 1)
	assert.Equal(t, models.RiskHigh, res.Issues[0].RiskLevel)
	assert.Equal(t, 8, res.Issues[0].PenaltyPoints)
}

func TestComputeOverallIsSumOfCategories(t *testing.T) {
	issues := []models.Issue{
		{RuleID: "F1", Category: models.CategoryFinancialTerms, RiskLevel: models.RiskHigh, PenaltyPoints: 10},
		{RuleID: "T1", Category: models.CategoryTenantRights, RiskLevel: models.RiskMedium, PenaltyPoints: 4},
		{RuleID: "L2", Category: models.CategoryLiabilityRepairs, RiskLevel: models.RiskLow, PenaltyPoints: 3},
	}

	res := Compute(true, issues)

	sum := 0
	for _, cat := range models.Categories {
		sum += res.Breakdown[cat].Score
	}
	assert.Equal(t, sum, res.Overall)
	assert.Equal(t, 83, res.Overall)
}
