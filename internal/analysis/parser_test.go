package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentguard/backend/internal/storage/models"
)

func TestParseResponseStripsCodeFences(t *testing.T) {
	output := "```json\n" +
		`{"is_contract": true, "summary": "נמצאו שני ממצאים", "issues": [{"rule_id": "F1", "category": "financial_terms", "risk_level": "High", "penalty_points": 10}]}` +
		"\n```"

	result, err := parseResponse(output)

	require.NoError(t, err)
	assert.True(t, result.IsContract)
	assert.Equal(t, "נמצאו שני ממצאים", result.Summary)
	require.Len(t, result.Issues, 1)
	assert.Equal(t, "F1", result.Issues[0].RuleID)
	assert.Equal(t, models.RiskLevel("High"), result.Issues[0].RiskLevel)
	assert.Equal(t, 10, result.Issues[0].PenaltyPoints)
}

func TestParseResponseExtractsObjectFromProse(t *testing.T) {
	output := `הנה הניתוח שביקשת: {"is_contract": true, "summary": "תקין", "issues": []} מקווה שעזרתי`

	result, err := parseResponse(output)

	require.NoError(t, err)
	assert.Equal(t, "תקין", result.Summary)
	assert.Empty(t, result.Issues)
}

func TestParseResponseNoJSONObject(t *testing.T) {
	_, err := parseResponse("מצטער, אני לא יכול לנתח את המסמך הזה")

	assert.Error(t, err)
}

func TestParseResponseInvalidJSON(t *testing.T) {
	_, err := parseResponse(`{"is_contract": true, "issues": [}`)

	assert.Error(t, err)
}

func TestParseResponseIssueMissingRiskLevel(t *testing.T) {
	output := `{"is_contract": true, "issues": [{"rule_id": "F1", "penalty_points": 10}]}`

	_, err := parseResponse(output)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "risk_level")
}

func TestParseResponseBreakdownMustCarryAllCategories(t *testing.T) {
	output := `{"is_contract": true, "score_breakdown": {"financial_terms": {"score": 10}}, "issues": []}`

	_, err := parseResponse(output)

	assert.Error(t, err)
}

func TestParseResponseBreakdownScoreOutOfRange(t *testing.T) {
	output := `{"is_contract": true, "score_breakdown": {` +
		`"financial_terms": {"score": 25},` +
		`"tenant_rights": {"score": 20},` +
		`"termination_clauses": {"score": 20},` +
		`"liability_repairs": {"score": 20},` +
		`"legal_compliance": {"score": 20}}, "issues": []}`

	_, err := parseResponse(output)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

func TestParseResponseValidBreakdownAccepted(t *testing.T) {
	output := `{"is_contract": true, "summary": "תקין", "score_breakdown": {` +
		`"financial_terms": {"score": 10},` +
		`"tenant_rights": {"score": 20},` +
		`"termination_clauses": {"score": 0},` +
		`"liability_repairs": {"score": 20},` +
		`"legal_compliance": {"score": 20}}, "issues": []}`

	_, err := parseResponse(output)

	assert.NoError(t, err)
}

func TestParseResponseNonContractClearsIssues(t *testing.T) {
	output := `{"is_contract": false, "summary": "זה לא חוזה שכירות", "issues": [{"rule_id": "F1", "risk_level": "High", "penalty_points": 10}]}`

	result, err := parseResponse(output)

	require.NoError(t, err)
	assert.False(t, result.IsContract)
	assert.Empty(t, result.Issues)
}

func TestParseResponseDefaultsSummaryAndIsContract(t *testing.T) {
	result, err := parseResponse(`{"issues": []}`)

	require.NoError(t, err)
	assert.True(t, result.IsContract)
	assert.Equal(t, "הניתוח הושלם.", result.Summary)
}

func TestParseResponseCarriesClauses(t *testing.T) {
	output := `{"is_contract": true, "issues": [], "clauses": ["1. סעיף ראשון", "2. סעיף שני"]}`

	result, err := parseResponse(output)

	require.NoError(t, err)
	assert.Equal(t, []string{"1. סעיף ראשון", "2. סעיף שני"}, result.Clauses)
}

func TestDetectLanguageHebrew(t *testing.T) {
	text := ""
	for i := 0; i < 10; i++ {
		text += "חוזה שכירות בלתי מוגנת בין המשכיר לבין השוכר "
	}

	assert.Equal(t, languageSupported, detectLanguage(text))
}

func TestDetectLanguageEnglish(t *testing.T) {
	text := ""
	for i := 0; i < 5; i++ {
		text += "this rental agreement is made between the landlord and the tenant "
	}

	assert.Equal(t, languageSupported, detectLanguage(text))
}

func TestDetectLanguageUnsupported(t *testing.T) {
	text := ""
	for i := 0; i < 20; i++ {
		text += "本賃貸借契約は貸主と借主の間で締結される "
	}

	assert.Equal(t, languageUnsupported, detectLanguage(text))
}

func TestDetectLanguageShortTextIsUnknown(t *testing.T) {
	assert.Equal(t, languageUnknown, detectLanguage("שלום"))
}
