package privacy

import (
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/rentguard/backend/internal/storage/models"
	"github.com/rentguard/backend/pkg/logger"
)

// rule is one PII pattern and its replacement placeholder. Rules run as an
// ordered left-to-right pass; placeholders contain no digits or '@' so a
// second pass can never match them again.
type rule struct {
	name        string
	pattern     *regexp.Regexp
	placeholder string
}

var piiRules = []rule{
	{"national_id", regexp.MustCompile(`\b[0-9]{8,9}\b`), "[ID_REDACTED]"},
	{"payment_card", regexp.MustCompile(`\b\d{4}[-\s]?\d{4}[-\s]?\d{4}[-\s]?\d{4}\b`), "[CARD_REDACTED]"},
	{"phone", regexp.MustCompile(`\b05\d[-\s]?\d{3}[-\s]?\d{4}\b`), "[PHONE_REDACTED]"},
	{"email", regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`), "[EMAIL_REDACTED]"},
	{"bank_account", regexp.MustCompile(`\b\d{2,3}[-\s]?\d{3}[-\s]?\d{6,9}\b`), "[BANK_REDACTED]"},
}

var ocrNoisePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)scanned with camscanner.*`),
	regexp.MustCompile(`(?i)www\.camscanner\.com`),
	regexp.MustCompile(`[\x{2000}-\x{200f}]`),
	regexp.MustCompile("[|~^§`®©™]"),
	regexp.MustCompile(`_{3,}`),
}

var (
	spaceRuns     = regexp.MustCompile(`[ \t]+`)
	emptyLineRuns = regexp.MustCompile(`\n\s*\n\s*\n+`)
)

// Some scanners emit mirrored Hebrew. Score both readings and flip when
// the reversed keywords win.
var (
	keywordsNormal   = []string{"חוזה", "הסכם", "שכירות", "משכיר", "שוכר", "דירה"}
	keywordsReversed = []string{"הזוח", "םכסה", "תוריכש", "ריכשמ", "רכוש", "הריד"}
)

// Weighted rental-contract keywords used for the 0-100 confidence score.
var contractKeywords = []struct {
	keyword string
	weight  int
}{
	{"חוזה שכירות", 20}, {"הסכם שכירות", 20},
	{"המשכיר", 10}, {"בעל הדירה", 10},
	{"השוכר", 10},
	{"דמי שכירות", 15}, {"תשלום חודשי", 10},
	{"תקופת השכירות", 10}, {"תקופת האופציה", 5},
	{"פינוי", 5}, {"ערבות", 5}, {"צ'ק ביטחון", 5},
	{"בלתי מוגנת", 10},
}

// Redact masks PII in text and returns the sanitized text plus the number
// of replacements. It never fails; zero matches is a normal outcome, and
// re-running on already-redacted text is a no-op.
func Redact(text string) (string, int) {
	count := 0
	for _, r := range piiRules {
		matches := r.pattern.FindAllStringIndex(text, -1)
		if len(matches) == 0 {
			continue
		}
		count += len(matches)
		text = r.pattern.ReplaceAllString(text, r.placeholder)
	}
	return text, count
}

// Sanitize runs the full privacy pass: direction fix, PII masking, OCR
// noise cleanup, and contract-confidence scoring.
func Sanitize(raw string) *models.SanitizedText {
	text := fixDirection(raw)

	text, count := Redact(text)

	text = cleanNoise(text)

	confidence := contractConfidence(text)

	logger.Info("Text sanitized",
		zap.Int("redactions", count),
		zap.Int("confidence", confidence),
	)

	return &models.SanitizedText{
		Text:           text,
		RedactionCount: count,
		Confidence:     confidence,
	}
}

func fixDirection(text string) string {
	scoreNormal := 0
	for _, w := range keywordsNormal {
		if strings.Contains(text, w) {
			scoreNormal++
		}
	}

	scoreReversed := 0
	for _, w := range keywordsReversed {
		if strings.Contains(text, w) {
			scoreReversed++
		}
	}

	if scoreReversed <= scoreNormal {
		return text
	}

	logger.Info("Reversed text detected, flipping lines",
		zap.Int("score_reversed", scoreReversed),
		zap.Int("score_normal", scoreNormal),
	)

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = reverseRunes(line)
	}
	return strings.Join(lines, "\n")
}

func cleanNoise(text string) string {
	for _, p := range ocrNoisePatterns {
		text = p.ReplaceAllString(text, " ")
	}

	text = spaceRuns.ReplaceAllString(text, " ")
	text = emptyLineRuns.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

func contractConfidence(text string) int {
	score := 0
	for _, ck := range contractKeywords {
		if strings.Contains(text, ck.keyword) {
			score += ck.weight
		}
	}
	if score > 100 {
		score = 100
	}
	return score
}

func reverseRunes(s string) string {
	runes := []rune(s)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes)
}
