package clause

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rentguard/backend/internal/storage/models"
)

const minClauseLength = 15

var (
	leadingNumber = regexp.MustCompile(`^(\d{1,2})\.\s*`)
	// A unit that begins with a stray period-prefixed number: ".3 text".
	leadingStrayNumber = regexp.MustCompile(`^\.\s*(\d{1,2})\s*`)
	// A unit that ends with a bare or period-prefixed clause number,
	// optionally with a sub-number: "text 3", "text .3", "text 3.1".
	trailingNumber = regexp.MustCompile(`\s\.?(\d{1,2}(?:\.\d{1,2})?)\.?\s*$`)

	noiseUnitPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)camscanner`),
		regexp.MustCompile(`^[\d\s\pP\pS]+$`),
		regexp.MustCompile(`(?i)^(id|between|מזהה|בין)\s*:?\s*$`),
	}

	whitespaceRuns = regexp.MustCompile(`\s+`)
)

// Segment splits sanitized text into ordered display clauses. When the
// analyzer response already carries a structured clause list, that list
// takes precedence and local splitting is skipped entirely.
func Segment(sanitized string, provided []string) []models.Clause {
	if len(provided) > 0 {
		return fromProvided(provided)
	}

	units := splitUnits(sanitized)

	clauses := make([]models.Clause, 0, len(units))
	for _, unit := range units {
		unit = whitespaceRuns.ReplaceAllString(unit, " ")
		unit = strings.TrimSpace(unit)

		if len([]rune(unit)) < minClauseLength {
			continue
		}
		if isNoise(unit) {
			continue
		}

		number, text := normalizeNumber(unit)
		clauses = append(clauses, models.Clause{
			Index:  len(clauses),
			Number: number,
			Text:   text,
		})
	}

	return clauses
}

// fromProvided trusts the structured source: no re-splitting, only number
// extraction for display.
func fromProvided(provided []string) []models.Clause {
	clauses := make([]models.Clause, 0, len(provided))
	for _, text := range provided {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		number := ""
		if m := leadingNumber.FindStringSubmatch(text); m != nil {
			number = m[1]
		}

		clauses = append(clauses, models.Clause{
			Index:  len(clauses),
			Number: number,
			Text:   text,
		})
	}
	return clauses
}

// splitUnits cuts on blank lines and on line breaks immediately followed
// by a clause-number pattern.
func splitUnits(text string) []string {
	var units []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			units = append(units, current.String())
			current.Reset()
		}
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)

		if trimmed == "" {
			flush()
			continue
		}

		if leadingNumber.MatchString(trimmed) {
			flush()
		}

		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(trimmed)
	}
	flush()

	return units
}

func isNoise(unit string) bool {
	for _, p := range noiseUnitPatterns {
		if p.MatchString(unit) {
			return true
		}
	}
	return false
}

// normalizeNumber puts a recoverable clause number at the front of the
// text in "N. " or "N.M " form. Units with no recoverable number stay as
// unnumbered free text; numbering is cosmetic, not an identity key.
func normalizeNumber(unit string) (string, string) {
	if m := leadingNumber.FindStringSubmatch(unit); m != nil {
		rest := strings.TrimSpace(unit[len(m[0]):])
		return m[1], fmt.Sprintf("%s. %s", m[1], rest)
	}

	if m := leadingStrayNumber.FindStringSubmatch(unit); m != nil {
		rest := strings.TrimSpace(unit[len(m[0]):])
		return m[1], fmt.Sprintf("%s. %s", m[1], rest)
	}

	if m := trailingNumber.FindStringSubmatch(unit); m != nil {
		number := m[1]
		rest := strings.TrimSpace(unit[:len(unit)-len(m[0])])
		if strings.Contains(number, ".") {
			return number, fmt.Sprintf("%s %s", number, rest)
		}
		return number, fmt.Sprintf("%s. %s", number, rest)
	}

	return "", unit
}
