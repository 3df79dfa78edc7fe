// Package conversation implements the per-user conversation state machine and
// the free-text classifier for SugarGuard.
package conversation

import (
	"strings"
	"unicode"
)

// Classification is the result of classifying free text in the active state.
type Classification string

const (
	// ClassificationReading marks text to be captured as a glucose reading.
	ClassificationReading Classification = "reading"
	// ClassificationSummary marks a request for the reading report.
	ClassificationSummary Classification = "summary"
	// ClassificationUnclassified marks text handled by the generic fallback.
	ClassificationUnclassified Classification = "unclassified"
)

// summaryKeywords are the report-request keywords.
var summaryKeywords = []string{"報表", "圖表"}

// glucoseKeyword marks text as a reading even without a digit.
const glucoseKeyword = "血糖"

// Classify decides whether free text is a reading, a summary request, or
// neither. Checks run in order: report keywords, glucose keyword, digit
// presence. First match wins. The text itself is never parsed or validated;
// readings are stored verbatim.
func Classify(text string) Classification {
	for _, kw := range summaryKeywords {
		if strings.Contains(text, kw) {
			return ClassificationSummary
		}
	}
	if strings.Contains(text, glucoseKeyword) {
		return ClassificationReading
	}
	for _, r := range text {
		if unicode.IsDigit(r) {
			return ClassificationReading
		}
	}
	return ClassificationUnclassified
}
