package translator

import (
	"fmt"
	"strings"
)

// DefaultTargetLanguage is the language bubbles are translated into.
const DefaultTargetLanguage = "Persian (Farsi)"

// DefaultToneRules keep translations casual and spoken.
var DefaultToneRules = []string{
	"Tone: casual, spoken, anime subtitle style.",
	`No formal language (e.g. use "میرم" not "می‌روم").`,
	"Keep it polite but natural.",
}

// BuildPrompt returns the instruction sent next to the PDF.
func BuildPrompt(targetLanguage string, toneRules []string) string {
	if strings.TrimSpace(targetLanguage) == "" {
		targetLanguage = DefaultTargetLanguage
	}

	var b strings.Builder
	b.WriteString("Analyze this whole PDF. Identify all speech bubbles.\n")
	b.WriteString("Return a JSON array. Each object must contain:\n")
	b.WriteString(`1. "page_number": Integer (1-based).` + "\n")
	fmt.Fprintf(&b, `2. "text": The %s translation.`+"\n", targetLanguage)
	b.WriteString(`3. "box_2d": [ymin, xmin, ymax, xmax] (normalized 0-1000).` + "\n")

	if len(toneRules) > 0 {
		fmt.Fprintf(&b, "\nTRANSLATION RULES (%s):\n", targetLanguage)
		for _, rule := range toneRules {
			rule = strings.TrimSpace(rule)
			if rule == "" {
				continue
			}
			b.WriteString("- ")
			b.WriteString(rule)
			b.WriteString("\n")
		}
	}
	return b.String()
}
