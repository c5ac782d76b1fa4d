package contracts

import (
	"regexp"
	"strings"
)

// FundsSourceFallback replaces source phrases that cannot be embedded in the
// declaration narrative.
const FundsSourceFallback = "Remuneraciones por trabajo dependiente"

var (
	accentFold = strings.NewReplacer(
		"á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", "ü", "u", "ñ", "n",
		"Á", "A", "É", "E", "Í", "I", "Ó", "O", "Ú", "U", "Ü", "U", "Ñ", "N",
	)
	whitespaceRun   = regexp.MustCompile(`\s+`)
	trailingPunct   = regexp.MustCompile(`[.;:\s]+$`)
	boilerplateMark = "DECLARACION DE ORIGEN DE FONDOS"
)

// SanitizeFundsSource normalizes a caller-supplied funds-origin phrase so it
// can be embedded mid-sentence. Over-long phrases, phrases with line breaks
// and pasted declaration boilerplate all collapse to the safe fallback.
func SanitizeFundsSource(value string) string {
	source := strings.TrimSpace(value)
	if source == "" {
		return FundsSourceFallback
	}

	folded := strings.ToUpper(accentFold.Replace(source))
	if len(source) > 180 ||
		strings.ContainsAny(source, "\r\n") ||
		strings.Contains(folded, boilerplateMark) {
		return FundsSourceFallback
	}

	source = whitespaceRun.ReplaceAllString(source, " ")
	return trailingPunct.ReplaceAllString(source, "")
}
