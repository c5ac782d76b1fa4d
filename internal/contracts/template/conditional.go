// Package template implements the text-level transformations applied to DOCX
// parts: conditional blocks, placeholder substitution and residual checks.
package template

import (
	"regexp"
	"strings"

	dErrors "rentaldocs/pkg/domain-errors"
)

// Conditional flag names usable in [[IF.*]] blocks. The set is closed: any
// other name in a control token is an authoring error.
const (
	FlagGuarantor  = "GUARANTOR"
	FlagPetAllowed = "PET_ALLOWED"
	FlagFurnished  = "FURNISHED"
)

var knownFlags = map[string]struct{}{
	FlagGuarantor:  {},
	FlagPetAllowed: {},
	FlagFurnished:  {},
}

var conditionalToken = regexp.MustCompile(`\[\[(IF|ENDIF)\.([A-Z0-9_]+)\]\]`)

// ApplyConditionals resolves [[IF.<FLAG>]]/[[ENDIF.<FLAG>]] blocks against the
// given flag values. A span of text is kept only when every enclosing flag is
// true; control tokens are always removed. The scan is purely textual and does
// not care about markup inside the spans.
func ApplyConditionals(text string, flags map[string]bool) (string, error) {
	var out strings.Builder
	var stack []string

	allOpen := func() bool {
		for _, f := range stack {
			if !flags[f] {
				return false
			}
		}
		return true
	}

	rest := text
	for {
		loc := conditionalToken.FindStringSubmatchIndex(rest)
		if loc == nil {
			break
		}
		if allOpen() {
			out.WriteString(rest[:loc[0]])
		}
		kind := rest[loc[2]:loc[3]]
		flag := rest[loc[4]:loc[5]]

		if _, ok := knownFlags[flag]; !ok {
			return "", dErrors.Newf(dErrors.CodeConditionalSyntax,
				"unknown conditional flag %s", flag).
				WithHint("allowed flags: GUARANTOR, PET_ALLOWED, FURNISHED")
		}

		switch kind {
		case "IF":
			stack = append(stack, flag)
		case "ENDIF":
			if len(stack) == 0 || stack[len(stack)-1] != flag {
				return "", dErrors.Newf(dErrors.CodeConditionalSyntax,
					"unbalanced conditional: ENDIF.%s does not close the open block", flag)
			}
			stack = stack[:len(stack)-1]
		}
		rest = rest[loc[1]:]
	}

	if len(stack) > 0 {
		return "", dErrors.Newf(dErrors.CodeConditionalSyntax,
			"unterminated conditional: IF.%s is never closed", stack[len(stack)-1])
	}

	if allOpen() {
		out.WriteString(rest)
	}
	return out.String(), nil
}
