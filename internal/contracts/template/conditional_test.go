package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "rentaldocs/pkg/domain-errors"
)

func TestApplyConditionalsElidesFalseBlock(t *testing.T) {
	out, err := ApplyConditionals("A[[IF.GUARANTOR]]B[[ENDIF.GUARANTOR]]C", map[string]bool{
		"GUARANTOR": false,
	})
	require.NoError(t, err)
	assert.Equal(t, "AC", out)
}

func TestApplyConditionalsKeepsTrueBlock(t *testing.T) {
	out, err := ApplyConditionals("A[[IF.GUARANTOR]]B[[ENDIF.GUARANTOR]]C", map[string]bool{
		"GUARANTOR": true,
	})
	require.NoError(t, err)
	assert.Equal(t, "ABC", out)
}

func TestApplyConditionalsNestedRequiresAllAncestors(t *testing.T) {
	text := "[[IF.GUARANTOR]]X[[IF.PET_ALLOWED]]Y[[ENDIF.PET_ALLOWED]]Z[[ENDIF.GUARANTOR]]"
	out, err := ApplyConditionals(text, map[string]bool{
		"GUARANTOR":   true,
		"PET_ALLOWED": false,
	})
	require.NoError(t, err)
	assert.Equal(t, "XZ", out)

	// Outer false suppresses the inner block even when its own flag is true.
	out, err = ApplyConditionals(text, map[string]bool{
		"GUARANTOR":   false,
		"PET_ALLOWED": true,
	})
	require.NoError(t, err)
	assert.Equal(t, "", out)
}

func TestApplyConditionalsMismatchedEndif(t *testing.T) {
	_, err := ApplyConditionals("[[IF.GUARANTOR]]X[[ENDIF.FURNISHED]]", map[string]bool{})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConditionalSyntax))
}

func TestApplyConditionalsEndifWithoutIf(t *testing.T) {
	_, err := ApplyConditionals("X[[ENDIF.GUARANTOR]]", map[string]bool{})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConditionalSyntax))
}

func TestApplyConditionalsUnterminated(t *testing.T) {
	_, err := ApplyConditionals("[[IF.FURNISHED]]X", map[string]bool{"FURNISHED": true})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConditionalSyntax))
}

func TestApplyConditionalsUnknownFlag(t *testing.T) {
	_, err := ApplyConditionals("[[IF.PARKING]]X[[ENDIF.PARKING]]", map[string]bool{})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConditionalSyntax))
}

func TestApplyConditionalsIgnoresMarkupInsideSpans(t *testing.T) {
	out, err := ApplyConditionals("<w:p>[[IF.FURNISHED]]<w:r>mueble</w:r>[[ENDIF.FURNISHED]]</w:p>", map[string]bool{
		"FURNISHED": true,
	})
	require.NoError(t, err)
	assert.Equal(t, "<w:p><w:r>mueble</w:r></w:p>", out)
}
