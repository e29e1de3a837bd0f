package masking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskSensitiveKeepsOrdinaryFields(t *testing.T) {
	out := MaskSensitive(map[string]any{
		"reason": "bead damage",
		"phone":  "+52 81 5555 1234",
		"nested": map[string]any{"legal_id": "ABC123456"},
	})
	assert.Equal(t, "bead damage", out["reason"])
	assert.Equal(t, "****1234", out["phone"])
	assert.Equal(t, "****3456", out["nested"].(map[string]any)["legal_id"])
}

func TestMaskSecretShortValues(t *testing.T) {
	assert.Equal(t, "", MaskSecret("  "))
	assert.Equal(t, "****", MaskSecret("abc"))
}

func TestMaskSensitiveEmpty(t *testing.T) {
	assert.Nil(t, MaskSensitive(nil))
}
