package masking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskSecretKeepsSuffix(t *testing.T) {
	assert.Equal(t, "ak_****3f9c", MaskSecret("ak_1b2d8e3f9c"))
	assert.Equal(t, "****", MaskSecret("abcd"))
	assert.Equal(t, "", MaskSecret("   "))
}

func TestMaskEmail(t *testing.T) {
	assert.Equal(t, "j****@example.com", MaskEmail("jordan@example.com"))
	assert.Equal(t, "****mail", MaskEmail("not-an-email"))
}

func TestMaskJSONMasksNestedStrings(t *testing.T) {
	masked := MaskJSON(map[string]any{
		"api_key": "ak_1b2d8e3f9c",
		"count":   3,
		"nested":  map[string]any{"token": "tok_55aa66bb"},
	})

	assert.Equal(t, "ak_****3f9c", masked["api_key"])
	assert.Equal(t, 3, masked["count"])
	nested, ok := masked["nested"].(map[string]any)
	assert.True(t, ok)
	assert.Equal(t, "tok_****66bb", nested["token"])
}
