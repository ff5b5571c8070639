package scope

import (
	"testing"

	"github.com/openagora/agora/internal/authorization"
	"github.com/stretchr/testify/assert"
)

func TestFromAuthz(t *testing.T) {
	assert.Equal(t, ScopeInventoryAdjust, FromAuthz(authorization.ObjectInventory, authorization.ActionAdjust))
	assert.Equal(t, ScopeExportRun, FromAuthz(authorization.ObjectExport, authorization.ActionRun))
	assert.Equal(t, Scope(""), FromAuthz(authorization.ObjectOrder, authorization.ActionAdjust))
}

func TestHas(t *testing.T) {
	assert.True(t, Has([]string{"inventory:adjust"}, ScopeInventoryAdjust))
	assert.True(t, Has([]string{"inventory:*"}, ScopeInventoryConsume))
	assert.True(t, Has([]string{"*"}, ScopeAPIKeyRevoke))
	assert.False(t, Has([]string{"inventory:view"}, ScopeInventoryAdjust))
	assert.False(t, Has(nil, ScopeDashboardView))
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate([]string{"dashboard:view", "compliance:*", "*"}))
	assert.ErrorIs(t, Validate([]string{"warehouse:teleport"}), ErrInvalidScope)
	assert.ErrorIs(t, Validate([]string{"unknown:*"}), ErrInvalidScope)
}

func TestNormalizeDeduplicates(t *testing.T) {
	got := Normalize([]string{" Inventory:View ", "inventory.view", ""})
	assert.Equal(t, []string{"inventory:view"}, got)
}
