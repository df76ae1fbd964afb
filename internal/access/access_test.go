package access_test

import (
	"testing"

	"cinema/internal/access"

	"github.com/stretchr/testify/assert"
)

func TestCan(t *testing.T) {
	tests := []struct {
		role       access.Role
		capability access.Capability
		want       bool
	}{
		{access.RoleUser, access.ManageCatalog, false},
		{access.RoleUser, access.RefundPayments, false},
		{access.RoleUser, access.ViewAllOrders, false},
		{access.RoleModerator, access.ManageCatalog, true},
		{access.RoleModerator, access.RefundPayments, true},
		{access.RoleModerator, access.ViewAllPayments, true},
		{access.RoleModerator, access.ManageUsers, false},
		{access.RoleModerator, access.ManageCertifications, false},
		{access.RoleAdmin, access.ManageUsers, true},
		{access.RoleAdmin, access.ManageCertifications, true},
		{access.RoleAdmin, access.SimulatePayments, true},
		{access.Role("ROOT"), access.ManageCatalog, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role)+"/"+string(tt.capability), func(t *testing.T) {
			assert.Equal(t, tt.want, access.Can(tt.role, tt.capability))
			assert.Equal(t, tt.want, access.Actor{Role: tt.role}.Can(tt.capability))
		})
	}
}

func TestParseRole(t *testing.T) {
	r, err := access.ParseRole("MODERATOR")
	assert.NoError(t, err)
	assert.Equal(t, access.RoleModerator, r)

	_, err = access.ParseRole("moderator")
	assert.Error(t, err)
}
