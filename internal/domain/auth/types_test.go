package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidRole(t *testing.T) {
	assert.True(t, ValidRole("admin"))
	assert.True(t, ValidRole("user"))
	assert.False(t, ValidRole(""))
	assert.False(t, ValidRole("superuser"))
	assert.False(t, ValidRole("Admin"))
}

func TestRoleResolution_Authoritative(t *testing.T) {
	tests := []struct {
		name string
		res  RoleResolution
		want bool
	}{
		{"persisted admin", RoleResolution{Role: RoleAdmin, Source: RoleSourcePersisted}, true},
		{"persisted user", RoleResolution{Role: RoleUser, Source: RoleSourcePersisted}, true},
		{"claim admin is advisory", RoleResolution{Role: RoleAdmin, Source: RoleSourceClaim}, false},
		{"defaulted role is advisory", RoleResolution{Role: RoleUser, Source: RoleSourceDefault}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.res.Authoritative())
		})
	}
}

func TestUser_IsAdmin(t *testing.T) {
	assert.True(t, User{Role: RoleAdmin}.IsAdmin())
	assert.False(t, User{Role: RoleUser}.IsAdmin())
	assert.False(t, User{}.IsAdmin())
}
