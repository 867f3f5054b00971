package authroles

import (
	"testing"

	"github.com/stretchr/testify/assert"

	domainauth "github.com/calluna-labs/authgate/internal/domain/auth"
)

func TestClaimMapper_Map(t *testing.T) {
	mapper := ClaimMapper{AdminGroup: "cn=ops-admins"}

	tests := []struct {
		name string
		id   domainauth.Identity
		want domainauth.Role
	}{
		{"admin flag", domainauth.Identity{AdminClaim: true}, domainauth.RoleAdmin},
		{"admin group", domainauth.Identity{Groups: []string{"cn=users", "cn=ops-admins"}}, domainauth.RoleAdmin},
		{"no admin markers", domainauth.Identity{Groups: []string{"cn=users"}}, domainauth.RoleUser},
		{"empty identity", domainauth.Identity{}, domainauth.RoleUser},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := mapper.Map(tt.id)
			assert.Equal(t, tt.want, res.Role)
			assert.Equal(t, domainauth.RoleSourceClaim, res.Source)
			assert.False(t, res.Authoritative())
		})
	}
}

func TestClaimMapper_NoGroupConfigured(t *testing.T) {
	mapper := ClaimMapper{}
	res := mapper.Map(domainauth.Identity{Groups: []string{"cn=ops-admins"}})
	assert.Equal(t, domainauth.RoleUser, res.Role)
}
