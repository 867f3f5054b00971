package authroles

import (
	domainauth "github.com/calluna-labs/authgate/internal/domain/auth"
)

// ClaimMapper derives an advisory role from identity-token claims: an
// explicit admin flag or membership in the configured admin group. The
// result is always tagged RoleSourceClaim and is never used on its own for
// authorization; the persisted role record stays authoritative.
type ClaimMapper struct {
	AdminGroup string
}

// Map returns the advisory role the token claims imply.
func (m ClaimMapper) Map(id domainauth.Identity) domainauth.RoleResolution {
	if id.AdminClaim {
		return domainauth.RoleResolution{Role: domainauth.RoleAdmin, Source: domainauth.RoleSourceClaim}
	}
	if m.AdminGroup != "" {
		for _, g := range id.Groups {
			if g == m.AdminGroup {
				return domainauth.RoleResolution{Role: domainauth.RoleAdmin, Source: domainauth.RoleSourceClaim}
			}
		}
	}
	return domainauth.RoleResolution{Role: domainauth.RoleUser, Source: domainauth.RoleSourceClaim}
}
