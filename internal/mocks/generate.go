// Package mocks provides mock implementations for testing the authgate ports.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for
// the port interfaces. The mocks are generated using go:generate directives
// and provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	defer ctrl.Finish()
//	store := mocks.NewMockRoleStore(ctrl)
//	store.EXPECT().Lookup(gomock.Any(), "sub").Return(auth.RoleAdmin, nil)
package mocks

// Generate mock for RoleStore interface from internal/ports.
// This creates MockRoleStore with methods: Lookup, SetRole
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=role_store_mock.go github.com/calluna-labs/authgate/internal/ports RoleStore

// Generate mock for IdentityVerifier interface from internal/ports.
// This creates MockIdentityVerifier with methods: Verify, ExchangeCode, RevokeSessions
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=identity_verifier_mock.go github.com/calluna-labs/authgate/internal/ports IdentityVerifier

// Generate mock for RevocationList interface from internal/ports.
// This creates MockRevocationList with methods: Revoke, IsRevoked
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=revocation_list_mock.go github.com/calluna-labs/authgate/internal/ports RevocationList
