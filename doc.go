// Package authtokens provides the token lifecycle engine of the backcommerce
// platform: short-lived JWT access credentials, rotating refresh credentials,
// and a Redis-backed single-slot refresh store with atomic rotation.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// authtokens is the public surface. It exposes [Engine], [Builder], [Config],
// and value types (Principal, TokenPair, MetricsSnapshot, etc.). Mechanism
// lives in sub-packages: credential signing and verification in token,
// storage and rotation atomicity in refresh, audit dispatch under internal/.
//
// # What this package must NOT do
//
//   - Expose Redis clients or storage key layout in its public API.
//   - Perform I/O outside of Engine methods (construction via Builder is
//     allocation-only until Build).
//   - Import any sub-package that re-imports authtokens (no import cycles).
//
// # Performance contract
//
// Authenticate is the hot path. It verifies the access credential and maps
// claims without any Redis round trip. Login, Reissue, and Logout are allowed
// one Redis round trip per call.
package authtokens
