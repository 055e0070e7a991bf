// Package refresh persists the single live refresh credential of each
// subject in Redis.
//
// The store holds one slot per subject: key "<prefix>:<subjectID>", value the
// current credential string, TTL equal to the credential lifetime. Rotation
// is a compare-and-swap executed as one server-side Lua script, never as a
// client-side read-then-write pair, so concurrent rotations of the same
// credential produce exactly one winner.
//
// # Architecture boundaries
//
// This package owns storage and atomicity. Credential signing, verification,
// and the decision of what a rotation failure means belong to the engine.
//
// # What this package must NOT do
//
//   - Inspect or decode credential contents.
//   - Retry failed operations.
//   - Import the root package or token.
package refresh
