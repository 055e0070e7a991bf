// Package token signs and verifies the access and refresh credentials used by
// the authtokens engine.
//
// Credentials are compact HS256 JWTs. The codec distinguishes exactly two
// failure classes on verification: [ErrExpired] for a structurally valid,
// correctly signed credential whose lifetime has passed, and [ErrInvalid] for
// everything else (malformed input, bad signature, wrong algorithm, wrong
// credential kind). Callers must treat the two differently — expired means
// "refresh", invalid means "re-authenticate".
package token
