// Package middleware adapts the authtokens engine to net/http handler
// chains: bearer-token extraction, principal resolution, and role gating.
//
// The middleware never touches the refresh store; it only resolves access
// credentials, so a guarded route costs no Redis round trip.
package middleware
