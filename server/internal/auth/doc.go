// Package auth guards the launchdash listeners with a shared API key.
//
// New(mode, header, key) returns a Guard that offers:
//   - UnaryInterceptor / StreamInterceptor for the gRPC health listener,
//     reading the key from the named metadata header
//   - Middleware for the HTTP API, reading the same header
//
// When mode != "apikey" or key == "", all calls pass through. A missing or
// incorrect key yields codes.Unauthenticated (gRPC) or 401 (HTTP).
package auth
