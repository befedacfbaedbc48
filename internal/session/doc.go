// Package session provides signed cookie sessions with automatic commit.
//
// The cookie is signed, not encrypted, with an HMAC key derived from the
// configured secret. Values are visible to the client but cannot be altered.
//
// [Store.Middleware] decodes the cookie before the handler runs and exposes
// the [Session] through the request context. A modified session is written
// back just before the response sends its headers, so streamed responses
// carry the cookie too. An unmodified session never rewrites the cookie.
package session
