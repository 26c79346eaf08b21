// Package gemini provides clients and servers that speak the Gemini
// protocol: a TLS-only request/response protocol built from a single
// request line, a single status+meta response line, and an optional body.
//
// Certificate verification does not abort a handshake. The peer
// certificate is classified after the handshake instead (present,
// verified, or self-signed), so callers can apply a Trust-On-First-Use
// policy on top.
//
// It will automatically handle URLs that have IDNs in them, ie domains
// with Unicode. The hostname is converted to punycode for DNS and for
// sending to the server.
package gemini
