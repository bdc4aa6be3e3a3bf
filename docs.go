// gatekit (gatekeeper kit) provides a collection of related packages which
// implement the browser-facing legs of an OIDC authorization code flow:
// login, callback and logout orchestration, plus the signed transient
// cookies that protect the redirect round trip.
//
// See README.md
package gatekit
