// Package gateway is Warden's request-interception layer.
//
// Every inbound path is classified into a trust tier — open, identity-only,
// or session-required — and the matching requirement is enforced before any
// business logic runs. An orthogonal admin dimension restricts a configurable
// path prefix to an address allow-list, evaluated before tier classification.
//
// Rejections are typed: the caller can always distinguish "re-authenticate"
// from "wait and retry" from "fatal". Validated identity and claims are
// forwarded downstream through the request context.
package gateway
