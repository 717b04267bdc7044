// Package auth guards the operator endpoints of the shakemap service.
//
// The forced refresh endpoint is operator tooling. When an operator
// secret is configured, callers must present a bearer JWT signed with
// that secret (HS256). With no secret configured the guard passes every
// request through, which matches open deployments behind a private
// network.
package auth
