// Package context holds the request context keys shared by the router,
// middleware and handlers.
package context

type key int

const (
	// Claims holds the *auth.Claims of an authenticated request.
	Claims key = iota
	// Params holds the httprouter.Params of the matched route.
	Params
)
