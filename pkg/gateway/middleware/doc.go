// Package middleware provides the HTTP middleware chain for the gateway:
// request ids, structured request logging, panic recovery, and CORS with the
// session header exposed to browsers.
package middleware
