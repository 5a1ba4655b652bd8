// Package integration runs the store contract and the middleware counter flow
// against real backends started with testcontainers. Build with -tags integration.
package integration
