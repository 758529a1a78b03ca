// Package server hosts the optional diagnostics HTTP surface. It builds the
// Fiber app with recover and request-ID middleware, renders errors as JSON,
// serialises catalog access from concurrent handlers, and provides the shared
// HTTP client used by the network fallback. Route handlers live in the routes
// subpackage and receive their dependencies explicitly.
package server
