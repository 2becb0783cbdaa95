// Package server implements the HTTP server and handlers for Upload
// Portal. It wires together the page routes, dependencies (user directory,
// upload store, optional archive), and provides lifecycle helpers used by
// tests and the production binary.
package server
