// Package handler exposes the HTTP surface of the orchestrator: the
// analyze endpoint that fans out to the downstream analyzers, plus the
// circuit and health status reports.
package handler
