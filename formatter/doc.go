// Package formatter serializes query results for HTTP responses.
//
// This package is organized into:
// - json.go: JSON responses and error payloads
// - csv.go: CSV export of stop results
package formatter
