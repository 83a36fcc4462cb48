// Package api provides an HTTP API server for browsing recorded transcripts
// and parsing captured response bodies on demand.
package api

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8081")
	ListenAddr string

	// RepairToolJSON is the default for /parse when the request does not
	// set the repair query parameter.
	RepairToolJSON bool

	// DisableMCP leaves the /mcp endpoint unmounted.
	DisableMCP bool
}
