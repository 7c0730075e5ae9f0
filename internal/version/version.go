// Package version records build metadata for the /version endpoint.
package version

// Stamped via -ldflags at release build time. The defaults cover a plain
// `go build`.
var (
	Version   = "0.0.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)
