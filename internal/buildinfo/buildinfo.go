// Package buildinfo carries version metadata stamped at link time.
package buildinfo

// Set via -ldflags at build time, for example:
//
//	go build -ldflags "-X github.com/pragma-notes/pragma/internal/buildinfo.Version=1.2.0"
var (
	Version = "dev"
	Commit  = "unknown"
)
