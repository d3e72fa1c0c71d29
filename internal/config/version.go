// Package config carries build metadata injected at link time.
package config

// Set via -ldflags "-X github.com/edgemux/restream-server/internal/config.Version=..."
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)
