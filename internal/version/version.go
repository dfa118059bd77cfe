// Package version exposes build metadata stamped by the release pipeline.
package version

import "runtime"

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String renders build metadata for `escriba version`.
func String() string {
	return "escriba " + Version + " (commit=" + Commit + ", date=" + Date + ", go=" + runtime.Version() + ")"
}

// UserAgent is sent with outbound speech API requests.
func UserAgent() string {
	return "escriba/" + Version + " (" + runtime.GOOS + "/" + runtime.GOARCH + ")"
}
