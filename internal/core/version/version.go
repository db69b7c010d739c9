// Package version reports the build version stamped into the binaries
package version

// BuildInfo holds version information about the build
type BuildInfo struct {
	Service string `json:"service"`
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// Info returns the build information for service
// version, commit and date are set at build time:
//
//	-ldflags "-X 'archivist/internal/core/version.version=v0.3.0' -X 'archivist/internal/core/version.commit=abcd'"
func Info(service string) BuildInfo {
	return BuildInfo{
		Service: service,
		Version: version,
		Commit:  commit,
		Date:    date,
	}
}

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)
