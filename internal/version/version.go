// Package version exposes build metadata set at link time, e.g.
//
//	go build -ldflags "-X github.com/information-sharing-networks/bl-custody/internal/version.version=v1.2.0"
package version

// set via -ldflags
var (
	version   = "dev"
	buildDate = "unknown"
	gitCommit = "unknown"
)

// Info is the build information for the running binary
type Info struct {
	Version   string `json:"version"`
	BuildDate string `json:"build_date"`
	GitCommit string `json:"git_commit"`
}

func Get() Info {
	return Info{
		Version:   version,
		BuildDate: buildDate,
		GitCommit: gitCommit,
	}
}
