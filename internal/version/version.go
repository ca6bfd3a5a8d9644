// Package version holds build information set at link time, e.g.
//
//	go build -ldflags "-X github.com/actris-cloudnet/pid-service/internal/version.version=1.2.0 \
//	  -X github.com/actris-cloudnet/pid-service/internal/version.gitCommit=$(git rev-parse --short HEAD) \
//	  -X github.com/actris-cloudnet/pid-service/internal/version.buildDate=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
package version

var (
	version   = "dev"
	buildDate = "unknown"
	gitCommit = "unknown"
)

// Info describes the running build
type Info struct {
	Version   string
	BuildDate string
	GitCommit string
}

// Get returns the build information
func Get() Info {
	return Info{
		Version:   version,
		BuildDate: buildDate,
		GitCommit: gitCommit,
	}
}
