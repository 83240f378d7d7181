package version

import (
	"github.com/Masterminds/semver/v3"
)

// Build variables set through ldflags:
// -X 'github.com/compozy/listview/pkg/version.Version=v1.0.0'
var (
	Version    = "dev"
	CommitHash = "unknown"
	BuildDate  = "unknown"
)

// Info describes the running binary.
type Info struct {
	Version    string `json:"version"`
	CommitHash string `json:"commit_hash"`
	BuildDate  string `json:"build_date"`
	Release    bool   `json:"release"`
}

// Get returns the build information. Versions that parse as semver are
// normalized without the leading v; anything else is reported as is.
func Get() Info {
	info := Info{
		Version:    Version,
		CommitHash: CommitHash,
		BuildDate:  BuildDate,
	}
	if v, err := semver.NewVersion(Version); err == nil {
		info.Version = v.String()
		info.Release = v.Prerelease() == ""
	}
	return info
}
