// Package buildconfig exposes values injected at link time, e.g.
//
//	go build -ldflags "-X github.com/Harshitk-cp/veritas/internal/buildconfig.version=v1.2.0"
package buildconfig

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = ""
)

func Version() string {
	return version
}

func Commit() string {
	return commit
}

// Info is served at /version and printed by veritasctl --version.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date,omitempty"`
}

func Get() Info {
	return Info{Version: version, Commit: commit, BuildDate: buildDate}
}

func (i Info) String() string {
	s := i.Version + " (" + i.Commit
	if i.BuildDate != "" {
		s += ", built " + i.BuildDate
	}
	return s + ")"
}
