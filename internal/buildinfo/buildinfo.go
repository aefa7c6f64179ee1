package buildinfo

// Set via -ldflags at release time, e.g.
// -X .../internal/buildinfo.Version=v1.2.0
var (
	Version   = "dev"
	Revision  = "unknown"
	BuildDate = "unknown"
)
