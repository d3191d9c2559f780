// Package version exposes the build version embedded at link time.
package version

// Version is overridden at build time via
//
//	-ldflags "-X github.com/rshade/gridcore/pkg/version.Version=v1.2.3"
//
//nolint:gochecknoglobals // Set by the linker.
var Version = "dev"

// GetVersion returns the build version string.
func GetVersion() string {
	return Version
}
