package version

// Version is the current filefinder release.
const Version = "0.4.0"

// BuildVersion returns the version string printed by the CLI.
func BuildVersion() string {
	return "filefinder version " + Version
}

// APIVersion returns the version number reported by the HTTP API.
func APIVersion() string {
	return Version
}
