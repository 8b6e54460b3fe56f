package version

// Version is the CLI version. Overridden at release time via
// -ldflags "-X cloudsnap/src/version.Version=vX.Y.Z".
var Version = "v0.3.0-dev"
