package version

// Version is the application version. Release builds override it with
// -ldflags "-X wikidatago/pkg/version.Version=...".
var Version = "v0.3.0"
