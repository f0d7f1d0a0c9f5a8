package version

// EmptyValue is the version of binaries that weren't built with
// `-ldflags "-X github.com/sidkik/studymirror/pkg/version.Version=..."`, such
// as unit tests.
const EmptyValue = "unreleased"

// Version is the latest tag on git for releases. On non-release commits, it may
// include additional information such as the most recent commit hash.
var Version = EmptyValue
