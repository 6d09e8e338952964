package version

// Version is the application version, set at build time via ldflags.
// Example: go build -ldflags "-X github.com/shishobooks/folio/pkg/version.Version=1.0.0".
var Version = "dev"

// UserAgent identifies folio on requests it makes itself, such as app shell
// installs and sample imports.
func UserAgent() string {
	return "folio/" + Version
}
