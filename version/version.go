package version

// Version is the semantic version of chainrpc.
const Version = "0.1.0"

// Set with -ldflags "-X github.com/DOIDFoundation/chainrpc/version.Commit=..."
// at build time.
var (
	Meta   = "dev"
	Commit string
	Date   string
)

// VersionWithMeta is Version plus the build metadata, if any.
var VersionWithMeta = func() string {
	if Meta == "" {
		return Version
	}
	return Version + "-" + Meta
}()
