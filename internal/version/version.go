package version

// Version is overridden at build time with -ldflags "-X github.com/bnema/short5-cli/internal/version.Version=...".
var Version = "dev"

func UserAgent() string {
	return "s5/" + Version
}
