// Package misc keeps build time information about the program.
package misc

// set by the linker
var (
	appName = "inliner"
	version = "dev"
	gitHash = "unknown"
)

func GetAppName() string {
	return appName
}

func GetVersion() string {
	return version
}

func GetGitHash() string {
	return gitHash
}
