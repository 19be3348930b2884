// Package version holds the version information of the configurator
package version

import (
	"expvar"
	"fmt"
	"runtime"

	flag "github.com/spf13/pflag"
)

var (
	expVer = expvar.NewString("version")
)

// ConfiguratorVersion and GitSHA are set at build time
var (
	ConfiguratorVersion = "0.4.0"
	GitSHA              = ""
)

// InitFlags registers the version flag
func InitFlags() {
	flag.Bool("version", false, "Show the version information")
	expVer.Set(ConfiguratorVersion)
}

// DumpVersionInfo prints all version information
func DumpVersionInfo() {
	fmt.Printf("mongodb-configurator version: %s\n", ConfiguratorVersion)
	fmt.Printf("git SHA: %s\n", GitSHA)
	fmt.Printf("go version: %s\n", runtime.Version())
	fmt.Printf("go OS/arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
}
