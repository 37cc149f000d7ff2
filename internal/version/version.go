// Package version holds build metadata, set at link time with
// -ldflags "-X github.com/MrSnakeDoc/lemcache/internal/version.Version=v0.1.0".
package version

import (
	"runtime"
	"runtime/debug"
	"time"
)

var (
	Version   = "dev"                           // ex: v0.1.0
	Commit    = "none"                          // ex: abcd123
	BuildDate = time.Now().Format(time.RFC3339) // ex: 2025-08-11T18:42:00Z
	GoVersion = runtime.Version()
)

func init() {
	if Commit != "none" {
		return
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && len(s.Value) >= 7 {
			Commit = s.Value[:7]
		}
	}
}

// UserAgent is the User-Agent sent to Lemmy instances, ex: "lemcache/v0.1.0".
// product overrides the "lemcache" prefix when not empty.
func UserAgent(product string) string {
	if product == "" {
		product = "lemcache"
	}
	return product + "/" + Version
}
