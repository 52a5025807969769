// Package misc keeps build time information.
package misc

import (
	"os"
	"path/filepath"
	"strings"
)

// Set by the linker: -X pagesheet/misc.version=... -X pagesheet/misc.gitHash=...
var (
	version = "dev"
	gitHash = "unknown"
)

const appName = "pagesheet"

// GetAppName returns program name, it does not depend on executable name
// unless program was renamed on purpose.
func GetAppName() string {
	if exe, err := os.Executable(); err == nil {
		name := strings.TrimSuffix(filepath.Base(exe), filepath.Ext(exe))
		if strings.HasPrefix(name, appName) {
			return name
		}
	}
	return appName
}

func GetVersion() string {
	return version
}

func GetGitHash() string {
	return gitHash
}
