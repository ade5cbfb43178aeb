// Package assets holds files bundled into the binary.
package assets

import (
	"embed"
	"io/fs"
	"strings"
)

//go:embed tacticsData.json
var files embed.FS

// Prefix is the path prefix that refers to a bundled asset
const Prefix = "assets/"

// IsAsset reports whether path names a bundled asset location
func IsAsset(path string) bool {
	return strings.HasPrefix(strings.TrimPrefix(path, "./"), Prefix)
}

// Read returns the bundled copy of path, e.g. "assets/tacticsData.json"
func Read(path string) ([]byte, error) {
	name := strings.TrimPrefix(strings.TrimPrefix(path, "./"), Prefix)
	return fs.ReadFile(files, name)
}
