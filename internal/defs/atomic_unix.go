//go:build !windows

package defs

import (
	"os"

	"github.com/google/renameio/v2"
)

// atomicWriteFile replaces path in one step, so the definitions watcher
// never observes a half-written YAML file.
func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	return renameio.WriteFile(path, data, perm)
}
