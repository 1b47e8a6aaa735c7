//go:build windows

package defs

import (
	"os"
	"path/filepath"
)

// atomicWriteFile replaces path via a temp file and rename; renameio has no
// Windows support, and NTFS rename is close enough for definition files.
func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tempFile := path + ".tmp"
	if err := os.WriteFile(tempFile, data, perm); err != nil {
		return err
	}

	if err := os.Rename(tempFile, path); err != nil {
		os.Remove(tempFile)
		return err
	}

	return nil
}
