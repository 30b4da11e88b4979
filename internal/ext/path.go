/*
Package ext is "language extensions", functionality that in a perfect world would be part of the golang standard library
*/
package ext

import (
	"os"
	"path/filepath"
	"strings"
)

// ReplaceHomeDirWithTilde replaces the home directory in an absolute path with ~
func ReplaceHomeDirWithTilde(path string) string {
	homeDir, err := os.UserHomeDir()
	if err != nil || homeDir == "" {
		return path // If there's an error, return the original path
	}

	if path == homeDir || strings.HasPrefix(path, homeDir+string(filepath.Separator)) {
		return "~" + strings.TrimPrefix(path, homeDir)
	}
	return path
}

// ExpandHomeDir replaces a leading ~ with the home directory, the reverse of ReplaceHomeDirWithTilde.
func ExpandHomeDir(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(homeDir, strings.TrimPrefix(path, "~"))
}
