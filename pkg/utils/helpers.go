package utils

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

//InSlice returns true if given string appears in given slice
func InSlice(lookingFor string, slice []string) bool {
	for _, s := range slice {
		if s == lookingFor {
			return true
		}
	}

	return false
}

//ListDir returns a list of files/ directories in given path
func ListDir(path string) ([]string, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, errors.Wrap(err, "ListDir")
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}

	return names, nil
}

//EnsureDirs creates every missing directory in dirs
func EnsureDirs(dirs ...string) error {
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0766); err != nil {
			return errors.Wrapf(err, "EnsureDirs: could not create '%s'", dir)
		}
	}
	return nil
}

//BaseName returns the file name without directory and extension ("a/b/match.mp4" -> "match")
func BaseName(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

//Extension returns the lower case extension without the dot
func Extension(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}

//AllowedVideo reports whether the file name has one of AllowedVideoFormats
func AllowedVideo(name string) bool {
	return InSlice(Extension(name), AllowedVideoFormats)
}
