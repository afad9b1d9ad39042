package fileutil

import (
	"os"
	"path/filepath"

	"github.com/shipper-ci/shipper/util/common/errors"
)

// Exists checks if a file or directory exists
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// IsDir checks if the path is a directory
func IsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// IsFile checks if the path is a regular file
func IsFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// RemoveIfExists deletes the file at path. A missing file is not an
// error; anything else is.
func RemoveIfExists(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.NewArchivalError("remove", path, err)
	}
	return nil
}

// WriteFile writes data to a file, creating parent directories if
// needed.
func WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(err, "create parent directory")
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrap(err, "write file")
	}
	return nil
}

// ReadFile reads the entire file and returns its contents. It rejects
// directories up front so callers get a clear error instead of a read
// failure.
func ReadFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrap(err, "stat file")
	}
	if info.IsDir() {
		return nil, errors.Wrap(errors.ErrInvalidArgument, "path is a directory, expected a file")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}
	return data, nil
}
