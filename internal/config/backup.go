package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	// MaxBackups is the number of config backups kept per file.
	MaxBackups = 3

	// BackupSuffix precedes the timestamp in backup file names.
	BackupSuffix = ".bak"
)

// ErrConfigExists is returned by InitUserConfig when a config is present
// and force is false.
var ErrConfigExists = errors.New("config file already exists")

// InitUserConfig writes the default configuration to the user config path.
// An existing file is only replaced when force is set, in which case it is
// backed up first. Returns the written path and the backup path, if any.
func InitUserConfig(force bool) (path, backup string, err error) {
	path = GetUserConfigPath()
	if fileExists(path) {
		if !force {
			return path, "", fmt.Errorf("%w: %s", ErrConfigExists, path)
		}
		if backup, err = BackupFile(path); err != nil {
			return path, "", err
		}
	}
	if err := NewConfig().WriteYAML(path); err != nil {
		return path, backup, err
	}
	return path, backup, nil
}

// BackupFile copies path to a timestamped sibling and prunes old copies
// beyond MaxBackups. A missing file yields an empty path and no error.
func BackupFile(path string) (string, error) {
	if !fileExists(path) {
		return "", nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read config for backup: %w", err)
	}

	backupPath := fmt.Sprintf("%s%s.%s", path, BackupSuffix, time.Now().Format("20060102-150405.000"))
	if err := os.WriteFile(backupPath, data, 0o600); err != nil {
		return "", fmt.Errorf("failed to write backup: %w", err)
	}

	// Best effort.
	_ = pruneBackups(path)

	return backupPath, nil
}

// ListBackups returns the backups of path, newest first.
func ListBackups(path string) ([]string, error) {
	dir := filepath.Dir(path)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list config directory: %w", err)
	}

	prefix := filepath.Base(path) + BackupSuffix + "."
	var backups []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasPrefix(entry.Name(), prefix) {
			backups = append(backups, filepath.Join(dir, entry.Name()))
		}
	}

	// Timestamps sort lexically.
	sort.Sort(sort.Reverse(sort.StringSlice(backups)))
	return backups, nil
}

func pruneBackups(path string) error {
	backups, err := ListBackups(path)
	if err != nil || len(backups) <= MaxBackups {
		return err
	}
	for _, b := range backups[MaxBackups:] {
		_ = os.Remove(b)
	}
	return nil
}
