package logging

import (
	"os"
	"path/filepath"
)

// LogFileName is the log file written under <data dir>/logs.
const LogFileName = "criterion.log"

// LogPath returns the log file for a data directory.
func LogPath(dataDir string) string {
	return filepath.Join(dataDir, "logs", LogFileName)
}

// DefaultLogDir returns the default log directory (~/.criterion/logs/).
// Falls back to the temp directory if the home directory is unavailable.
func DefaultLogDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".criterion", "logs")
	}
	return filepath.Join(home, ".criterion", "logs")
}

// DefaultLogPath returns the log path for the default data directory.
func DefaultLogPath() string {
	return filepath.Join(DefaultLogDir(), LogFileName)
}
