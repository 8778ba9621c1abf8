// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"os"
	"path/filepath"
)

const appDirName = "acblink"

// DefaultDataDir returns the per-user application data directory.
func DefaultDataDir() (string, error) {
	if dir, err := os.UserConfigDir(); err == nil && dir != "" {
		return filepath.Join(dir, appDirName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "."+appDirName), nil
}

// DefaultConfigPath returns ${dataDir}/config.yaml when it exists, otherwise "".
func DefaultConfigPath(dataDir string) string {
	if dataDir == "" {
		return ""
	}
	p := filepath.Join(dataDir, "config.yaml")
	if _, err := os.Stat(p); err == nil {
		return p
	}
	return ""
}
