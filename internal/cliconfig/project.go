package cliconfig

import (
	"os"
	"path/filepath"
)

// Project import directories created by the Qt Design Studio templates.
var defaultImportDirs = []string{"imports", "asset_imports"}

// LoadProjectInfo fills ImportPaths and FileMapping from the working
// directory when they are not already set.
func LoadProjectInfo(cfg *Config) error {
	if cfg.WorkingDir == "" {
		return nil
	}
	abs, err := filepath.Abs(cfg.WorkingDir)
	if err != nil {
		return err
	}
	cfg.WorkingDir = abs

	if len(cfg.ImportPaths) == 0 {
		for _, dir := range defaultImportDirs {
			p := filepath.Join(abs, dir)
			if info, err := os.Stat(p); err == nil && info.IsDir() {
				cfg.ImportPaths = append(cfg.ImportPaths, p)
			}
		}
	}

	if cfg.FileMapping == "" {
		cfg.FileMapping = "qrc:/=" + abs
	}
	return nil
}
