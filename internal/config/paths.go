package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Paths resolves the directories used by the engine. All relative
// configuration paths are anchored at the executable directory so the tool
// behaves the same regardless of the working directory it is launched from.
type Paths struct {
	ExecutableDir string
	DataDir       string
	ReferenceFile string
	BackupDir     string
	ReportsDir    string
	LogsDir       string
}

// NewPaths builds a Paths value from a PathsConfig.
func NewPaths(cfg PathsConfig) (*Paths, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to locate executable: %w", err)
	}
	exeDir := filepath.Dir(exe)

	p := &Paths{
		ExecutableDir: exeDir,
		DataDir:       anchor(exeDir, cfg.DataDir),
		ReferenceFile: anchor(exeDir, cfg.ReferenceFile),
		ReportsDir:    anchor(exeDir, cfg.ReportsDir),
		LogsDir:       anchor(exeDir, cfg.LogsDir),
	}
	// Backups live next to the reference workbook so restores are obvious.
	if filepath.IsAbs(cfg.BackupDir) {
		p.BackupDir = cfg.BackupDir
	} else {
		p.BackupDir = filepath.Join(filepath.Dir(p.ReferenceFile), cfg.BackupDir)
	}
	return p, nil
}

// EnsureDirectories creates all writable directories.
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.DataDir, p.ReportsDir, p.LogsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// GetReportPath returns the full path for a report file name.
func (p *Paths) GetReportPath(name string) string {
	return filepath.Join(p.ReportsDir, name)
}

// GetLogPath returns the full path for a log file name.
func (p *Paths) GetLogPath(name string) string {
	return filepath.Join(p.LogsDir, name)
}

func anchor(base, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}
