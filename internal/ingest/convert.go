package ingest

import (
	"context"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ensureReadable returns a path the xlsx reader can open. Modern formats pass
// through untouched. Legacy .xls workbooks are converted with LibreOffice
// when it is installed; without it the original path is returned and the
// subsequent open reports the real error.
func ensureReadable(ctx context.Context, logger *slog.Logger, path string) string {
	if !strings.EqualFold(filepath.Ext(path), ".xls") {
		return path
	}

	soffice, err := exec.LookPath("soffice")
	if err != nil {
		logger.WarnContext(ctx, "legacy workbook found but no converter available",
			"file", filepath.Base(path))
		return path
	}

	outDir, err := os.MkdirTemp("", "voltcli-convert-*")
	if err != nil {
		logger.WarnContext(ctx, "failed to create conversion directory",
			"file", filepath.Base(path), "error", err)
		return path
	}

	cmd := exec.CommandContext(ctx, soffice, "--headless", "--convert-to", "xlsx",
		"--outdir", outDir, path)
	if out, err := cmd.CombinedOutput(); err != nil {
		logger.WarnContext(ctx, "legacy workbook conversion failed",
			"file", filepath.Base(path), "error", err, "output", string(out))
		return path
	}

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	converted := filepath.Join(outDir, base+".xlsx")
	if _, err := os.Stat(converted); err != nil {
		logger.WarnContext(ctx, "converted workbook missing",
			"file", filepath.Base(path), "error", err)
		return path
	}

	logger.InfoContext(ctx, "converted legacy workbook", "file", filepath.Base(path))
	return converted
}
