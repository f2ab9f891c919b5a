package correction

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	apperrors "voltcli/internal/errors"
	"voltcli/internal/infrastructure"
	"voltcli/internal/zone"
)

// matchFill is the highlight applied to corrected reference cells so a later
// manual audit can spot them.
const matchFill = "FFF200"

// Status classifies the outcome of an Apply call.
type Status string

const (
	// StatusApplied means the reference workbook was rewritten.
	StatusApplied Status = "applied"
	// StatusNothingMatched means no reference row carried the chosen
	// canonical name; the workbook was left untouched.
	StatusNothingMatched Status = "nothing_matched"
	// StatusSkipped means the operator chose the not-in-directory sentinel.
	StatusSkipped Status = "skipped"
)

// Outcome reports what Apply did.
type Outcome struct {
	Status      Status `json:"status"`
	RowsUpdated int    `json:"rows_updated"`
	BackupPath  string `json:"backup_path,omitempty"`
}

// Applier rewrites reference rows to match field spellings chosen by an
// operator.
type Applier struct {
	// ReferencePath is the reference workbook to correct.
	ReferencePath string
	// BackupDir receives a timestamped copy before every rewrite.
	BackupDir string
}

// Apply renames every reference station row case-insensitively equal to
// canonical so it carries the unresolved spelling instead, making future
// ingestions of that spelling resolve. The chosen rows are highlighted.
//
// The rewrite is guarded by an exclusive-create lock file; a concurrent
// holder yields a busy error immediately, never a wait. The workbook is
// written to a temporary sibling and renamed into place, so a failure
// mid-write leaves the original byte-identical.
func (a *Applier) Apply(ctx context.Context, unresolved, canonical string) (*Outcome, error) {
	logger := infrastructure.LoggerFromContext(ctx)

	unresolved = strings.TrimSpace(unresolved)
	canonical = strings.TrimSpace(canonical)
	if unresolved == "" {
		return nil, apperrors.NewValidationError("unresolved station name is required")
	}
	if canonical == "" {
		return nil, apperrors.NewValidationError("canonical station name is required")
	}
	if canonical == NotInDirectory {
		return &Outcome{Status: StatusSkipped}, nil
	}

	lockPath := a.ReferencePath + ".lock"
	lock, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if os.IsExist(err) {
			return nil, apperrors.NewBusyError("reference workbook is locked by another correction").
				WithContext("lock", lockPath)
		}
		return nil, apperrors.NewStorageError("failed to acquire reference lock", err)
	}
	fmt.Fprintf(lock, "pid=%d time=%s\n", os.Getpid(), time.Now().Format(time.RFC3339))
	lock.Close()
	defer os.Remove(lockPath)

	// The backup precedes any mutation and is retained even when nothing
	// ends up matching.
	backup, err := a.backup()
	if err != nil {
		return nil, err
	}

	f, err := excelize.OpenFile(a.ReferencePath)
	if err != nil {
		return nil, apperrors.NewReferenceError("failed to open reference workbook", err).
			WithContext("path", a.ReferencePath)
	}
	defer f.Close()

	rows, err := f.GetRows(zone.BusesSheet)
	if err != nil {
		return nil, apperrors.NewReferenceError("failed to read buses sheet", err)
	}
	if len(rows) == 0 {
		return &Outcome{Status: StatusNothingMatched, BackupPath: backup}, nil
	}

	stationCol := -1
	for i, h := range rows[0] {
		if strings.EqualFold(strings.TrimSpace(h), zone.StationColumn) {
			stationCol = i
			break
		}
	}
	if stationCol < 0 {
		return nil, apperrors.NewReferenceError("buses sheet has no station column", nil).
			WithContext("expected", zone.StationColumn)
	}

	style, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{matchFill}, Pattern: 1},
	})
	if err != nil {
		return nil, apperrors.NewStorageError("failed to create highlight style", err)
	}

	updated := 0
	for r := 1; r < len(rows); r++ {
		if stationCol >= len(rows[r]) {
			continue
		}
		if !strings.EqualFold(strings.TrimSpace(rows[r][stationCol]), canonical) {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(stationCol+1, r+1)
		if err != nil {
			return nil, apperrors.NewStorageError("failed to address reference cell", err)
		}
		if err := f.SetCellValue(zone.BusesSheet, cell, unresolved); err != nil {
			return nil, apperrors.NewStorageError("failed to rewrite reference cell", err)
		}
		if err := f.SetCellStyle(zone.BusesSheet, cell, cell, style); err != nil {
			return nil, apperrors.NewStorageError("failed to highlight reference cell", err)
		}
		updated++
	}

	if updated == 0 {
		logger.InfoContext(ctx, "correction matched no reference rows",
			"canonical", canonical)
		return &Outcome{Status: StatusNothingMatched, BackupPath: backup}, nil
	}

	tmp := a.tempPath()
	if err := f.SaveAs(tmp); err != nil {
		os.Remove(tmp)
		return nil, apperrors.NewStorageError("failed to write corrected workbook", err)
	}
	if err := os.Rename(tmp, a.ReferencePath); err != nil {
		os.Remove(tmp)
		return nil, apperrors.NewStorageError("failed to replace reference workbook", err)
	}

	logger.InfoContext(ctx, "applied reference correction",
		"unresolved", unresolved,
		"canonical", canonical,
		"rows_updated", updated,
		"backup", filepath.Base(backup))
	return &Outcome{Status: StatusApplied, RowsUpdated: updated, BackupPath: backup}, nil
}

// tempPath names the temporary sibling used for the atomic write. It keeps
// the workbook extension so the spreadsheet writer accepts it.
func (a *Applier) tempPath() string {
	ext := filepath.Ext(a.ReferencePath)
	stem := strings.TrimSuffix(filepath.Base(a.ReferencePath), ext)
	return filepath.Join(filepath.Dir(a.ReferencePath),
		fmt.Sprintf("~tmp_%s_%d%s", stem, os.Getpid(), ext))
}

// backup copies the reference workbook into BackupDir with a timestamped
// name, creating the directory on first use.
func (a *Applier) backup() (string, error) {
	if err := os.MkdirAll(a.BackupDir, 0755); err != nil {
		return "", apperrors.NewStorageError("failed to create backup directory", err)
	}

	base := filepath.Base(a.ReferencePath)
	ext := filepath.Ext(base)
	stamp := time.Now().Format("20060102_150405")
	dst := filepath.Join(a.BackupDir, strings.TrimSuffix(base, ext)+"_"+stamp+ext)

	src, err := os.Open(a.ReferencePath)
	if err != nil {
		return "", apperrors.NewStorageError("failed to open reference for backup", err)
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return "", apperrors.NewStorageError("failed to create backup file", err)
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		os.Remove(dst)
		return "", apperrors.NewStorageError("failed to write backup file", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return "", apperrors.NewStorageError("failed to finalize backup file", err)
	}
	return dst, nil
}
