package persistence

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"clinic-store/internal/globalconst"
)

// PerformRestore replaces the store file at dataPath with the named backup
// from backupDir. It must run while no store is open on dataPath: a running
// store would overwrite the restored file on its next flush.
// WARNING: destructive, the current store file is replaced.
func PerformRestore(backupDir, backupName, dataPath string) error {
	if !strings.HasSuffix(backupName, globalconst.BackupFileExtension) {
		backupName += globalconst.BackupFileExtension
	}
	backupPath := filepath.Join(backupDir, backupName)
	if _, err := os.Stat(backupPath); err != nil {
		return fmt.Errorf("backup '%s' not found: %w", backupName, err)
	}

	slog.Warn("Starting restore", "backup", backupPath, "target", dataPath)
	snap, err := NewFileStorage(backupPath).Load()
	if err != nil {
		return fmt.Errorf("backup '%s' is not restorable: %w", backupName, err)
	}
	if err := writeSnapshotFile(dataPath, snap); err != nil {
		return fmt.Errorf("failed to restore store file: %w", err)
	}

	slog.Info("Restore completed", "backup", backupPath, "target", dataPath, "collections", len(snap))
	return nil
}
