package persistence

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"clinic-store/internal/globalconst"
	"clinic-store/internal/store"
)

// ErrBackupInProgress is returned when a backup is requested while another one runs.
var ErrBackupInProgress = errors.New("backup already in progress")

// Snapshotter is the part of the store a backup needs.
type Snapshotter interface {
	Snapshot() store.Snapshot
}

// BackupManager handles backup operations
type BackupManager struct {
	source    Snapshotter
	dir       string
	interval  time.Duration
	retention time.Duration

	running  atomic.Bool
	mu       sync.RWMutex
	lastTime time.Time
	lastPath string

	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewBackupManager creates a new instance of the backup manager
func NewBackupManager(source Snapshotter, dir string, interval, retention time.Duration) *BackupManager {
	if dir == "" {
		dir = globalconst.BackupsDirName
	}
	return &BackupManager{
		source:    source,
		dir:       dir,
		interval:  interval,
		retention: retention,
		stopChan:  make(chan struct{}),
	}
}

// Start initiates the periodic backup service
func (bm *BackupManager) Start() {
	if bm.interval <= 0 {
		slog.Info("Backup interval is not positive, periodic backups disabled")
		return
	}
	if err := os.MkdirAll(bm.dir, 0755); err != nil {
		slog.Error("Failed to create backup directory", "path", bm.dir, "error", err)
		return
	}
	slog.Info("Backup manager starting...", "interval", bm.interval.String(), "retention", bm.retention.String())
	bm.wg.Add(1)
	go bm.runPeriodicBackups()
}

// Stop terminates the backup service
func (bm *BackupManager) Stop() {
	select {
	case <-bm.stopChan:
		return
	default:
		close(bm.stopChan)
	}
	bm.wg.Wait()
}

func (bm *BackupManager) runPeriodicBackups() {
	defer bm.wg.Done()

	ticker := time.NewTicker(bm.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			slog.Info("Performing periodic backup...")
			if _, err := bm.PerformBackup(); err != nil {
				slog.Error("Error in periodic backup", "error", err)
			}
		case <-bm.stopChan:
			slog.Info("Backup manager received stop signal. Stopping.")
			return
		}
	}
}

// PerformBackup writes the current store snapshot to a timestamped file in
// the backup directory and prunes backups past the retention period. It
// returns the path of the new backup.
func (bm *BackupManager) PerformBackup() (string, error) {
	if !bm.running.CompareAndSwap(false, true) {
		slog.Warn("Backup skipped: another backup is already in progress.")
		return "", ErrBackupInProgress
	}
	defer bm.running.Store(false)

	if err := os.MkdirAll(bm.dir, 0755); err != nil {
		return "", fmt.Errorf("error creating backup directory '%s': %w", bm.dir, err)
	}

	now := time.Now()
	backupPath := filepath.Join(bm.dir, now.Format(globalconst.BackupTimeLayout)+globalconst.BackupFileExtension)
	slog.Info("Starting new backup", "path", backupPath)

	if err := writeSnapshotFile(backupPath, bm.source.Snapshot()); err != nil {
		return "", fmt.Errorf("error writing backup: %w", err)
	}
	if err := verifyBackup(backupPath); err != nil {
		slog.Error("Backup verification failed", "path", backupPath, "error", err)
		return "", fmt.Errorf("backup verification failed: %w", err)
	}

	bm.mu.Lock()
	bm.lastTime = now
	bm.lastPath = backupPath
	bm.mu.Unlock()

	bm.cleanOldBackups(now)
	slog.Info("Backup completed successfully", "path", backupPath)
	return backupPath, nil
}

// verifyBackup re-reads the backup and checks that it parses.
func verifyBackup(path string) error {
	if _, err := NewFileStorage(path).Load(); err != nil {
		return err
	}
	return nil
}

// cleanOldBackups removes backups older than the retention period
func (bm *BackupManager) cleanOldBackups(now time.Time) {
	if bm.retention <= 0 {
		return
	}
	cutoffTime := now.Add(-bm.retention)
	entries, err := os.ReadDir(bm.dir)
	if err != nil {
		slog.Error("Failed to read backup directory for cleanup", "path", bm.dir, "error", err)
		return
	}

	cleanedCount := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), globalconst.BackupFileExtension) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoffTime) {
			path := filepath.Join(bm.dir, entry.Name())
			if err := os.Remove(path); err != nil {
				slog.Error("Failed to delete old backup", "path", path, "error", err)
			} else {
				slog.Info("Old backup deleted", "path", path)
				cleanedCount++
			}
		}
	}
	if cleanedCount > 0 {
		slog.Info("Backup cleanup finished", "deleted_count", cleanedCount)
	}
}

// LastBackup returns the time and path of the last successful backup.
func (bm *BackupManager) LastBackup() (time.Time, string) {
	bm.mu.RLock()
	defer bm.mu.RUnlock()
	return bm.lastTime, bm.lastPath
}

// Status returns the current status of the backup system
func (bm *BackupManager) Status() string {
	if bm.running.Load() {
		return "Backup in progress"
	}
	last, path := bm.LastBackup()
	if last.IsZero() {
		return "A backup has never been performed"
	}
	return fmt.Sprintf("Last successful backup: %s (%s)", last.Format(time.RFC1123), path)
}
