package update

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// DefaultBackupSuffix is appended to the canonical path to name the backup.
const DefaultBackupSuffix = ".backup"

// ErrNoBackup means there is no backup to restore from.
var ErrNoBackup = errors.New("no backup found")

// BinaryReplacer backs up and swaps the binary at a canonical path.
// The backup is never removed.
type BinaryReplacer struct {
	currentPath string
	backupPath  string
	swapper     Swapper
	reader      VersionReader
}

// NewBinaryReplacer creates a replacer for currentPath. An empty suffix means ".backup".
func NewBinaryReplacer(currentPath, backupSuffix string, swapper Swapper, reader VersionReader) *BinaryReplacer {
	if backupSuffix == "" {
		backupSuffix = DefaultBackupSuffix
	}
	return &BinaryReplacer{
		currentPath: currentPath,
		backupPath:  currentPath + backupSuffix,
		swapper:     swapper,
		reader:      reader,
	}
}

// Path returns the canonical path.
func (r *BinaryReplacer) Path() string {
	return r.currentPath
}

// BackupPath returns where the backup is kept.
func (r *BinaryReplacer) BackupPath() string {
	return r.backupPath
}

// HasBackup reports whether a backup file exists.
func (r *BinaryReplacer) HasBackup() bool {
	info, err := os.Stat(r.backupPath)
	return err == nil && info.Mode().IsRegular()
}

// Backup copies the canonical binary to the backup path, overwriting any
// previous backup. It runs to completion even if ctx is cancelled.
func (r *BinaryReplacer) Backup(ctx context.Context) error {
	ctx = context.WithoutCancel(ctx)

	if err := r.swapper.Copy(ctx, r.currentPath, r.backupPath); err != nil {
		return &BackupError{Path: r.currentPath, BackupPath: r.backupPath, Err: err}
	}
	return nil
}

// Swap replaces the canonical binary with newBinary and checks that the
// canonical path now reports want. It runs to completion even if ctx is cancelled.
func (r *BinaryReplacer) Swap(ctx context.Context, newBinary string, want BuildVersion) error {
	ctx = context.WithoutCancel(ctx)

	if err := r.swapper.Replace(ctx, newBinary, r.currentPath); err != nil {
		return &SwapError{Path: r.currentPath, BackupPath: r.existingBackup(), Err: err}
	}

	got, err := r.reader.Read(ctx, r.currentPath)
	if err != nil {
		return &SwapError{Path: r.currentPath, BackupPath: r.existingBackup(), Err: fmt.Errorf("new binary verification failed: %w", err)}
	}
	if got.Compare(want) != 0 {
		return &SwapError{
			Path:       r.currentPath,
			BackupPath: r.existingBackup(),
			Err:        fmt.Errorf("installed binary reports %s, expected %s", got, want),
		}
	}
	return nil
}

// Rollback copies the backup over the canonical path, keeps the backup, and
// returns the restored binary's version.
func (r *BinaryReplacer) Rollback(ctx context.Context) (BuildVersion, error) {
	if !r.HasBackup() {
		return "", fmt.Errorf("%w: %s", ErrNoBackup, r.backupPath)
	}

	ctx = context.WithoutCancel(ctx)
	if err := r.swapper.Replace(ctx, r.backupPath, r.currentPath); err != nil {
		return "", &SwapError{Path: r.currentPath, BackupPath: r.backupPath, Err: fmt.Errorf("restore from backup: %w", err)}
	}

	v, err := r.reader.Read(ctx, r.currentPath)
	if err != nil {
		return "", fmt.Errorf("restored binary verification failed: %w", err)
	}
	return v, nil
}

func (r *BinaryReplacer) existingBackup() string {
	if r.HasBackup() {
		return r.backupPath
	}
	return ""
}
