package update

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// fakeNode writes a script that reports version on --version.
func fakeNode(t *testing.T, path string, version BuildVersion) {
	t.Helper()
	writeScript(t, path, `if [ "$1" = "--version" ]; then
  echo "Binary Name:        nym-node"
  echo "Build Version:      `+string(version)+`"
  exit 0
fi
exit 0`)
}

func TestNewBinaryReplacer(t *testing.T) {
	replacer := NewBinaryReplacer("/usr/local/bin/nym-node", "", &DirectSwapper{}, NewVersionReader())

	if replacer.Path() != "/usr/local/bin/nym-node" {
		t.Errorf("Path() = %s, want /usr/local/bin/nym-node", replacer.Path())
	}
	if replacer.BackupPath() != "/usr/local/bin/nym-node.backup" {
		t.Errorf("BackupPath() = %s, want /usr/local/bin/nym-node.backup", replacer.BackupPath())
	}

	custom := NewBinaryReplacer("/opt/nym-node", ".prev", &DirectSwapper{}, NewVersionReader())
	if custom.BackupPath() != "/opt/nym-node.prev" {
		t.Errorf("BackupPath() = %s, want /opt/nym-node.prev", custom.BackupPath())
	}
}

func TestBinaryReplacer_BackupAndSwap(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping subprocess test in short mode")
	}

	dir := t.TempDir()
	current := filepath.Join(dir, "nym-node")
	fresh := filepath.Join(t.TempDir(), "nym-node")
	fakeNode(t, current, "2025-01-15T10:30:00Z")
	fakeNode(t, fresh, "2025-01-20T14:45:00Z")

	reader := NewVersionReader()
	r := NewBinaryReplacer(current, "", &DirectSwapper{}, reader)
	ctx := context.Background()

	if err := r.Backup(ctx); err != nil {
		t.Fatalf("Backup() error = %v", err)
	}
	if err := r.Swap(ctx, fresh, "2025-01-20T14:45:00Z"); err != nil {
		t.Fatalf("Swap() error = %v", err)
	}

	if v, err := reader.Read(ctx, current); err != nil || v != "2025-01-20T14:45:00Z" {
		t.Errorf("canonical version = %q, %v; want 2025-01-20T14:45:00Z", v, err)
	}
	if v, err := reader.Read(ctx, r.BackupPath()); err != nil || v != "2025-01-15T10:30:00Z" {
		t.Errorf("backup version = %q, %v; want 2025-01-15T10:30:00Z", v, err)
	}
}

func TestBinaryReplacer_BackupSurvivesCancellation(t *testing.T) {
	dir := t.TempDir()
	current := filepath.Join(dir, "nym-node")
	if err := os.WriteFile(current, []byte("binary"), 0755); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewBinaryReplacer(current, "", &DirectSwapper{}, NewVersionReader())
	if err := r.Backup(ctx); err != nil {
		t.Fatalf("Backup() with cancelled context error = %v", err)
	}
	if !r.HasBackup() {
		t.Error("backup should exist")
	}
}

func TestBinaryReplacer_BackupError(t *testing.T) {
	r := NewBinaryReplacer(filepath.Join(t.TempDir(), "absent"), "", &DirectSwapper{}, NewVersionReader())

	err := r.Backup(context.Background())
	var be *BackupError
	if !errors.As(err, &be) {
		t.Fatalf("Backup() error = %v, want *BackupError", err)
	}
}

func TestBinaryReplacer_SwapVersionMismatch(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping subprocess test in short mode")
	}

	dir := t.TempDir()
	current := filepath.Join(dir, "nym-node")
	fresh := filepath.Join(t.TempDir(), "nym-node")
	fakeNode(t, current, "2025-01-15T10:30:00Z")
	fakeNode(t, fresh, "2025-01-20T14:45:00Z")

	r := NewBinaryReplacer(current, "", &DirectSwapper{}, NewVersionReader())
	if err := r.Backup(context.Background()); err != nil {
		t.Fatal(err)
	}

	err := r.Swap(context.Background(), fresh, "2025-02-01T00:00:00Z")
	var se *SwapError
	if !errors.As(err, &se) {
		t.Fatalf("Swap() error = %v, want *SwapError", err)
	}
	if se.BackupPath != r.BackupPath() {
		t.Errorf("SwapError.BackupPath = %q, want %q", se.BackupPath, r.BackupPath())
	}
	if !strings.Contains(err.Error(), "sudo cp "+r.BackupPath()) {
		t.Errorf("SwapError should explain how to restore: %v", err)
	}
}

func TestBinaryReplacer_SwapFailureLeavesCanonical(t *testing.T) {
	dir := t.TempDir()
	current := filepath.Join(dir, "nym-node")
	if err := os.WriteFile(current, []byte("original"), 0755); err != nil {
		t.Fatal(err)
	}

	r := NewBinaryReplacer(current, "", &DirectSwapper{}, NewVersionReader())
	err := r.Swap(context.Background(), filepath.Join(t.TempDir(), "missing"), "x")
	var se *SwapError
	if !errors.As(err, &se) {
		t.Fatalf("Swap() error = %v, want *SwapError", err)
	}
	if content, _ := os.ReadFile(current); string(content) != "original" {
		t.Errorf("canonical content = %q, want original", content)
	}
}

func TestBinaryReplacer_Rollback(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping subprocess test in short mode")
	}

	dir := t.TempDir()
	current := filepath.Join(dir, "nym-node")
	fakeNode(t, current, "2025-01-20T14:45:00Z")
	fakeNode(t, current+".backup", "2025-01-15T10:30:00Z")

	r := NewBinaryReplacer(current, "", &DirectSwapper{}, NewVersionReader())
	v, err := r.Rollback(context.Background())
	if err != nil {
		t.Fatalf("Rollback() error = %v", err)
	}
	if v != "2025-01-15T10:30:00Z" {
		t.Errorf("Rollback() version = %s, want 2025-01-15T10:30:00Z", v)
	}
	if !r.HasBackup() {
		t.Error("backup should be kept after rollback")
	}
}

func TestBinaryReplacer_RollbackNoBackup(t *testing.T) {
	current := filepath.Join(t.TempDir(), "nym-node")
	r := NewBinaryReplacer(current, "", &DirectSwapper{}, NewVersionReader())

	_, err := r.Rollback(context.Background())
	if !errors.Is(err, ErrNoBackup) {
		t.Fatalf("Rollback() error = %v, want ErrNoBackup", err)
	}
}
