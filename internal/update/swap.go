package update

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/minio/selfupdate"

	"github.com/4nozen/NymNodeInstall/internal/types"
)

// NewSwapper returns the swapper for mode. In auto mode the target's directory
// is probed and sudo is used only when it is not writable.
func NewSwapper(mode types.SwapMode, target string, runner CommandRunner) Swapper {
	switch mode {
	case types.SwapModeDirect:
		return &DirectSwapper{}
	case types.SwapModeSudo:
		return NewSudoSwapper(runner)
	default:
		if CanWriteDirect(target) {
			return &DirectSwapper{}
		}
		return NewSudoSwapper(runner)
	}
}

// CanWriteDirect reports whether this process can create files next to target.
func CanWriteDirect(target string) bool {
	opts := selfupdate.Options{TargetPath: target}
	return opts.CheckPermissions() == nil
}

// stagedPath is where a replacement is written before the final rename.
// It matches the staging file selfupdate creates.
func stagedPath(target string) string {
	return filepath.Join(filepath.Dir(target), fmt.Sprintf(".%s.new", filepath.Base(target)))
}

// DirectSwapper writes binaries in-process.
type DirectSwapper struct{}

// Copy copies src over dst, preserving the source mode.
func (s *DirectSwapper) Copy(_ context.Context, src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer func() { _ = in.Close() }()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}

	out, err := os.OpenFile(dst, os.O_RDWR|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("create destination: %w", err)
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst) // Clean up partial copy
		return fmt.Errorf("copy contents: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close destination: %w", err)
	}

	// O_CREATE does not change the mode of an existing file.
	return os.Chmod(dst, info.Mode().Perm())
}

// Replace stages src next to dst with a verified checksum, then renames it over dst.
// dst is never absent: the rename replaces it in one step.
func (s *DirectSwapper) Replace(_ context.Context, src, dst string) error {
	sum, err := calculateSHA256(src)
	if err != nil {
		return err
	}
	checksum, err := hex.DecodeString(sum)
	if err != nil {
		return fmt.Errorf("decode checksum: %w", err)
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open new binary: %w", err)
	}
	defer func() { _ = in.Close() }()

	opts := selfupdate.Options{
		TargetPath: dst,
		TargetMode: 0755,
		Checksum:   checksum,
	}
	staged := stagedPath(dst)
	_ = os.Remove(staged) // leftover from an interrupted run
	if err := selfupdate.PrepareAndCheckBinary(in, opts); err != nil {
		_ = os.Remove(staged)
		return fmt.Errorf("stage new binary: %w", err)
	}
	if err := os.Chmod(staged, 0755); err != nil {
		_ = os.Remove(staged)
		return fmt.Errorf("set executable permissions: %w", err)
	}

	if err := os.Rename(staged, dst); err != nil {
		_ = os.Remove(staged)
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}

// SudoSwapper writes binaries through sudo for root-owned install directories.
type SudoSwapper struct {
	runner CommandRunner
}

// NewSudoSwapper creates a swapper running cp/chmod/mv under sudo.
func NewSudoSwapper(runner CommandRunner) *SudoSwapper {
	if runner == nil {
		runner = &DefaultCommandRunner{}
	}
	return &SudoSwapper{runner: runner}
}

// Copy runs sudo cp -p src dst.
func (s *SudoSwapper) Copy(ctx context.Context, src, dst string) error {
	return s.sudo(ctx, "cp", "-p", src, dst)
}

// Replace copies src to a staging file beside dst, marks it executable and
// moves it over dst.
func (s *SudoSwapper) Replace(ctx context.Context, src, dst string) error {
	staged := stagedPath(dst)

	if err := s.sudo(ctx, "cp", src, staged); err != nil {
		return err
	}
	if err := s.sudo(ctx, "chmod", "755", staged); err != nil {
		_ = s.sudo(ctx, "rm", "-f", staged)
		return err
	}
	if err := s.sudo(ctx, "mv", "-f", staged, dst); err != nil {
		_ = s.sudo(ctx, "rm", "-f", staged)
		return err
	}
	return nil
}

func (s *SudoSwapper) sudo(ctx context.Context, args ...string) error {
	out, err := s.runner.Run(ctx, "sudo", args...)
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg != "" {
			return fmt.Errorf("sudo %s: %w: %s", strings.Join(args, " "), err, msg)
		}
		return fmt.Errorf("sudo %s: %w", strings.Join(args, " "), err)
	}
	return nil
}
