package update

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrAssetNotFound is wrapped by AssetNotFoundError.
	ErrAssetNotFound = errors.New("asset not found")

	// ErrChecksumMismatch is wrapped by ChecksumError.
	ErrChecksumMismatch = errors.New("checksum mismatch")

	// ErrNoStableRelease means the release index held no published, non-prerelease entry.
	ErrNoStableRelease = errors.New("no stable release")

	// ErrLocked means another run holds the lock file.
	ErrLocked = errors.New("another nymnode run is in progress")
)

// NotFoundError means no installed binary was found in any searched location.
type NotFoundError struct {
	Name     string
	Searched []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found (searched: %s)", e.Name, strings.Join(e.Searched, ", "))
}

// ProcessError means the binary could not be run or exited unsuccessfully.
type ProcessError struct {
	Path   string
	Output string
	Err    error
}

func (e *ProcessError) Error() string {
	msg := fmt.Sprintf("running %s: %v", e.Path, e.Err)
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += "\n" + out
	}
	return msg
}

func (e *ProcessError) Unwrap() error { return e.Err }

// VersionParseError means the binary ran but reported no usable version field.
type VersionParseError struct {
	Path  string
	Field string
}

func (e *VersionParseError) Error() string {
	return fmt.Sprintf("%s: no %q line in version output", e.Path, e.Field)
}

// RateLimitError is returned when the GitHub API rate limit is exhausted.
type RateLimitError struct {
	Limit     int
	Remaining int
	ResetAt   time.Time
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("GitHub API rate limit exceeded (%d remaining, resets at %s)",
		e.Remaining, e.ResetAt.UTC().Format("15:04 UTC"))
}

// NetworkError covers request failures, unexpected statuses and undecodable bodies.
type NetworkError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	switch {
	case e.Err != nil && e.StatusCode != 0:
		return fmt.Sprintf("fetching %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("fetching %s: %v", e.URL, e.Err)
	default:
		return fmt.Sprintf("fetching %s: unexpected status %d", e.URL, e.StatusCode)
	}
}

func (e *NetworkError) Unwrap() error { return e.Err }

// AssetNotFoundError means the release carries no asset with the expected name.
type AssetNotFoundError struct {
	Tag   string
	Asset string
}

func (e *AssetNotFoundError) Error() string {
	return fmt.Sprintf("release %s has no asset named %q", e.Tag, e.Asset)
}

func (e *AssetNotFoundError) Unwrap() error { return ErrAssetNotFound }

// ChecksumError provides details about a checksum verification failure.
type ChecksumError struct {
	Filename string
	Expected string
	Got      string
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("checksum verification failed for %s\nExpected: %s\nGot:      %s", e.Filename, e.Expected, e.Got)
}

func (e *ChecksumError) Unwrap() error { return ErrChecksumMismatch }

// SignatureError means the detached OpenPGP signature was missing or did not verify.
type SignatureError struct {
	Asset string
	Err   error
}

func (e *SignatureError) Error() string {
	return fmt.Sprintf("signature verification failed for %s: %v", e.Asset, e.Err)
}

func (e *SignatureError) Unwrap() error { return e.Err }

// BackupError means the installed binary could not be copied aside.
// The canonical path is untouched when it is returned.
type BackupError struct {
	Path       string
	BackupPath string
	Err        error
}

func (e *BackupError) Error() string {
	return fmt.Sprintf("backing up %s to %s: %v", e.Path, e.BackupPath, e.Err)
}

func (e *BackupError) Unwrap() error { return e.Err }

// SwapError means the canonical path could not be replaced, or holds the wrong binary afterwards.
type SwapError struct {
	Path       string
	BackupPath string
	Err        error
}

func (e *SwapError) Error() string {
	msg := fmt.Sprintf("replacing %s: %v", e.Path, e.Err)
	if e.BackupPath != "" {
		msg += fmt.Sprintf("\nrestore the previous binary with: sudo cp %s %s", e.BackupPath, e.Path)
	}
	return msg
}

func (e *SwapError) Unwrap() error { return e.Err }

// IsRemote reports whether err originates from the release index or its assets
// rather than from the local machine.
func IsRemote(err error) bool {
	var (
		netErr   *NetworkError
		assetErr *AssetNotFoundError
		sumErr   *ChecksumError
		sigErr   *SignatureError
	)
	switch {
	case errors.As(err, &netErr), errors.As(err, &assetErr),
		errors.As(err, &sumErr), errors.As(err, &sigErr):
		return true
	default:
		return false
	}
}
