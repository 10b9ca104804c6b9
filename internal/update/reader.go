package update

import (
	"bufio"
	"context"
	"errors"
	"strings"
	"time"
)

const (
	// DefaultVersionFlag makes nym-node print its build information.
	DefaultVersionFlag = "--version"
	// DefaultVersionField prefixes the line carrying the build timestamp.
	DefaultVersionField = "Build Version:"
	// DefaultVersionTimeout bounds a single version query.
	DefaultVersionTimeout = 15 * time.Second
)

// CommandVersionReader runs a binary with its version flag and scans the output.
type CommandVersionReader struct {
	runner  CommandRunner
	flag    string
	field   string
	timeout time.Duration
}

// ReaderOption configures a CommandVersionReader.
type ReaderOption func(*CommandVersionReader)

// WithVersionFlag overrides the flag passed to the binary.
func WithVersionFlag(flag string) ReaderOption {
	return func(r *CommandVersionReader) {
		if flag != "" {
			r.flag = flag
		}
	}
}

// WithVersionField overrides the line prefix to look for.
func WithVersionField(field string) ReaderOption {
	return func(r *CommandVersionReader) {
		if field != "" {
			r.field = field
		}
	}
}

// WithVersionTimeout overrides the per-query timeout. Zero keeps the default.
func WithVersionTimeout(d time.Duration) ReaderOption {
	return func(r *CommandVersionReader) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithReaderRunner sets the command runner (for testing).
func WithReaderRunner(runner CommandRunner) ReaderOption {
	return func(r *CommandVersionReader) {
		r.runner = runner
	}
}

// NewVersionReader creates a reader with nym-node defaults.
func NewVersionReader(opts ...ReaderOption) *CommandVersionReader {
	r := &CommandVersionReader{
		runner:  &DefaultCommandRunner{},
		flag:    DefaultVersionFlag,
		field:   DefaultVersionField,
		timeout: DefaultVersionTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Read runs path with the version flag and returns the reported build version.
func (r *CommandVersionReader) Read(ctx context.Context, path string) (BuildVersion, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	out, err := r.runner.Run(ctx, path, r.flag)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = ctx.Err()
		}
		return "", &ProcessError{Path: path, Output: string(out), Err: err}
	}

	v, ok := extractField(string(out), r.field)
	if !ok {
		return "", &VersionParseError{Path: path, Field: r.field}
	}
	return v, nil
}

// extractField returns the trimmed value of the first line starting with field.
func extractField(output, field string) (BuildVersion, bool) {
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, field) {
			continue
		}
		v, err := ParseBuildVersion(strings.TrimPrefix(line, field))
		if err != nil {
			return "", false
		}
		return v, true
	}
	return "", false
}
