package update

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

const sampleVersionOutput = `
Binary Name:        nym-node
Build Timestamp:    2025-01-15T10:31:02.123456789Z
Build Version:      2025-01-15T10:30:00Z
Commit SHA:         4a3b2c1d
Commit Date:        2025-01-15T09:00:00Z
Commit Branch:      HEAD
rustc Version:      1.84.0
rustc Channel:      stable
cargo Profile:      release
`

func TestExtractField(t *testing.T) {
	tests := []struct {
		name   string
		output string
		field  string
		want   BuildVersion
		wantOK bool
	}{
		{"nym-node output", sampleVersionOutput, DefaultVersionField, "2025-01-15T10:30:00Z", true},
		{"custom field", sampleVersionOutput, "Commit SHA:", "4a3b2c1d", true},
		{"value with colons kept", "Build Version: a:b:c", DefaultVersionField, "a:b:c", true},
		{"missing line", "Binary Name: nym-node\n", DefaultVersionField, "", false},
		{"empty value", "Build Version:   \n", DefaultVersionField, "", false},
		{"empty output", "", DefaultVersionField, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := extractField(tt.output, tt.field)
			if ok != tt.wantOK {
				t.Fatalf("extractField() ok = %v, want %v", ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("extractField() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCommandVersionReader_Script(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping subprocess test in short mode")
	}

	bin := filepath.Join(t.TempDir(), "nym-node")
	writeScript(t, bin, `if [ "$1" = "--version" ]; then
  echo "Binary Name:        nym-node"
  echo "Build Version:      2025-01-20T14:45:00Z"
  exit 0
fi
exit 3`)

	got, err := NewVersionReader().Read(context.Background(), bin)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if got != "2025-01-20T14:45:00Z" {
		t.Errorf("Read() = %q, want 2025-01-20T14:45:00Z", got)
	}
}

func TestCommandVersionReader_ProcessFailure(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping subprocess test in short mode")
	}

	bin := filepath.Join(t.TempDir(), "nym-node")
	writeScript(t, bin, `echo "corrupted install" >&2
exit 1`)

	_, err := NewVersionReader().Read(context.Background(), bin)
	var pe *ProcessError
	if !errors.As(err, &pe) {
		t.Fatalf("Read() error = %v, want *ProcessError", err)
	}
	if pe.Output == "" {
		t.Error("ProcessError.Output should carry the command output")
	}
}

func TestCommandVersionReader_MissingBinary(t *testing.T) {
	_, err := NewVersionReader().Read(context.Background(), filepath.Join(t.TempDir(), "absent"))
	var pe *ProcessError
	if !errors.As(err, &pe) {
		t.Fatalf("Read() error = %v, want *ProcessError", err)
	}
}

func TestCommandVersionReader_Timeout(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping subprocess test in short mode")
	}

	bin := filepath.Join(t.TempDir(), "nym-node")
	writeScript(t, bin, "exec sleep 5")

	r := NewVersionReader(WithVersionTimeout(100 * time.Millisecond))
	_, err := r.Read(context.Background(), bin)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Read() error = %v, want deadline exceeded", err)
	}
}

func TestCommandVersionReader_ParseError(t *testing.T) {
	runner := &fakeRunner{outputs: map[string]string{"/opt/nym-node --version": "nym-node 1.0\n"}}
	r := NewVersionReader(WithReaderRunner(runner))

	_, err := r.Read(context.Background(), "/opt/nym-node")
	var vpe *VersionParseError
	if !errors.As(err, &vpe) {
		t.Fatalf("Read() error = %v, want *VersionParseError", err)
	}
	if vpe.Field != DefaultVersionField {
		t.Errorf("VersionParseError.Field = %q", vpe.Field)
	}
}

func TestCommandVersionReader_Options(t *testing.T) {
	runner := &fakeRunner{outputs: map[string]string{"/opt/nym-node -V": "Version: 7\n"}}
	r := NewVersionReader(
		WithReaderRunner(runner),
		WithVersionFlag("-V"),
		WithVersionField("Version:"),
	)

	got, err := r.Read(context.Background(), "/opt/nym-node")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if got != "7" {
		t.Errorf("Read() = %q, want 7", got)
	}
}
