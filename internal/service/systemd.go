// Package service controls the systemd unit that runs the node binary.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/shirou/gopsutil/v4/process"

	"github.com/4nozen/NymNodeInstall/internal/update"
)

// Manager restarts and inspects one systemd unit.
type Manager struct {
	unit    string
	useSudo bool
	runner  update.CommandRunner
	log     *log.Logger

	// processNames lists the names of running processes.
	processNames func(ctx context.Context) ([]string, error)
}

// Option configures a Manager.
type Option func(*Manager)

// WithRunner sets the command runner used for sudo and systemctl.
func WithRunner(r update.CommandRunner) Option {
	return func(m *Manager) {
		if r != nil {
			m.runner = r
		}
	}
}

// WithSudo controls whether restart is prefixed with sudo.
func WithSudo(useSudo bool) Option {
	return func(m *Manager) { m.useSudo = useSudo }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// NewManager creates a manager for unit. Restart uses sudo unless disabled.
func NewManager(unit string, opts ...Option) *Manager {
	m := &Manager{
		unit:         unit,
		useSudo:      true,
		runner:       &update.DefaultCommandRunner{},
		log:          log.New(io.Discard),
		processNames: runningProcessNames,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Unit returns the managed unit name.
func (m *Manager) Unit() string {
	return m.unit
}

// Restart runs systemctl restart on the unit.
func (m *Manager) Restart(ctx context.Context) error {
	name, args := m.command("restart", m.unit)
	m.log.Debug("restarting unit", "cmd", name+" "+strings.Join(args, " "))

	out, err := m.runner.Run(ctx, name, args...)
	if err != nil {
		return fmt.Errorf("systemctl restart %s: %w: %s", m.unit, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// IsActive reports whether systemctl considers the unit active. A non-zero
// exit with a state on stdout (inactive, failed, ...) is a valid answer.
func (m *Manager) IsActive(ctx context.Context) (bool, error) {
	out, err := m.runner.Run(ctx, "systemctl", "is-active", m.unit)
	state := strings.TrimSpace(string(out))
	if state == "active" {
		return true, nil
	}
	if err != nil && state == "" {
		return false, fmt.Errorf("systemctl is-active %s: %w", m.unit, err)
	}
	return false, nil
}

// ProcessRunning reports whether a process with exactly this name is running.
func (m *Manager) ProcessRunning(ctx context.Context, name string) (bool, error) {
	if name == "" {
		return false, errors.New("process name is required")
	}
	names, err := m.processNames(ctx)
	if err != nil {
		return false, fmt.Errorf("listing processes: %w", err)
	}
	for _, n := range names {
		if n == name {
			return true, nil
		}
	}
	return false, nil
}

// command builds a systemctl invocation, prefixed with sudo when configured.
func (m *Manager) command(args ...string) (string, []string) {
	if m.useSudo {
		return "sudo", append([]string{"systemctl"}, args...)
	}
	return "systemctl", args
}

func runningProcessNames(ctx context.Context) ([]string, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(procs))
	for _, p := range procs {
		// Processes can exit between listing and inspection.
		name, err := p.NameWithContext(ctx)
		if err != nil {
			continue
		}
		names = append(names, name)
	}
	return names, nil
}
