// Package types provides type-safe constants shared by the updater packages.
//
// This package centralizes the enumerated values used throughout the codebase,
// replacing magic strings with typed constants that provide compile-time safety
// and validation methods.
//
// SYNC REQUIREMENT: SwapMode values must stay in sync with:
//   - internal/config/validate.go (runtime validation)
//   - internal/update/swap.go (swapper selection)
package types

import (
	"fmt"
	"strings"
)

// State is a step of the update workflow.
type State string

const (
	// StateCompared means both versions are known and have been compared.
	StateCompared State = "compared"
	// StateUpToDate means the installed binary is as new as the release.
	StateUpToDate State = "up-to-date"
	// StateOlder means the downloaded binary reports an older version than the installed one.
	StateOlder State = "older"
	// StateUpdateAvailable means the downloaded binary is newer.
	StateUpdateAvailable State = "update-available"
	// StateDeclined means the operator refused the update.
	StateDeclined State = "declined"
	// StateBackingUp means the installed binary is being copied to the backup path.
	StateBackingUp State = "backing-up"
	// StateSwapping means the canonical path is being replaced.
	StateSwapping State = "swapping"
	// StateSwapped means the canonical path holds the new binary.
	StateSwapped State = "swapped"
	// StateRestarting means the managed unit is being restarted.
	StateRestarting State = "restarting"
	// StateDone means the update completed.
	StateDone State = "done"
)

// AllStates returns every workflow state in declaration order.
func AllStates() []State {
	return []State{
		StateCompared, StateUpToDate, StateOlder, StateUpdateAvailable, StateDeclined,
		StateBackingUp, StateSwapping, StateSwapped, StateRestarting, StateDone,
	}
}

// Validate checks if the State is a known value.
func (s State) Validate() error {
	for _, known := range AllStates() {
		if s == known {
			return nil
		}
	}
	if s == "" {
		return fmt.Errorf("state is required")
	}
	return fmt.Errorf("invalid state '%s'", s)
}

// String returns the string representation of the State.
func (s State) String() string {
	return string(s)
}

// IsTerminal returns true if the workflow stops in this state.
func (s State) IsTerminal() bool {
	switch s {
	case StateUpToDate, StateOlder, StateDeclined, StateDone:
		return true
	default:
		return false
	}
}

// Mutated returns true if reaching this state implies the canonical path was rewritten.
func (s State) Mutated() bool {
	switch s {
	case StateSwapped, StateRestarting, StateDone:
		return true
	default:
		return false
	}
}

// SwapMode selects how the canonical binary is written.
type SwapMode string

const (
	// SwapModeAuto writes directly when the target directory is writable, otherwise through sudo.
	SwapModeAuto SwapMode = "auto"
	// SwapModeDirect writes in-process.
	SwapModeDirect SwapMode = "direct"
	// SwapModeSudo writes through sudo cp/mv.
	SwapModeSudo SwapMode = "sudo"
)

// AllSwapModes returns all valid swap modes.
func AllSwapModes() []SwapMode {
	return []SwapMode{SwapModeAuto, SwapModeDirect, SwapModeSudo}
}

// Validate checks if the SwapMode is a valid value.
func (m SwapMode) Validate() error {
	switch m {
	case SwapModeAuto, SwapModeDirect, SwapModeSudo:
		return nil
	case "":
		return fmt.Errorf("swap mode is required")
	default:
		return fmt.Errorf("invalid swap mode '%s' (must be auto, direct, or sudo)", m)
	}
}

// String returns the string representation of the SwapMode.
func (m SwapMode) String() string {
	return string(m)
}

// ParseSwapMode parses a string into a SwapMode.
// Returns an error if the string is not a valid swap mode.
func ParseSwapMode(s string) (SwapMode, error) {
	m := SwapMode(strings.ToLower(strings.TrimSpace(s)))
	if err := m.Validate(); err != nil {
		return "", err
	}
	return m, nil
}
