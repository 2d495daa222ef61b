// -----------------------------------------------------------------------
// Preflight Checks
// -----------------------------------------------------------------------
//
// Package preflight verifies the host before any socket is opened. Two
// checks run in a fixed order: the process must run with superuser
// privileges, then the kernel's resource accounting (RACCT/RCTL) must be
// present and enabled. Without privilege the RCTL query may be denied, so
// privilege always comes first.
//
// Both checks are synchronous and fatal. There is no retry.
//
// -----------------------------------------------------------------------

package preflight

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
)

func logp() *slog.Logger { return slog.Default().With("component", "preflight") }

// ErrNotPrivileged is returned when the effective UID is not 0.
var ErrNotPrivileged = errors.New("jail-exporter must be run as root")

// -----------------------------------------------------------------------
// RCTL State
// -----------------------------------------------------------------------

// RctlState classifies the kernel's resource accounting support.
type RctlState int

const (
	// RctlEnabled means RACCT/RCTL is compiled in and enabled.
	RctlEnabled RctlState = iota

	// RctlDisabled means support is compiled in but kern.racct.enable=0.
	RctlDisabled

	// RctlJailed means the process is running inside a jail.
	RctlJailed

	// RctlNotPresent means the kernel was built without RACCT/RCTL, or
	// the host is not FreeBSD at all.
	RctlNotPresent
)

// String returns the human-readable name of the state.
func (s RctlState) String() string {
	switch s {
	case RctlEnabled:
		return "enabled"
	case RctlDisabled:
		return "disabled"
	case RctlJailed:
		return "jailed"
	case RctlNotPresent:
		return "not present"
	default:
		return "unknown"
	}
}

// Remedy returns the operator-facing explanation for a state that blocks
// startup. It is empty for RctlEnabled.
func (s RctlState) Remedy() string {
	switch s {
	case RctlEnabled:
		return ""
	case RctlDisabled:
		return "Present, but disabled; enable using kern.racct.enable=1 tunable"
	case RctlJailed:
		return "Jail Exporter cannot run within a jail"
	default:
		return "Support not present in kernel; see rctl(8) for details"
	}
}

// CapabilityError reports that RACCT/RCTL is not usable.
type CapabilityError struct {
	State RctlState
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("RACCT/RCTL unavailable: %s", e.State.Remedy())
}

// -----------------------------------------------------------------------
// Checker
// -----------------------------------------------------------------------

// Checker bundles the host checks so tests can substitute them.
type Checker struct {
	// EffectiveUID returns the process's effective user ID.
	EffectiveUID func() int

	// RctlState reports the kernel's RACCT/RCTL state.
	RctlState func() RctlState
}

// New returns a Checker probing the real host.
func New() *Checker {
	return &Checker{
		EffectiveUID: os.Geteuid,
		RctlState:    HostRctlState,
	}
}

// CheckPrivilege fails with ErrNotPrivileged unless running as root.
func (c *Checker) CheckPrivilege() error {
	logp().Debug("ensuring that we're running as root")

	if uid := c.EffectiveUID(); uid != 0 {
		logp().Debug("effective uid is not root", "euid", uid)
		return ErrNotPrivileged
	}
	return nil
}

// CheckRctl fails with a *CapabilityError unless RACCT/RCTL is enabled.
func (c *Checker) CheckRctl() error {
	logp().Debug("checking RACCT/RCTL status")

	state := c.RctlState()
	if state != RctlEnabled {
		return &CapabilityError{State: state}
	}
	return nil
}

// Run performs every check in order and returns the first failure.
func (c *Checker) Run() error {
	if err := c.CheckPrivilege(); err != nil {
		return err
	}
	return c.CheckRctl()
}
