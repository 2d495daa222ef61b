package preflight

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
)

// Sysctl OIDs consulted by HostRctlState.
const (
	sysctlJailed      = "security.jail.jailed"
	sysctlRacctEnable = "kern.racct.enable"
)

// rctlStateFrom classifies RACCT/RCTL support from raw sysctl values. read
// returns the value bytes of the named OID; an error matching
// fs.ErrNotExist (ENOENT) means the OID is absent from the kernel.
func rctlStateFrom(read func(name string) ([]byte, error)) RctlState {
	if jailed, err := readFlag(read, sysctlJailed); err == nil && jailed {
		return RctlJailed
	}

	enabled, err := readFlag(read, sysctlRacctEnable)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return RctlNotPresent
	case err != nil:
		logp().Warn("unable to read sysctl", "name", sysctlRacctEnable, "err", err)
		return RctlNotPresent
	case enabled:
		return RctlEnabled
	default:
		return RctlDisabled
	}
}

// readFlag decodes a boolean sysctl. kern.racct.enable is a 1-byte bool on
// current kernels and a 4-byte int on older ones; any non-zero value is
// true.
func readFlag(read func(string) ([]byte, error), name string) (bool, error) {
	b, err := read(name)
	if err != nil {
		return false, err
	}

	switch len(b) {
	case 1:
		return b[0] != 0, nil
	case 4:
		return binary.NativeEndian.Uint32(b) != 0, nil
	default:
		return false, fmt.Errorf("sysctl %s: unexpected value size %d", name, len(b))
	}
}
