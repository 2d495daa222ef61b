//go:build freebsd

package preflight

import "golang.org/x/sys/unix"

// HostRctlState reads the jail and racct sysctls. A missing
// kern.racct.enable means the kernel lacks RACCT entirely.
func HostRctlState() RctlState {
	return rctlStateFrom(func(name string) ([]byte, error) {
		return unix.SysctlRaw(name)
	})
}
