//go:build !freebsd

package preflight

// HostRctlState always reports RctlNotPresent: RACCT/RCTL is FreeBSD only.
func HostRctlState() RctlState {
	return RctlNotPresent
}
