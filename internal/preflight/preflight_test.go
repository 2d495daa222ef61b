// -----------------------------------------------------------------------------
// Preflight Checks - Tests
// -----------------------------------------------------------------------------
//
// The host checks are swapped for stubs so the ordering and the four-way
// RCTL classification can be exercised on any OS and without root.
//
// -----------------------------------------------------------------------------

package preflight

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubChecker(uid int, state RctlState, rctlCalls *int) *Checker {
	return &Checker{
		EffectiveUID: func() int { return uid },
		RctlState: func() RctlState {
			if rctlCalls != nil {
				*rctlCalls++
			}
			return state
		},
	}
}

// -----------------------------------------------------------------------------
// Privilege Tests
// -----------------------------------------------------------------------------

func TestCheckPrivilege(t *testing.T) {
	assert.NoError(t, stubChecker(0, RctlEnabled, nil).CheckPrivilege())
	assert.ErrorIs(t, stubChecker(1001, RctlEnabled, nil).CheckPrivilege(), ErrNotPrivileged)
}

// TestRunChecksPrivilegeFirst verifies the RCTL check is never consulted
// when privilege is missing.
func TestRunChecksPrivilegeFirst(t *testing.T) {
	calls := 0
	err := stubChecker(1001, RctlDisabled, &calls).Run()

	require.ErrorIs(t, err, ErrNotPrivileged)
	assert.Zero(t, calls, "RCTL check must not run without privilege")
}

// -----------------------------------------------------------------------------
// RCTL State Tests
// -----------------------------------------------------------------------------

func TestCheckRctlStates(t *testing.T) {
	tests := []struct {
		state      RctlState
		shouldErr  bool
		wantRemedy string
	}{
		{RctlEnabled, false, ""},
		{RctlDisabled, true, "kern.racct.enable=1"},
		{RctlJailed, true, "cannot run within a jail"},
		{RctlNotPresent, true, "rctl(8)"},
	}

	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			err := stubChecker(0, tt.state, nil).Run()

			if !tt.shouldErr {
				require.NoError(t, err)
				return
			}

			var cerr *CapabilityError
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, tt.state, cerr.State)
			assert.Contains(t, err.Error(), tt.wantRemedy)
		})
	}
}

// TestRemediesAreDistinct verifies no two failing states share a message.
func TestRemediesAreDistinct(t *testing.T) {
	seen := map[string]RctlState{}
	for _, s := range []RctlState{RctlDisabled, RctlJailed, RctlNotPresent} {
		remedy := s.Remedy()
		assert.NotEmpty(t, remedy, "state %s has no remedy", s)

		prev, dup := seen[remedy]
		assert.False(t, dup, "states %s and %s share remedy %q", prev, s, remedy)
		seen[remedy] = s
	}
}

func TestNewUsesHostProbes(t *testing.T) {
	c := New()

	assert.NotNil(t, c.EffectiveUID)
	assert.NotNil(t, c.RctlState)
}
