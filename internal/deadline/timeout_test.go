package deadline

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
)

func TestConnectTimeoutBoundedByTotal(t *testing.T) {
	mc := clock.NewMock()
	to := Timeout{Connect: 10 * time.Second, Read: Unset(), Total: 3 * time.Second}
	d := to.Start(mc)

	dur, ok := d.ConnectTimeout()
	assert.True(t, ok)
	assert.Equal(t, 3*time.Second, dur)
}

func TestReadTimeoutUsesRemainingTotalAfterElapsed(t *testing.T) {
	mc := clock.NewMock()
	to := Timeout{Connect: Unset(), Read: 5 * time.Second, Total: 4 * time.Second}
	d := to.Start(mc)

	mc.Add(2 * time.Second)
	dur, ok := d.ReadTimeout()
	assert.True(t, ok)
	assert.Equal(t, 2*time.Second, dur)
}

func TestNoDeadlineWhenBothUnset(t *testing.T) {
	mc := clock.NewMock()
	to := Timeout{Connect: Unset(), Read: Unset(), Total: Unset()}
	d := to.Start(mc)

	_, ok := d.ReadTimeout()
	assert.False(t, ok)
	assert.Nil(t, d.TotalRemaining())
}

func TestExpiredAfterTotalElapses(t *testing.T) {
	mc := clock.NewMock()
	to := Timeout{Total: 1 * time.Second}
	d := to.Start(mc)
	assert.False(t, d.Expired())
	mc.Add(2 * time.Second)
	assert.True(t, d.Expired())
}

func TestDeadlineNotRestartedAcrossAttempts(t *testing.T) {
	mc := clock.NewMock()
	to := Timeout{Total: 5 * time.Second}
	d1 := to.Start(mc)
	mc.Add(4 * time.Second)
	rem := d1.TotalRemaining()
	assert.Equal(t, 1*time.Second, *rem)

	// A fresh Timeout.Start produces an independent deadline — simulating
	// the retry controller explicitly choosing to reset the budget rather
	// than it happening implicitly.
	d2 := to.Start(mc)
	rem2 := d2.TotalRemaining()
	assert.Equal(t, 5*time.Second, *rem2)
}
