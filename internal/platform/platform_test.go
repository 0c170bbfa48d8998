//go:build linux || darwin

package platform

import (
	"os/exec"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKillChildProcess(t *testing.T) {
	cmd := exec.Command("sleep", "30")
	require.NoError(t, cmd.Start())

	require.NoError(t, Kill(New(), int32(cmd.Process.Pid)))

	err := cmd.Wait()
	require.Error(t, err)
	status, ok := cmd.ProcessState.Sys().(syscall.WaitStatus)
	require.True(t, ok)
	assert.Equal(t, syscall.SIGKILL, status.Signal())
}

func TestSignalRejectsGroupPids(t *testing.T) {
	assert.Error(t, Terminate(New(), 0))
	assert.Error(t, New().Signal(-1, syscall.SIGTERM))
}
