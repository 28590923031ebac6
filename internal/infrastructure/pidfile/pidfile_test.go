package pidfile

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireWritesOwnPID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dispatchd.pid")
	pf := New(path)

	require.NoError(t, pf.Acquire())
	defer pf.Release()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("%d\n", os.Getpid()), string(data))
}

func TestAcquireRefusesWhileOwnerIsAlive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dispatchd.pid")

	// The current test process acts as the live owner.
	require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf("%d\n", os.Getpid())), 0644))

	err := New(path).Acquire()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already running")
}

func TestAcquireReplacesStalePID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dispatchd.pid")

	// A PID above the Linux pid_max ceiling is reliably dead.
	require.NoError(t, os.WriteFile(path, []byte("99999999\n"), 0644))

	pf := New(path)
	require.NoError(t, pf.Acquire())
	defer pf.Release()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("%d\n", os.Getpid()), string(data))
}

func TestAcquireIgnoresGarbledFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dispatchd.pid")
	require.NoError(t, os.WriteFile(path, []byte("not a pid"), 0644))

	pf := New(path)
	require.NoError(t, pf.Acquire())
	defer pf.Release()
}

func TestReleaseTwiceIsSafe(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dispatchd.pid")
	pf := New(path)

	require.NoError(t, pf.Acquire())
	require.NoError(t, pf.Release())
	require.NoError(t, pf.Release())
}

func TestKillExistingOnDeadOwnerCleansUp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dispatchd.pid")
	require.NoError(t, os.WriteFile(path, []byte("99999999\n"), 0644))

	require.NoError(t, New(path).KillExisting())

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}
