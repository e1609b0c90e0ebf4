package infra

import (
	"errors"
	"os"
	"testing"

	"github.com/shirou/gopsutil/v3/process"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchProcessName(t *testing.T) {
	tests := []struct {
		actual, want string
		match        bool
	}{
		{"code", "code", true},
		{"Code", "code", true},
		{"devenv.exe", "devenv", true},
		{"DEVENV.EXE", "devenv", true},
		{"devenv", "devenv.exe", true},
		{"code-insiders", "code", false},
		{".exe", ".exe", true},
		{"codex", "code", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.match, MatchProcessName(tt.actual, tt.want), "%q vs %q", tt.actual, tt.want)
	}
}

func TestProcessPresence_FindsSelf(t *testing.T) {
	self, err := process.NewProcess(int32(os.Getpid()))
	require.NoError(t, err)
	name, err := self.Name()
	require.NoError(t, err)

	pp := NewProcessPresence()
	running, err := pp.IsRunning(name)
	require.NoError(t, err)
	assert.True(t, running)

	found, err := pp.FindByName(name)
	require.NoError(t, err)
	pids := make([]int32, 0, len(found))
	for _, p := range found {
		pids = append(pids, p.Pid)
	}
	assert.Contains(t, pids, int32(os.Getpid()))
}

func TestProcessPresence_NotRunning(t *testing.T) {
	pp := NewProcessPresence()

	running, err := pp.IsRunning("cttrack-no-such-process")
	require.NoError(t, err)
	assert.False(t, running)

	n, err := pp.Terminate("cttrack-no-such-process")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestProcessPresence_ListError(t *testing.T) {
	pp := &ProcessPresenceImpl{list: func() ([]*process.Process, error) {
		return nil, errors.New("proc not mounted")
	}}

	_, err := pp.IsRunning("code")
	assert.Error(t, err)

	_, err = pp.Terminate("code")
	assert.Error(t, err)
}
