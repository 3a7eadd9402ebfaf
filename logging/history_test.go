package logging

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryCopyIsIndependentOfSource(t *testing.T) {
	defer Reset()
	Reset()
	OverrideRoot(ERROR)

	snapshot := CurrentHistory()
	OverrideRoot(DEBUG)

	target := newRegistry()
	require.NoError(t, snapshot.Replay(target))
	assert.Equal(t, ERROR, target.effectiveLevel("anything"))
}

func TestHistoryClearEmptiesRecordedActions(t *testing.T) {
	defer Reset()
	Reset()
	OverrideRoot(ERROR)
	OverrideSections(map[string]Level{"runloop.queue": DEBUG})

	snapshot := CurrentHistory()
	snapshot.Clear()

	target := newRegistry()
	require.NoError(t, snapshot.Replay(target))
	assert.Equal(t, WARN, target.effectiveLevel("anything"))
}

func TestHistoryReplayAppliesInitFromFileAction(t *testing.T) {
	defer Reset()
	Reset()

	path := writeConfig(t, `
root:
  level: error
`)
	require.NoError(t, InitFromFile(path))

	snapshot := CurrentHistory()
	target := newRegistry()
	require.NoError(t, snapshot.Replay(target))
	assert.Equal(t, ERROR, target.effectiveLevel("anything"))
}

func TestHistoryFileRoundTripReproducesConfiguration(t *testing.T) {
	defer Reset()
	Reset()
	OverrideRoot(ERROR)
	OverrideSections(map[string]Level{"runloop.queue": DEBUG})

	path := filepath.Join(t.TempDir(), "history.gob")
	require.NoError(t, EncodeHistoryFile(CurrentHistory(), path))

	decoded, err := DecodeHistoryFile(path)
	require.NoError(t, err)

	target := newRegistry()
	require.NoError(t, decoded.Replay(target))
	assert.Equal(t, DEBUG, target.effectiveLevel("runloop.queue.managed"))
	assert.Equal(t, ERROR, target.effectiveLevel("anything"))
}
