package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// These tests exercise the process-wide registry and so cannot run in
// parallel with each other; each resets state on the way out.

func TestEffectiveLevelFallsBackToRoot(t *testing.T) {
	defer Reset()
	Reset()
	OverrideRoot(ERROR)

	assert.Equal(t, ERROR, EffectiveLevel("runloop.queue"))
}

func TestEffectiveLevelPrefersLongestMatchingSection(t *testing.T) {
	defer Reset()
	Reset()
	OverrideSections(map[string]Level{
		"runloop":       WARN,
		"runloop.queue": DEBUG,
	})

	assert.Equal(t, DEBUG, EffectiveLevel("runloop.queue.managed"))
	assert.Equal(t, WARN, EffectiveLevel("runloop.remote"))
}

func TestOverrideGlobalLevelAppliesToRootAndSections(t *testing.T) {
	defer Reset()
	Reset()
	OverrideSections(map[string]Level{"runloop.queue": DEBUG})
	OverrideGlobalLevel(ERROR)

	assert.Equal(t, ERROR, EffectiveLevel("runloop.queue"))
	assert.Equal(t, ERROR, EffectiveLevel("anything.else"))
}

func TestHistoryReplayReproducesConfiguration(t *testing.T) {
	defer Reset()
	Reset()
	OverrideRoot(ERROR)
	OverrideSections(map[string]Level{"runloop.queue": DEBUG})

	snapshot := CurrentHistory()
	Reset()
	assert.Equal(t, WARN, EffectiveLevel("runloop.queue"))

	assert.NoError(t, RestoreHistory(snapshot))
	assert.Equal(t, DEBUG, EffectiveLevel("runloop.queue"))
	assert.Equal(t, ERROR, EffectiveLevel("runloop.remote"))
}
