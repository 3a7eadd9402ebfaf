package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagedPutOutsideScopeIsProgrammingError(t *testing.T) {
	t.Parallel()

	q := NewIntra[int]("jobs", 0)
	err := q.Put(1)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "jobs")
}

func TestManagedPutGetRoundTrip(t *testing.T) {
	t.Parallel()

	q := NewIntra[int]("jobs", 0).Enter()
	defer q.Exit()

	require.NoError(t, q.Put(42))
	v, ok := q.Get(time.Second)
	require.True(t, ok)
	assert.Equal(t, 42, v)
}

func TestManagedGetTimesOutWhenEmpty(t *testing.T) {
	t.Parallel()

	q := NewIntra[int]("jobs", 0).Enter()
	defer q.Exit()

	_, ok := q.Get(10 * time.Millisecond)
	assert.False(t, ok)
}

func TestManagedGetAlwaysFailsAfterExit(t *testing.T) {
	t.Parallel()

	q := NewIntra[int]("jobs", 0).Enter()
	require.NoError(t, q.Put(1))
	q.Exit()

	_, ok := q.Get(10 * time.Millisecond)
	assert.False(t, ok)
}

func TestManagedTransportKind(t *testing.T) {
	t.Parallel()

	q := NewIntra[int]("jobs", 0)
	assert.Equal(t, Intra, q.TransportKind())
}
