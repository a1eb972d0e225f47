package meadow

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStatuses map[AssetId]LoadStatus

var errDecode = errors.New("decode failed")

func (f fakeStatuses) Status(id AssetId) (LoadStatus, error) {
	s := f[id]
	if s == LoadFailed {
		return s, errDecode
	}
	return s, nil
}

func TestSuspense_ResolvesOnce(t *testing.T) {
	statuses := fakeStatuses{"mesh": LoadPending, "tex": LoadReady}
	s := NewSuspense("mesh", "tex")

	ok, err := s.Check(statuses)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, s.Resolved())

	statuses["mesh"] = LoadReady
	ok, err = s.Check(statuses)
	require.NoError(t, err)
	assert.True(t, ok)

	// Never reverts, whatever the source reports afterwards.
	statuses["mesh"] = LoadPending
	ok, err = s.Check(statuses)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, s.Resolved())
}

func TestSuspense_Failure(t *testing.T) {
	s := NewSuspense("mesh")
	ok, err := s.Check(fakeStatuses{"mesh": LoadFailed})
	assert.False(t, ok)
	assert.ErrorIs(t, err, errDecode)
	assert.False(t, s.Resolved())
}

func TestSuspense_NoDependencies(t *testing.T) {
	ok, err := NewSuspense().Check(fakeStatuses{})
	require.NoError(t, err)
	assert.True(t, ok)
}
