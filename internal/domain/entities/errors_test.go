package entities

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUnstableTaskError(t *testing.T) {
	assert.Nil(t, NewUnstableTaskError(nil, nil))

	a, b := errors.New("a"), errors.New("b")
	err := NewUnstableTaskError(a, nil, b)
	require.NotNil(t, err)
	assert.Len(t, err.Errs, 2)
	assert.Equal(t, "unstable (2 failures): a; b", err.Error())
	assert.ErrorIs(t, err, b)
}

func TestConfigurationError(t *testing.T) {
	cause := errors.New("no such file")
	err := fmt.Errorf("loading: %w", NewConfigurationError("missing BOM manifest", cause))

	assert.ErrorIs(t, err, ErrConfiguration)
	assert.ErrorIs(t, err, cause)
	assert.EqualError(t, err, "loading: configuration error: missing BOM manifest: no such file")

	bare := NewConfigurationError("releaseTrain.url is required", nil)
	assert.ErrorIs(t, bare, ErrConfiguration)
	assert.Equal(t, "configuration error: releaseTrain.url is required", bare.Error())
}

func TestResolutionError(t *testing.T) {
	var err error = &ResolutionError{Project: "core", Reason: "not in the BOM"}
	assert.ErrorIs(t, err, ErrResolution)
	assert.NotErrorIs(t, err, ErrConfiguration)
	assert.Equal(t, "resolution error for core: not in the BOM", err.Error())
}

func TestFatalTaskError(t *testing.T) {
	cause := errors.New("exit status 1")
	var err error = &FatalTaskError{Task: "build", Err: cause}
	assert.ErrorIs(t, err, cause)
	assert.False(t, IsUnstable(err))
	assert.Equal(t, `task "build" failed: exit status 1`, err.Error())

	var fatal *FatalTaskError
	require.ErrorAs(t, fmt.Errorf("project alpha: %w", err), &fatal)
	assert.Equal(t, "build", fatal.Task)
}

func TestIsUnstable(t *testing.T) {
	unstable := NewUnstableTaskError(errors.New("milestone not found"))
	assert.True(t, IsUnstable(fmt.Errorf("close-milestone: %w", unstable)))
	assert.False(t, IsUnstable(errors.New("plain")))
	assert.False(t, IsUnstable(nil))
}
