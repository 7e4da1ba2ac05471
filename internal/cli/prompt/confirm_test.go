package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfirmWithForceShortCircuits(t *testing.T) {
	ok, err := ConfirmWithForce("clear all table entries", true)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestErrAbortedIsDistinctError(t *testing.T) {
	assert.EqualError(t, ErrAborted, "aborted")
}
