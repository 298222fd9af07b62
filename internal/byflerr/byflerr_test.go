package byflerr

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsDistinguishesKinds(t *testing.T) {
	err := Config("include and exclude lists are both non-empty")
	require.True(t, Is(err, KindConfig))
	require.False(t, Is(err, KindIo))
}

func TestWrapPreservesKindAndCause(t *testing.T) {
	cause := Io("short write: wrote %d of %d bytes", 3, 10)
	wrapped := Wrap(KindIo, cause, "flushing table header")
	require.True(t, Is(wrapped, KindIo))
	require.ErrorIs(t, wrapped, cause)
}

func TestWrapOnNilReturnsNil(t *testing.T) {
	require.NoError(t, Wrap(KindInternal, nil, "should not appear"))
}
