package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dkeye/Chat/internal/core"
)

func TestRegistry_UnbindExactlyOnce(t *testing.T) {
	f := newFixture(t, "alice", "bob")
	s := core.NewMemberSession("s1", f.user(t, "alice"), f.user(t, "bob"), &recordingConn{})
	reg := NewRegistry()

	_, cancel := context.WithCancel(context.Background())
	reg.Bind(s, cancel)
	require.Equal(t, 1, reg.Len())

	got, ok := reg.GetSession("s1")
	require.True(t, ok)
	require.Equal(t, s, got)
	require.Len(t, reg.Sessions(), 1)

	got, c, ok := reg.Unbind("s1")
	require.True(t, ok)
	require.NotNil(t, c)
	require.Equal(t, s, got)

	_, _, ok = reg.Unbind("s1")
	require.False(t, ok)
	require.Equal(t, 0, reg.Len())
}
