package workspace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkspaceIDDeterministic(t *testing.T) {
	a := WorkspaceID("/home/dev/project")
	b := WorkspaceID("/home/dev/project")
	assert.Equal(t, a, b)
	assert.Len(t, a, 16)
	assert.Regexp(t, "^[0-9a-f]{16}$", a)

	assert.Equal(t, a, WorkspaceID("/home/dev/project/"), "trailing slash is cleaned")
	assert.Equal(t, a, WorkspaceID("  /home/dev/project  "), "surrounding whitespace is trimmed")
	assert.NotEqual(t, a, WorkspaceID("/home/dev/other"))
}

func TestNewResolver(t *testing.T) {
	r, err := NewResolver("")
	require.NoError(t, err)
	assert.Equal(t, ModeIsolated, r.Mode(), "empty mode defaults to isolated")

	for _, mode := range []Mode{ModeIsolated, ModeGlobal, ModeHybrid} {
		r, err := NewResolver(mode)
		require.NoError(t, err)
		assert.Equal(t, mode, r.Mode())
	}

	_, err = NewResolver("federated")
	require.Error(t, err)
}

func TestPrefix(t *testing.T) {
	assert.Equal(t, "ws:abc123", Prefix("abc123", false))
	assert.Equal(t, "global", Prefix("abc123", true))
}

func TestReadPrefixes(t *testing.T) {
	isolated, _ := NewResolver(ModeIsolated)
	assert.Equal(t, []string{"ws:id1"}, isolated.ReadPrefixes("id1"))

	global, _ := NewResolver(ModeGlobal)
	assert.Equal(t, []string{"global"}, global.ReadPrefixes("id1"))

	hybrid, _ := NewResolver(ModeHybrid)
	assert.Equal(t, []string{"ws:id1", "global"}, hybrid.ReadPrefixes("id1"), "workspace namespace first")
}

func TestInScope(t *testing.T) {
	isolated, _ := NewResolver(ModeIsolated)
	assert.True(t, isolated.InScope(false))
	assert.False(t, isolated.InScope(true))

	global, _ := NewResolver(ModeGlobal)
	assert.False(t, global.InScope(false))
	assert.True(t, global.InScope(true))

	hybrid, _ := NewResolver(ModeHybrid)
	assert.True(t, hybrid.InScope(false))
	assert.True(t, hybrid.InScope(true))
}

func TestKeyShapes(t *testing.T) {
	ws := Prefix("abc123", false)

	assert.Equal(t, "ws:abc123:memory:m1", MemoryKey(ws, "m1"))
	assert.Equal(t, "ws:abc123:memories:timeline", TimelineKey(ws))
	assert.Equal(t, "ws:abc123:memory:m1:versions", VersionsKey(ws, "m1"))
	assert.Equal(t, "global:memory:m1", MemoryKey(GlobalNamespace, "m1"))
	assert.Equal(t, "global:memories:timeline", TimelineKey(GlobalNamespace))

	assert.Equal(t, "ws:abc123:memories:type:decision", TypeIndexKey(ws, "decision"))
	assert.Equal(t, "ws:abc123:memories:tag:infra", TagIndexKey(ws, "infra"))
	assert.Equal(t, "ws:abc123:memories:category:ops", CategoryIndexKey(ws, "ops"))

	assert.Equal(t, "ws:abc123:relationship:r1", RelationshipKey(ws, "r1"))
	assert.Equal(t, "ws:abc123:memory:m1:relations:out", RelationsOutKey(ws, "m1"))
	assert.Equal(t, "ws:abc123:memory:m1:relations:in", RelationsInKey(ws, "m1"))

	assert.Equal(t, "ws:abc123:workflow:active", ActiveWorkflowKey(ws))
	assert.Equal(t, "ws:abc123:workflow:w1", WorkflowKey(ws, "w1"))
	assert.Equal(t, "ws:abc123:workflow:w1:memories", WorkflowMemoriesKey(ws, "w1"))

	assert.Equal(t, "ws:abc123:session:s1", SessionKey(ws, "s1"))
	assert.Equal(t, "ws:abc123:sessions", SessionsKey(ws))
}
