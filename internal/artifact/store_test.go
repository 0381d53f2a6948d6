package artifact

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Write_VersionPerKind(t *testing.T) {
	s := NewStore()

	a1, err := s.Write(KindPlan, "plan.md", "v1 plan", "planner")
	require.NoError(t, err)
	assert.Equal(t, 1, a1.Version)

	// A different kind starts its own version sequence.
	c1, err := s.Write(KindCode, "code.tsx", "v1 code", "coder")
	require.NoError(t, err)
	assert.Equal(t, 1, c1.Version)

	// Overwriting the same path still increases the version: the path holds
	// only the latest version, so the per-kind count stays at one and the
	// computed version would repeat without the overwrite-in-place rule.
	c2, err := s.Write(KindCode, "code.tsx", "v2 code", "coder")
	require.NoError(t, err)
	assert.Equal(t, 2, c2.Version)

	got, ok := s.Get("code.tsx")
	require.True(t, ok)
	assert.Equal(t, "v2 code", got.Content)

	// A fresh path of the same kind falls back to the per-kind count.
	c3, err := s.Write(KindCode, "util.ts", "helper", "coder")
	require.NoError(t, err)
	assert.Equal(t, 2, c3.Version)
}

func TestStore_Write_MonotonicVersions(t *testing.T) {
	s := NewStore()

	var last int
	for i := 0; i < 5; i++ {
		a, err := s.Write(KindCode, "code.tsx", "code", "coder")
		require.NoError(t, err)
		assert.Greater(t, a.Version, last)
		last = a.Version
	}
}

func TestStore_Write_Invalid(t *testing.T) {
	s := NewStore()

	_, err := s.Write(Kind("binary"), "a.out", "", "coder")
	assert.Error(t, err)

	_, err = s.Write(KindCode, "", "content", "coder")
	assert.Error(t, err)
}

func TestStore_Latest(t *testing.T) {
	s := NewStore()

	_, err := s.Write(KindPlan, "plan.md", "first", "planner")
	require.NoError(t, err)
	_, err = s.Write(KindPlan, "plan-v2.md", "second", "planner")
	require.NoError(t, err)

	latest, ok := s.Latest(KindPlan)
	require.True(t, ok)
	assert.Equal(t, "plan-v2.md", latest.Path)
	assert.Equal(t, 2, latest.Version)

	_, ok = s.Latest(KindTest)
	assert.False(t, ok)
}

func TestStore_SnapshotIsIndependent(t *testing.T) {
	s := NewStore()
	_, err := s.Write(KindCode, "code.tsx", "original", "coder")
	require.NoError(t, err)

	snap := s.Snapshot()
	s.Clear()

	assert.Equal(t, 0, s.Len())
	assert.Equal(t, "original", snap["code.tsx"].Content)
}

func TestStore_ClearAndPaths(t *testing.T) {
	s := NewStore()
	_, err := s.Write(KindPlan, "plan.md", "p", "planner")
	require.NoError(t, err)
	_, err = s.Write(KindCode, "code.tsx", "c", "coder")
	require.NoError(t, err)

	assert.Equal(t, []string{"code.tsx", "plan.md"}, s.Paths())

	s.Clear()
	assert.Empty(t, s.Paths())
	assert.Equal(t, "no artifacts yet", s.Summary())
}
