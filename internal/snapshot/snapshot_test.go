package snapshot

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validValues(t *testing.T) []string {
	t.Helper()
	values := make([]string, len(Registry))
	for i := range Registry {
		values[i] = "v" + Registry[i].Name
	}
	return values
}

func TestNew_RejectsWrongArity(t *testing.T) {
	_, err := New(true, []string{"only-one"})
	require.Error(t, err)
}

func TestNew_CopiesValues(t *testing.T) {
	values := validValues(t)
	snap, err := New(true, values)
	require.NoError(t, err)

	values[0] = "mutated"
	assert.NotEqual(t, "mutated", snap.Values[0])
}

func TestEncode_IsDeterministic(t *testing.T) {
	snap, err := New(true, validValues(t))
	require.NoError(t, err)

	assert.Equal(t, snap.Encode(), snap.Encode())
}

func TestEncode_LeadsWithSuccessFlag(t *testing.T) {
	snap, err := New(false, validValues(t))
	require.NoError(t, err)

	lines := strings.Split(string(snap.Encode()), "\n")
	assert.Equal(t, "GIT_RETRIEVED_STATE=false", lines[0])
	// One line per property plus the flag line and a trailing newline.
	assert.Len(t, lines, len(Registry)+2)
}

func TestEncode_SurvivesHostileValues(t *testing.T) {
	values := validValues(t)
	values[len(values)-1] = "subject with \"quotes\"\nand a newline"
	snap, err := New(true, values)
	require.NoError(t, err)

	// The hostile value must stay on a single encoded line.
	lines := strings.Split(strings.TrimSuffix(string(snap.Encode()), "\n"), "\n")
	assert.Len(t, lines, len(Registry)+1)
}

func TestDegraded_AllSentinels(t *testing.T) {
	snap := Degraded()
	require.False(t, snap.RetrievedState)
	for i, p := range Registry {
		assert.Equal(t, p.Sentinel, snap.Values[i], p.Name)
	}
}

func TestBindings_IncludeSuccessFlagAndAllProperties(t *testing.T) {
	snap, err := New(true, validValues(t))
	require.NoError(t, err)

	b := snap.Bindings()
	assert.Equal(t, "true", b["GIT_RETRIEVED_STATE"])
	for i, p := range Registry {
		assert.Equal(t, snap.Values[i], b[p.Name])
	}
	assert.Len(t, b, len(Registry)+1)
}

func TestHasChanged_AbsentPersistedState(t *testing.T) {
	snap, err := New(true, validValues(t))
	require.NoError(t, err)

	assert.True(t, HasChanged(snap, nil, false))
}

func TestHasChanged_IdenticalSnapshots(t *testing.T) {
	snap, err := New(true, validValues(t))
	require.NoError(t, err)

	assert.False(t, HasChanged(snap, snap.Encode(), true))
}

func TestHasChanged_AnySinglePropertyDifference(t *testing.T) {
	base, err := New(true, validValues(t))
	require.NoError(t, err)
	persisted := base.Encode()

	for i := range Registry {
		values := validValues(t)
		values[i] = values[i] + "-changed"
		other, err := New(true, values)
		require.NoError(t, err)
		assert.True(t, HasChanged(other, persisted, true), Registry[i].Name)
	}
}

func TestHasChanged_SuccessFlagAlone(t *testing.T) {
	known, err := New(true, validValues(t))
	require.NoError(t, err)
	unknown, err := New(false, validValues(t))
	require.NoError(t, err)

	// A transition from unknown to known state is itself a change.
	assert.True(t, HasChanged(known, unknown.Encode(), true))
}
