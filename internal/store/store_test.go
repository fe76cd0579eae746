package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bopokit/internal/override"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "data", "overrides.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenCreatesParentDirectory(t *testing.T) {
	s := openTestStore(t)
	records, err := s.LoadObservations()
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	s := openTestStore(t)
	base := time.Unix(1700000000, 0)

	in := []override.Record{
		{Signature: "(),(),(ㄋㄧˇ)", Value: "妳", Count: 3, Timestamp: base},
		{Signature: "(),(),(ㄋㄧˇ)", Value: "你", Count: 1, Timestamp: base.Add(time.Minute)},
		{Signature: "(),(),(ㄕˋ)", Value: "事", Count: 2, Timestamp: base.Add(2 * time.Minute)},
	}
	require.NoError(t, s.SaveObservations(in))

	out, err := s.LoadObservations()
	require.NoError(t, err)
	assert.Equal(t, in, out, "rows come back oldest first")
}

func TestSaveReplacesPreviousSnapshot(t *testing.T) {
	s := openTestStore(t)
	base := time.Unix(1700000000, 0)

	require.NoError(t, s.SaveObservations([]override.Record{
		{Signature: "(),(),(ㄇㄚ)", Value: "媽", Count: 5, Timestamp: base},
	}))
	require.NoError(t, s.SaveObservations([]override.Record{
		{Signature: "(),(),(ㄏㄠˇ)", Value: "好", Count: 1, Timestamp: base},
	}))

	out, err := s.LoadObservations()
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "(),(),(ㄏㄠˇ)", out[0].Signature)
}

func TestRoundTripThroughModel(t *testing.T) {
	s := openTestStore(t)
	base := time.Unix(1700000000, 0)

	require.NoError(t, s.SaveObservations([]override.Record{
		{Signature: "(),(),(ㄋㄧˇ)", Value: "妳", Count: 2, Timestamp: base},
	}))

	records, err := s.LoadObservations()
	require.NoError(t, err)

	m := override.NewModel(0, 0)
	m.Import(records)
	assert.Equal(t, 1, m.Len())

	exported := m.Export()
	require.Len(t, exported, 1)
	assert.Equal(t, records[0], exported[0])
}
