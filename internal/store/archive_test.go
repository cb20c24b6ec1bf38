package store

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *Archive {
	t.Helper()
	a, err := Open(filepath.Join(t.TempDir(), "nested", "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestArchive_SaveGetList(t *testing.T) {
	a := openTemp(t)
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	first, err := a.Save(Run{Kind: "forecast", Provider: "all", Fingerprint: 0xdeadbeefcafe, Days: 30, TotalCost: 1234.5, CreatedAt: base},
		map[string]any{"trend": "stable"})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)

	_, err = a.Save(Run{Kind: "analysis", Provider: "alibaba", RangeStart: "2024-05-01", CreatedAt: base.Add(time.Hour)}, []int{1})
	require.NoError(t, err)

	got, err := a.Get(first.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(0xdeadbeefcafe), got.Fingerprint)
	assert.Equal(t, 1234.5, got.TotalCost)
	assert.True(t, base.Equal(got.CreatedAt))
	var payload map[string]string
	require.NoError(t, json.Unmarshal(got.Payload, &payload))
	assert.Equal(t, "stable", payload["trend"])

	all, err := a.List("", 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "analysis", all[0].Kind, "newest first")
	assert.Equal(t, "2024-05-01", all[0].RangeStart)
	assert.Nil(t, all[0].Payload)

	forecasts, err := a.List("forecast", 10)
	require.NoError(t, err)
	require.Len(t, forecasts, 1)
	assert.Equal(t, first.ID, forecasts[0].ID)
}

func TestArchive_GetMissing(t *testing.T) {
	_, err := openTemp(t).Get("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestArchive_Prune(t *testing.T) {
	a := openTemp(t)
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		_, err := a.Save(Run{Kind: "report", Provider: "all", CreatedAt: base.Add(time.Duration(i) * time.Minute)}, i)
		require.NoError(t, err)
	}
	n, err := a.Prune(2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	left, err := a.List("", 0)
	require.NoError(t, err)
	require.Len(t, left, 2)
	assert.True(t, left[0].CreatedAt.Equal(base.Add(4*time.Minute)))
}
