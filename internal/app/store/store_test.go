package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriceLifecycle(t *testing.T) {
	st := New()
	epoch := st.BeginPriceEpoch([]string{"k"})

	require.True(t, st.MarkPriceLoading(epoch, "k"))
	entry, ok := st.Price("k")
	require.True(t, ok)
	assert.Equal(t, StatusLoading, entry.Status)

	require.True(t, st.SetPrice(epoch, "k", 42.5))
	entry, _ = st.Price("k")
	assert.Equal(t, StatusSuccess, entry.Status)
	assert.Equal(t, 42.5, entry.Price)
}

func TestSupersededClaimWritesDropped(t *testing.T) {
	st := New()
	oldEpoch := st.BeginPriceEpoch([]string{"k"})
	st.MarkPriceLoading(oldEpoch, "k")

	newEpoch := st.BeginPriceEpoch([]string{"k"})
	st.SetPrice(newEpoch, "k", 100)

	// A late write from the superseded cycle must not land.
	assert.False(t, st.SetPrice(oldEpoch, "k", 1))
	assert.False(t, st.MarkPriceFailed(oldEpoch, "k"))

	entry, _ := st.Price("k")
	assert.Equal(t, StatusSuccess, entry.Status)
	assert.Equal(t, 100.0, entry.Price)
}

func TestDisjointPriceCyclesCoexist(t *testing.T) {
	st := New()
	epochA := st.BeginPriceEpoch([]string{"a"})
	st.MarkPriceLoading(epochA, "a")

	// A second wallet's cycle over different keys must not take over "a".
	epochB := st.BeginPriceEpoch([]string{"b"})
	require.True(t, st.SetPrice(epochB, "b", 2))

	require.True(t, st.SetPrice(epochA, "a", 1))
	entry, _ := st.Price("a")
	assert.Equal(t, StatusSuccess, entry.Status)
	assert.Equal(t, 1.0, entry.Price)

	// And B's epoch never gained write access to A's key.
	assert.False(t, st.SetPrice(epochB, "a", 99))
}

func TestUnclaimedKeyRejectsWrites(t *testing.T) {
	st := New()
	epoch := st.BeginPriceEpoch([]string{"claimed"})

	assert.False(t, st.SetPrice(epoch, "other", 5))
	_, ok := st.Price("other")
	assert.False(t, ok)
}

func TestFailedNeverDowngradesSuccess(t *testing.T) {
	st := New()
	epoch := st.BeginPriceEpoch([]string{"k"})
	st.SetPrice(epoch, "k", 7)

	assert.False(t, st.MarkPriceFailed(epoch, "k"))
	entry, _ := st.Price("k")
	assert.Equal(t, StatusSuccess, entry.Status)
	assert.Equal(t, 7.0, entry.Price)
}

func TestHistoryPendingKeepsSuccess(t *testing.T) {
	st := New()
	epoch := st.BeginHistoryEpoch([]string{"k"})
	st.MarkHistoryLoading(epoch, "k")
	st.SetHistory(epoch, "k", []float64{1, 2}, 100)

	assert.False(t, st.MarkHistoryPending("k"))
	entry, _ := st.History("k")
	assert.Equal(t, StatusSuccess, entry.Status)
}

func TestHistoryPendingBlocksTerminalWrites(t *testing.T) {
	st := New()
	epoch := st.BeginHistoryEpoch([]string{"k"})
	st.MarkHistoryPending("k")

	// Terminal states are only reachable from loading.
	assert.False(t, st.SetHistory(epoch, "k", []float64{1}, 0))
	assert.False(t, st.MarkHistoryFailed(epoch, "k"))

	entry, _ := st.History("k")
	assert.Equal(t, StatusPending, entry.Status)

	require.True(t, st.MarkHistoryLoading(epoch, "k"))
	require.True(t, st.SetHistory(epoch, "k", []float64{1, 2}, 100))
	entry, _ = st.History("k")
	assert.Equal(t, StatusSuccess, entry.Status)
	assert.Equal(t, []float64{1, 2}, entry.Trend)
}

func TestHistoryFailedDoesNotDowngradeSuccess(t *testing.T) {
	st := New()
	epoch := st.BeginHistoryEpoch([]string{"k"})
	st.MarkHistoryLoading(epoch, "k")
	st.SetHistory(epoch, "k", []float64{1}, 0)

	assert.False(t, st.MarkHistoryFailed(epoch, "k"))
	entry, _ := st.History("k")
	assert.Equal(t, StatusSuccess, entry.Status)
}

func TestPriceClaimDoesNotDisturbHistoryKey(t *testing.T) {
	st := New()
	histEpoch := st.BeginHistoryEpoch([]string{"k"})
	st.MarkHistoryLoading(histEpoch, "k")

	// Price and history share key strings but not ownership.
	st.BeginPriceEpoch([]string{"k"})
	require.True(t, st.SetHistory(histEpoch, "k", []float64{1, 2}, 100))

	entry, _ := st.History("k")
	assert.Equal(t, StatusSuccess, entry.Status)
}

func TestSubscribersNotified(t *testing.T) {
	st := New()
	epoch := st.BeginPriceEpoch([]string{"p"})

	var seen []Update
	id := st.Subscribe(func(u Update) { seen = append(seen, u) })

	st.SetPrice(epoch, "p", 1)
	st.MarkHistoryPending("h")

	require.Len(t, seen, 2)
	assert.Equal(t, Update{Kind: KindPrice, Key: "p"}, seen[0])
	assert.Equal(t, Update{Kind: KindHistory, Key: "h"}, seen[1])

	st.Unsubscribe(id)
	st.SetPrice(epoch, "p", 2)
	assert.Len(t, seen, 2)
}

func TestDroppedWriteDoesNotNotify(t *testing.T) {
	st := New()
	epoch := st.BeginPriceEpoch([]string{"k"})
	st.SetPrice(epoch, "k", 1)

	notified := 0
	st.Subscribe(func(Update) { notified++ })

	st.MarkPriceFailed(epoch, "k")
	assert.Zero(t, notified)
}

func TestEpochsMonotonic(t *testing.T) {
	st := New()
	first := st.BeginPriceEpoch([]string{"a"})
	second := st.BeginHistoryEpoch([]string{"a"})
	third := st.BeginPriceEpoch([]string{"a"})
	assert.Greater(t, second, first)
	assert.Greater(t, third, second)

	assert.True(t, st.OwnsPrice(third, "a"))
	assert.False(t, st.OwnsPrice(first, "a"))
	assert.True(t, st.OwnsHistory(second, "a"))
}
