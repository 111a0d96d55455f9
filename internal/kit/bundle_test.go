package kit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conprog/internal/model"
	"conprog/internal/slots"
	"conprog/internal/testfixtures"
)

func TestBundleExpansionMatchesIndividualAssignments(t *testing.T) {
	build := func(useBundle bool) Result {
		b := testfixtures.New()
		chair := b.Kind("Chair")
		pair := b.Thing("Chair pair", chair, 2)
		single := b.Thing("Chair", chair, 1)
		set := b.Bundle("Panel seating", pair, single)
		it := b.Item("Panel", b.Slot(b.Friday, 600), b.Hour, b.MainHall)
		b.Request(it, chair, 3)

		from, to := b.Slot(b.Friday, 540), b.Slot(b.Friday, 660)
		if useBundle {
			b.AddRoomAssignments(ExpandBundleToRoom(set, b.MainHall.ID, from.ID, to.ID, b.Hour.ID)...)
		} else {
			b.AssignToRoom(b.MainHall, pair, from, to, b.Hour)
			b.AssignToRoom(b.MainHall, single, from, to, b.Hour)
		}

		snap := b.Snapshot()
		it, _ = snap.Item(it.ID)
		res, err := NewEngine(slots.NewTimeline(snap)).Satisfaction(it)
		require.NoError(t, err)
		return res
	}

	bundled := build(true)
	individual := build(false)
	assert.True(t, bundled.Satisfied)
	assert.Equal(t, individual.Supply, bundled.Supply)
	assert.Equal(t, individual.Satisfied, bundled.Satisfied)
}

func TestExpandBundleToItem(t *testing.T) {
	bundle := model.KitBundle{ID: 9, Name: "AV", ThingIDs: []int64{3, 4}}

	got := ExpandBundleToItem(bundle, 42)
	require.Len(t, got, 2)
	for i, a := range got {
		assert.Equal(t, int64(42), a.ItemID)
		assert.Equal(t, bundle.ThingIDs[i], a.ThingID)
		require.NotNil(t, a.BundleID)
		assert.Equal(t, int64(9), *a.BundleID)
	}
	assert.NotSame(t, got[0].BundleID, got[1].BundleID)

	assert.Empty(t, ExpandBundleToRoom(model.KitBundle{ID: 1}, 1, 1, 1, 1))
}

func TestSummarize(t *testing.T) {
	b := testfixtures.New()
	mic := b.Kind("Microphone")
	proj := b.Kind("Projector")
	m1 := b.Thing("Mic B", mic, 1)
	m2 := b.Thing("Mic A", mic, 1)
	p1 := b.Thing("Beamer", proj, 1)
	b.Bundle("Stage", m1, p1)
	it := b.Item("Talk", b.DefaultSlot, b.Hour, b.MainHall)
	b.AssignToItem(it, m1)
	b.AssignToRoom(b.MainHall, m1, b.DefaultSlot, b.DefaultSlot, b.Hour)
	b.AssignToRoom(b.MainHall, p1, b.DefaultSlot, b.DefaultSlot, b.Hour)

	got := Summarize(b.Snapshot())
	require.Len(t, got, 3)

	assert.Equal(t, "Mic A", got[0].Thing.Name)
	assert.Equal(t, 0, got[0].RoomAssignments+got[0].ItemAssignments)
	assert.Equal(t, "Mic B", got[1].Thing.Name)
	assert.Equal(t, 1, got[1].RoomAssignments)
	assert.Equal(t, 1, got[1].ItemAssignments)
	assert.Equal(t, []string{"Stage"}, got[1].Bundles)
	assert.Equal(t, "Projector", got[2].Kind)
	assert.Equal(t, m2.ID, got[0].Thing.ID)
}
