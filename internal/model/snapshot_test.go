package model_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conprog/internal/model"
	"conprog/internal/testfixtures"
)

func TestResolveSentinels(t *testing.T) {
	b := testfixtures.New()
	c := b.Collections()

	s, err := model.ResolveSentinels(c.Days, c.Slots, c.Lengths, c.Rooms)
	require.NoError(t, err)
	assert.Equal(t, b.Friday.ID, s.DefaultDay.ID)
	assert.Equal(t, b.UndefinedDay.ID, s.UndefinedDay.ID)
	assert.Equal(t, b.DefaultSlot.ID, s.DefaultSlot.ID)
	assert.Equal(t, b.UndefSlot.ID, s.UndefinedSlot.ID)
	assert.Equal(t, b.Hour.ID, s.DefaultSlotLength.ID)
	assert.Equal(t, b.UndefLength.ID, s.UndefinedSlotLength.ID)
	assert.Equal(t, b.MainHall.ID, s.DefaultRoom.ID)
	assert.Equal(t, b.Nowhere.ID, s.UndefinedRoom.ID)
}

func TestResolveSentinelsReportsEveryViolation(t *testing.T) {
	b := testfixtures.New()
	c := b.Collections()

	// second default day, no undefined room
	c.Days = append(c.Days, model.Day{ID: 900, Name: "Saturday", IsDefault: true})
	rooms := c.Rooms[:0:0]
	for _, r := range c.Rooms {
		if !r.IsUndefined {
			rooms = append(rooms, r)
		}
	}
	c.Rooms = rooms

	_, err := model.ResolveSentinels(c.Days, c.Slots, c.Lengths, c.Rooms)
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrSentinel))
	assert.Contains(t, err.Error(), "default day, found 2")
	assert.Contains(t, err.Error(), "undefined room, found 0")

	var inv *model.InvariantError
	require.True(t, errors.As(err, &inv))
	assert.Equal(t, "day", inv.Entity)
}

func TestNewSnapshotRefusesInvalidSentinels(t *testing.T) {
	b := testfixtures.New()
	c := b.Collections()
	c.Lengths = nil

	_, err := model.NewSnapshot(c)
	assert.ErrorIs(t, err, model.ErrSentinel)
}

func TestNewSnapshotUnknownReferences(t *testing.T) {
	b := testfixtures.New()
	it := b.Item("Opening", b.DefaultSlot, b.Hour, b.MainHall)
	c := b.Collections()
	c.ItemPeople = append(c.ItemPeople, model.ItemPerson{ItemID: it.ID, PersonID: 4242})
	c.Items[0].RoomID = 777

	_, err := model.NewSnapshot(c)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrUnknownReference)
	assert.Contains(t, err.Error(), "person 4242")
	assert.Contains(t, err.Error(), "room 777")
}

func TestNewSnapshotRejectsNamelessItem(t *testing.T) {
	b := testfixtures.New()
	b.Item("  ", b.DefaultSlot, b.Hour, b.MainHall)

	_, err := model.NewSnapshot(b.Collections())
	assert.ErrorIs(t, err, model.ErrInvalidItem)
}

func TestIsScheduled(t *testing.T) {
	b := testfixtures.New()
	friday10 := b.Slot(b.Friday, 600)
	tbdSlot := b.Slot(b.UndefinedDay, 600)
	hall := b.Room("Hall 2", true)

	tests := []struct {
		name     string
		slot     model.Slot
		length   model.SlotLength
		room     model.Room
		expected bool
	}{
		{name: "all undefined", slot: b.UndefSlot, length: b.UndefLength, room: b.Nowhere, expected: false},
		{name: "only slot defined", slot: friday10, length: b.UndefLength, room: b.Nowhere, expected: false},
		{name: "only length defined", slot: b.UndefSlot, length: b.Hour, room: b.Nowhere, expected: false},
		{name: "only room defined", slot: b.UndefSlot, length: b.UndefLength, room: hall, expected: false},
		{name: "room undefined", slot: friday10, length: b.Hour, room: b.Nowhere, expected: false},
		{name: "slot on undefined day", slot: tbdSlot, length: b.Hour, room: hall, expected: false},
		{name: "all defined", slot: friday10, length: b.Hour, room: hall, expected: true},
	}

	items := make([]model.Item, len(tests))
	for i, tt := range tests {
		items[i] = b.Item(tt.name, tt.slot, tt.length, tt.room)
	}
	snap := b.Snapshot()

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, snap.IsScheduled(items[i]))
		})
	}

	assert.Len(t, snap.ScheduledItems(), 1)
	assert.Len(t, snap.UnscheduledItems(), len(tests)-1)
}

func TestSharedRequestsAreRecorded(t *testing.T) {
	b := testfixtures.New()
	mic := b.Kind("Microphone")
	a := b.Item("A", b.DefaultSlot, b.Hour, b.MainHall)
	other := b.Item("B", b.DefaultSlot, b.Hour, b.MainHall)
	req := b.Request(a, mic, 2)
	b.ShareRequest(other, req)
	own := b.Request(other, mic, 1)

	snap := b.Snapshot()
	assert.True(t, snap.SharedRequest(req.ID))
	assert.False(t, snap.SharedRequest(own.ID))
	assert.ElementsMatch(t, []int64{a.ID, other.ID}, snap.RequestOwners(req.ID))
}

func TestSnapshotLookups(t *testing.T) {
	b := testfixtures.New()
	hall := b.Room("Hall 2", true)
	alice := b.Person("Alice", "Smith")
	bob := b.Person("Bob", "Jones")
	talk := b.Item("Talk", b.Slot(b.Friday, 660), b.Hour, hall)
	b.AssignPerson(talk, alice)
	b.AssignPerson(talk, bob)
	b.Slot(b.Friday, 540)

	snap := b.Snapshot()

	people := snap.PeopleOn(talk.ID)
	require.Len(t, people, 2)
	assert.Equal(t, "Alice Smith", people[0].DisplayName())
	assert.Len(t, snap.ItemsFor(bob.ID), 1)
	assert.Len(t, snap.ItemsInRoom(hall.ID), 1)

	starts := []int{}
	for _, sl := range snap.SlotsOn(b.Friday.ID) {
		starts = append(starts, sl.Start)
	}
	assert.Equal(t, []int{540, 600, 660}, starts)

	_, ok := snap.Item(9999)
	assert.False(t, ok)
}

func TestBundleInUse(t *testing.T) {
	b := testfixtures.New()
	kind := b.Kind("Projector")
	proj := b.Thing("Projector 1", kind, 1)
	bundle := b.Bundle("AV set", proj)
	idle := b.Bundle("Spare set", proj)
	it := b.Item("Talk", b.DefaultSlot, b.Hour, b.MainHall)

	bid := bundle.ID
	b.AddItemAssignments(model.KitItemAssignment{ItemID: it.ID, ThingID: proj.ID, BundleID: &bid})

	snap := b.Snapshot()
	assert.True(t, snap.BundleInUse(bundle.ID))
	assert.False(t, snap.BundleInUse(idle.ID))
}

func TestEarliestLatestDay(t *testing.T) {
	b := testfixtures.New()
	sat := b.Day("Saturday", time.Date(2026, time.July, 11, 0, 0, 0, 0, time.UTC))
	thu := b.Day("Thursday", time.Date(2026, time.July, 9, 0, 0, 0, 0, time.UTC))
	c := b.Collections()
	for i := range c.Days {
		if c.Days[i].ID == thu.ID {
			c.Days[i].Visible = false
		}
	}
	snap, err := model.NewSnapshot(c)
	require.NoError(t, err)

	first, ok := snap.EarliestDay(false)
	require.True(t, ok)
	assert.Equal(t, thu.ID, first.ID)

	first, ok = snap.EarliestDay(true)
	require.True(t, ok)
	assert.Equal(t, b.Friday.ID, first.ID)

	last, ok := snap.LatestDay(true)
	require.True(t, ok)
	assert.Equal(t, sat.ID, last.ID)
}

func TestDisplayNames(t *testing.T) {
	assert.Equal(t, "Ann B. Lee", model.Person{FirstName: "Ann", MiddleName: "B.", LastName: "Lee"}.DisplayName())
	assert.Equal(t, "annie", model.Person{Badge: "annie"}.DisplayName())
	assert.Equal(t, "Short", model.Item{Shortname: "Short"}.DisplayName())
	assert.Equal(t, "Long title", model.Item{Title: "Long title", Shortname: "Short"}.DisplayName())
}
