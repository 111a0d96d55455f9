package availability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conprog/internal/model"
	"conprog/internal/slots"
	"conprog/internal/testfixtures"
)

type fixture struct {
	b     *testfixtures.Builder
	grid  []model.Slot // Friday 09:00-13:00, half-hourly
	alice model.Person
	bob   model.Person
}

func newFixture() *fixture {
	b := testfixtures.New()
	f := &fixture{b: b}
	f.grid = b.Grid(b.Friday, 540, 780, 30)
	f.alice = b.Person("Alice", "Smith")
	f.bob = b.Person("Bob", "Jones")
	// Alice: 10:00-11:30
	b.PersonAvailable(f.alice, f.grid[2], f.grid[3], f.grid[4])
	return f
}

func (f *fixture) engine(policy bool) (*Engine, *model.Snapshot) {
	snap := f.b.Snapshot()
	return NewEngine(slots.NewTimeline(snap), policy), snap
}

func TestIsAvailable(t *testing.T) {
	f := newFixture()
	e, snap := f.engine(false)
	alice, _ := snap.Person(f.alice.ID)

	tests := []struct {
		name     string
		period   slots.Period
		expected bool
	}{
		{name: "inside window", period: slots.NewPeriod(f.b.Friday, 600, 60), expected: true},
		{name: "whole window", period: slots.NewPeriod(f.b.Friday, 600, 90), expected: true},
		{name: "starts before window", period: slots.NewPeriod(f.b.Friday, 570, 60), expected: false},
		{name: "runs past window", period: slots.NewPeriod(f.b.Friday, 630, 90), expected: false},
		{name: "between slot starts", period: slots.NewPeriod(f.b.Friday, 610, 15), expected: true},
		{name: "zero length", period: slots.NewPeriod(f.b.Friday, 540, 0), expected: true},
		{name: "other day", period: slots.NewPeriod(f.b.UndefinedDay, 600, 60), expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.IsAvailable(alice, tt.period)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestEmptyAvailabilityPolicy(t *testing.T) {
	f := newFixture()
	periods := []slots.Period{
		slots.NewPeriod(f.b.Friday, 540, 30),
		slots.NewPeriod(f.b.Friday, 600, 180),
	}

	always, snap := f.engine(true)
	bob, _ := snap.Person(f.bob.ID)
	for _, p := range periods {
		got, err := always.IsAvailable(bob, p)
		require.NoError(t, err)
		assert.True(t, got)
	}

	never, _ := f.engine(false)
	for _, p := range periods {
		got, err := never.IsAvailable(bob, p)
		require.NoError(t, err)
		assert.False(t, got)
	}

	never.SetPolicy(true)
	assert.True(t, never.Policy())
	got, err := never.IsAvailable(bob, periods[0])
	require.NoError(t, err)
	assert.True(t, got)
}

func TestAvailabilityComparesBySlotKey(t *testing.T) {
	b := testfixtures.New()
	nine := b.Slot(b.Friday, 540)
	// a duplicate slot record at the same day and start
	c := b.Collections()
	dup := model.Slot{ID: 500, DayID: b.Friday.ID, Start: 540, LengthID: b.Hour.ID}
	c.Slots = append(c.Slots, dup)
	room := model.Room{ID: 501, Name: "Annex", Availability: []int64{dup.ID}}
	c.Rooms = append(c.Rooms, room)
	snap, err := model.NewSnapshot(c)
	require.NoError(t, err)

	e := NewEngine(slots.NewTimeline(snap), false)
	got, err := e.IsAvailable(room, slots.NewPeriod(b.Friday, nine.Start, 30))
	require.NoError(t, err)
	assert.True(t, got)
}

func TestItemAndRoomAssignmentAvailability(t *testing.T) {
	b := testfixtures.New()
	sat := b.Day("Saturday", time.Date(2026, time.July, 11, 0, 0, 0, 0, time.UTC))
	fri := b.Grid(b.Friday, 540, 660, 60)
	satGrid := b.Grid(sat, 540, 660, 60)
	kind := b.Kind("Projector")
	proj := b.Thing("Projector", kind, 1)
	b.ThingAvailable(proj, fri...)
	talk := b.Item("Talk", fri[1], b.Hour, b.MainHall)
	weekend := b.AssignToRoom(b.MainHall, proj, fri[0], satGrid[0], b.Hour)
	friOnly := b.AssignToRoom(b.MainHall, proj, fri[0], fri[1], b.Hour)

	snap := b.Snapshot()
	e := NewEngine(slots.NewTimeline(snap), false)
	thing, _ := snap.Thing(proj.ID)

	ok, err := e.ItemAvailable(thing, talk)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = e.RoomAssignmentAvailable(thing, friOnly)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = e.RoomAssignmentAvailable(thing, weekend)
	require.NoError(t, err)
	assert.False(t, ok, "Saturday 09:00 is not recorded")
}

func TestInvalidPeriodIsReported(t *testing.T) {
	f := newFixture()
	e, snap := f.engine(false)
	alice, _ := snap.Person(f.alice.ID)

	_, err := e.IsAvailable(alice, slots.NewPeriod(f.b.Friday, 600, -30))
	assert.ErrorIs(t, err, slots.ErrInvalidPeriod)
}

func TestInvalidPeriodWithoutAvailability(t *testing.T) {
	f := newFixture()
	for _, policy := range []bool{true, false} {
		e, snap := f.engine(policy)
		bob, _ := snap.Person(f.bob.ID)

		got, err := e.IsAvailable(bob, slots.NewPeriod(f.b.Friday, -5, 30))
		assert.ErrorIs(t, err, slots.ErrInvalidPeriod, "policy %v", policy)
		assert.False(t, got)
	}
}
