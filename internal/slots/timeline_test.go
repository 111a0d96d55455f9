package slots

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conprog/internal/model"
	"conprog/internal/testfixtures"
)

func TestTimelineItemPeriod(t *testing.T) {
	b := testfixtures.New()
	ninety := b.Length(90)
	talk := b.Item("Talk", b.Slot(b.Friday, 630), ninety, b.MainHall)
	tl := NewTimeline(b.Snapshot())

	p, err := tl.ItemPeriod(talk)
	require.NoError(t, err)
	assert.Equal(t, b.Friday.ID, p.Start.DayID)
	assert.Equal(t, 630, p.Start.Offset)
	assert.Equal(t, 720, p.End.Offset)
	assert.Equal(t, 90, p.Length())
}

func TestTimelineRoomAssignmentPeriod(t *testing.T) {
	b := testfixtures.New()
	sat := b.Day("Saturday", time.Date(2026, time.July, 11, 0, 0, 0, 0, time.UTC))
	kind := b.Kind("Microphone")
	mic := b.Thing("Mic 1", kind, 1)
	a := b.AssignToRoom(b.MainHall, mic, b.Slot(b.Friday, 540), b.Slot(sat, 1020), b.Hour)
	tl := NewTimeline(b.Snapshot())

	p, err := tl.RoomAssignmentPeriod(a)
	require.NoError(t, err)
	assert.Equal(t, At(b.Friday, 540), p.Start)
	assert.Equal(t, At(sat, 1080), p.End)
	assert.False(t, p.SameDay())
}

func TestTimelineOccupied(t *testing.T) {
	b := testfixtures.New()
	sat := b.Day("Saturday", time.Date(2026, time.July, 11, 0, 0, 0, 0, time.UTC))
	b.Grid(b.Friday, 540, 720, 30)
	b.Grid(sat, 540, 720, 30)
	tl := NewTimeline(b.Snapshot())

	got, err := tl.Occupied(NewPeriod(b.Friday, 600, 60))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 600, got[0].Start)
	assert.Equal(t, 630, got[1].Start)

	got, err = tl.Occupied(Period{Start: At(b.Friday, 660), End: At(sat, 570)})
	require.NoError(t, err)
	starts := make([]model.SlotKey, 0, len(got))
	for _, s := range got {
		starts = append(starts, s.Key())
	}
	assert.Equal(t, []model.SlotKey{
		{DayID: b.Friday.ID, Start: 660},
		{DayID: b.Friday.ID, Start: 690},
		{DayID: sat.ID, Start: 540},
	}, starts)

	got, err = tl.Occupied(NewPeriod(b.Friday, 600, 0))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestTimelineItemsOverlap(t *testing.T) {
	b := testfixtures.New()
	hall := b.Room("Hall 2", true)
	a := b.Item("A", b.Slot(b.Friday, 600), b.Hour, b.MainHall)
	c := b.Item("B", b.Slot(b.Friday, 630), b.Hour, hall)
	d := b.Item("C", b.Slot(b.Friday, 660), b.Hour, hall)
	tl := NewTimeline(b.Snapshot())

	got, err := tl.ItemsOverlap(a, a)
	require.NoError(t, err)
	assert.False(t, got, "an item never overlaps itself")

	got, err = tl.ItemsOverlap(a, c)
	require.NoError(t, err)
	assert.True(t, got)

	got, err = tl.ItemsOverlap(a, d)
	require.NoError(t, err)
	assert.False(t, got)
}

func TestTimelineUnknownSlot(t *testing.T) {
	b := testfixtures.New()
	tl := NewTimeline(b.Snapshot())

	_, err := tl.ItemPeriod(model.Item{ID: 1, SlotID: 999, LengthID: b.Hour.ID})
	assert.ErrorIs(t, err, model.ErrUnknownReference)
}
