package slots

import (
	"fmt"
	"sort"

	"conprog/internal/model"
)

// Timeline resolves items and assignments to periods against one snapshot.
type Timeline struct {
	snap *model.Snapshot
}

// NewTimeline creates a timeline over snap.
func NewTimeline(snap *model.Snapshot) *Timeline {
	return &Timeline{snap: snap}
}

// Snapshot returns the snapshot the timeline reads from.
func (t *Timeline) Snapshot() *model.Snapshot {
	return t.snap
}

// SlotMoment returns the moment a slot starts plus extra minutes.
func (t *Timeline) SlotMoment(slotID int64, extra int) (Moment, error) {
	slot, ok := t.snap.Slot(slotID)
	if !ok {
		return Moment{}, fmt.Errorf("%w: slot %d", model.ErrUnknownReference, slotID)
	}
	day, ok := t.snap.Day(slot.DayID)
	if !ok {
		return Moment{}, fmt.Errorf("%w: day %d", model.ErrUnknownReference, slot.DayID)
	}
	return At(day, slot.Start+extra), nil
}

func (t *Timeline) minutes(lengthID int64) (int, error) {
	l, ok := t.snap.Length(lengthID)
	if !ok {
		return 0, fmt.Errorf("%w: slot_length %d", model.ErrUnknownReference, lengthID)
	}
	return l.Minutes, nil
}

// ItemPeriod returns the period an item runs for: its slot plus its own length.
func (t *Timeline) ItemPeriod(it model.Item) (Period, error) {
	length, err := t.minutes(it.LengthID)
	if err != nil {
		return Period{}, err
	}
	start, err := t.SlotMoment(it.SlotID, 0)
	if err != nil {
		return Period{}, err
	}
	end := start
	end.Offset += length
	return Period{Start: start, End: end}, nil
}

// RoomAssignmentPeriod returns FromSlot .. ToSlot.Start + ToLength.
func (t *Timeline) RoomAssignmentPeriod(a model.KitRoomAssignment) (Period, error) {
	length, err := t.minutes(a.ToLengthID)
	if err != nil {
		return Period{}, err
	}
	start, err := t.SlotMoment(a.FromSlotID, 0)
	if err != nil {
		return Period{}, err
	}
	end, err := t.SlotMoment(a.ToSlotID, length)
	if err != nil {
		return Period{}, err
	}
	return Period{Start: start, End: end}, nil
}

// Occupied returns every slot whose start lies in [p.Start, p.End), ordered
// by time.
func (t *Timeline) Occupied(p Period) ([]model.Slot, error) {
	type placed struct {
		slot model.Slot
		at   Moment
	}
	var hits []placed
	for _, sl := range t.snap.Slots {
		at, err := t.SlotMoment(sl.ID, 0)
		if err != nil {
			return nil, err
		}
		if at.Compare(p.Start) >= 0 && at.Before(p.End) {
			hits = append(hits, placed{slot: sl, at: at})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].at.Before(hits[j].at)
	})
	out := make([]model.Slot, len(hits))
	for i, h := range hits {
		out[i] = h.slot
	}
	return out, nil
}

// ItemsOverlap reports whether two distinct items share time. An item never
// overlaps itself.
func (t *Timeline) ItemsOverlap(a, b model.Item) (bool, error) {
	if a.ID == b.ID {
		return false, nil
	}
	pa, err := t.ItemPeriod(a)
	if err != nil {
		return false, err
	}
	pb, err := t.ItemPeriod(b)
	if err != nil {
		return false, err
	}
	return Overlaps(pa, pb)
}
