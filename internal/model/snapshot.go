package model

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Collections is the raw record set a snapshot is built from.
type Collections struct {
	Days            []Day               `json:"days"`
	Lengths         []SlotLength        `json:"lengths"`
	Slots           []Slot              `json:"slots"`
	Rooms           []Room              `json:"rooms"`
	People          []Person            `json:"people"`
	Kinds           []KitKind           `json:"kit_kinds"`
	Things          []KitThing          `json:"kit_things"`
	Bundles         []KitBundle         `json:"kit_bundles"`
	Requests        []KitRequest        `json:"kit_requests"`
	Items           []Item              `json:"items"`
	ItemPeople      []ItemPerson        `json:"item_people"`
	RoomAssignments []KitRoomAssignment `json:"kit_room_assignments"`
	ItemAssignments []KitItemAssignment `json:"kit_item_assignments"`
}

// Repository provides a read-consistent view of every programme record.
type Repository interface {
	LoadSnapshot(ctx context.Context) (*Snapshot, error)
}

// Snapshot is an indexed, read-only view over Collections. It is safe for
// concurrent readers once built.
type Snapshot struct {
	Collections
	Sentinels Sentinels

	days     map[int64]*Day
	lengths  map[int64]*SlotLength
	slots    map[int64]*Slot
	rooms    map[int64]*Room
	people   map[int64]*Person
	kinds    map[int64]*KitKind
	things   map[int64]*KitThing
	bundles  map[int64]*KitBundle
	requests map[int64]*KitRequest
	items    map[int64]*Item

	peopleByItem   map[int64][]int64
	itemsByPerson  map[int64][]int64
	itemKit        map[int64][]KitItemAssignment
	roomKit        map[int64][]KitRoomAssignment
	requestOwners  map[int64][]int64
	slotsByDay     map[int64][]Slot
	sharedRequests map[int64]bool
}

// NewSnapshot resolves sentinels, validates references and builds indexes.
// It refuses to build a snapshot without a valid sentinel set.
func NewSnapshot(c Collections) (*Snapshot, error) {
	sentinels, err := ResolveSentinels(c.Days, c.Slots, c.Lengths, c.Rooms)
	if err != nil {
		return nil, err
	}

	s := &Snapshot{
		Collections:    c,
		Sentinels:      sentinels,
		days:           make(map[int64]*Day, len(c.Days)),
		lengths:        make(map[int64]*SlotLength, len(c.Lengths)),
		slots:          make(map[int64]*Slot, len(c.Slots)),
		rooms:          make(map[int64]*Room, len(c.Rooms)),
		people:         make(map[int64]*Person, len(c.People)),
		kinds:          make(map[int64]*KitKind, len(c.Kinds)),
		things:         make(map[int64]*KitThing, len(c.Things)),
		bundles:        make(map[int64]*KitBundle, len(c.Bundles)),
		requests:       make(map[int64]*KitRequest, len(c.Requests)),
		items:          make(map[int64]*Item, len(c.Items)),
		peopleByItem:   make(map[int64][]int64),
		itemsByPerson:  make(map[int64][]int64),
		itemKit:        make(map[int64][]KitItemAssignment),
		roomKit:        make(map[int64][]KitRoomAssignment),
		requestOwners:  make(map[int64][]int64),
		slotsByDay:     make(map[int64][]Slot),
		sharedRequests: make(map[int64]bool),
	}

	for i := range s.Days {
		s.days[s.Days[i].ID] = &s.Days[i]
	}
	for i := range s.Lengths {
		s.lengths[s.Lengths[i].ID] = &s.Lengths[i]
	}
	for i := range s.Slots {
		s.slots[s.Slots[i].ID] = &s.Slots[i]
	}
	for i := range s.Rooms {
		s.rooms[s.Rooms[i].ID] = &s.Rooms[i]
	}
	for i := range s.People {
		s.people[s.People[i].ID] = &s.People[i]
	}
	for i := range s.Kinds {
		s.kinds[s.Kinds[i].ID] = &s.Kinds[i]
	}
	for i := range s.Things {
		s.things[s.Things[i].ID] = &s.Things[i]
	}
	for i := range s.Bundles {
		s.bundles[s.Bundles[i].ID] = &s.Bundles[i]
	}
	for i := range s.Requests {
		s.requests[s.Requests[i].ID] = &s.Requests[i]
	}
	for i := range s.Items {
		s.items[s.Items[i].ID] = &s.Items[i]
	}

	if err := s.index(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Snapshot) index() error {
	var errs []error
	check := func(ok bool, what string, id int64) {
		if !ok {
			errs = append(errs, unknownRef(what, id))
		}
	}

	for _, sl := range s.Slots {
		_, ok := s.days[sl.DayID]
		check(ok, "day", sl.DayID)
		_, ok = s.lengths[sl.LengthID]
		check(ok, "slot_length", sl.LengthID)
		s.slotsByDay[sl.DayID] = append(s.slotsByDay[sl.DayID], sl)
	}
	for day := range s.slotsByDay {
		list := s.slotsByDay[day]
		sort.Slice(list, func(i, j int) bool {
			if list[i].Start != list[j].Start {
				return list[i].Start < list[j].Start
			}
			return list[i].ID < list[j].ID
		})
	}

	checkAvail := func(ids []int64) {
		for _, id := range ids {
			_, ok := s.slots[id]
			check(ok, "slot", id)
		}
	}
	for _, r := range s.Rooms {
		checkAvail(r.Availability)
	}
	for _, p := range s.People {
		checkAvail(p.Availability)
	}
	for _, t := range s.Things {
		_, ok := s.kinds[t.KindID]
		check(ok, "kit_kind", t.KindID)
		checkAvail(t.Availability)
	}
	for _, b := range s.Bundles {
		for _, id := range b.ThingIDs {
			_, ok := s.things[id]
			check(ok, "kit_thing", id)
		}
	}
	for _, r := range s.Requests {
		_, ok := s.kinds[r.KindID]
		check(ok, "kit_kind", r.KindID)
	}

	for _, it := range s.Items {
		if strings.TrimSpace(it.Title) == "" && strings.TrimSpace(it.Shortname) == "" {
			errs = append(errs, fmt.Errorf("%w: item %d has neither title nor shortname", ErrInvalidItem, it.ID))
		}
		_, ok := s.slots[it.SlotID]
		check(ok, "slot", it.SlotID)
		_, ok = s.lengths[it.LengthID]
		check(ok, "slot_length", it.LengthID)
		_, ok = s.rooms[it.RoomID]
		check(ok, "room", it.RoomID)
		for _, rid := range it.RequestIDs {
			_, ok = s.requests[rid]
			check(ok, "kit_request", rid)
			s.requestOwners[rid] = append(s.requestOwners[rid], it.ID)
		}
	}
	for rid, owners := range s.requestOwners {
		if len(owners) > 1 {
			s.sharedRequests[rid] = true
		}
	}

	for _, ip := range s.ItemPeople {
		_, ok := s.items[ip.ItemID]
		check(ok, "item", ip.ItemID)
		_, ok = s.people[ip.PersonID]
		check(ok, "person", ip.PersonID)
		s.peopleByItem[ip.ItemID] = append(s.peopleByItem[ip.ItemID], ip.PersonID)
		s.itemsByPerson[ip.PersonID] = append(s.itemsByPerson[ip.PersonID], ip.ItemID)
	}

	for _, a := range s.ItemAssignments {
		_, ok := s.items[a.ItemID]
		check(ok, "item", a.ItemID)
		_, ok = s.things[a.ThingID]
		check(ok, "kit_thing", a.ThingID)
		s.itemKit[a.ItemID] = append(s.itemKit[a.ItemID], a)
	}
	for _, a := range s.RoomAssignments {
		_, ok := s.rooms[a.RoomID]
		check(ok, "room", a.RoomID)
		_, ok = s.things[a.ThingID]
		check(ok, "kit_thing", a.ThingID)
		_, ok = s.slots[a.FromSlotID]
		check(ok, "slot", a.FromSlotID)
		_, ok = s.slots[a.ToSlotID]
		check(ok, "slot", a.ToSlotID)
		_, ok = s.lengths[a.ToLengthID]
		check(ok, "slot_length", a.ToLengthID)
		s.roomKit[a.RoomID] = append(s.roomKit[a.RoomID], a)
	}

	return errors.Join(errs...)
}

// Day returns the day with the given id.
func (s *Snapshot) Day(id int64) (Day, bool) {
	d, ok := s.days[id]
	if !ok {
		return Day{}, false
	}
	return *d, true
}

// Length returns the slot length with the given id.
func (s *Snapshot) Length(id int64) (SlotLength, bool) {
	l, ok := s.lengths[id]
	if !ok {
		return SlotLength{}, false
	}
	return *l, true
}

// Slot returns the slot with the given id.
func (s *Snapshot) Slot(id int64) (Slot, bool) {
	sl, ok := s.slots[id]
	if !ok {
		return Slot{}, false
	}
	return *sl, true
}

// Room returns the room with the given id.
func (s *Snapshot) Room(id int64) (Room, bool) {
	r, ok := s.rooms[id]
	if !ok {
		return Room{}, false
	}
	return *r, true
}

// Person returns the person with the given id.
func (s *Snapshot) Person(id int64) (Person, bool) {
	p, ok := s.people[id]
	if !ok {
		return Person{}, false
	}
	return *p, true
}

// Kind returns the kit kind with the given id.
func (s *Snapshot) Kind(id int64) (KitKind, bool) {
	k, ok := s.kinds[id]
	if !ok {
		return KitKind{}, false
	}
	return *k, true
}

// Thing returns the kit thing with the given id.
func (s *Snapshot) Thing(id int64) (KitThing, bool) {
	t, ok := s.things[id]
	if !ok {
		return KitThing{}, false
	}
	return *t, true
}

// Bundle returns the kit bundle with the given id.
func (s *Snapshot) Bundle(id int64) (KitBundle, bool) {
	b, ok := s.bundles[id]
	if !ok {
		return KitBundle{}, false
	}
	return *b, true
}

// Request returns the kit request with the given id.
func (s *Snapshot) Request(id int64) (KitRequest, bool) {
	r, ok := s.requests[id]
	if !ok {
		return KitRequest{}, false
	}
	return *r, true
}

// Item returns the item with the given id.
func (s *Snapshot) Item(id int64) (Item, bool) {
	it, ok := s.items[id]
	if !ok {
		return Item{}, false
	}
	return *it, true
}

// IsScheduled reports whether the item's slot, length and room all differ
// from the undefined sentinels. A slot on the undefined day counts as an
// undefined slot.
func (s *Snapshot) IsScheduled(it Item) bool {
	slot, ok := s.slots[it.SlotID]
	if !ok {
		return false
	}
	if slot.Key() == s.Sentinels.UndefinedSlot.Key() || slot.DayID == s.Sentinels.UndefinedDay.ID {
		return false
	}
	if it.LengthID == s.Sentinels.UndefinedSlotLength.ID {
		return false
	}
	return it.RoomID != s.Sentinels.UndefinedRoom.ID
}

// ScheduledItems returns items placed at a definite time and room.
func (s *Snapshot) ScheduledItems() []Item {
	out := make([]Item, 0, len(s.Items))
	for _, it := range s.Items {
		if s.IsScheduled(it) {
			out = append(out, it)
		}
	}
	return out
}

// UnscheduledItems returns items touching at least one undefined sentinel.
func (s *Snapshot) UnscheduledItems() []Item {
	out := make([]Item, 0)
	for _, it := range s.Items {
		if !s.IsScheduled(it) {
			out = append(out, it)
		}
	}
	return out
}

// ItemsInRoom returns the scheduled items placed in a room.
func (s *Snapshot) ItemsInRoom(roomID int64) []Item {
	out := make([]Item, 0)
	for _, it := range s.Items {
		if it.RoomID == roomID && s.IsScheduled(it) {
			out = append(out, it)
		}
	}
	return out
}

// PeopleOn returns the people assigned to an item, in assignment order.
func (s *Snapshot) PeopleOn(itemID int64) []Person {
	ids := s.peopleByItem[itemID]
	out := make([]Person, 0, len(ids))
	for _, id := range ids {
		out = append(out, *s.people[id])
	}
	return out
}

// ItemsFor returns every item a person is assigned to.
func (s *Snapshot) ItemsFor(personID int64) []Item {
	ids := s.itemsByPerson[personID]
	out := make([]Item, 0, len(ids))
	for _, id := range ids {
		out = append(out, *s.items[id])
	}
	return out
}

// ItemAssignmentsFor returns kit assigned directly to an item.
func (s *Snapshot) ItemAssignmentsFor(itemID int64) []KitItemAssignment {
	return s.itemKit[itemID]
}

// RoomAssignmentsFor returns kit assigned to a room, for any period.
func (s *Snapshot) RoomAssignmentsFor(roomID int64) []KitRoomAssignment {
	return s.roomKit[roomID]
}

// SlotsOn returns the slots of a day ordered by start offset.
func (s *Snapshot) SlotsOn(dayID int64) []Slot {
	return s.slotsByDay[dayID]
}

// SharedRequest reports whether a request is referenced by more than one item.
func (s *Snapshot) SharedRequest(requestID int64) bool {
	return s.sharedRequests[requestID]
}

// RequestOwners returns the ids of items referencing a request.
func (s *Snapshot) RequestOwners(requestID int64) []int64 {
	return s.requestOwners[requestID]
}

// BundleInUse reports whether any room or item assignment came from the bundle.
func (s *Snapshot) BundleInUse(bundleID int64) bool {
	for _, a := range s.RoomAssignments {
		if a.BundleID != nil && *a.BundleID == bundleID {
			return true
		}
	}
	for _, a := range s.ItemAssignments {
		if a.BundleID != nil && *a.BundleID == bundleID {
			return true
		}
	}
	return false
}

// EarliestDay returns the first real day by date, skipping the undefined day.
func (s *Snapshot) EarliestDay(visibleOnly bool) (Day, bool) {
	days := s.orderedDays(visibleOnly)
	if len(days) == 0 {
		return Day{}, false
	}
	return days[0], true
}

// LatestDay returns the last real day by date, skipping the undefined day.
func (s *Snapshot) LatestDay(visibleOnly bool) (Day, bool) {
	days := s.orderedDays(visibleOnly)
	if len(days) == 0 {
		return Day{}, false
	}
	return days[len(days)-1], true
}

func (s *Snapshot) orderedDays(visibleOnly bool) []Day {
	out := make([]Day, 0, len(s.Days))
	for _, d := range s.Days {
		if d.IsUndefined || (visibleOnly && !d.Visible) {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
