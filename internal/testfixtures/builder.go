// Package testfixtures builds programme snapshots for tests.
package testfixtures

import (
	"fmt"
	"time"

	"conprog/internal/model"
)

// Builder accumulates records and hands out sequential ids. A new builder
// already holds a valid sentinel set: an undefined day, slot, length and
// room ("Nowhere"), plus defaults on Friday 10:00 for 60 minutes in "Main Hall".
type Builder struct {
	c      model.Collections
	nextID int64

	Friday       model.Day
	UndefinedDay model.Day
	Hour         model.SlotLength
	UndefLength  model.SlotLength
	UndefSlot    model.Slot
	DefaultSlot  model.Slot
	Nowhere      model.Room
	MainHall     model.Room
}

// New returns a builder seeded with sentinels.
func New() *Builder {
	b := &Builder{nextID: 1}

	b.UndefinedDay = b.addDay(model.Day{Name: "TBD", IsUndefined: true})
	b.Friday = b.addDay(model.Day{
		Name:      "Friday",
		Date:      time.Date(2026, time.July, 10, 0, 0, 0, 0, time.UTC),
		Order:     1,
		Visible:   true,
		IsDefault: true,
	})

	b.UndefLength = b.addLength(model.SlotLength{Name: "TBD", Minutes: 0, IsUndefined: true})
	b.Hour = b.addLength(model.SlotLength{Name: "1 hour", Minutes: 60, IsDefault: true})

	b.UndefSlot = b.addSlot(model.Slot{DayID: b.UndefinedDay.ID, Start: 0, StartText: "TBD", LengthID: b.Hour.ID, IsUndefined: true})
	b.DefaultSlot = b.addSlot(model.Slot{DayID: b.Friday.ID, Start: 600, StartText: "10:00", LengthID: b.Hour.ID, Visible: true, IsDefault: true})

	b.Nowhere = b.addRoom(model.Room{Name: "Nowhere", IsUndefined: true})
	b.MainHall = b.addRoom(model.Room{Name: "Main Hall", Visible: true, CanClash: true, IsDefault: true})

	return b
}

func (b *Builder) id() int64 {
	id := b.nextID
	b.nextID++
	return id
}

func (b *Builder) addDay(d model.Day) model.Day {
	d.ID = b.id()
	b.c.Days = append(b.c.Days, d)
	return d
}

func (b *Builder) addLength(l model.SlotLength) model.SlotLength {
	l.ID = b.id()
	b.c.Lengths = append(b.c.Lengths, l)
	return l
}

func (b *Builder) addSlot(s model.Slot) model.Slot {
	s.ID = b.id()
	b.c.Slots = append(b.c.Slots, s)
	return s
}

func (b *Builder) addRoom(r model.Room) model.Room {
	r.ID = b.id()
	b.c.Rooms = append(b.c.Rooms, r)
	return r
}

// Day adds a visible day on the given date.
func (b *Builder) Day(name string, date time.Time) model.Day {
	return b.addDay(model.Day{Name: name, Date: date, Order: len(b.c.Days), Visible: true})
}

// Length adds a slot length.
func (b *Builder) Length(minutes int) model.SlotLength {
	return b.addLength(model.SlotLength{Name: fmt.Sprintf("%d min", minutes), Minutes: minutes})
}

// Slot returns the slot at start minutes on day, creating it when missing.
func (b *Builder) Slot(day model.Day, start int) model.Slot {
	for _, s := range b.c.Slots {
		if s.DayID == day.ID && s.Start == start {
			return s
		}
	}
	return b.addSlot(model.Slot{
		DayID:     day.ID,
		Start:     start,
		StartText: fmt.Sprintf("%02d:%02d", start/60, start%60),
		LengthID:  b.Hour.ID,
		Visible:   true,
	})
}

// Grid adds slots on day every step minutes in [from, to).
func (b *Builder) Grid(day model.Day, from, to, step int) []model.Slot {
	var out []model.Slot
	for start := from; start < to; start += step {
		out = append(out, b.Slot(day, start))
	}
	return out
}

// Room adds a visible room.
func (b *Builder) Room(name string, canClash bool) model.Room {
	return b.addRoom(model.Room{Name: name, Visible: true, CanClash: canClash, GridOrder: len(b.c.Rooms)})
}

// Person adds a person.
func (b *Builder) Person(first, last string) model.Person {
	p := model.Person{ID: b.id(), FirstName: first, LastName: last}
	b.c.People = append(b.c.People, p)
	return p
}

// Kind adds a kit kind.
func (b *Builder) Kind(name string) model.KitKind {
	k := model.KitKind{ID: b.id(), Name: name}
	b.c.Kinds = append(b.c.Kinds, k)
	return k
}

// Thing adds a kit thing of kind holding count units.
func (b *Builder) Thing(name string, kind model.KitKind, count int) model.KitThing {
	t := model.KitThing{ID: b.id(), Name: name, KindID: kind.ID, Count: count}
	b.c.Things = append(b.c.Things, t)
	return t
}

// Bundle adds a bundle of things.
func (b *Builder) Bundle(name string, things ...model.KitThing) model.KitBundle {
	kb := model.KitBundle{ID: b.id(), Name: name}
	for _, t := range things {
		kb.ThingIDs = append(kb.ThingIDs, t.ID)
	}
	b.c.Bundles = append(b.c.Bundles, kb)
	return kb
}

// Item adds an item.
func (b *Builder) Item(title string, slot model.Slot, length model.SlotLength, room model.Room) model.Item {
	it := model.Item{ID: b.id(), Title: title, SlotID: slot.ID, LengthID: length.ID, RoomID: room.ID, Visible: true}
	b.c.Items = append(b.c.Items, it)
	return it
}

// Request adds a kit request owned by item.
func (b *Builder) Request(item model.Item, kind model.KitKind, count int) model.KitRequest {
	r := model.KitRequest{ID: b.id(), KindID: kind.ID, Count: count}
	b.c.Requests = append(b.c.Requests, r)
	b.ShareRequest(item, r)
	return r
}

// ShareRequest attaches an existing request to another item.
func (b *Builder) ShareRequest(item model.Item, r model.KitRequest) {
	for i := range b.c.Items {
		if b.c.Items[i].ID == item.ID {
			b.c.Items[i].RequestIDs = append(b.c.Items[i].RequestIDs, r.ID)
		}
	}
}

// AssignPerson puts a person on an item.
func (b *Builder) AssignPerson(item model.Item, p model.Person) {
	b.c.ItemPeople = append(b.c.ItemPeople, model.ItemPerson{ItemID: item.ID, PersonID: p.ID, Role: "Panellist", Visible: true})
}

// AssignToItem gives a thing directly to an item.
func (b *Builder) AssignToItem(item model.Item, t model.KitThing) model.KitItemAssignment {
	a := model.KitItemAssignment{ID: b.id(), ItemID: item.ID, ThingID: t.ID}
	b.c.ItemAssignments = append(b.c.ItemAssignments, a)
	return a
}

// AssignToRoom puts a thing in a room from one slot until to.Start+toLength.
func (b *Builder) AssignToRoom(room model.Room, t model.KitThing, from, to model.Slot, toLength model.SlotLength) model.KitRoomAssignment {
	a := model.KitRoomAssignment{ID: b.id(), RoomID: room.ID, ThingID: t.ID, FromSlotID: from.ID, ToSlotID: to.ID, ToLengthID: toLength.ID}
	b.c.RoomAssignments = append(b.c.RoomAssignments, a)
	return a
}

// AddRoomAssignments appends prebuilt room assignments, assigning ids.
func (b *Builder) AddRoomAssignments(as ...model.KitRoomAssignment) {
	for _, a := range as {
		a.ID = b.id()
		b.c.RoomAssignments = append(b.c.RoomAssignments, a)
	}
}

// AddItemAssignments appends prebuilt item assignments, assigning ids.
func (b *Builder) AddItemAssignments(as ...model.KitItemAssignment) {
	for _, a := range as {
		a.ID = b.id()
		b.c.ItemAssignments = append(b.c.ItemAssignments, a)
	}
}

// RoomAvailable records room availability for slots.
func (b *Builder) RoomAvailable(room model.Room, slots ...model.Slot) {
	for i := range b.c.Rooms {
		if b.c.Rooms[i].ID == room.ID {
			b.c.Rooms[i].Availability = appendSlotIDs(b.c.Rooms[i].Availability, slots)
		}
	}
}

// PersonAvailable records person availability for slots.
func (b *Builder) PersonAvailable(p model.Person, slots ...model.Slot) {
	for i := range b.c.People {
		if b.c.People[i].ID == p.ID {
			b.c.People[i].Availability = appendSlotIDs(b.c.People[i].Availability, slots)
		}
	}
}

// ThingAvailable records kit availability for slots.
func (b *Builder) ThingAvailable(t model.KitThing, slots ...model.Slot) {
	for i := range b.c.Things {
		if b.c.Things[i].ID == t.ID {
			b.c.Things[i].Availability = appendSlotIDs(b.c.Things[i].Availability, slots)
		}
	}
}

func appendSlotIDs(ids []int64, slots []model.Slot) []int64 {
	for _, s := range slots {
		ids = append(ids, s.ID)
	}
	return ids
}

// Collections returns a copy of the accumulated records.
func (b *Builder) Collections() model.Collections {
	return b.c
}

// Snapshot builds a snapshot and panics on error; fixtures are expected valid.
func (b *Builder) Snapshot() *model.Snapshot {
	s, err := model.NewSnapshot(b.c)
	if err != nil {
		panic(fmt.Sprintf("testfixtures: build snapshot: %v", err))
	}
	return s
}
