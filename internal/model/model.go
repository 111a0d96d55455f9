package model

import (
	"strings"
	"time"
)

// Day maps a calendar date to a name and its place in the programme.
type Day struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Date        time.Time `json:"date"`
	Order       int       `json:"order"`
	Visible     bool      `json:"visible"`
	IsDefault   bool      `json:"is_default"`
	IsUndefined bool      `json:"is_undefined"`
}

// SlotLength is a named duration an item may run for.
type SlotLength struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Minutes     int    `json:"minutes"`
	IsDefault   bool   `json:"is_default"`
	IsUndefined bool   `json:"is_undefined"`
}

// Slot is a potential start point within a day.
// LengthID is only the default length for items starting here.
type Slot struct {
	ID          int64  `json:"id"`
	DayID       int64  `json:"day_id"`
	Start       int    `json:"start"` // minutes after midnight
	StartText   string `json:"start_text"`
	SlotText    string `json:"slot_text"`
	LengthID    int64  `json:"length_id"`
	Visible     bool   `json:"visible"`
	Order       int    `json:"order"`
	IsDefault   bool   `json:"is_default"`
	IsUndefined bool   `json:"is_undefined"`
}

// SlotKey identifies a slot for comparison purposes.
type SlotKey struct {
	DayID int64
	Start int
}

// Key returns the (day, start) identity of the slot.
func (s Slot) Key() SlotKey {
	return SlotKey{DayID: s.DayID, Start: s.Start}
}

// Room is a physical space where items take place.
type Room struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	Visible      bool    `json:"visible"`
	CanClash     bool    `json:"can_clash"`
	IsDefault    bool    `json:"is_default"`
	IsUndefined  bool    `json:"is_undefined"`
	GridOrder    int     `json:"grid_order"`
	ParentID     *int64  `json:"parent_id,omitempty"`
	Availability []int64 `json:"availability"` // slot IDs
}

// AvailableSlots implements Availabler.
func (r Room) AvailableSlots() []int64 { return r.Availability }

// Person is a candidate participant for items.
type Person struct {
	ID           int64   `json:"id"`
	FirstName    string  `json:"first_name"`
	MiddleName   string  `json:"middle_name"`
	LastName     string  `json:"last_name"`
	Badge        string  `json:"badge"`
	Availability []int64 `json:"availability"`
}

// AvailableSlots implements Availabler.
func (p Person) AvailableSlots() []int64 { return p.Availability }

// DisplayName joins the non-empty name parts, falling back to the badge name.
func (p Person) DisplayName() string {
	parts := make([]string, 0, 3)
	for _, s := range []string{p.FirstName, p.MiddleName, p.LastName} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return p.Badge
	}
	return strings.Join(parts, " ")
}

// KitKind is the category used to match requests against supply.
type KitKind struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// KitThing is a unit of equipment, or several units kept together.
type KitThing struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	KindID       int64   `json:"kind_id"`
	Count        int     `json:"count"`
	Availability []int64 `json:"availability"`
}

// AvailableSlots implements Availabler.
func (k KitThing) AvailableSlots() []int64 { return k.Availability }

// KitBundle is a named group of things assignable as a unit.
type KitBundle struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	ThingIDs []int64 `json:"thing_ids"`
}

// KitRoomAssignment puts a thing in a room from FromSlot until
// ToSlot.Start + ToLength.
type KitRoomAssignment struct {
	ID         int64  `json:"id"`
	RoomID     int64  `json:"room_id"`
	ThingID    int64  `json:"thing_id"`
	BundleID   *int64 `json:"bundle_id,omitempty"`
	FromSlotID int64  `json:"from_slot_id"`
	ToSlotID   int64  `json:"to_slot_id"`
	ToLengthID int64  `json:"to_length_id"`
}

// KitItemAssignment gives a thing to an item for whenever the item runs.
type KitItemAssignment struct {
	ID       int64  `json:"id"`
	ItemID   int64  `json:"item_id"`
	ThingID  int64  `json:"thing_id"`
	BundleID *int64 `json:"bundle_id,omitempty"`
}

// KitRequest is an item's abstract demand for equipment of one kind.
type KitRequest struct {
	ID              int64  `json:"id"`
	KindID          int64  `json:"kind_id"`
	Count           int    `json:"count"`
	SetupAssistance bool   `json:"setup_assistance"`
	Notes           string `json:"notes"`
	Sorted          bool   `json:"sorted"` // set by staff
}

// Item is a schedulable unit of programme.
type Item struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Shortname   string  `json:"shortname"`
	SlotID      int64   `json:"slot_id"`
	LengthID    int64   `json:"length_id"`
	RoomID      int64   `json:"room_id"`
	Kind        string  `json:"kind"`
	Seating     string  `json:"seating"`
	FrontLayout string  `json:"front_layout"`
	Visible     bool    `json:"visible"`
	FollowsID   *int64  `json:"follows_id,omitempty"`
	RequestIDs  []int64 `json:"request_ids"`
}

// DisplayName prefers the title over the shortname.
func (i Item) DisplayName() string {
	if i.Title != "" {
		return i.Title
	}
	return i.Shortname
}

// ItemPerson assigns a person to an item.
type ItemPerson struct {
	ItemID   int64  `json:"item_id"`
	PersonID int64  `json:"person_id"`
	Role     string `json:"role"`
	Status   string `json:"status"`
	Visible  bool   `json:"visible"`
}

// Availabler is implemented by entities that record slot-by-slot availability.
type Availabler interface {
	AvailableSlots() []int64
}
