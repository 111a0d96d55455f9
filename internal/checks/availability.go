package checks

import "fmt"

// RoomNotAvail reports scheduled items in clashing rooms the room is not
// available for.
func RoomNotAvail() Rule {
	return rule{
		desc: Descriptor{
			Name:        "room_not_avail",
			Description: "Items scheduled in a room outside its availability.",
			Shape:       ShapeMixedTuple,
		},
		run: func(env *Env) ([]Violation, error) {
			var out []Violation
			for _, room := range env.Snapshot.Rooms {
				if !room.CanClash {
					continue
				}
				for _, it := range env.Snapshot.ItemsInRoom(room.ID) {
					ok, err := env.Availability.ItemAvailable(room, it)
					if err != nil {
						return nil, fmt.Errorf("room %d for item %d: %w", room.ID, it.ID, err)
					}
					if !ok {
						out = append(out, Violation{itemRef(it), roomRef(room)})
					}
				}
			}
			return out, nil
		},
	}
}

// PersonNotAvail reports people on scheduled items they are not available for.
func PersonNotAvail() Rule {
	return rule{
		desc: Descriptor{
			Name:        "person_not_avail",
			Description: "People scheduled on items outside their availability.",
			Shape:       ShapeMixedTuple,
		},
		run: func(env *Env) ([]Violation, error) {
			var out []Violation
			for _, it := range env.Snapshot.ScheduledItems() {
				for _, person := range env.Snapshot.PeopleOn(it.ID) {
					ok, err := env.Availability.ItemAvailable(person, it)
					if err != nil {
						return nil, fmt.Errorf("person %d for item %d: %w", person.ID, it.ID, err)
					}
					if !ok {
						out = append(out, Violation{itemRef(it), personRef(person)})
					}
				}
			}
			return out, nil
		},
	}
}

// KitNotAvailForItem reports kit given to scheduled items it is not
// available for.
func KitNotAvailForItem() Rule {
	return rule{
		desc: Descriptor{
			Name:        "kit_not_avail_for_item",
			Description: "Kit things assigned to items outside their availability.",
			Shape:       ShapeMixedTuple,
		},
		run: func(env *Env) ([]Violation, error) {
			snap := env.Snapshot
			var out []Violation
			for _, it := range snap.ScheduledItems() {
				for _, a := range snap.ItemAssignmentsFor(it.ID) {
					thing, _ := snap.Thing(a.ThingID)
					ok, err := env.Availability.ItemAvailable(thing, it)
					if err != nil {
						return nil, fmt.Errorf("kit thing %d for item %d: %w", thing.ID, it.ID, err)
					}
					if !ok {
						out = append(out, Violation{itemRef(it), thingRef(thing)})
					}
				}
			}
			return out, nil
		},
	}
}

// KitNotAvailForRoom reports room assignments where either the thing or the
// room is unavailable for the assignment's period.
func KitNotAvailForRoom() Rule {
	return rule{
		desc: Descriptor{
			Name:        "kit_not_avail_for_room",
			Description: "Kit things assigned to rooms when the thing or the room is unavailable.",
			Shape:       ShapeMixedTuple,
		},
		run: func(env *Env) ([]Violation, error) {
			snap := env.Snapshot
			var out []Violation
			for _, a := range snap.RoomAssignments {
				thing, _ := snap.Thing(a.ThingID)
				room, _ := snap.Room(a.RoomID)
				thingOK, err := env.Availability.RoomAssignmentAvailable(thing, a)
				if err != nil {
					return nil, fmt.Errorf("room assignment %d: %w", a.ID, err)
				}
				roomOK, err := env.Availability.RoomAssignmentAvailable(room, a)
				if err != nil {
					return nil, fmt.Errorf("room assignment %d: %w", a.ID, err)
				}
				if !thingOK || !roomOK {
					out = append(out, Violation{roomRef(room), thingRef(thing)})
				}
			}
			return out, nil
		},
	}
}

// PersonNoAvail lists people with no availability recorded at all.
func PersonNoAvail() Rule {
	return rule{
		desc: Descriptor{
			Name:        "person_no_avail",
			Description: "People with no availability defined.",
			Shape:       ShapePersonList,
		},
		run: func(env *Env) ([]Violation, error) {
			var out []Violation
			for _, p := range env.Snapshot.People {
				if len(p.Availability) == 0 {
					out = append(out, Violation{personRef(p)})
				}
			}
			return out, nil
		},
	}
}

// RoomNoAvail lists real rooms with no availability recorded.
func RoomNoAvail() Rule {
	return rule{
		desc: Descriptor{
			Name:        "room_no_avail",
			Description: "Rooms with no availability defined.",
			Shape:       ShapeRoomList,
		},
		run: func(env *Env) ([]Violation, error) {
			var out []Violation
			for _, r := range env.Snapshot.Rooms {
				if r.IsUndefined {
					continue
				}
				if len(r.Availability) == 0 {
					out = append(out, Violation{roomRef(r)})
				}
			}
			return out, nil
		},
	}
}

// KitNoAvail lists kit things with no availability recorded.
func KitNoAvail() Rule {
	return rule{
		desc: Descriptor{
			Name:        "kit_no_avail",
			Description: "Kit things with no availability defined.",
			Shape:       ShapeKitThingList,
		},
		run: func(env *Env) ([]Violation, error) {
			var out []Violation
			for _, t := range env.Snapshot.Things {
				if len(t.Availability) == 0 {
					out = append(out, Violation{thingRef(t)})
				}
			}
			return out, nil
		},
	}
}
