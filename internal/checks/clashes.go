package checks

import (
	"fmt"

	"conprog/internal/slots"
)

// RoomClashes reports scheduled items sharing time in a room that can clash.
// Each clashing pair is reported once in each direction.
func RoomClashes() Rule {
	return rule{
		desc: Descriptor{
			Name:        "room_clashes",
			Description: "Items scheduled in the same room at overlapping times.",
			Shape:       ShapeMixedTuple,
		},
		run: func(env *Env) ([]Violation, error) {
			var out []Violation
			for _, room := range env.Snapshot.Rooms {
				if !room.CanClash {
					continue
				}
				items := env.Snapshot.ItemsInRoom(room.ID)
				for _, x := range items {
					for _, y := range items {
						overlap, err := env.Timeline.ItemsOverlap(x, y)
						if err != nil {
							return nil, fmt.Errorf("items %d and %d: %w", x.ID, y.ID, err)
						}
						if overlap {
							out = append(out, Violation{itemRef(x), itemRef(y), roomRef(room)})
						}
					}
				}
			}
			return out, nil
		},
	}
}

// PersonClashes reports people on two scheduled items that overlap.
func PersonClashes() Rule {
	return rule{
		desc: Descriptor{
			Name:        "person_clashes",
			Description: "People assigned to overlapping items.",
			Shape:       ShapeMixedTuple,
		},
		run: func(env *Env) ([]Violation, error) {
			snap := env.Snapshot
			var out []Violation
			for _, x := range snap.ScheduledItems() {
				for _, person := range snap.PeopleOn(x.ID) {
					for _, y := range snap.ItemsFor(person.ID) {
						if y.ID == x.ID || !snap.IsScheduled(y) {
							continue
						}
						overlap, err := env.Timeline.ItemsOverlap(x, y)
						if err != nil {
							return nil, fmt.Errorf("items %d and %d: %w", x.ID, y.ID, err)
						}
						if overlap {
							out = append(out, Violation{itemRef(x), itemRef(y), personRef(person)})
						}
					}
				}
			}
			return out, nil
		},
	}
}

// KitClashes reports a thing in two places at once: on two overlapping
// items, in two overlapping room assignments, or in a room while also given
// to an overlapping item in a different room.
func KitClashes() Rule {
	return rule{
		desc: Descriptor{
			Name:        "kit_clashes",
			Description: "Kit things assigned to more than one place at the same time.",
			Shape:       ShapeMixedTuple,
		},
		run: func(env *Env) ([]Violation, error) {
			snap := env.Snapshot
			tl := env.Timeline
			var out []Violation

			itemKit := snap.ItemAssignments
			roomKit := snap.RoomAssignments

			for _, x := range itemKit {
				for _, y := range itemKit {
					if x.ID == y.ID || x.ThingID != y.ThingID {
						continue
					}
					ix, _ := snap.Item(x.ItemID)
					iy, _ := snap.Item(y.ItemID)
					if !snap.IsScheduled(ix) || !snap.IsScheduled(iy) {
						continue
					}
					overlap, err := tl.ItemsOverlap(ix, iy)
					if err != nil {
						return nil, fmt.Errorf("item assignments %d and %d: %w", x.ID, y.ID, err)
					}
					if overlap {
						out = append(out, Violation{itemAssignmentRef(snap, x), itemAssignmentRef(snap, y)})
					}
				}
			}

			periods := make(map[int64]slots.Period, len(roomKit))
			for _, a := range roomKit {
				p, err := tl.RoomAssignmentPeriod(a)
				if err != nil {
					return nil, fmt.Errorf("room assignment %d: %w", a.ID, err)
				}
				periods[a.ID] = p
			}

			for _, x := range roomKit {
				for _, y := range roomKit {
					if x.ID == y.ID || x.ThingID != y.ThingID {
						continue
					}
					overlap, err := slots.Overlaps(periods[x.ID], periods[y.ID])
					if err != nil {
						return nil, fmt.Errorf("room assignments %d and %d: %w", x.ID, y.ID, err)
					}
					if overlap {
						out = append(out, Violation{roomAssignmentRef(snap, x), roomAssignmentRef(snap, y)})
					}
				}
			}

			for _, ra := range roomKit {
				for _, ia := range itemKit {
					if ra.ThingID != ia.ThingID {
						continue
					}
					it, _ := snap.Item(ia.ItemID)
					if it.RoomID == ra.RoomID || !snap.IsScheduled(it) {
						continue
					}
					ip, err := tl.ItemPeriod(it)
					if err != nil {
						return nil, fmt.Errorf("item %d: %w", it.ID, err)
					}
					overlap, err := slots.Overlaps(periods[ra.ID], ip)
					if err != nil {
						return nil, fmt.Errorf("room assignment %d and item %d: %w", ra.ID, it.ID, err)
					}
					if overlap {
						out = append(out, Violation{roomAssignmentRef(snap, ra), itemAssignmentRef(snap, ia)})
					}
				}
			}

			return out, nil
		},
	}
}
