package checks

import "fmt"

// ItemsUnsatisfiedKitReq reports scheduled items whose kit requests are not
// met by direct and room supply together.
func ItemsUnsatisfiedKitReq() Rule {
	return rule{
		desc: Descriptor{
			Name:        "items_unsatisfied_kitreq",
			Description: "Items with kit requests not satisfied by item or room kit.",
			Shape:       ShapeItemList,
		},
		run: func(env *Env) ([]Violation, error) {
			var out []Violation
			for _, it := range env.Snapshot.ScheduledItems() {
				if len(it.RequestIDs) == 0 {
					continue
				}
				res, err := env.Kit.Satisfaction(it)
				if err != nil {
					return nil, fmt.Errorf("item %d: %w", it.ID, err)
				}
				if !res.Satisfied {
					out = append(out, Violation{itemRef(it)})
				}
			}
			return out, nil
		},
	}
}

// ItemsNoPeople lists items nobody is assigned to.
func ItemsNoPeople() Rule {
	return rule{
		desc: Descriptor{
			Name:        "items_no_people",
			Description: "Items with no people assigned.",
			Shape:       ShapeItemList,
		},
		run: func(env *Env) ([]Violation, error) {
			var out []Violation
			for _, it := range env.Snapshot.Items {
				if len(env.Snapshot.PeopleOn(it.ID)) == 0 {
					out = append(out, Violation{itemRef(it)})
				}
			}
			return out, nil
		},
	}
}

// ItemsNoRoom lists items still in the undefined room.
func ItemsNoRoom() Rule {
	return rule{
		desc: Descriptor{
			Name:        "items_no_room",
			Description: "Items that have not been given a room.",
			Shape:       ShapeItemList,
		},
		run: func(env *Env) ([]Violation, error) {
			undefined := env.Snapshot.Sentinels.UndefinedRoom.ID
			var out []Violation
			for _, it := range env.Snapshot.Items {
				if it.RoomID == undefined {
					out = append(out, Violation{itemRef(it)})
				}
			}
			return out, nil
		},
	}
}
