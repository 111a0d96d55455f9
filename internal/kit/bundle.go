package kit

import (
	"sort"

	"conprog/internal/model"
)

// ExpandBundleToRoom returns one room assignment per thing in the bundle,
// each tagged with the bundle so it can be removed as a unit later.
func ExpandBundleToRoom(b model.KitBundle, roomID, fromSlotID, toSlotID, toLengthID int64) []model.KitRoomAssignment {
	out := make([]model.KitRoomAssignment, 0, len(b.ThingIDs))
	for _, thingID := range b.ThingIDs {
		bundleID := b.ID
		out = append(out, model.KitRoomAssignment{
			RoomID:     roomID,
			ThingID:    thingID,
			BundleID:   &bundleID,
			FromSlotID: fromSlotID,
			ToSlotID:   toSlotID,
			ToLengthID: toLengthID,
		})
	}
	return out
}

// ExpandBundleToItem returns one item assignment per thing in the bundle.
func ExpandBundleToItem(b model.KitBundle, itemID int64) []model.KitItemAssignment {
	out := make([]model.KitItemAssignment, 0, len(b.ThingIDs))
	for _, thingID := range b.ThingIDs {
		bundleID := b.ID
		out = append(out, model.KitItemAssignment{
			ItemID:   itemID,
			ThingID:  thingID,
			BundleID: &bundleID,
		})
	}
	return out
}

// Usage counts how often a thing is assigned.
type Usage struct {
	Thing           model.KitThing `json:"thing"`
	Kind            string         `json:"kind"`
	RoomAssignments int            `json:"room_assignments"`
	ItemAssignments int            `json:"item_assignments"`
	Bundles         []string       `json:"bundles"`
}

// Summarize returns kit usage for every thing, ordered by kind then name.
func Summarize(snap *model.Snapshot) []Usage {
	byThing := make(map[int64]*Usage, len(snap.Things))
	out := make([]Usage, 0, len(snap.Things))
	for _, t := range snap.Things {
		k, _ := snap.Kind(t.KindID)
		out = append(out, Usage{Thing: t, Kind: k.Name, Bundles: []string{}})
	}
	for i := range out {
		byThing[out[i].Thing.ID] = &out[i]
	}

	for _, a := range snap.RoomAssignments {
		if u, ok := byThing[a.ThingID]; ok {
			u.RoomAssignments++
		}
	}
	for _, a := range snap.ItemAssignments {
		if u, ok := byThing[a.ThingID]; ok {
			u.ItemAssignments++
		}
	}
	for _, b := range snap.Bundles {
		for _, id := range b.ThingIDs {
			if u, ok := byThing[id]; ok {
				u.Bundles = append(u.Bundles, b.Name)
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].Thing.Name < out[j].Thing.Name
	})
	return out
}

// SharedRequest is a kit request referenced by more than one item.
type SharedRequest struct {
	RequestID int64   `json:"request_id"`
	ItemIDs   []int64 `json:"item_ids"`
}

// FindSharedRequests lists every request owned by more than one item.
func FindSharedRequests(snap *model.Snapshot) []SharedRequest {
	var out []SharedRequest
	for _, r := range snap.Requests {
		if snap.SharedRequest(r.ID) {
			out = append(out, SharedRequest{RequestID: r.ID, ItemIDs: snap.RequestOwners(r.ID)})
		}
	}
	return out
}
