package db

import (
	"context"
	"database/sql"
	"fmt"

	"conprog/internal/metrics"
	"conprog/internal/model"
)

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// LoadSnapshot reads every programme record inside one read transaction,
// so all checks of a run see the same state.
func (db *DB) LoadSnapshot(ctx context.Context) (*model.Snapshot, error) {
	c, err := db.LoadCollections(ctx)
	if err != nil {
		metrics.IncSnapshotLoad("error")
		return nil, err
	}

	snap, err := model.NewSnapshot(c)
	if err != nil {
		metrics.IncSnapshotLoad("invalid")
		return nil, fmt.Errorf("build snapshot: %w", err)
	}

	metrics.IncSnapshotLoad("ok")
	db.logger.Debug().
		Int("items", len(c.Items)).
		Int("people", len(c.People)).
		Int("things", len(c.Things)).
		Msg("Snapshot loaded")
	return snap, nil
}

// LoadCollections reads the raw record set without validating it.
func (db *DB) LoadCollections(ctx context.Context) (model.Collections, error) {
	var c model.Collections

	tx, err := db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return c, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := loadCollections(ctx, tx, &c); err != nil {
		return model.Collections{}, err
	}

	if err := tx.Commit(); err != nil {
		return model.Collections{}, fmt.Errorf("commit: %w", err)
	}
	return c, nil
}

func loadCollections(ctx context.Context, q queryer, c *model.Collections) error {
	loaders := []struct {
		name string
		load func(context.Context, queryer, *model.Collections) error
	}{
		{"days", loadDays},
		{"slot_lengths", loadLengths},
		{"slots", loadSlots},
		{"rooms", loadRooms},
		{"people", loadPeople},
		{"kit_kinds", loadKinds},
		{"kit_things", loadThings},
		{"kit_bundles", loadBundles},
		{"kit_requests", loadRequests},
		{"items", loadItems},
		{"item_people", loadItemPeople},
		{"kit_room_assignments", loadRoomAssignments},
		{"kit_item_assignments", loadItemAssignments},
		{"availability", loadAvailability},
	}
	for _, l := range loaders {
		if err := l.load(ctx, q, c); err != nil {
			return fmt.Errorf("load %s: %w", l.name, err)
		}
	}
	return nil
}

// scanAll runs query and calls scan for every row.
func scanAll(ctx context.Context, q queryer, query string, scan func(*sql.Rows) error, args ...any) error {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

func loadDays(ctx context.Context, q queryer, c *model.Collections) error {
	return scanAll(ctx, q, `
		SELECT id, name, date, sort_order, visible, is_default, is_undefined
		FROM days ORDER BY sort_order, id`,
		func(rows *sql.Rows) error {
			var d model.Day
			var date string
			if err := rows.Scan(&d.ID, &d.Name, &date, &d.Order, &d.Visible, &d.IsDefault, &d.IsUndefined); err != nil {
				return err
			}
			t, err := parseDate(date)
			if err != nil {
				return fmt.Errorf("day %d: %w", d.ID, err)
			}
			d.Date = t
			c.Days = append(c.Days, d)
			return nil
		})
}

func loadLengths(ctx context.Context, q queryer, c *model.Collections) error {
	return scanAll(ctx, q, `
		SELECT id, name, minutes, is_default, is_undefined
		FROM slot_lengths ORDER BY minutes, id`,
		func(rows *sql.Rows) error {
			var l model.SlotLength
			if err := rows.Scan(&l.ID, &l.Name, &l.Minutes, &l.IsDefault, &l.IsUndefined); err != nil {
				return err
			}
			c.Lengths = append(c.Lengths, l)
			return nil
		})
}

func loadSlots(ctx context.Context, q queryer, c *model.Collections) error {
	return scanAll(ctx, q, `
		SELECT id, day_id, start_offset, start_text, slot_text, length_id,
			visible, sort_order, is_default, is_undefined
		FROM slots ORDER BY day_id, start_offset, id`,
		func(rows *sql.Rows) error {
			var s model.Slot
			if err := rows.Scan(&s.ID, &s.DayID, &s.Start, &s.StartText, &s.SlotText, &s.LengthID,
				&s.Visible, &s.Order, &s.IsDefault, &s.IsUndefined); err != nil {
				return err
			}
			c.Slots = append(c.Slots, s)
			return nil
		})
}

func loadRooms(ctx context.Context, q queryer, c *model.Collections) error {
	return scanAll(ctx, q, `
		SELECT id, name, visible, can_clash, is_default, is_undefined, grid_order, parent_id
		FROM rooms ORDER BY grid_order, id`,
		func(rows *sql.Rows) error {
			var r model.Room
			var parent sql.NullInt64
			if err := rows.Scan(&r.ID, &r.Name, &r.Visible, &r.CanClash, &r.IsDefault, &r.IsUndefined,
				&r.GridOrder, &parent); err != nil {
				return err
			}
			r.ParentID = ptrInt(parent)
			c.Rooms = append(c.Rooms, r)
			return nil
		})
}

func loadPeople(ctx context.Context, q queryer, c *model.Collections) error {
	return scanAll(ctx, q, `
		SELECT id, first_name, middle_name, last_name, badge
		FROM people ORDER BY id`,
		func(rows *sql.Rows) error {
			var p model.Person
			if err := rows.Scan(&p.ID, &p.FirstName, &p.MiddleName, &p.LastName, &p.Badge); err != nil {
				return err
			}
			c.People = append(c.People, p)
			return nil
		})
}

func loadKinds(ctx context.Context, q queryer, c *model.Collections) error {
	return scanAll(ctx, q, `SELECT id, name FROM kit_kinds ORDER BY id`,
		func(rows *sql.Rows) error {
			var k model.KitKind
			if err := rows.Scan(&k.ID, &k.Name); err != nil {
				return err
			}
			c.Kinds = append(c.Kinds, k)
			return nil
		})
}

func loadThings(ctx context.Context, q queryer, c *model.Collections) error {
	return scanAll(ctx, q, `SELECT id, name, kind_id, count FROM kit_things ORDER BY id`,
		func(rows *sql.Rows) error {
			var t model.KitThing
			if err := rows.Scan(&t.ID, &t.Name, &t.KindID, &t.Count); err != nil {
				return err
			}
			c.Things = append(c.Things, t)
			return nil
		})
}

func loadBundles(ctx context.Context, q queryer, c *model.Collections) error {
	index := make(map[int64]int)
	err := scanAll(ctx, q, `SELECT id, name FROM kit_bundles ORDER BY id`,
		func(rows *sql.Rows) error {
			var b model.KitBundle
			if err := rows.Scan(&b.ID, &b.Name); err != nil {
				return err
			}
			index[b.ID] = len(c.Bundles)
			c.Bundles = append(c.Bundles, b)
			return nil
		})
	if err != nil {
		return err
	}

	return scanAll(ctx, q, `
		SELECT bundle_id, thing_id FROM kit_bundle_things
		ORDER BY bundle_id, position, thing_id`,
		func(rows *sql.Rows) error {
			var bundleID, thingID int64
			if err := rows.Scan(&bundleID, &thingID); err != nil {
				return err
			}
			if i, ok := index[bundleID]; ok {
				c.Bundles[i].ThingIDs = append(c.Bundles[i].ThingIDs, thingID)
			}
			return nil
		})
}

func loadRequests(ctx context.Context, q queryer, c *model.Collections) error {
	return scanAll(ctx, q, `
		SELECT id, kind_id, count, setup_assistance, notes, sorted
		FROM kit_requests ORDER BY id`,
		func(rows *sql.Rows) error {
			var r model.KitRequest
			if err := rows.Scan(&r.ID, &r.KindID, &r.Count, &r.SetupAssistance, &r.Notes, &r.Sorted); err != nil {
				return err
			}
			c.Requests = append(c.Requests, r)
			return nil
		})
}

func loadItems(ctx context.Context, q queryer, c *model.Collections) error {
	index := make(map[int64]int)
	err := scanAll(ctx, q, `
		SELECT id, title, shortname, slot_id, length_id, room_id, kind, seating,
			front_layout, visible, follows_id
		FROM items ORDER BY id`,
		func(rows *sql.Rows) error {
			var it model.Item
			var follows sql.NullInt64
			if err := rows.Scan(&it.ID, &it.Title, &it.Shortname, &it.SlotID, &it.LengthID, &it.RoomID,
				&it.Kind, &it.Seating, &it.FrontLayout, &it.Visible, &follows); err != nil {
				return err
			}
			it.FollowsID = ptrInt(follows)
			index[it.ID] = len(c.Items)
			c.Items = append(c.Items, it)
			return nil
		})
	if err != nil {
		return err
	}

	return scanAll(ctx, q, `SELECT item_id, request_id FROM item_requests ORDER BY item_id, request_id`,
		func(rows *sql.Rows) error {
			var itemID, requestID int64
			if err := rows.Scan(&itemID, &requestID); err != nil {
				return err
			}
			if i, ok := index[itemID]; ok {
				c.Items[i].RequestIDs = append(c.Items[i].RequestIDs, requestID)
			}
			return nil
		})
}

func loadItemPeople(ctx context.Context, q queryer, c *model.Collections) error {
	return scanAll(ctx, q, `
		SELECT item_id, person_id, role, status, visible
		FROM item_people ORDER BY item_id, person_id`,
		func(rows *sql.Rows) error {
			var ip model.ItemPerson
			if err := rows.Scan(&ip.ItemID, &ip.PersonID, &ip.Role, &ip.Status, &ip.Visible); err != nil {
				return err
			}
			c.ItemPeople = append(c.ItemPeople, ip)
			return nil
		})
}

func loadRoomAssignments(ctx context.Context, q queryer, c *model.Collections) error {
	return scanAll(ctx, q, `
		SELECT id, room_id, thing_id, bundle_id, from_slot_id, to_slot_id, to_length_id
		FROM kit_room_assignments ORDER BY id`,
		func(rows *sql.Rows) error {
			var a model.KitRoomAssignment
			var bundle sql.NullInt64
			if err := rows.Scan(&a.ID, &a.RoomID, &a.ThingID, &bundle, &a.FromSlotID, &a.ToSlotID, &a.ToLengthID); err != nil {
				return err
			}
			a.BundleID = ptrInt(bundle)
			c.RoomAssignments = append(c.RoomAssignments, a)
			return nil
		})
}

func loadItemAssignments(ctx context.Context, q queryer, c *model.Collections) error {
	return scanAll(ctx, q, `
		SELECT id, item_id, thing_id, bundle_id
		FROM kit_item_assignments ORDER BY id`,
		func(rows *sql.Rows) error {
			var a model.KitItemAssignment
			var bundle sql.NullInt64
			if err := rows.Scan(&a.ID, &a.ItemID, &a.ThingID, &bundle); err != nil {
				return err
			}
			a.BundleID = ptrInt(bundle)
			c.ItemAssignments = append(c.ItemAssignments, a)
			return nil
		})
}

func loadAvailability(ctx context.Context, q queryer, c *model.Collections) error {
	rooms := make(map[int64]int, len(c.Rooms))
	for i, r := range c.Rooms {
		rooms[r.ID] = i
	}
	people := make(map[int64]int, len(c.People))
	for i, p := range c.People {
		people[p.ID] = i
	}
	things := make(map[int64]int, len(c.Things))
	for i, t := range c.Things {
		things[t.ID] = i
	}

	tables := []struct {
		query string
		add   func(owner, slot int64)
	}{
		{
			`SELECT room_id, slot_id FROM room_availability ORDER BY room_id, slot_id`,
			func(owner, slot int64) {
				if i, ok := rooms[owner]; ok {
					c.Rooms[i].Availability = append(c.Rooms[i].Availability, slot)
				}
			},
		},
		{
			`SELECT person_id, slot_id FROM person_availability ORDER BY person_id, slot_id`,
			func(owner, slot int64) {
				if i, ok := people[owner]; ok {
					c.People[i].Availability = append(c.People[i].Availability, slot)
				}
			},
		},
		{
			`SELECT thing_id, slot_id FROM thing_availability ORDER BY thing_id, slot_id`,
			func(owner, slot int64) {
				if i, ok := things[owner]; ok {
					c.Things[i].Availability = append(c.Things[i].Availability, slot)
				}
			},
		},
	}

	for _, t := range tables {
		err := scanAll(ctx, q, t.query, func(rows *sql.Rows) error {
			var owner, slot int64
			if err := rows.Scan(&owner, &slot); err != nil {
				return err
			}
			t.add(owner, slot)
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}
