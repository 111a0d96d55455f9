package db

import (
	"context"
	"database/sql"
	"fmt"

	"conprog/internal/model"
)

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// ImportCollections writes a full record set in one transaction. Records
// keep their ids; a zero id is assigned by the database. The import is
// rolled back when the stored records no longer form a valid snapshot,
// e.g. a second undefined day.
func (db *DB) ImportCollections(ctx context.Context, c model.Collections) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := importCollections(ctx, tx, c); err != nil {
		return err
	}

	var merged model.Collections
	if err := loadCollections(ctx, tx, &merged); err != nil {
		return err
	}
	if _, err := model.NewSnapshot(merged); err != nil {
		return fmt.Errorf("validate import: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	db.logger.Info().
		Int("days", len(c.Days)).
		Int("slots", len(c.Slots)).
		Int("items", len(c.Items)).
		Int("things", len(c.Things)).
		Msg("Collections imported")
	return nil
}

func importCollections(ctx context.Context, tx execer, c model.Collections) error {
	for _, d := range c.Days {
		if _, err := insertDay(ctx, tx, d); err != nil {
			return fmt.Errorf("insert day %q: %w", d.Name, err)
		}
	}
	for _, l := range c.Lengths {
		if _, err := insertLength(ctx, tx, l); err != nil {
			return fmt.Errorf("insert slot length %q: %w", l.Name, err)
		}
	}
	for _, s := range c.Slots {
		if _, err := insertSlot(ctx, tx, s); err != nil {
			return fmt.Errorf("insert slot %d: %w", s.ID, err)
		}
	}
	for _, r := range c.Rooms {
		if _, err := insertRoom(ctx, tx, r); err != nil {
			return fmt.Errorf("insert room %q: %w", r.Name, err)
		}
	}
	for _, p := range c.People {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO people (id, first_name, middle_name, last_name, badge)
			VALUES (?, ?, ?, ?, ?)`,
			idArg(p.ID), p.FirstName, p.MiddleName, p.LastName, p.Badge); err != nil {
			return fmt.Errorf("insert person %d: %w", p.ID, err)
		}
	}
	for _, k := range c.Kinds {
		if _, err := insertKind(ctx, tx, k); err != nil {
			return fmt.Errorf("insert kit kind %q: %w", k.Name, err)
		}
	}
	for _, t := range c.Things {
		if _, err := insertThing(ctx, tx, t); err != nil {
			return fmt.Errorf("insert kit thing %q: %w", t.Name, err)
		}
	}
	for _, b := range c.Bundles {
		if _, err := tx.ExecContext(ctx, `INSERT INTO kit_bundles (id, name) VALUES (?, ?)`,
			idArg(b.ID), b.Name); err != nil {
			return fmt.Errorf("insert bundle %q: %w", b.Name, err)
		}
		for pos, thingID := range b.ThingIDs {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO kit_bundle_things (bundle_id, thing_id, position) VALUES (?, ?, ?)`,
				b.ID, thingID, pos); err != nil {
				return fmt.Errorf("insert bundle %q thing %d: %w", b.Name, thingID, err)
			}
		}
	}
	for _, r := range c.Requests {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO kit_requests (id, kind_id, count, setup_assistance, notes, sorted)
			VALUES (?, ?, ?, ?, ?, ?)`,
			idArg(r.ID), r.KindID, r.Count, r.SetupAssistance, r.Notes, r.Sorted); err != nil {
			return fmt.Errorf("insert kit request %d: %w", r.ID, err)
		}
	}
	for _, it := range c.Items {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO items (id, title, shortname, slot_id, length_id, room_id, kind,
				seating, front_layout, visible, follows_id)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			idArg(it.ID), it.Title, it.Shortname, it.SlotID, it.LengthID, it.RoomID, it.Kind,
			it.Seating, it.FrontLayout, it.Visible, nullInt(it.FollowsID)); err != nil {
			return fmt.Errorf("insert item %d: %w", it.ID, err)
		}
	}
	for _, it := range c.Items {
		for _, reqID := range it.RequestIDs {
			if _, err := tx.ExecContext(ctx, `INSERT INTO item_requests (item_id, request_id) VALUES (?, ?)`,
				it.ID, reqID); err != nil {
				return fmt.Errorf("link item %d request %d: %w", it.ID, reqID, err)
			}
		}
	}
	for _, ip := range c.ItemPeople {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO item_people (item_id, person_id, role, status, visible)
			VALUES (?, ?, ?, ?, ?)`,
			ip.ItemID, ip.PersonID, ip.Role, ip.Status, ip.Visible); err != nil {
			return fmt.Errorf("insert item %d person %d: %w", ip.ItemID, ip.PersonID, err)
		}
	}
	for _, a := range c.RoomAssignments {
		if _, err := insertRoomAssignment(ctx, tx, a); err != nil {
			return fmt.Errorf("insert room assignment %d: %w", a.ID, err)
		}
	}
	for _, a := range c.ItemAssignments {
		if _, err := insertItemAssignment(ctx, tx, a); err != nil {
			return fmt.Errorf("insert item assignment %d: %w", a.ID, err)
		}
	}

	var avail []availRows
	for _, r := range c.Rooms {
		avail = append(avail, availRows{`INSERT INTO room_availability (room_id, slot_id) VALUES (?, ?)`, r.ID, r.Availability})
	}
	for _, p := range c.People {
		avail = append(avail, availRows{`INSERT INTO person_availability (person_id, slot_id) VALUES (?, ?)`, p.ID, p.Availability})
	}
	for _, t := range c.Things {
		avail = append(avail, availRows{`INSERT INTO thing_availability (thing_id, slot_id) VALUES (?, ?)`, t.ID, t.Availability})
	}
	for _, a := range avail {
		for _, slotID := range a.slots {
			if _, err := tx.ExecContext(ctx, a.query, a.owner, slotID); err != nil {
				return fmt.Errorf("insert availability %d/%d: %w", a.owner, slotID, err)
			}
		}
	}

	return nil
}

type availRows struct {
	query string
	owner int64
	slots []int64
}

// idArg lets sqlite assign the id when none is given.
func idArg(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}

func lastID(res sql.Result, err error) (int64, error) {
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func insertDay(ctx context.Context, tx execer, d model.Day) (int64, error) {
	return lastID(tx.ExecContext(ctx, `
		INSERT INTO days (id, name, date, sort_order, visible, is_default, is_undefined)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		idArg(d.ID), d.Name, formatDate(d.Date), d.Order, d.Visible, d.IsDefault, d.IsUndefined))
}

func insertLength(ctx context.Context, tx execer, l model.SlotLength) (int64, error) {
	return lastID(tx.ExecContext(ctx, `
		INSERT INTO slot_lengths (id, name, minutes, is_default, is_undefined)
		VALUES (?, ?, ?, ?, ?)`,
		idArg(l.ID), l.Name, l.Minutes, l.IsDefault, l.IsUndefined))
}

func insertSlot(ctx context.Context, tx execer, s model.Slot) (int64, error) {
	return lastID(tx.ExecContext(ctx, `
		INSERT INTO slots (id, day_id, start_offset, start_text, slot_text, length_id,
			visible, sort_order, is_default, is_undefined)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		idArg(s.ID), s.DayID, s.Start, s.StartText, s.SlotText, s.LengthID,
		s.Visible, s.Order, s.IsDefault, s.IsUndefined))
}

func insertRoom(ctx context.Context, tx execer, r model.Room) (int64, error) {
	return lastID(tx.ExecContext(ctx, `
		INSERT INTO rooms (id, name, visible, can_clash, is_default, is_undefined, grid_order, parent_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		idArg(r.ID), r.Name, r.Visible, r.CanClash, r.IsDefault, r.IsUndefined, r.GridOrder, nullInt(r.ParentID)))
}

func insertKind(ctx context.Context, tx execer, k model.KitKind) (int64, error) {
	return lastID(tx.ExecContext(ctx, `INSERT INTO kit_kinds (id, name) VALUES (?, ?)`, idArg(k.ID), k.Name))
}

func insertThing(ctx context.Context, tx execer, t model.KitThing) (int64, error) {
	return lastID(tx.ExecContext(ctx, `
		INSERT INTO kit_things (id, name, kind_id, count) VALUES (?, ?, ?, ?)`,
		idArg(t.ID), t.Name, t.KindID, t.Count))
}

func insertRoomAssignment(ctx context.Context, tx execer, a model.KitRoomAssignment) (int64, error) {
	return lastID(tx.ExecContext(ctx, `
		INSERT INTO kit_room_assignments (id, room_id, thing_id, bundle_id, from_slot_id, to_slot_id, to_length_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		idArg(a.ID), a.RoomID, a.ThingID, nullInt(a.BundleID), a.FromSlotID, a.ToSlotID, a.ToLengthID))
}

func insertItemAssignment(ctx context.Context, tx execer, a model.KitItemAssignment) (int64, error) {
	return lastID(tx.ExecContext(ctx, `
		INSERT INTO kit_item_assignments (id, item_id, thing_id, bundle_id) VALUES (?, ?, ?, ?)`,
		idArg(a.ID), a.ItemID, a.ThingID, nullInt(a.BundleID)))
}
