package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"conprog/internal/kit"
	"conprog/internal/model"
)

// BundleDeletePolicy decides what happens to assignments made through a
// bundle when the bundle is deleted.
type BundleDeletePolicy string

const (
	// BundleCascade removes the assignments with the bundle.
	BundleCascade BundleDeletePolicy = "cascade"
	// BundleSetNull keeps the assignments as individual ones.
	BundleSetNull BundleDeletePolicy = "set_null"
)

// ErrSentinelRoom is returned when deleting the default or undefined room.
var ErrSentinelRoom = errors.New("cannot delete a default or undefined room")

// ParseBundleDeletePolicy validates a kit.bundle_delete_policy value.
func ParseBundleDeletePolicy(s string) (BundleDeletePolicy, error) {
	switch p := BundleDeletePolicy(s); p {
	case BundleCascade, BundleSetNull:
		return p, nil
	}
	return "", fmt.Errorf("unknown bundle delete policy %q", s)
}

// AssignThingToRoom stores a single room assignment and returns its id.
func (db *DB) AssignThingToRoom(ctx context.Context, a model.KitRoomAssignment) (int64, error) {
	a.ID = 0
	id, err := insertRoomAssignment(ctx, db, a)
	if err != nil {
		return 0, fmt.Errorf("assign thing %d to room %d: %w", a.ThingID, a.RoomID, err)
	}
	return id, nil
}

// AssignThingToItem stores a single item assignment and returns its id.
func (db *DB) AssignThingToItem(ctx context.Context, a model.KitItemAssignment) (int64, error) {
	a.ID = 0
	id, err := insertItemAssignment(ctx, db, a)
	if err != nil {
		return 0, fmt.Errorf("assign thing %d to item %d: %w", a.ThingID, a.ItemID, err)
	}
	return id, nil
}

// AssignBundleToRoom expands the bundle into one room assignment per thing,
// all covering the same period.
func (db *DB) AssignBundleToRoom(ctx context.Context, bundleID, roomID, fromSlotID, toSlotID, toLengthID int64) ([]int64, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	b, err := getBundle(ctx, tx, bundleID)
	if err != nil {
		return nil, err
	}

	var ids []int64
	for _, a := range kit.ExpandBundleToRoom(b, roomID, fromSlotID, toSlotID, toLengthID) {
		id, err := insertRoomAssignment(ctx, tx, a)
		if err != nil {
			return nil, fmt.Errorf("assign bundle %d thing %d to room %d: %w", bundleID, a.ThingID, roomID, err)
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	db.logger.Info().Int64("bundle_id", bundleID).Int64("room_id", roomID).Int("things", len(ids)).Msg("Bundle assigned to room")
	return ids, nil
}

// AssignBundleToItem expands the bundle into one item assignment per thing.
// A bundle can be given to an item once.
func (db *DB) AssignBundleToItem(ctx context.Context, bundleID, itemID int64) ([]int64, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	b, err := getBundle(ctx, tx, bundleID)
	if err != nil {
		return nil, err
	}

	var existing int
	err = tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM kit_item_assignments WHERE bundle_id = ? AND item_id = ?",
		bundleID, itemID,
	).Scan(&existing)
	if err != nil {
		return nil, fmt.Errorf("check existing: %w", err)
	}
	if existing > 0 {
		return nil, fmt.Errorf("%w: bundle %d to item %d", ErrAlreadyAssigned, bundleID, itemID)
	}

	var ids []int64
	for _, a := range kit.ExpandBundleToItem(b, itemID) {
		id, err := insertItemAssignment(ctx, tx, a)
		if err != nil {
			return nil, fmt.Errorf("assign bundle %d thing %d to item %d: %w", bundleID, a.ThingID, itemID, err)
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	db.logger.Info().Int64("bundle_id", bundleID).Int64("item_id", itemID).Int("things", len(ids)).Msg("Bundle assigned to item")
	return ids, nil
}

// RemoveBundleFromRoom removes exactly the room assignments made through the bundle.
func (db *DB) RemoveBundleFromRoom(ctx context.Context, bundleID, roomID int64) (int64, error) {
	res, err := db.ExecContext(ctx,
		"DELETE FROM kit_room_assignments WHERE bundle_id = ? AND room_id = ?",
		bundleID, roomID,
	)
	if err != nil {
		return 0, fmt.Errorf("remove bundle %d from room %d: %w", bundleID, roomID, err)
	}
	return res.RowsAffected()
}

// RemoveBundleFromItem removes exactly the item assignments made through the bundle.
func (db *DB) RemoveBundleFromItem(ctx context.Context, bundleID, itemID int64) (int64, error) {
	res, err := db.ExecContext(ctx,
		"DELETE FROM kit_item_assignments WHERE bundle_id = ? AND item_id = ?",
		bundleID, itemID,
	)
	if err != nil {
		return 0, fmt.Errorf("remove bundle %d from item %d: %w", bundleID, itemID, err)
	}
	return res.RowsAffected()
}

// DeleteBundle deletes the bundle and applies policy to its assignments.
func (db *DB) DeleteBundle(ctx context.Context, bundleID int64, policy BundleDeletePolicy) error {
	var stmts []string
	switch policy {
	case BundleCascade:
		stmts = []string{
			"DELETE FROM kit_room_assignments WHERE bundle_id = ?",
			"DELETE FROM kit_item_assignments WHERE bundle_id = ?",
		}
	case BundleSetNull:
		stmts = []string{
			"UPDATE kit_room_assignments SET bundle_id = NULL WHERE bundle_id = ?",
			"UPDATE kit_item_assignments SET bundle_id = NULL WHERE bundle_id = ?",
		}
	default:
		return fmt.Errorf("unknown bundle delete policy %q", policy)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, q := range stmts {
		if _, err := tx.ExecContext(ctx, q, bundleID); err != nil {
			return fmt.Errorf("release bundle %d: %w", bundleID, err)
		}
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM kit_bundles WHERE id = ?", bundleID)
	if err != nil {
		return fmt.Errorf("delete bundle %d: %w", bundleID, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return fmt.Errorf("bundle %d: %w", bundleID, ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	db.logger.Info().Int64("bundle_id", bundleID).Str("policy", string(policy)).Msg("Bundle deleted")
	return nil
}

// DeleteThing deletes the thing together with its assignments and bundle memberships.
func (db *DB) DeleteThing(ctx context.Context, thingID int64) error {
	return db.deleteByID(ctx, "kit_things", thingID)
}

// DeleteItem deletes the item, its people and kit assignments, and the
// requests no other item references.
func (db *DB) DeleteItem(ctx context.Context, itemID int64) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		DELETE FROM kit_requests WHERE id IN (
			SELECT request_id FROM item_requests WHERE item_id = ?
		) AND id NOT IN (
			SELECT request_id FROM item_requests WHERE item_id != ?
		)`, itemID, itemID)
	if err != nil {
		return fmt.Errorf("delete requests of item %d: %w", itemID, err)
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM items WHERE id = ?", itemID)
	if err != nil {
		return fmt.Errorf("delete item %d: %w", itemID, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return fmt.Errorf("item %d: %w", itemID, ErrNotFound)
	}

	return tx.Commit()
}

// DeleteRoom deletes the room and its kit assignments. Items in the room
// move to the undefined room.
func (db *DB) DeleteRoom(ctx context.Context, roomID int64) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var isDefault, isUndefined bool
	err = tx.QueryRowContext(ctx, "SELECT is_default, is_undefined FROM rooms WHERE id = ?", roomID).
		Scan(&isDefault, &isUndefined)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("room %d: %w", roomID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("get room %d: %w", roomID, err)
	}
	if isDefault || isUndefined {
		return fmt.Errorf("room %d: %w", roomID, ErrSentinelRoom)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE items SET room_id = (SELECT id FROM rooms WHERE is_undefined = 1 LIMIT 1)
		WHERE room_id = ?`, roomID)
	if err != nil {
		return fmt.Errorf("unassign items from room %d: %w", roomID, err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM rooms WHERE id = ?", roomID); err != nil {
		return fmt.Errorf("delete room %d: %w", roomID, err)
	}

	return tx.Commit()
}

func (db *DB) deleteByID(ctx context.Context, table string, id int64) error {
	res, err := db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = ?", table), id)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", table, id, ErrNotFound)
	}
	return nil
}

func getBundle(ctx context.Context, tx *sql.Tx, bundleID int64) (model.KitBundle, error) {
	b := model.KitBundle{ID: bundleID}
	err := tx.QueryRowContext(ctx, "SELECT name FROM kit_bundles WHERE id = ?", bundleID).Scan(&b.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return b, fmt.Errorf("bundle %d: %w", bundleID, ErrNotFound)
	}
	if err != nil {
		return b, fmt.Errorf("get bundle %d: %w", bundleID, err)
	}

	err = scanAll(ctx, tx,
		"SELECT thing_id FROM kit_bundle_things WHERE bundle_id = ? ORDER BY position, thing_id",
		func(rows *sql.Rows) error {
			var id int64
			if err := rows.Scan(&id); err != nil {
				return err
			}
			b.ThingIDs = append(b.ThingIDs, id)
			return nil
		}, bundleID)
	if err != nil {
		return b, fmt.Errorf("get bundle %d things: %w", bundleID, err)
	}
	return b, nil
}
