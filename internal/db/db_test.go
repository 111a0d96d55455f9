package db

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conprog/internal/checks"
	"conprog/internal/config"
	"conprog/internal/model"
	"conprog/internal/testfixtures"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "conprog.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

type programme struct {
	b       *testfixtures.Builder
	talk    model.Item
	panel   model.Item
	carol   model.Person
	mic     model.KitKind
	mic1    model.KitThing
	mic2    model.KitThing
	kit     model.KitBundle
	request model.KitRequest
}

func newProgramme() *programme {
	b := testfixtures.New()
	p := &programme{b: b}

	slots := b.Grid(b.Friday, 600, 720, 60)
	p.carol = b.Person("Carol", "White")
	p.mic = b.Kind("Microphone")
	p.mic1 = b.Thing("Mic 1", p.mic, 1)
	p.mic2 = b.Thing("Mic 2", p.mic, 2)
	p.kit = b.Bundle("Panel kit", p.mic1, p.mic2)

	p.talk = b.Item("Talk", slots[0], b.Hour, b.MainHall)
	p.panel = b.Item("Panel", slots[1], b.Hour, b.MainHall)
	p.request = b.Request(p.talk, p.mic, 2)
	b.AssignPerson(p.talk, p.carol)
	b.AssignToItem(p.talk, p.mic1)
	b.AssignToRoom(b.MainHall, p.mic2, slots[0], slots[1], b.Hour)
	b.PersonAvailable(p.carol, slots...)
	b.ThingAvailable(p.mic1, slots[0])
	return p
}

func TestImportAndLoadSnapshot(t *testing.T) {
	db := newTestDB(t)
	p := newProgramme()
	ctx := context.Background()

	require.NoError(t, db.ImportCollections(ctx, p.b.Collections()))

	snap, err := db.LoadSnapshot(ctx)
	require.NoError(t, err)

	want := p.b.Snapshot()
	assert.Equal(t, want.Sentinels, snap.Sentinels)
	assert.Len(t, snap.Items, 2)
	assert.Len(t, snap.Slots, len(want.Slots))

	talk, ok := snap.Item(p.talk.ID)
	require.True(t, ok)
	assert.Equal(t, []int64{p.request.ID}, talk.RequestIDs)
	assert.True(t, snap.IsScheduled(talk))

	bundle, ok := snap.Bundle(p.kit.ID)
	require.True(t, ok)
	assert.Equal(t, []int64{p.mic1.ID, p.mic2.ID}, bundle.ThingIDs)

	carol, ok := snap.Person(p.carol.ID)
	require.True(t, ok)
	assert.Len(t, carol.Availability, 2)
	assert.Equal(t, []model.Person{carol}, snap.PeopleOn(p.talk.ID))

	friday, ok := snap.Day(p.b.Friday.ID)
	require.True(t, ok)
	assert.True(t, friday.Date.Equal(p.b.Friday.Date))

	assert.Len(t, snap.ItemAssignmentsFor(p.talk.ID), 1)
	assert.Len(t, snap.RoomAssignmentsFor(p.b.MainHall.ID), 1)
}

func TestLoadSnapshotRunsChecks(t *testing.T) {
	db := newTestDB(t)
	p := newProgramme()
	ctx := context.Background()
	require.NoError(t, db.ImportCollections(ctx, p.b.Collections()))

	snap, err := db.LoadSnapshot(ctx)
	require.NoError(t, err)

	out, err := checks.Default().RunCheck("items_no_people", checks.NewEnv(snap, false))
	require.NoError(t, err)
	require.Equal(t, 1, out.Count)
	assert.Equal(t, p.panel.ID, out.Violations[0][0].ID)

	out, err = checks.Default().RunCheck("items_unsatisfied_kitreq", checks.NewEnv(snap, false))
	require.NoError(t, err)
	assert.Equal(t, 0, out.Count, "one mic direct, two in the room")
}

func TestLoadSnapshotRejectsMissingSentinels(t *testing.T) {
	db := newTestDB(t)

	_, err := db.LoadSnapshot(context.Background())
	assert.ErrorIs(t, err, model.ErrSentinel)
}

func TestLoadCollectionsQueryError(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, name, date").WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	_, err = New(sqlDB, nil).LoadCollections(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load days")
	assert.Contains(t, err.Error(), "disk I/O error")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadCollectionsScanError(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, name, date").WillReturnRows(
		sqlmock.NewRows([]string{"id", "name", "date", "sort_order", "visible", "is_default", "is_undefined"}).
			AddRow(1, "Friday", "10/07/2026", 1, true, true, false),
	)
	mock.ExpectRollback()

	_, err = New(sqlDB, nil).LoadCollections(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "day 1")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestImportRejectsBrokenSentinels(t *testing.T) {
	db := newTestDB(t)
	p := newProgramme()
	ctx := context.Background()

	c := p.b.Collections()
	c.Days = append(c.Days, model.Day{ID: 9000, Name: "Nowhen", IsUndefined: true})

	err := db.ImportCollections(ctx, c)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrSentinel)
	assert.Contains(t, err.Error(), "undefined day, found 2")

	stored, err := db.LoadCollections(ctx)
	require.NoError(t, err)
	assert.Empty(t, stored.Days, "nothing is committed")
	assert.Empty(t, stored.Items)
}

func TestAssignThingToItem(t *testing.T) {
	db := newTestDB(t)
	p := newProgramme()
	ctx := context.Background()
	require.NoError(t, db.ImportCollections(ctx, p.b.Collections()))

	id, err := db.AssignThingToItem(ctx, model.KitItemAssignment{ID: 77, ItemID: p.panel.ID, ThingID: p.mic2.ID})
	require.NoError(t, err)
	assert.NotZero(t, id)

	snap, err := db.LoadSnapshot(ctx)
	require.NoError(t, err)
	got := snap.ItemAssignmentsFor(p.panel.ID)
	require.Len(t, got, 1)
	assert.Equal(t, id, got[0].ID, "the database assigns the id")
	assert.Equal(t, p.mic2.ID, got[0].ThingID)
	assert.Nil(t, got[0].BundleID)

	_, err = db.AssignThingToItem(ctx, model.KitItemAssignment{ItemID: 9999, ThingID: p.mic2.ID})
	assert.Error(t, err, "unknown item violates the foreign key")
}

func TestAssignAndRemoveBundle(t *testing.T) {
	db := newTestDB(t)
	p := newProgramme()
	ctx := context.Background()
	require.NoError(t, db.ImportCollections(ctx, p.b.Collections()))

	slot := p.b.DefaultSlot
	ids, err := db.AssignBundleToRoom(ctx, p.kit.ID, p.b.MainHall.ID, slot.ID, slot.ID, p.b.Hour.ID)
	require.NoError(t, err)
	assert.Len(t, ids, 2)

	ids, err = db.AssignBundleToItem(ctx, p.kit.ID, p.panel.ID)
	require.NoError(t, err)
	assert.Len(t, ids, 2)

	_, err = db.AssignBundleToItem(ctx, p.kit.ID, p.panel.ID)
	assert.ErrorIs(t, err, ErrAlreadyAssigned)

	_, err = db.AssignBundleToRoom(ctx, 9999, p.b.MainHall.ID, slot.ID, slot.ID, p.b.Hour.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	snap, err := db.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.True(t, snap.BundleInUse(p.kit.ID))
	assert.Len(t, snap.RoomAssignmentsFor(p.b.MainHall.ID), 3)

	n, err := db.RemoveBundleFromRoom(ctx, p.kit.ID, p.b.MainHall.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = db.RemoveBundleFromItem(ctx, p.kit.ID, p.panel.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	snap, err = db.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.False(t, snap.BundleInUse(p.kit.ID))
	assert.Len(t, snap.RoomAssignmentsFor(p.b.MainHall.ID), 1, "the individual assignment stays")
}

func TestDeleteBundlePolicies(t *testing.T) {
	tests := []struct {
		name      string
		policy    BundleDeletePolicy
		wantItems int
	}{
		{name: "cascade", policy: BundleCascade, wantItems: 1},
		{name: "set null", policy: BundleSetNull, wantItems: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := newTestDB(t)
			p := newProgramme()
			ctx := context.Background()
			require.NoError(t, db.ImportCollections(ctx, p.b.Collections()))

			_, err := db.AssignBundleToItem(ctx, p.kit.ID, p.talk.ID)
			require.NoError(t, err)

			require.NoError(t, db.DeleteBundle(ctx, p.kit.ID, tt.policy))

			snap, err := db.LoadSnapshot(ctx)
			require.NoError(t, err)
			_, ok := snap.Bundle(p.kit.ID)
			assert.False(t, ok)

			as := snap.ItemAssignmentsFor(p.talk.ID)
			assert.Len(t, as, tt.wantItems)
			for _, a := range as {
				assert.Nil(t, a.BundleID)
			}
		})
	}
}

func TestDeleteBundleUnknown(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	assert.ErrorIs(t, db.DeleteBundle(ctx, 42, BundleCascade), ErrNotFound)
	assert.Error(t, db.DeleteBundle(ctx, 42, "orphan"))

	_, err := ParseBundleDeletePolicy("orphan")
	assert.Error(t, err)
	got, err := ParseBundleDeletePolicy("set_null")
	require.NoError(t, err)
	assert.Equal(t, BundleSetNull, got)
}

func TestDeleteItemAndRoomCascade(t *testing.T) {
	db := newTestDB(t)
	p := newProgramme()
	ctx := context.Background()
	require.NoError(t, db.ImportCollections(ctx, p.b.Collections()))

	require.NoError(t, db.DeleteItem(ctx, p.talk.ID))
	assert.ErrorIs(t, db.DeleteItem(ctx, p.talk.ID), ErrNotFound)

	snap, err := db.LoadSnapshot(ctx)
	require.NoError(t, err)
	_, ok := snap.Request(p.request.ID)
	assert.False(t, ok, "owned request goes with the item")
	assert.Empty(t, snap.ItemAssignmentsFor(p.talk.ID))
	assert.Empty(t, snap.ItemsFor(p.carol.ID))

	assert.ErrorIs(t, db.DeleteRoom(ctx, p.b.MainHall.ID), ErrSentinelRoom)

	bar := model.Room{ID: 500, Name: "Bar", Visible: true}
	_, err = insertRoom(ctx, db, bar)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, "UPDATE items SET room_id = ? WHERE id = ?", bar.ID, p.panel.ID)
	require.NoError(t, err)
	_, err = db.AssignThingToRoom(ctx, model.KitRoomAssignment{
		RoomID: bar.ID, ThingID: p.mic1.ID,
		FromSlotID: p.b.DefaultSlot.ID, ToSlotID: p.b.DefaultSlot.ID, ToLengthID: p.b.Hour.ID,
	})
	require.NoError(t, err)

	require.NoError(t, db.DeleteRoom(ctx, bar.ID))
	snap, err = db.LoadSnapshot(ctx)
	require.NoError(t, err)
	panel, ok := snap.Item(p.panel.ID)
	require.True(t, ok)
	assert.Equal(t, p.b.Nowhere.ID, panel.RoomID)
	assert.Empty(t, snap.RoomAssignmentsFor(bar.ID))

	require.NoError(t, db.DeleteThing(ctx, p.mic2.ID))
	snap, err = db.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap.RoomAssignmentsFor(p.b.MainHall.ID))
	assert.ErrorIs(t, db.DeleteThing(ctx, p.mic2.ID), ErrNotFound)
}

func TestBootstrap(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	conv := &config.ConventionConfig{
		Name: "Eastercon",
		Days: []config.DayConfig{
			{Name: "Friday", Date: "2026-04-03", Schedule: &config.ScheduleConfig{StartTime: "10:00", EndTime: "13:00", SlotMinutes: 60}},
			{Name: "Saturday", Date: "2026-04-04", Schedule: &config.ScheduleConfig{StartTime: "09:00", EndTime: "18:00", SlotMinutes: 30, BreakStart: "13:00", BreakEnd: "14:00"}},
		},
		Rooms:   []config.RoomConfig{{Name: "Main Hall", CanClash: true}, {Name: "Bar"}},
		Lengths: []config.LengthConfig{{Name: "30 min", Minutes: 30}, {Name: "1 hour", Minutes: 60, Default: true}},
		Kinds:   []config.KindConfig{{Name: "Microphone", Things: []string{"Mic 1", "Mic 2"}}},
	}

	created, err := db.Bootstrap(ctx, conv)
	require.NoError(t, err)
	assert.True(t, created)

	snap, err := db.LoadSnapshot(ctx)
	require.NoError(t, err)

	assert.Equal(t, "Friday", snap.Sentinels.DefaultDay.Name)
	assert.Equal(t, 600, snap.Sentinels.DefaultSlot.Start)
	assert.Equal(t, 60, snap.Sentinels.DefaultSlotLength.Minutes)
	assert.Equal(t, "Main Hall", snap.Sentinels.DefaultRoom.Name)
	assert.Equal(t, "Nowhere", snap.Sentinels.UndefinedRoom.Name)
	assert.Len(t, snap.SlotsOn(snap.Sentinels.DefaultDay.ID), 3)
	assert.Len(t, snap.Things, 2)

	sat, ok := snap.LatestDay(true)
	require.True(t, ok)
	assert.Len(t, snap.SlotsOn(sat.ID), 16, "18 half hours minus the lunch hour")

	created, err = db.Bootstrap(ctx, conv)
	require.NoError(t, err)
	assert.False(t, created, "second run is a no-op")

	_, err = newTestDB(t).Bootstrap(ctx, &config.ConventionConfig{Days: conv.Days})
	assert.ErrorIs(t, err, ErrNoRooms)
}

func TestBackupService(t *testing.T) {
	db := newTestDB(t)
	p := newProgramme()
	ctx := context.Background()
	require.NoError(t, db.ImportCollections(ctx, p.b.Collections()))

	dir := filepath.Join(t.TempDir(), "backups")
	svc := NewBackupService(db, config.BackupConfig{Enabled: true, Path: dir, RetentionDays: 1}, nil)

	path, err := svc.PerformBackup(ctx)
	require.NoError(t, err)
	assert.FileExists(t, path)

	restored, err := Open(path, nil)
	require.NoError(t, err)
	defer restored.Close()
	snap, err := restored.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.Items, 2)

	old := filepath.Join(dir, "backup_20200101_000000.000.db")
	require.NoError(t, os.WriteFile(old, []byte("stale"), 0o644))
	past := time.Now().AddDate(0, 0, -3)
	require.NoError(t, os.Chtimes(old, past, past))
	keep := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(keep, []byte("x"), 0o644))
	require.NoError(t, os.Chtimes(keep, past, past))

	assert.Equal(t, 1, svc.CleanupOldBackups())
	assert.NoFileExists(t, old)
	assert.FileExists(t, path)
	assert.FileExists(t, keep)
}

func TestBackupServiceDisabled(t *testing.T) {
	svc := NewBackupService(nil, config.BackupConfig{}, nil)
	done := make(chan struct{})
	go func() {
		svc.Start(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("disabled backup service should return at once")
	}
}
