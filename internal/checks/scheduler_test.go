package checks

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conprog/internal/model"
	"conprog/internal/testfixtures"
)

type stubRepository struct {
	mu    sync.Mutex
	snap  *model.Snapshot
	err   error
	loads int
}

func (s *stubRepository) LoadSnapshot(context.Context) (*model.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++
	return s.snap, s.err
}

func (s *stubRepository) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loads
}

func TestSchedulerRunNow(t *testing.T) {
	b := testfixtures.New()
	carol := b.Person("Carol", "White")
	talk := b.Item("Talk", b.Slot(b.Friday, 600), b.Hour, b.MainHall)
	b.AssignPerson(talk, carol)
	repo := &stubRepository{snap: b.Snapshot()}

	runner := NewRunner(Default(), nil, nil, nil)
	require.NoError(t, runner.SetEnabled([]string{"person_not_avail"}))
	s := NewScheduler(repo, runner, time.Hour, true, nil)

	var hooked []*Run
	s.OnRun(func(run *Run, snap *model.Snapshot) {
		assert.Same(t, repo.snap, snap)
		hooked = append(hooked, run)
	})

	got, err := s.RunNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, got.Total())
	assert.Same(t, got, s.Last())
	require.Len(t, hooked, 1)
	assert.Same(t, got, hooked[0])

	s.SetPolicy(false)
	got, err = s.RunNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, got.Total())
}

func TestSchedulerRunNowLoadError(t *testing.T) {
	repo := &stubRepository{err: errors.New("db down")}
	s := NewScheduler(repo, NewRunner(Default(), nil, nil, nil), 0, false, nil)

	_, err := s.RunNow(context.Background())
	assert.ErrorContains(t, err, "db down")
	assert.Nil(t, s.Last())
}

func TestSchedulerRunCheck(t *testing.T) {
	b := testfixtures.New()
	b.Item("Lonely", b.DefaultSlot, b.Hour, b.MainHall)
	repo := &stubRepository{snap: b.Snapshot()}

	runner := NewRunner(Default(), nil, nil, nil)
	require.NoError(t, runner.SetEnabled([]string{"room_clashes"}))
	s := NewScheduler(repo, runner, time.Hour, false, nil)

	out, err := s.RunCheck(context.Background(), "items_no_people")
	require.NoError(t, err)
	assert.Equal(t, 1, out.Count)
	assert.Nil(t, s.Last(), "single checks are not recorded as runs")

	_, err = s.RunCheck(context.Background(), "bogus")
	assert.ErrorIs(t, err, ErrUnknownCheck)
}

func TestSchedulerStartAndStop(t *testing.T) {
	b := testfixtures.New()
	repo := &stubRepository{snap: b.Snapshot()}
	s := NewScheduler(repo, NewRunner(Default(), nil, nil, nil), 10*time.Millisecond, false, nil)

	done := make(chan struct{})
	go func() {
		s.Start(context.Background())
		close(done)
	}()

	assert.Eventually(t, func() bool { return repo.count() >= 2 }, time.Second, 5*time.Millisecond)
	assert.True(t, s.IsRunning())

	s.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.False(t, s.IsRunning())
}

func TestSchedulerRestartAfterStop(t *testing.T) {
	b := testfixtures.New()
	repo := &stubRepository{snap: b.Snapshot()}
	s := NewScheduler(repo, NewRunner(Default(), nil, nil, nil), 10*time.Millisecond, false, nil)

	start := func() chan struct{} {
		done := make(chan struct{})
		go func() {
			s.Start(context.Background())
			close(done)
		}()
		return done
	}
	waitStopped := func(done chan struct{}) {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("scheduler did not stop")
		}
	}

	done := start()
	assert.Eventually(t, func() bool { return repo.count() >= 2 }, time.Second, 5*time.Millisecond)
	s.Stop()
	waitStopped(done)

	before := repo.count()
	done = start()
	assert.Eventually(t, func() bool { return repo.count() >= before+2 }, time.Second, 5*time.Millisecond,
		"the second loop keeps ticking")
	select {
	case <-done:
		t.Fatal("second Start returned before Stop")
	default:
	}
	assert.True(t, s.IsRunning())

	s.Stop()
	waitStopped(done)
	assert.False(t, s.IsRunning())
}
