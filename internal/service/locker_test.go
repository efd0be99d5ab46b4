package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halpe-hal/pizza-course-manager-app/internal/model"
)

func TestSlotKeyUsesJSTDay(t *testing.T) {
	late := time.Date(2024, 5, 1, 16, 30, 0, 0, time.UTC) // 01:30 JST on the 2nd
	assert.Equal(t, "slot:1-T1:2024-05-02", SlotKey("1-T1", late))
}

func TestMutexLockerSerializesKey(t *testing.T) {
	m := NewMutexLocker()
	unlock, err := m.Lock(ctx, "k")
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = m.Lock(waitCtx, "k")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	other, err := m.Lock(ctx, "other")
	require.NoError(t, err, "different keys do not block each other")
	other()

	unlock()
	unlock() // second call is a no-op
	again, err := m.Lock(ctx, "k")
	require.NoError(t, err)
	again()
	assert.Empty(t, m.locks)
}

func TestRedisLockerLease(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	l := NewRedisLocker(rdb, "lock", time.Second, 120*time.Millisecond)
	key := SlotKey("1-T1", at(18, 0))

	unlock, err := l.Lock(ctx, key)
	require.NoError(t, err)
	assert.True(t, mr.Exists("lock:"+key))
	assert.Equal(t, time.Second, mr.TTL("lock:"+key))

	_, err = l.Lock(ctx, key)
	assert.ErrorIs(t, err, ErrLockTimeout)

	unlock()
	assert.False(t, mr.Exists("lock:"+key))

	// a lease that expired and was taken by someone else is not released
	// by the late holder
	unlock, err = l.Lock(ctx, key)
	require.NoError(t, err)
	mr.FastForward(2 * time.Second)
	assert.False(t, mr.Exists("lock:"+key))
	other, err := l.Lock(ctx, key)
	require.NoError(t, err)
	unlock()
	assert.True(t, mr.Exists("lock:"+key), "stale unlock leaves the new lease alone")
	other()
	assert.False(t, mr.Exists("lock:"+key))
}

func TestConcurrentCreatesOnlyOneWins(t *testing.T) {
	f := newFixture(t)
	raceForSlot(t, f.lifecycle, f.course.ID)
}

func TestConcurrentCreatesOnlyOneWinsWithRedisLease(t *testing.T) {
	f := newFixture(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	lc := NewLifecycle(f.store, f.store, f.progress, NewRedisLocker(rdb, "lock", 10*time.Second, 5*time.Second), f.events, f.clock)
	raceForSlot(t, lc, f.course.ID)
	assert.Empty(t, mr.Keys(), "every lease is released")
}

// raceForSlot books one table from several goroutines at once, half of
// them in the neighbouring slot. Exactly one booking may succeed.
func raceForSlot(t *testing.T, lc *Lifecycle, courseID uint64) {
	t.Helper()
	const n = 8
	const table = "2-T1"
	require.True(t, model.IsTable(table))
	var wins, conflicts int32
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			when := at(18, 0)
			if i%2 == 1 {
				when = at(18, 30)
			}
			_, err := lc.Create(ctx, CreateInput{
				CourseID: courseID, ReservedAt: when, GuestName: "Walk-in", GuestCount: 2, TableNo: table,
				MainCounts: model.MainCounts{"Pizza": 2},
			})
			switch {
			case err == nil:
				atomic.AddInt32(&wins, 1)
			case IsConflict(err):
				atomic.AddInt32(&conflicts, 1)
			case IsValidation(err):
				t.Errorf("booking rejected before reaching the slot lock: %v", err)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()
	assert.EqualValues(t, 1, wins)
	assert.EqualValues(t, n-1, conflicts)
}
