package queue

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLine(t *testing.T) {
	flag := true
	ev := CourseEvent{
		Type:          ProgressServed,
		ReservationID: 4,
		ProgressID:    17,
		TableNo:       "1-T1",
		Flag:          &flag,
		OccurredAt:    "2024-05-01T18:40:00+09:00",
	}
	assert.Equal(t,
		`[2024-05-01T18:40:00+09:00] progress.served | reservation_id=4 | progress_id=17 | table="1-T1" | flag=true`+"\n",
		ev.Line())

	swept := CourseEvent{Type: ReservationsSwept, Count: 0, OccurredAt: "t"}
	assert.Equal(t, "[t] reservations.swept | count=0\n", swept.Line())
}

func TestActivityLogHandle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "activity.log")
	a := NewActivityLog(path)

	require.NoError(t, a.Handle([]byte(`{"type":"reservation.created","reservation_id":1,"table_no":"1-T1","occurred_at":"x"}`)))
	require.NoError(t, a.Handle([]byte(`{"type":"reservation.deleted","reservation_id":1,"occurred_at":"y"}`)))
	assert.Error(t, a.Handle([]byte(`not json`)))
	assert.Error(t, a.Handle([]byte(`{}`)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "reservation.created")
	assert.Contains(t, lines[1], "reservation.deleted")
}

type recordingSink struct {
	mu     sync.Mutex
	events []CourseEvent
	done   chan struct{}
}

func (r *recordingSink) Publish(_ context.Context, ev CourseEvent) error {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	close(r.done)
	return nil
}

func TestAsyncAssignsIDAndForwards(t *testing.T) {
	sink := &recordingSink{done: make(chan struct{})}
	a := NewAsync(sink, time.Second)
	require.NoError(t, a.Publish(context.Background(), CourseEvent{Type: ReservationCreated}))

	select {
	case <-sink.done:
	case <-time.After(2 * time.Second):
		t.Fatal("event not forwarded")
	}
	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Len(t, sink.events, 1)
	assert.NotEmpty(t, sink.events[0].ID)
}

func TestDiscard(t *testing.T) {
	assert.NoError(t, Discard{}.Publish(context.Background(), CourseEvent{}))
}
