package queue

import (
	"testing"
	"time"

	"github.com/RavaniRoshan/Surya-Solar-sub001/internal/alert"
)

func msg(id string, at time.Time) Message {
	return Message{Alert: alert.Alert{AlertID: id}, EnqueuedAt: at}
}

func TestEnqueueDrainRoundTrip(t *testing.T) {
	q := New(DefaultCapacity)
	now := time.Now()
	q.Enqueue("u1", msg("a1", now))

	got := q.Drain("u1")
	if len(got) != 1 || got[0].Alert.AlertID != "a1" {
		t.Fatalf("unexpected drain result: %+v", got)
	}
	if q.Size("u1") != 0 {
		t.Fatalf("expected empty queue after drain, got size %d", q.Size("u1"))
	}
}

func TestOverflowDropsOldest(t *testing.T) {
	q := New(100)
	now := time.Now()
	for i := 0; i < 101; i++ {
		q.Enqueue("u1", msg(itoaForTest(i), now.Add(time.Duration(i)*time.Millisecond)))
	}
	if q.Size("u1") != 100 {
		t.Fatalf("expected capacity-bounded size 100, got %d", q.Size("u1"))
	}

	drained := q.Drain("u1")
	if len(drained) != 100 {
		t.Fatalf("expected 100 retained messages, got %d", len(drained))
	}
	if drained[0].Alert.AlertID != itoaForTest(1) {
		t.Fatalf("expected message #1 (index 0) evicted, oldest retained is %s", drained[0].Alert.AlertID)
	}
}

func itoaForTest(i int) string {
	digits := "0123456789"
	if i == 0 {
		return "0"
	}
	var b []byte
	for i > 0 {
		b = append([]byte{digits[i%10]}, b...)
		i /= 10
	}
	return string(b)
}

func TestGCDropsOldMessagesAndEmptyUsers(t *testing.T) {
	q := New(DefaultCapacity)
	now := time.Now()
	q.Enqueue("u1", msg("old", now.Add(-8*24*time.Hour)))
	q.Enqueue("u1", msg("new", now))

	dropped := q.GC(now, 7*24*time.Hour)
	if dropped != 1 {
		t.Fatalf("expected 1 dropped, got %d", dropped)
	}
	remaining := q.Drain("u1")
	if len(remaining) != 1 || remaining[0].Alert.AlertID != "new" {
		t.Fatalf("unexpected remaining: %+v", remaining)
	}
}
