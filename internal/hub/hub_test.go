package hub

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recvEvent(t *testing.T, s *Session) Event {
	t.Helper()
	select {
	case ev := <-s.Events():
		return ev
	default:
		t.Fatal("expected an event, got none")
		return Event{}
	}
}

func assertNoEvent(t *testing.T, s *Session) {
	t.Helper()
	select {
	case ev := <-s.Events():
		t.Fatalf("expected no event, got %v", ev)
	default:
	}
}

func TestEmitReachesEverySessionOfUser(t *testing.T) {
	h := New()
	s1 := h.Join(7)
	s2 := h.Join(7)
	other := h.Join(8)

	h.EmitToUser(7, "notification", "payload")

	ev1 := recvEvent(t, s1)
	ev2 := recvEvent(t, s2)
	assert.Equal(t, "notification", ev1.Name)
	assert.Equal(t, "payload", ev1.Payload)
	assert.Equal(t, ev1, ev2)
	assertNoEvent(t, other)
}

func TestEmitToEmptyRoomIsNoop(t *testing.T) {
	h := New()
	// Must not panic or block.
	h.EmitToUser(42, "notification", nil)
}

func TestDisconnectUnbindsSession(t *testing.T) {
	h := New()
	s1 := h.Join(7)
	s2 := h.Join(7)
	require.Equal(t, 2, h.ConnectionCount(7))

	h.Disconnect(s1)
	assert.Equal(t, 1, h.ConnectionCount(7))

	h.EmitToUser(7, "notification", "x")
	recvEvent(t, s2)

	// The disconnected session's channel is closed.
	_, open := <-s1.Events()
	assert.False(t, open)
}

func TestDisconnectIsIdempotent(t *testing.T) {
	h := New()
	s := h.Join(7)
	h.Disconnect(s)
	h.Disconnect(s)
	h.Disconnect(nil)
	assert.Equal(t, 0, h.ConnectionCount(7))
}

func TestSlowSessionDoesNotBlockEmit(t *testing.T) {
	h := New()
	s := h.Join(7)

	// Overfill the session buffer; extra events are dropped, the emit
	// never blocks.
	for i := 0; i < 100; i++ {
		h.EmitToUser(7, "notification", i)
	}

	n := 0
	for {
		select {
		case <-s.Events():
			n++
			continue
		default:
		}
		break
	}
	assert.Greater(t, n, 0)
	assert.LessOrEqual(t, n, 100)
}

func TestCloseTearsDownAllSessions(t *testing.T) {
	h := New()
	s1 := h.Join(1)
	s2 := h.Join(2)

	h.Close()

	_, open := <-s1.Events()
	assert.False(t, open)
	_, open = <-s2.Events()
	assert.False(t, open)
	assert.Equal(t, 0, h.ConnectionCount(1))

	// Emits after close are no-ops.
	h.EmitToUser(1, "notification", nil)
}

func TestConcurrentJoinEmitDisconnect(t *testing.T) {
	h := New()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			s := h.Join(uint(i % 4))
			h.Disconnect(s)
		}
	}()
	for i := 0; i < 200; i++ {
		h.EmitToUser(uint(i%4), "notification", i)
	}
	<-done
}

func TestNopPusherDiscards(t *testing.T) {
	p := Nop()
	p.EmitToUser(1, "notification", "ignored")
}
