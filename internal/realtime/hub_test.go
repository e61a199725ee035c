package realtime

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tracebind/passport-backend/internal/platform/logger"
)

func mustTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(log.Sync)
	return log
}

func recvMessage(t *testing.T, ch <-chan SSEMessage, timeout time.Duration) SSEMessage {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for SSE message")
	}
	return SSEMessage{}
}

func TestSSEHubReconnectAndOrdering(t *testing.T) {
	hub := NewSSEHub(mustTestLogger(t))
	channel := TenantChannel(uuid.New())

	clientA := hub.NewSSEClient(uuid.New())
	hub.AddChannel(clientA, channel)

	first := SSEMessage{Channel: channel, Event: SSEEventRequestAssigned, Data: map[string]any{"seq": 1}}
	second := SSEMessage{Channel: channel, Event: SSEEventRequestSubmitted, Data: map[string]any{"seq": 2}}
	hub.Broadcast(first)
	hub.Broadcast(second)

	gotFirst := recvMessage(t, clientA.Outbound, time.Second)
	gotSecond := recvMessage(t, clientA.Outbound, time.Second)
	if gotFirst.Event != SSEEventRequestAssigned {
		t.Fatalf("first event: want=%s got=%s", SSEEventRequestAssigned, gotFirst.Event)
	}
	if gotSecond.Event != SSEEventRequestSubmitted {
		t.Fatalf("second event: want=%s got=%s", SSEEventRequestSubmitted, gotSecond.Event)
	}

	hub.CloseClient(clientA)
	select {
	case _, ok := <-clientA.Outbound:
		if ok {
			t.Fatalf("clientA outbound should be closed after disconnect")
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("timed out waiting for clientA channel close")
	}

	clientB := hub.NewSSEClient(uuid.New())
	hub.AddChannel(clientB, channel)
	reconnect := SSEMessage{Channel: channel, Event: SSEEventRequestApproved, Data: map[string]any{"seq": 3}}
	hub.Broadcast(reconnect)
	gotReconnect := recvMessage(t, clientB.Outbound, time.Second)
	if gotReconnect.Event != SSEEventRequestApproved {
		t.Fatalf("reconnect event: want=%s got=%s", SSEEventRequestApproved, gotReconnect.Event)
	}
}

func TestSSEHubChannelIsolation(t *testing.T) {
	hub := NewSSEHub(mustTestLogger(t))
	brandChannel := TenantChannel(uuid.New())
	supplierChannel := TenantChannel(uuid.New())

	brandClient := hub.NewSSEClient(uuid.New())
	hub.AddChannel(brandClient, brandChannel)
	supplierClient := hub.NewSSEClient(uuid.New())
	hub.AddChannel(supplierClient, supplierChannel)

	hub.Broadcast(SSEMessage{Channel: brandChannel, Event: SSEEventConnectionAccepted})

	got := recvMessage(t, brandClient.Outbound, time.Second)
	if got.Event != SSEEventConnectionAccepted {
		t.Fatalf("brand event: want=%s got=%s", SSEEventConnectionAccepted, got.Event)
	}
	select {
	case msg := <-supplierClient.Outbound:
		t.Fatalf("supplier client should not receive brand channel message, got=%s", msg.Event)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSSEHubRepeatedTransitionsDelivered(t *testing.T) {
	hub := NewSSEHub(mustTestLogger(t))
	channel := TenantChannel(uuid.New())
	client := hub.NewSSEClient(uuid.New())
	hub.AddChannel(client, channel)

	dup := SSEMessage{Channel: channel, Event: SSEEventCommentAdded, Data: map[string]any{"request_id": uuid.New().String()}}
	hub.Broadcast(dup)
	hub.Broadcast(dup)

	gotOne := recvMessage(t, client.Outbound, time.Second)
	gotTwo := recvMessage(t, client.Outbound, time.Second)
	if gotOne.Event != SSEEventCommentAdded || gotTwo.Event != SSEEventCommentAdded {
		t.Fatalf("expected repeated transition events to be delivered, got=%s and %s", gotOne.Event, gotTwo.Event)
	}
}
