package realtime

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/ielts-backend/internal/platform/logger"
)

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

func TestSSEHubOrderingAndReconnect(t *testing.T) {
	hub := NewSSEHub(logger.Nop())
	userID := uuid.New()
	channel := UserChannel(userID)

	clientA := hub.NewSSEClient(userID)
	hub.AddChannel(clientA, channel)
	hub.Broadcast(SSEMessage{Channel: channel, Event: SSEEventJobCreated})
	hub.Broadcast(SSEMessage{Channel: channel, Event: SSEEventJobProgress})

	if got := recvMessage(t, clientA.Outbound, time.Second); got.Event != SSEEventJobCreated {
		t.Fatalf("first event: got %s want %s", got.Event, SSEEventJobCreated)
	}
	if got := recvMessage(t, clientA.Outbound, time.Second); got.Event != SSEEventJobProgress {
		t.Fatalf("second event: got %s want %s", got.Event, SSEEventJobProgress)
	}

	hub.CloseClient(clientA)
	hub.CloseClient(clientA)
	if _, ok := <-clientA.Outbound; ok {
		t.Fatalf("outbound should be closed after CloseClient")
	}
	if n := hub.Subscribers(channel); n != 0 {
		t.Fatalf("subscribers after close: got %d want 0", n)
	}

	clientB := hub.NewSSEClient(userID)
	hub.AddChannel(clientB, channel)
	hub.Broadcast(SSEMessage{Channel: channel, Event: SSEEventJobDone})
	if got := recvMessage(t, clientB.Outbound, time.Second); got.Event != SSEEventJobDone {
		t.Fatalf("reconnect event: got %s want %s", got.Event, SSEEventJobDone)
	}
}

func TestSSEHubDropsWhenBufferFull(t *testing.T) {
	hub := NewSSEHub(logger.Nop())
	client := hub.NewSSEClient(uuid.New())
	hub.AddChannel(client, "c")
	for i := 0; i < outboundBuffer+10; i++ {
		hub.Broadcast(SSEMessage{Channel: "c", Event: SSEEventJobProgress})
	}
	if got := len(client.Outbound); got != outboundBuffer {
		t.Fatalf("buffered: got %d want %d", got, outboundBuffer)
	}
}

func TestSSEHubIgnoresOtherChannels(t *testing.T) {
	hub := NewSSEHub(logger.Nop())
	client := hub.NewSSEClient(uuid.New())
	hub.AddChannel(client, "mine")
	hub.Broadcast(SSEMessage{Channel: "theirs", Event: SSEEventJobDone})
	hub.Broadcast(SSEMessage{Event: SSEEventJobDone})
	if len(client.Outbound) != 0 {
		t.Fatalf("unexpected delivery")
	}
	hub.RemoveChannel(client, "mine")
	if hub.Subscribers("mine") != 0 {
		t.Fatalf("RemoveChannel left a subscription")
	}
}

func TestServeHTTPWritesEventsAndHeartbeats(t *testing.T) {
	hub := NewSSEHub(logger.Nop())
	hub.heartbeat = 20 * time.Millisecond
	userID := uuid.New()
	client := hub.NewSSEClient(userID)
	hub.AddChannel(client, UserChannel(userID))

	ctx, cancel := context.WithCancel(context.Background())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeHTTP(w, r.WithContext(ctx), client)
	}))
	defer srv.Close()
	defer cancel()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content-type: got %q", ct)
	}

	hub.Broadcast(SSEMessage{Channel: UserChannel(userID), Event: SSEEventScoreReady, Data: map[string]any{"band": 7}})

	sc := bufio.NewScanner(resp.Body)
	var sawEvent, sawPing bool
	deadline := time.After(2 * time.Second)
	lines := make(chan string)
	go func() {
		for sc.Scan() {
			lines <- sc.Text()
		}
		close(lines)
	}()
	for !(sawEvent && sawPing) {
		select {
		case line, ok := <-lines:
			if !ok {
				t.Fatalf("stream closed early")
			}
			if line == "event: score_ready" {
				sawEvent = true
			}
			if strings.HasPrefix(line, ": ping") {
				sawPing = true
			}
		case <-deadline:
			t.Fatalf("timeout: event=%v ping=%v", sawEvent, sawPing)
		}
	}
}
