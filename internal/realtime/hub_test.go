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

	"github.com/yungbote/gonasi-backend/internal/platform/logger"
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

func TestSSEHubOrderingAndReconnect(t *testing.T) {
	hub := NewSSEHub(mustTestLogger(t), nil)
	channel := LiveSessionChannel(uuid.New())

	clientA := hub.NewSSEClient(uuid.New())
	hub.AddChannel(clientA, channel)

	hub.Broadcast(SSEMessage{Channel: channel, Event: SSEEventSessionStateChange, Data: map[string]any{"seq": 1}})
	hub.Broadcast(SSEMessage{Channel: channel, Event: SSEEventPlayStateChange, Data: map[string]any{"seq": 2}})

	if got := recvMessage(t, clientA.Outbound, time.Second); got.Event != SSEEventSessionStateChange {
		t.Fatalf("first event: got=%s", got.Event)
	}
	if got := recvMessage(t, clientA.Outbound, time.Second); got.Event != SSEEventPlayStateChange {
		t.Fatalf("second event: got=%s", got.Event)
	}

	hub.CloseClient(clientA)
	hub.CloseClient(clientA)
	if _, ok := <-clientA.Outbound; ok {
		t.Fatalf("outbound should be closed after disconnect")
	}
	if hub.Subscribers(channel) != 0 {
		t.Fatalf("closed client still subscribed")
	}

	clientB := hub.NewSSEClient(uuid.New())
	hub.AddChannel(clientB, channel)
	hub.Broadcast(SSEMessage{Channel: channel, Event: SSEEventBlockStateChange})
	if got := recvMessage(t, clientB.Outbound, time.Second); got.Event != SSEEventBlockStateChange {
		t.Fatalf("reconnect event: got=%s", got.Event)
	}
}

func TestSSEHubChannelIsolation(t *testing.T) {
	hub := NewSSEHub(mustTestLogger(t), nil)
	a, b := LiveSessionChannel(uuid.New()), LiveSessionChannel(uuid.New())
	client := hub.NewSSEClient(uuid.New())
	hub.AddChannel(client, a)

	hub.Broadcast(SSEMessage{Channel: b, Event: SSEEventPlayStateChange})
	select {
	case msg := <-client.Outbound:
		t.Fatalf("received message for another channel: %+v", msg)
	case <-time.After(30 * time.Millisecond):
	}

	hub.RemoveChannel(client, a)
	hub.Broadcast(SSEMessage{Channel: a, Event: SSEEventPlayStateChange})
	select {
	case msg := <-client.Outbound:
		t.Fatalf("received message after unsubscribe: %+v", msg)
	case <-time.After(30 * time.Millisecond):
	}
}

func TestSSEHubDropsWhenBufferFull(t *testing.T) {
	hub := NewSSEHub(mustTestLogger(t), nil)
	channel := UserChannel(uuid.New())
	client := hub.NewSSEClient(uuid.New())
	hub.AddChannel(client, channel)
	for i := 0; i < outboundBuffer+5; i++ {
		hub.Broadcast(SSEMessage{Channel: channel, Event: SSEEventLessonProgress})
	}
	if len(client.Outbound) != outboundBuffer {
		t.Fatalf("buffer: want %d got=%d", outboundBuffer, len(client.Outbound))
	}
}

func TestServeHTTPStreamsEvents(t *testing.T) {
	hub := NewSSEHub(mustTestLogger(t), nil)
	channel := LiveSessionChannel(uuid.New())
	client := hub.NewSSEClient(uuid.New())
	hub.AddChannel(client, channel)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeHTTP(w, r, client)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type: %q", ct)
	}

	hub.Broadcast(SSEMessage{Channel: channel, Event: SSEEventPlayStateChange, Data: map[string]any{"to": "intro"}})
	reader := bufio.NewReader(resp.Body)
	var lines []string
	for len(lines) < 2 {
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	if lines[0] != "event: play_state_change" || !strings.Contains(lines[1], `"to":"intro"`) {
		t.Fatalf("unexpected frame: %v", lines)
	}
	hub.CloseClient(client)
}

func TestParseLiveSessionChannel(t *testing.T) {
	id := uuid.New()
	got, err := ParseLiveSessionChannel(LiveSessionChannel(id))
	if err != nil || got != id {
		t.Fatalf("round trip: got=%s err=%v", got, err)
	}
	if _, err := ParseLiveSessionChannel(UserChannel(id)); err == nil {
		t.Fatalf("user channel should not parse as live session")
	}
}

func TestAddChannelRejectsClosedClient(t *testing.T) {
	hub := NewSSEHub(mustTestLogger(t), nil)
	channel := LiveSessionChannel(uuid.New())

	client := hub.NewSSEClient(uuid.New())
	hub.CloseClient(client)
	if hub.AddChannel(client, channel) {
		t.Fatalf("closed client must not be subscribed")
	}
	if n := hub.Subscribers(channel); n != 0 {
		t.Fatalf("subscribers: want 0 got=%d", n)
	}

	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("broadcast panicked: %v", r)
		}
	}()
	hub.Broadcast(SSEMessage{Channel: channel, Event: SSEEventSessionStateChange})
}

func TestAddChannelRacesClose(t *testing.T) {
	hub := NewSSEHub(mustTestLogger(t), nil)
	channel := LiveSessionChannel(uuid.New())

	for i := 0; i < 200; i++ {
		client := hub.NewSSEClient(uuid.New())
		done := make(chan struct{})
		go func() {
			defer close(done)
			hub.CloseClient(client)
		}()
		hub.AddChannel(client, channel)
		<-done
		hub.Broadcast(SSEMessage{Channel: channel, Event: SSEEventPlayStateChange})
	}
	if n := hub.Subscribers(channel); n != 0 {
		t.Fatalf("closed clients left subscribed: %d", n)
	}
}
