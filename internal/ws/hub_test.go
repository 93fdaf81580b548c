package ws

import (
	"encoding/json"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/imom29/CodeCollab/internal/lang"
	"github.com/imom29/CodeCollab/internal/room"
)

func newTestHub() *Hub {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewHub(room.NewRegistry(logger), logger)
}

// newTestClient builds a client without a real socket; hub logic only
// touches the send channel.
func newTestClient(h *Hub, id string) *Client {
	return &Client{
		hub:  h,
		send: make(chan []byte, 256),
		id:   id,
		log:  h.log.WithField("client_id", id),
	}
}

func frameOf(t *testing.T, event string, payload any) []byte {
	t.Helper()
	frame, err := encode(event, payload)
	if err != nil {
		t.Fatalf("Failed to encode %s frame: %v", event, err)
	}
	return frame
}

func recvEnvelope(t *testing.T, c *Client) Envelope {
	t.Helper()
	select {
	case frame := <-c.send:
		var env Envelope
		if err := json.Unmarshal(frame, &env); err != nil {
			t.Fatalf("Received invalid frame: %v", err)
		}
		return env
	default:
		t.Fatalf("Client %s received no frame", c.id)
		return Envelope{}
	}
}

func assertNoFrame(t *testing.T, c *Client) {
	t.Helper()
	select {
	case frame := <-c.send:
		t.Fatalf("Client %s unexpectedly received %s", c.id, frame)
	default:
	}
}

func join(t *testing.T, h *Hub, c *Client, roomID string) {
	t.Helper()
	h.dispatch(inbound{client: c, frame: frameOf(t, EventJoinRoom, JoinRoomPayload{RoomID: roomID})})
}

func TestJoinSeedsRoom(t *testing.T) {
	h := newTestHub()
	a := newTestClient(h, "A")

	join(t, h, a, "r1")

	env := recvEnvelope(t, a)
	if env.Event != EventInitFiles {
		t.Fatalf("Expected %s, got %s", EventInitFiles, env.Event)
	}

	var files []room.File
	if err := json.Unmarshal(env.Data, &files); err != nil {
		t.Fatalf("Failed to decode init-files payload: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("Expected 1 seeded file, got %d", len(files))
	}
	if files[0].FileName != room.SeedFileName || files[0].Language != lang.Default {
		t.Errorf("Seed file = %+v", files[0])
	}
}

func TestSecondJoinDoesNotReseed(t *testing.T) {
	h := newTestHub()
	a := newTestClient(h, "A")
	b := newTestClient(h, "B")

	join(t, h, a, "r1")
	recvEnvelope(t, a)

	join(t, h, b, "r1")
	env := recvEnvelope(t, b)

	var files []room.File
	json.Unmarshal(env.Data, &files)
	if len(files) != 1 {
		t.Errorf("Expected same single file for second joiner, got %d", len(files))
	}
	// The file list goes to the joiner only.
	assertNoFrame(t, a)
}

func TestCodeChangeExcludesSender(t *testing.T) {
	h := newTestHub()
	a := newTestClient(h, "A")
	b := newTestClient(h, "B")
	c := newTestClient(h, "C")
	for _, cl := range []*Client{a, b, c} {
		join(t, h, cl, "r1")
		recvEnvelope(t, cl)
	}

	h.dispatch(inbound{client: a, frame: frameOf(t, EventCodeChange, CodeChangePayload{
		RoomID:   "r1",
		FileName: room.SeedFileName,
		NewCode:  "x=1",
	})})

	assertNoFrame(t, a)

	for _, cl := range []*Client{b, c} {
		env := recvEnvelope(t, cl)
		if env.Event != EventRemoteCodeChange {
			t.Fatalf("Expected %s, got %s", EventRemoteCodeChange, env.Event)
		}
		var p RemoteCodeChangePayload
		json.Unmarshal(env.Data, &p)
		if p.FileName != room.SeedFileName || p.NewCode != "x=1" {
			t.Errorf("Payload = %+v", p)
		}
	}

	if files := h.registry.ListFiles("r1"); files[0].Code != "x=1" {
		t.Errorf("Registry code = %q, want %q", files[0].Code, "x=1")
	}
}

func TestCodeChangeUnknownFileIgnored(t *testing.T) {
	h := newTestHub()
	a := newTestClient(h, "A")
	b := newTestClient(h, "B")
	join(t, h, a, "r1")
	recvEnvelope(t, a)
	join(t, h, b, "r1")
	recvEnvelope(t, b)

	h.dispatch(inbound{client: a, frame: frameOf(t, EventCodeChange, CodeChangePayload{
		RoomID:   "r1",
		FileName: "ghost.js",
		NewCode:  "x",
	})})

	assertNoFrame(t, a)
	assertNoFrame(t, b)
}

func TestCreateFileBroadcastsToAll(t *testing.T) {
	h := newTestHub()
	a := newTestClient(h, "A")
	b := newTestClient(h, "B")
	join(t, h, a, "r1")
	recvEnvelope(t, a)
	join(t, h, b, "r1")
	recvEnvelope(t, b)

	h.dispatch(inbound{client: b, frame: frameOf(t, EventCreateFile, CreateFilePayload{
		RoomID:   "r1",
		FileName: "b.py",
	})})

	// Sender included.
	for _, cl := range []*Client{a, b} {
		env := recvEnvelope(t, cl)
		if env.Event != EventFileCreated {
			t.Fatalf("Expected %s, got %s", EventFileCreated, env.Event)
		}
		var p FileCreatedPayload
		json.Unmarshal(env.Data, &p)
		if p.FileName != "b.py" {
			t.Errorf("FileName = %q", p.FileName)
		}
	}

	files := h.registry.ListFiles("r1")
	if len(files) != 2 || files[1].Language != lang.Python {
		t.Errorf("Registry files = %+v", files)
	}
	if files[1].Code != lang.Template(lang.Python) {
		t.Error("New file should carry the Python starter template")
	}
}

func TestDeleteFileMissingStillBroadcasts(t *testing.T) {
	h := newTestHub()
	a := newTestClient(h, "A")
	b := newTestClient(h, "B")
	join(t, h, a, "r1")
	recvEnvelope(t, a)
	join(t, h, b, "r1")
	recvEnvelope(t, b)

	h.dispatch(inbound{client: a, frame: frameOf(t, EventDeleteFile, DeleteFilePayload{
		RoomID:   "r1",
		FileName: "ghost.js",
	})})

	for _, cl := range []*Client{a, b} {
		env := recvEnvelope(t, cl)
		if env.Event != EventFileDeleted {
			t.Fatalf("Expected %s, got %s", EventFileDeleted, env.Event)
		}
		var files []room.File
		json.Unmarshal(env.Data, &files)
		if len(files) != 1 || files[0].FileName != room.SeedFileName {
			t.Errorf("Expected unchanged list, got %+v", files)
		}
	}
}

func TestDeleteFileRemoves(t *testing.T) {
	h := newTestHub()
	a := newTestClient(h, "A")
	join(t, h, a, "r1")
	recvEnvelope(t, a)

	h.dispatch(inbound{client: a, frame: frameOf(t, EventCreateFile, CreateFilePayload{RoomID: "r1", FileName: "b.py"})})
	recvEnvelope(t, a)

	h.dispatch(inbound{client: a, frame: frameOf(t, EventDeleteFile, DeleteFilePayload{RoomID: "r1", FileName: "b.py"})})

	env := recvEnvelope(t, a)
	var files []room.File
	json.Unmarshal(env.Data, &files)
	if len(files) != 1 || files[0].FileName != room.SeedFileName {
		t.Errorf("Remaining files = %+v", files)
	}
}

func TestMalformedFramesDropped(t *testing.T) {
	h := newTestHub()
	a := newTestClient(h, "A")
	join(t, h, a, "r1")
	recvEnvelope(t, a)

	frames := [][]byte{
		[]byte("not json"),
		[]byte(`{"event":"join-room"}`),
		[]byte(`{"event":"code-change","data":{"roomId":"r1"}}`),
		[]byte(`{"event":"create-file","data":{"fileName":"x.js"}}`),
		[]byte(`{"event":"delete-file","data":{}}`),
		[]byte(`{"event":"no-such-event","data":{}}`),
	}
	for _, frame := range frames {
		h.dispatch(inbound{client: a, frame: frame})
	}

	assertNoFrame(t, a)
	if got := len(h.registry.ListFiles("r1")); got != 1 {
		t.Errorf("Registry should be untouched, has %d files", got)
	}
}

func TestJoinTwiceMovesMembership(t *testing.T) {
	h := newTestHub()
	a := newTestClient(h, "A")
	b := newTestClient(h, "B")

	join(t, h, a, "r1")
	recvEnvelope(t, a)
	join(t, h, b, "r1")
	recvEnvelope(t, b)

	// A moves to r2; it must stop receiving r1 traffic.
	join(t, h, a, "r2")
	recvEnvelope(t, a)

	h.dispatch(inbound{client: b, frame: frameOf(t, EventCodeChange, CodeChangePayload{
		RoomID:   "r1",
		FileName: room.SeedFileName,
		NewCode:  "y=2",
	})})

	assertNoFrame(t, a)

	if !h.IsActive("r2") {
		t.Error("r2 should be active")
	}
	if h.RoomCount() != 2 {
		t.Errorf("RoomCount = %d, want 2", h.RoomCount())
	}
	if h.ClientCount() != 2 {
		t.Errorf("ClientCount = %d, want 2", h.ClientCount())
	}
}

func TestDisconnectKeepsRegistryState(t *testing.T) {
	h := newTestHub()
	a := newTestClient(h, "A")
	join(t, h, a, "r1")
	recvEnvelope(t, a)

	h.removeClient(a)

	if h.IsActive("r1") {
		t.Error("r1 should have no connected clients")
	}
	// Room state outlives connections.
	if files := h.registry.ListFiles("r1"); len(files) != 1 {
		t.Errorf("Registry lost room state: %+v", files)
	}

	if _, ok := <-a.send; ok {
		t.Error("Send channel should be closed after disconnect")
	}
}

// A client can queue frames and then disconnect before the hub drains
// them. The stale frames must be dropped, not re-register the client.
func TestStaleFrameAfterDisconnect(t *testing.T) {
	h := newTestHub()
	a := newTestClient(h, "A")
	b := newTestClient(h, "B")
	join(t, h, a, "r1")
	recvEnvelope(t, a)
	join(t, h, b, "r1")
	recvEnvelope(t, b)

	stale := frameOf(t, EventJoinRoom, JoinRoomPayload{RoomID: "r1"})
	h.removeClient(a)

	h.dispatch(inbound{client: a, frame: stale})

	if h.ClientCount() != 1 {
		t.Errorf("ClientCount = %d, want 1", h.ClientCount())
	}

	// B's traffic must not reach A's closed channel.
	h.dispatch(inbound{client: b, frame: frameOf(t, EventCodeChange, CodeChangePayload{
		RoomID:   "r1",
		FileName: room.SeedFileName,
		NewCode:  "x=1",
	})})
}

func TestRemoveClientIdempotent(t *testing.T) {
	h := newTestHub()
	a := newTestClient(h, "A")
	join(t, h, a, "r1")
	recvEnvelope(t, a)

	h.removeClient(a)
	h.removeClient(a)

	if h.ClientCount() != 0 {
		t.Errorf("ClientCount = %d, want 0", h.ClientCount())
	}
}

func TestStopMakesRunReturn(t *testing.T) {
	h := newTestHub()
	done := make(chan struct{})
	go func() {
		h.Run()
		close(done)
	}()

	h.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Stop")
	}
}

// The full scenario: A joins, B joins, A edits, B creates a file.
func TestCollaborationScenario(t *testing.T) {
	h := newTestHub()
	a := newTestClient(h, "A")
	b := newTestClient(h, "B")

	join(t, h, a, "r1")
	env := recvEnvelope(t, a)
	var files []room.File
	json.Unmarshal(env.Data, &files)
	if len(files) != 1 {
		t.Fatalf("A should see 1 seeded file, got %d", len(files))
	}

	join(t, h, b, "r1")
	env = recvEnvelope(t, b)
	json.Unmarshal(env.Data, &files)
	if len(files) != 1 {
		t.Fatalf("B should see the same single file, got %d", len(files))
	}

	h.dispatch(inbound{client: a, frame: frameOf(t, EventCodeChange, CodeChangePayload{
		RoomID:   "r1",
		FileName: room.SeedFileName,
		NewCode:  "x=1",
	})})

	env = recvEnvelope(t, b)
	var change RemoteCodeChangePayload
	json.Unmarshal(env.Data, &change)
	if change.NewCode != "x=1" {
		t.Errorf("B received code %q, want %q", change.NewCode, "x=1")
	}
	assertNoFrame(t, a)

	h.dispatch(inbound{client: b, frame: frameOf(t, EventCreateFile, CreateFilePayload{
		RoomID:   "r1",
		FileName: "b.py",
	})})

	for _, cl := range []*Client{a, b} {
		env = recvEnvelope(t, cl)
		if env.Event != EventFileCreated {
			t.Fatalf("Expected %s for %s, got %s", EventFileCreated, cl.id, env.Event)
		}
	}

	files = h.registry.ListFiles("r1")
	if files[1].Language != lang.Python || files[1].Code != lang.Template(lang.Python) {
		t.Errorf("Created file = %+v", files[1])
	}
}

// Events queued through the hub loop are applied in the order sent.
func TestRunLoopOrdering(t *testing.T) {
	h := newTestHub()
	go h.Run()

	a := newTestClient(h, "A")
	h.inbound <- inbound{client: a, frame: frameOf(t, EventJoinRoom, JoinRoomPayload{RoomID: "r1"})}

	for i := 0; i < 20; i++ {
		h.inbound <- inbound{client: a, frame: frameOf(t, EventCodeChange, CodeChangePayload{
			RoomID:   "r1",
			FileName: room.SeedFileName,
			NewCode:  fmt.Sprintf("v%d", i),
		})}
	}

	deadline := time.After(2 * time.Second)
	for {
		files := h.registry.ListFiles("r1")
		if len(files) == 1 && files[0].Code == "v19" {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("Timed out waiting for final write, files = %+v", files)
		case <-time.After(10 * time.Millisecond):
		}
	}
}
